package todo

import (
	"strings"
	"unicode/utf8"
)

const (
	MaxTitleLen       = 200
	MaxDescriptionLen = 1000
)

// NormalizeCreate validates a create request and trims its title.
func NormalizeCreate(req CreateRequest) (CreateRequest, error) {
	title, err := normalizeTitle(req.Title)
	if err != nil {
		return req, err
	}
	req.Title = title

	if err := validateDescription(req.Description); err != nil {
		return req, err
	}
	return req, nil
}

// NormalizeUpdate validates a partial update. Only present fields are checked.
func NormalizeUpdate(req UpdateRequest) (UpdateRequest, error) {
	if req.Empty() {
		return req, &ValidationError{Err: ErrNoChanges}
	}
	if req.Title != nil {
		title, err := normalizeTitle(*req.Title)
		if err != nil {
			return req, err
		}
		req.Title = &title
	}
	if err := validateDescription(req.Description); err != nil {
		return req, err
	}
	return req, nil
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", &ValidationError{Field: "title", Err: ErrEmptyTitle}
	}
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return "", &ValidationError{Field: "title", Err: errTooLong}
	}
	return title, nil
}

func validateDescription(d *string) error {
	if d != nil && utf8.RuneCountInString(*d) > MaxDescriptionLen {
		return &ValidationError{Field: "description", Err: errTooLong}
	}
	return nil
}
