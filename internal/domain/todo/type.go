package todo

import (
	"fmt"
	"strings"
)

type SortField string

const (
	SortByCreatedAt SortField = "created_at"
	SortByUpdatedAt SortField = "updated_at"
	SortByTitle     SortField = "title"
	SortByCompleted SortField = "completed"
)

// Validate checks the sort field. Empty means server default.
func (f SortField) Validate() error {
	switch f {
	case "", SortByCreatedAt, SortByUpdatedAt, SortByTitle, SortByCompleted:
		return nil
	}
	return fmt.Errorf("%w: unknown sort field %q", ErrValidation, string(f))
}

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

func (o SortOrder) Validate() error {
	switch o {
	case "", SortAsc, SortDesc:
		return nil
	}
	return fmt.Errorf("%w: unknown sort order %q", ErrValidation, string(o))
}

// StatusFilter is the user-facing name of the completion filter.
type StatusFilter string

const (
	StatusAll       StatusFilter = "all"
	StatusCompleted StatusFilter = "completed"
	StatusPending   StatusFilter = "pending"
)

// ParseStatus maps a status name to the optional completion flag of a Query.
func ParseStatus(s string) (*bool, error) {
	switch StatusFilter(strings.ToLower(strings.TrimSpace(s))) {
	case "", StatusAll:
		return nil, nil
	case StatusCompleted:
		return Bool(true), nil
	case StatusPending:
		return Bool(false), nil
	}
	return nil, fmt.Errorf("%w: unknown status %q (all, completed, pending)", ErrValidation, s)
}

// StatusOf is the inverse of ParseStatus.
func StatusOf(completed *bool) StatusFilter {
	switch {
	case completed == nil:
		return StatusAll
	case *completed:
		return StatusCompleted
	default:
		return StatusPending
	}
}

type ExportFormat string

const (
	ExportJSON ExportFormat = "json"
	ExportCSV  ExportFormat = "csv"
)

func (f ExportFormat) Validate() error {
	switch f {
	case ExportJSON, ExportCSV:
		return nil
	}
	return fmt.Errorf("%w: unsupported export format %q (json, csv)", ErrValidation, string(f))
}

// Extension returns the file extension for downloads.
func (f ExportFormat) Extension() string {
	return "." + string(f)
}
