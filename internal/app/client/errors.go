package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"todoctl/internal/domain/todo"
	"todoctl/internal/domain/user"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

// TransportError - запрос не дошел до сервера или ответ не прочитан.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrUnavailable, e.Err}
}

// APIError - сервер ответил статусом >= 400.
// Detail заполняется, только если тело было {"detail": "<строка>"}.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("server returned %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("server returned %d %s", e.Status, http.StatusText(e.Status))
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// Temporary сообщает, может ли повтор запроса пройти успешно.
func (e *APIError) Temporary() bool {
	return e.Status >= http.StatusInternalServerError
}

func newAPIError(status int, body []byte) *APIError {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	apiErr := &APIError{Status: status}
	if err := json.Unmarshal(body, &payload); err != nil {
		return apiErr
	}

	// у ошибок валидации FastAPI здесь список, пользователю показываем только строку
	var detail string
	if err := json.Unmarshal(payload.Detail, &detail); err == nil {
		apiErr.Detail = detail
	}
	return apiErr
}

// UserMessage выбирает текст ошибки для пользователя: detail от сервера,
// затем сообщение валидации, иначе fallback.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}

	if errors.Is(err, todo.ErrValidation) || errors.Is(err, user.ErrInvalidInput) {
		return err.Error()
	}

	return fallback
}
