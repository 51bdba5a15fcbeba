package user

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MinUsernameLen = 3
	MaxUsernameLen = 50
	MinPasswordLen = 8
	MaxPasswordLen = 128
)

// Validator - интерфейс для валидации пользовательских данных
type Validator interface {
	ValidateRegister(req RegisterRequest) error
	ValidateCredentials(creds Credentials) error
}

// PasswordValidator повторяет ограничения сервера. Длины считаются в символах, не в байтах.
type PasswordValidator struct{}

// NewPasswordValidator создает валидатор с правилами сервера: только длина пароля.
func NewPasswordValidator() *PasswordValidator {
	return &PasswordValidator{}
}

// ValidateRegister валидирует данные для регистрации
func (v *PasswordValidator) ValidateRegister(req RegisterRequest) error {
	if err := v.ValidateUsername(req.Username); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if err := v.ValidateEmail(req.Email); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if err := v.ValidatePassword(req.Password); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	return nil
}

// ValidateCredentials проверяет только наличие полей: верность решает сервер.
func (v *PasswordValidator) ValidateCredentials(creds Credentials) error {
	if strings.TrimSpace(creds.Username) == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if creds.Password == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	return nil
}

// ValidateUsername валидирует имя пользователя
func (v *PasswordValidator) ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	n := utf8.RuneCountInString(username)

	if n < MinUsernameLen {
		return fmt.Errorf("username must be at least %d characters", MinUsernameLen)
	}

	if n > MaxUsernameLen {
		return fmt.Errorf("username must be at most %d characters", MaxUsernameLen)
	}

	for _, r := range username {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-' {
			return fmt.Errorf("username can only contain letters, digits, '_', '-'")
		}
	}

	return nil
}

func (v *PasswordValidator) ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("email is not a valid address")
	}
	return nil
}

// ValidatePassword валидирует пароль
func (v *PasswordValidator) ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)

	if n < MinPasswordLen {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLen)
	}

	if n > MaxPasswordLen {
		return fmt.Errorf("password must be at most %d characters", MaxPasswordLen)
	}

	return nil
}
