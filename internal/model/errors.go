package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrUnauthorized возвращается при неверных учётных данных.
	ErrUnauthorized = errors.New("invalid credentials")
	// ErrAccountDisabled возвращается при входе в отключённую учётную запись администратора.
	ErrAccountDisabled = errors.New("account is disabled")
	// ErrForbidden возвращается при неверном ключе первичной настройки.
	ErrForbidden = errors.New("forbidden")
	// ErrPaymentNotCompleted возвращается, если платёжная система не подтвердила оплату.
	ErrPaymentNotCompleted = errors.New("payment not completed")
)

// ThrottledError сигнализирует о превышении лимита запросов.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return "too many requests"
}

// ValidationError содержит полный список нарушенных правил.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	if len(e.Reasons) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(e.Reasons, "; ")
}

// NewValidationError создаёт ошибку валидации из списка причин.
func NewValidationError(reasons ...string) *ValidationError {
	return &ValidationError{Reasons: reasons}
}

// NotFoundError сигнализирует об отсутствии сущности.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	if e.ID == 0 {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// ConflictError сигнализирует о нарушении бизнес-ограничения: дубликат, несовпадение цены.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string {
	return e.Msg
}

// ExternalError оборачивает сбой хранилища или платёжной системы.
// Подробности пишутся в лог, клиенту отдаётся общее сообщение.
type ExternalError struct {
	Op  string
	Err error
}

func (e *ExternalError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ExternalError) Unwrap() error {
	return e.Err
}

// External оборачивает err в ExternalError. Ошибки предметной области возвращаются как есть.
func External(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsThrottled(err) || IsValidation(err) || IsNotFound(err) || IsConflict(err) || IsExternal(err) {
		return err
	}
	return &ExternalError{Op: op, Err: err}
}

// IsThrottled сообщает, является ли err ошибкой превышения лимита.
func IsThrottled(err error) bool {
	var e *ThrottledError
	return errors.As(err, &e)
}

// IsValidation сообщает, является ли err ошибкой валидации.
func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

// IsNotFound сообщает, является ли err ошибкой отсутствия сущности.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// IsConflict сообщает, является ли err конфликтом.
func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

// IsExternal сообщает, является ли err сбоем внешней системы.
func IsExternal(err error) bool {
	var e *ExternalError
	return errors.As(err, &e)
}
