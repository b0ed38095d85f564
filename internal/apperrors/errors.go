// Package apperrors define la taxonomía de errores del libro de activos.
//
// Los servicios devuelven estos tipos y la capa HTTP los traduce a códigos de
// estado con HTTPStatus. Cualquier otro error se considera de infraestructura.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrValidation             = errors.New("validation failed")
	ErrNotFound               = errors.New("resource not found")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrDuplicateKey           = errors.New("duplicate key")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrForbidden              = errors.New("forbidden")
)

// FieldError describe un problema en un campo de entrada
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError acumula todos los problemas de entrada detectados
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError crea un error con un único problema
func NewValidationError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, message)
	return v
}

func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

// OrNil devuelve nil si no se acumuló ningún problema
func (e *ValidationError) OrNil() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(msgs, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NotFoundError indica que el recurso referenciado no existe
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// InsufficientStockError expone el saldo disponible y la cantidad pedida
type InsufficientStockError struct {
	AssetID   string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient asset quantity. Available: %d, Requested: %d", e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// DuplicateKeyError nombra el campo cuya restricción de unicidad se violó
type DuplicateKeyError struct {
	Field string
	Value string
}

func (e *DuplicateKeyError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("duplicate value for field %s: %s already exists", e.Field, e.Value)
	}
	return fmt.Sprintf("duplicate value for field %s", e.Field)
}

func (e *DuplicateKeyError) Unwrap() error {
	return ErrDuplicateKey
}

// ConflictError se devuelve cuando se agotan los reintentos optimistas
type ConflictError struct {
	Resource string
	ID       string
	Attempts int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s was modified concurrently, gave up after %d attempts", e.Resource, e.ID, e.Attempts)
}

func (e *ConflictError) Unwrap() error {
	return ErrConcurrentModification
}

// ForbiddenError indica que el actor no tiene el rol requerido
type ForbiddenError struct {
	Action string
	Role   string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("role %q is not allowed to %s", e.Role, e.Action)
}

func (e *ForbiddenError) Unwrap() error {
	return ErrForbidden
}

// IsRetryable indica si la operación puede reintentarse
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError indica errores causados por la entrada del cliente
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrDuplicateKey)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// HTTPStatus traduce un error del dominio a su código HTTP
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsNotFound(err):
		return http.StatusNotFound
	case IsClientError(err):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case IsRetryable(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Fields extrae la lista de problemas de un ValidationError envuelto
func Fields(err error) []FieldError {
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Fields
	}
	return nil
}
