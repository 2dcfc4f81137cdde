package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"reviewhub/internal/access"
	"reviewhub/internal/api/repository"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("you do not have permission to perform this action")
	ErrUnauthenticated   = errors.New("authentication credentials were not provided")
	ErrConflict          = errors.New("conflict")
	ErrAlreadyRegistered = errors.New("already registered")
	ErrMailDelivery      = errors.New("could not deliver confirmation email")
	ErrInvalidToken      = errors.New("invalid token")
	ErrExpiredToken      = errors.New("token has expired")
)

// NotFoundError names the missing resource; it matches ErrNotFound.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConflictError explains a state conflict; it matches ErrConflict.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// ValidationError carries per-field messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

// OrNil returns nil when no field failed.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func fieldError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// authorize turns a denied predicate into the error the caller should see:
// anonymous callers are asked to authenticate, everyone else is forbidden.
func authorize(actor access.Actor, act access.Action, res access.Resource) error {
	if access.Allowed(actor, act, res) {
		return nil
	}
	if res.Kind == access.Signup {
		return ErrAlreadyRegistered
	}
	if !actor.IsAuthenticated() {
		return ErrUnauthenticated
	}
	return ErrForbidden
}

// notFound maps repository.ErrNotFound onto a named NotFoundError and wraps
// anything else with op.
func notFound(resource, op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &NotFoundError{Resource: resource}
	}
	return fmt.Errorf("%s: %w", op, err)
}
