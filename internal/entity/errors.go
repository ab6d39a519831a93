package entity

import (
	"errors"
	"fmt"
)

// ErrArticleNotFound is matched by NotFoundError via errors.Is.
var ErrArticleNotFound = errors.New("article not found")

// NotFoundError is returned when a store lookup misses.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("article not found: %q", e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrArticleNotFound
}

// ParseError describes a field value that could not be parsed. Cleaning falls back to a default
// and only logs it.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ScoringError records a scorer failure for a single article.
type ScoringError struct {
	Key string
	Err error
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("failed to score article %q: %v", e.Key, e.Err)
}

func (e *ScoringError) Unwrap() error {
	return e.Err
}

// PersistenceError wraps an I/O failure against the tabular store or database.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
