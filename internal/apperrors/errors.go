package apperrors

import (
	"fmt"
	"strings"
)

// Category classifies errors by how the caller should react to them.
type Category string

const (
	// Errors that should stop the process.
	CategoryFatal  Category = "FATAL"
	CategoryConfig Category = "CONFIG"

	// Errors tied to one tick or one computation; the pipeline skips the
	// input and continues.
	CategoryValidation  Category = "VALIDATION"
	CategoryComputation Category = "COMPUTATION"
	CategoryState       Category = "STATE"
	CategoryListener    Category = "LISTENER"

	// Transient errors worth retrying.
	CategoryNetwork   Category = "NETWORK"
	CategoryTimeout   Category = "TIMEOUT"
	CategoryTemporary Category = "TEMPORARY"
)

// Error is a categorized error with component and operation context.
type Error struct {
	Category   Category
	Component  string
	Operation  string
	Message    string
	Underlying error
	Context    map[string]interface{}
	Retryable  bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s in %s: %v", e.Category, e.Component, e.Message, e.Operation, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s in %s", e.Category, e.Component, e.Message, e.Operation)
}

// Unwrap returns the underlying error for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Underlying
}

// IsRetryable reports whether the operation can be retried.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// IsFatal reports whether the process should stop.
func (e *Error) IsFatal() bool {
	return e.Category == CategoryFatal || e.Category == CategoryConfig
}

// New creates a categorized error.
func New(category Category, component, operation, message string) *Error {
	return &Error{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
		Retryable: retryableCategory(category),
	}
}

// Wrap attaches category and context to an existing error. Returns nil for
// a nil error.
func Wrap(err error, category Category, component, operation string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
		Context:    make(map[string]interface{}),
		Retryable:  retryableCategory(category),
	}
}

// WithContext attaches a key/value pair to the error.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRetryable overrides the category default.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

func retryableCategory(category Category) bool {
	switch category {
	case CategoryNetwork, CategoryTimeout, CategoryTemporary:
		return true
	case CategoryFatal, CategoryConfig, CategoryValidation, CategoryComputation:
		return false
	default:
		return false
	}
}

// Categorize classifies a generic error by inspecting its message. Already
// categorized errors pass through unchanged.
func Categorize(err error, component, operation string) *Error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*Error); ok {
		return appErr
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "context deadline exceeded"):
		return Wrap(err, CategoryTimeout, component, operation)
	case strings.Contains(msg, "connection") || strings.Contains(msg, "network") ||
		strings.Contains(msg, "dns") || strings.Contains(msg, "dial"):
		return Wrap(err, CategoryNetwork, component, operation)
	case strings.Contains(msg, "invalid") || strings.Contains(msg, "malformed") ||
		strings.Contains(msg, "parse"):
		return Wrap(err, CategoryValidation, component, operation)
	case strings.Contains(msg, "nan") || strings.Contains(msg, "divide") ||
		strings.Contains(msg, "overflow"):
		return Wrap(err, CategoryComputation, component, operation)
	default:
		return Wrap(err, CategoryTemporary, component, operation)
	}
}

// Common constructors.

func NewValidationError(component, operation, message string) *Error {
	return New(CategoryValidation, component, operation, message)
}

func NewComputationError(component, operation string, err error) *Error {
	return Wrap(err, CategoryComputation, component, operation)
}

func NewStateError(component, operation, message string) *Error {
	return New(CategoryState, component, operation, message)
}

func NewListenerError(component, operation string, err error) *Error {
	return Wrap(err, CategoryListener, component, operation)
}

func NewNetworkError(component, operation string, err error) *Error {
	return Wrap(err, CategoryNetwork, component, operation)
}

func NewConfigError(component, operation, message string) *Error {
	return New(CategoryConfig, component, operation, message)
}

func NewFatalError(component, operation, message string) *Error {
	return New(CategoryFatal, component, operation, message)
}

// Stats tracks error counts per category with a bounded recent window.
type Stats struct {
	TotalErrors      int
	ErrorsByCategory map[Category]int
	RecentErrors     []*Error
	MaxRecentErrors  int
}

// NewStats creates an error statistics tracker.
func NewStats(maxRecent int) *Stats {
	return &Stats{
		ErrorsByCategory: make(map[Category]int),
		RecentErrors:     make([]*Error, 0, maxRecent),
		MaxRecentErrors:  maxRecent,
	}
}

// Record folds an error into the statistics.
func (s *Stats) Record(err *Error) {
	s.TotalErrors++
	s.ErrorsByCategory[err.Category]++

	s.RecentErrors = append(s.RecentErrors, err)
	if len(s.RecentErrors) > s.MaxRecentErrors {
		s.RecentErrors = s.RecentErrors[1:]
	}
}

// Rate returns the share of recorded errors in the given category.
func (s *Stats) Rate(category Category) float64 {
	if s.TotalErrors == 0 {
		return 0
	}
	return float64(s.ErrorsByCategory[category]) / float64(s.TotalErrors)
}
