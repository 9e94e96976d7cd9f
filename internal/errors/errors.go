package errors

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// BuildError is a single diagnostic reported by the bundler.
type BuildError struct {
	Plugin    string
	File      string
	Line      int
	Column    int
	Message   string
	Severity  ErrorSeverity
	Timestamp time.Time
}

// ErrorSeverity represents the severity of an error
type ErrorSeverity int

const (
	ErrorSeverityInfo ErrorSeverity = iota
	ErrorSeverityWarning
	ErrorSeverityError
	ErrorSeverityFatal
)

// String returns the string representation of the severity
func (s ErrorSeverity) String() string {
	switch s {
	case ErrorSeverityInfo:
		return "info"
	case ErrorSeverityWarning:
		return "warning"
	case ErrorSeverityError:
		return "error"
	case ErrorSeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error implements the error interface
func (be *BuildError) Error() string {
	if be.File == "" {
		return fmt.Sprintf("%s: %s", be.Severity, be.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s", be.File, be.Line, be.Column, be.Severity, be.Message)
}

// ErrorCollector gathers diagnostics from concurrent build callbacks.
type ErrorCollector struct {
	buildErrors []BuildError
	mutex       sync.RWMutex
}

// NewErrorCollector creates a new error collector
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{
		buildErrors: make([]BuildError, 0),
	}
}

// Add adds a build error to the collector
func (ec *ErrorCollector) Add(err BuildError) {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	if err.Timestamp.IsZero() {
		err.Timestamp = time.Now()
	}
	ec.buildErrors = append(ec.buildErrors, err)
}

// HasErrors returns true if anything at error severity or above was collected
func (ec *ErrorCollector) HasErrors() bool {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	for _, err := range ec.buildErrors {
		if err.Severity >= ErrorSeverityError {
			return true
		}
	}
	return false
}

// GetErrorsBySeverity returns build errors at exactly the given severity,
// ordered by file, line and column.
func (ec *ErrorCollector) GetErrorsBySeverity(severity ErrorSeverity) []BuildError {
	ec.mutex.RLock()
	var matched []BuildError
	for _, err := range ec.buildErrors {
		if err.Severity == severity {
			matched = append(matched, err)
		}
	}
	ec.mutex.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].File != matched[j].File {
			return matched[i].File < matched[j].File
		}
		if matched[i].Line != matched[j].Line {
			return matched[i].Line < matched[j].Line
		}
		return matched[i].Column < matched[j].Column
	})
	return matched
}
