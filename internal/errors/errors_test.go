package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorSeverityString(t *testing.T) {
	testCases := []struct {
		severity ErrorSeverity
		expected string
	}{
		{ErrorSeverityInfo, "info"},
		{ErrorSeverityWarning, "warning"},
		{ErrorSeverityError, "error"},
		{ErrorSeverityFatal, "fatal"},
		{ErrorSeverity(999), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.severity.String())
		})
	}
}

func TestBuildErrorError(t *testing.T) {
	err := BuildError{
		File:     "src/index.js",
		Line:     10,
		Column:   5,
		Message:  "Module not found",
		Severity: ErrorSeverityError,
	}

	assert.Equal(t, "src/index.js:10:5: error: Module not found", err.Error())

	noFile := BuildError{Message: "no entry", Severity: ErrorSeverityWarning}
	assert.Equal(t, "warning: no entry", noFile.Error())
}

func TestErrorCollector(t *testing.T) {
	collector := NewErrorCollector()
	assert.False(t, collector.HasErrors())

	collector.Add(BuildError{File: "b.js", Line: 2, Message: "warn", Severity: ErrorSeverityWarning})
	assert.False(t, collector.HasErrors(), "warnings alone are not errors")

	before := time.Now()
	collector.Add(BuildError{File: "a.js", Line: 9, Message: "late", Severity: ErrorSeverityError})
	collector.Add(BuildError{File: "a.js", Line: 1, Message: "early", Severity: ErrorSeverityError})
	assert.True(t, collector.HasErrors())

	errs := collector.GetErrorsBySeverity(ErrorSeverityError)
	require.Len(t, errs, 2)
	assert.Equal(t, "early", errs[0].Message)
	assert.Equal(t, "late", errs[1].Message)
	assert.False(t, errs[0].Timestamp.Before(before))

	warnings := collector.GetErrorsBySeverity(ErrorSeverityWarning)
	require.Len(t, warnings, 1)
	assert.Equal(t, "b.js", warnings[0].File)
}

func TestBundlekitError(t *testing.T) {
	t.Run("formats code location and cause", func(t *testing.T) {
		cause := errors.New("unexpected {")
		err := NewBuildError(CodeSassCompile, "failed to compile", cause).WithLocation("app.scss", 3, 7)

		assert.Equal(t, "[SASS_COMPILE] app.scss:3:7 failed to compile: unexpected {", err.Error())
		assert.Same(t, cause, errors.Unwrap(err))
	})

	t.Run("is matches type and code", func(t *testing.T) {
		err := NewUsageError(CodeEntryRequired, "must have entry path")
		wrapped := fmt.Errorf("client config: %w", err)

		assert.True(t, errors.Is(wrapped, NewUsageError(CodeEntryRequired, "")))
		assert.False(t, errors.Is(wrapped, NewValidationError(CodeEntryRequired, "")))
		assert.True(t, IsUsage(wrapped))
		assert.False(t, IsType(wrapped, ErrorTypeBuild))
	})
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeIO, "X", "y"))

	inner := NewBuildError(CodeSassCompile, "bad", nil).WithLocation("x.scss", 1, 2)
	outer := WrapBuild(inner, CodeBundleFailed, "bundle failed", "ignored.js")

	assert.Equal(t, ErrorTypeBuild, outer.Type)
	assert.Equal(t, "x.scss", outer.FilePath)
	assert.Equal(t, 1, outer.Line)
	assert.Same(t, inner, errors.Unwrap(outer))

	plain := WrapIO(errors.New("disk full"), "WRITE", "write failed")
	assert.Equal(t, ErrorTypeIO, plain.Type)
	assert.Equal(t, "disk full", errors.Unwrap(plain).Error())
}

func TestCombineErrors(t *testing.T) {
	assert.NoError(t, CombineErrors(nil, nil))

	single := errors.New("one")
	assert.Same(t, single, CombineErrors(nil, single))

	combined := CombineErrors(errors.New("a"), nil, errors.New("b"))
	require.Error(t, combined)
	assert.Contains(t, combined.Error(), "a")
	assert.Contains(t, combined.Error(), "b")
}

func TestPathErrors(t *testing.T) {
	assert.Equal(t, "[INVALID_PATH] empty path", ErrInvalidPath("").Error())
	assert.Equal(t, "[INVALID_PATH] invalid path: a|b", ErrInvalidPath("a|b").Error())

	traversal := ErrPathTraversal("../etc")
	assert.Equal(t, ErrorTypeValidation, traversal.Type)
	assert.Equal(t, "[PATH_TRAVERSAL] path contains traversal: ../etc", traversal.Error())

	wrapped := WrapConfig(fmt.Errorf("paths.app_src: %w", traversal), CodeInvalidConfig, "invalid configuration")
	assert.True(t, IsType(wrapped, ErrorTypeConfig))
	assert.True(t, errors.Is(wrapped, ErrPathTraversal("")))
}
