package errors

import (
	"errors"
)

// Wrap wraps an error with additional context, creating a BundlekitError if the
// input is not already one. Location information of a wrapped BundlekitError is kept.
func Wrap(err error, errType ErrorType, code, message string) *BundlekitError {
	if err == nil {
		return nil
	}

	var be *BundlekitError
	if errors.As(err, &be) {
		return &BundlekitError{
			Type:     errType,
			Code:     code,
			Message:  message,
			Cause:    err,
			FilePath: be.FilePath,
			Line:     be.Line,
			Column:   be.Column,
		}
	}

	return &BundlekitError{
		Type:    errType,
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WrapBuild wraps an error as a build error for a file.
func WrapBuild(err error, code, message, filePath string) *BundlekitError {
	wrapped := Wrap(err, ErrorTypeBuild, code, message)
	if wrapped != nil && wrapped.FilePath == "" {
		wrapped.FilePath = filePath
	}
	return wrapped
}

// WrapIO wraps an error as an I/O error.
func WrapIO(err error, code, message string) *BundlekitError {
	return Wrap(err, ErrorTypeIO, code, message)
}

// WrapConfig wraps an error as a configuration error.
func WrapConfig(err error, code, message string) *BundlekitError {
	return Wrap(err, ErrorTypeConfig, code, message)
}

// CombineErrors joins the non-nil errors, returning nil when there are none.
func CombineErrors(errs ...error) error {
	var nonNil []error
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}

	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	default:
		return errors.Join(nonNil...)
	}
}
