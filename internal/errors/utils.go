package errors

import (
	"errors"
	"io/fs"
)

// Wrap wraps an error with additional context, creating a QuillError if the input is not already one
func Wrap(err error, errType ErrorType, code, message string) *QuillError {
	if err == nil {
		return nil
	}

	// Keep the inner error's location so the outer one still points at the file
	var qe *QuillError
	if errors.As(err, &qe) {
		return &QuillError{
			Type:      errType,
			Code:      code,
			Message:   message,
			Cause:     qe,
			Context:   qe.Context,
			Component: qe.Component,
			Path:      qe.Path,
		}
	}

	return &QuillError{
		Type:    errType,
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WrapFileError classifies a filesystem error for path into a QuillError,
// mapping missing files and permission failures to their own codes.
func WrapFileError(err error, path, message string) *QuillError {
	if err == nil {
		return nil
	}

	code := ErrCodeFileRead
	switch {
	case errors.Is(err, fs.ErrNotExist):
		code = ErrCodeFileNotFound
	case errors.Is(err, fs.ErrPermission):
		code = ErrCodePermissionDenied
	}

	return Wrap(err, ErrorTypeIO, code, message).WithPath(path)
}

// WrapConfig wraps an error as a configuration error
func WrapConfig(err error, code, message string) *QuillError {
	return Wrap(err, ErrorTypeConfig, code, message)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(err error, code, message string) *QuillError {
	return Wrap(err, ErrorTypeInternal, code, message)
}

// GetErrorContext returns structured fields describing err, suitable for
// passing to a logger.
func GetErrorContext(err error) map[string]interface{} {
	if err == nil {
		return nil
	}

	var qe *QuillError
	if errors.As(err, &qe) {
		context := make(map[string]interface{}, len(qe.Context)+4)
		for k, v := range qe.Context {
			context[k] = v
		}
		if qe.Path != "" {
			context["path"] = qe.Path
		}
		if qe.Component != "" {
			context["component"] = qe.Component
		}
		context["type"] = string(qe.Type)
		context["code"] = qe.Code
		return context
	}

	return map[string]interface{}{
		"message": err.Error(),
		"type":    "unknown",
	}
}
