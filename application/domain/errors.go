package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies pipeline failures. Codes are stable and are used both by the
// reporter's machine-readable output and by the CLI exit status.
type ErrorCode string

const (
	ErrCodeInput     ErrorCode = "input_error"
	ErrCodeParse     ErrorCode = "parse_error"
	ErrCodeStructure ErrorCode = "structure_error"
	ErrCodeCrypto    ErrorCode = "crypto_error"
)

// String returns the error code as a string.
func (c ErrorCode) String() string {
	return string(c)
}

var (
	// Input errors
	ErrCertificateNotFound = errors.New("certificate not found")
	ErrDocumentNotFound    = errors.New("document not found")
	ErrExtraction          = errors.New("archive extraction failed")

	// Parse errors
	ErrCertificateParse = errors.New("certificate parse error")
	ErrXMLParse         = errors.New("xml parse error")

	// Structure errors
	ErrStructure = errors.New("document structure error")

	// Crypto errors
	ErrSignatureDecode = errors.New("signature decode error")
	ErrSignatureFormat = errors.New("signature format error")
)

// AppError is a structured error with code, kind, message and optional cause.
type AppError struct {
	Code    ErrorCode
	Kind    error
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes both the kind sentinel and the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// CodeOf returns the code of the first AppError in err's chain, or "" when there is none.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// InputError creates an error for a missing or unreadable input.
func InputError(kind error, message string, cause error) *AppError {
	return &AppError{Code: ErrCodeInput, Kind: kind, Message: message, Cause: cause}
}

// ParseError creates an error for malformed XML or certificate data.
func ParseError(kind error, message string, cause error) *AppError {
	return &AppError{Code: ErrCodeParse, Kind: kind, Message: message, Cause: cause}
}

// StructureError creates an error for a document that does not match the expected layout.
func StructureError(message string) *AppError {
	return &AppError{Code: ErrCodeStructure, Kind: ErrStructure, Message: message}
}

// CryptoError creates an error for unusable keys or signature bytes.
func CryptoError(kind error, message string, cause error) *AppError {
	return &AppError{Code: ErrCodeCrypto, Kind: kind, Message: message, Cause: cause}
}
