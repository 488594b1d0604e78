package entity

import "errors"

// FailureKind classifies ingestion failures carried inside an IngestResult.
type FailureKind string

const (
	FailureFileNotFound      FailureKind = "file_not_found"
	FailureUnsupportedFormat FailureKind = "unsupported_format"
	FailureDependencyMissing FailureKind = "dependency_missing"
	FailureParse             FailureKind = "parse_failure"
)

// Backend errors. Clients return these wrapped with detail; the backend layer
// converts them to user-facing text exactly once.
var (
	ErrNetworkConnection = errors.New("connection failed")
	ErrNetworkTimeout    = errors.New("request timed out")
	ErrAuthentication    = errors.New("authentication failed")
	ErrContentSafety     = errors.New("content blocked by safety policy")
	ErrBackend           = errors.New("backend error")
)

// Domain errors
var (
	// Session errors
	ErrSessionNotFound = errors.New("session not found")

	// File errors
	ErrInvalidFile      = errors.New("invalid file")
	ErrFileTooLarge     = errors.New("file too large")
	ErrInvalidExtension = errors.New("invalid file extension")

	// Validation errors
	ErrMissingField  = errors.New("required field is missing")
	ErrInvalidFormat = errors.New("invalid format")
)
