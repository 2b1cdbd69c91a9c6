package documents

import "errors"

// Domain errors for document requests.
var (
	ErrMalformedRequest   = errors.New("malformed document request")
	ErrMissingCorrelation = errors.New("document request has no correlation id")
	ErrDocumentNotFound   = errors.New("document not found")
	ErrInvalidPolicy      = errors.New("invalid missing object policy")
)
