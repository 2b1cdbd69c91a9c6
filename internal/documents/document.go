// Package documents implements the document access gateway: it consumes
// document requests from the bus, issues container credentials from blob
// storage, and publishes exactly one correlated response per request.
package documents

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// HeaderCorrelationID is the record header carrying the correlation id on
// outbound responses.
const HeaderCorrelationID = "correlation-id"

// Request asks for access to a stored document. FileSize is informational
// and never checked against the store.
type Request struct {
	CorrelationID uuid.UUID `json:"correlationId"`
	FileName      string    `json:"fileName"`
	FileSize      int64     `json:"fileSize"`
}

// Success carries the issued credential. A nil AccessURI is a valid
// response when the store cannot sign URIs.
type Success struct {
	CorrelationID uuid.UUID `json:"correlationId"`
	AccessURI     *string   `json:"accessUri"`
}

// Failure carries a human-readable description of why no credential was issued.
type Failure struct {
	CorrelationID uuid.UUID `json:"correlationId"`
	Error         string    `json:"error"`
}

// Decode parses an inbound record value into a Request.
// Records without a usable correlation id cannot be answered and are rejected.
func Decode(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if req.CorrelationID == uuid.Nil {
		return Request{}, ErrMissingCorrelation
	}
	return req, nil
}
