package services

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind tells callers whether a failed run may still complete out of band
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindContract   ErrorKind = "contract"
	KindTransport  ErrorKind = "transport"
	KindTimeout    ErrorKind = "timeout"
	KindInternal   ErrorKind = "internal"
)

// ExtractionSchemaError means the model called the tool but its arguments failed the brand profile schema
type ExtractionSchemaError struct {
	Problems []string
	Payload  string
}

func (e *ExtractionSchemaError) Error() string {
	return fmt.Sprintf("brand profile failed schema validation: %s", strings.Join(e.Problems, "; "))
}

// NoStructuredOutputError means the model ignored the tool-call contract entirely
type NoStructuredOutputError struct {
	Tool string
}

func (e *NoStructuredOutputError) Error() string {
	return fmt.Sprintf("model response contained no %s tool call", e.Tool)
}

// GenerationParseError means no valid file set could be recovered from model text
type GenerationParseError struct {
	Reason string
	Raw    string
}

func (e *GenerationParseError) Error() string {
	return fmt.Sprintf("failed to parse generated files: %s", e.Reason)
}

// NoTextBlockError means the model response had no text content to parse
type NoTextBlockError struct {
	Operation string
}

func (e *NoTextBlockError) Error() string {
	return fmt.Sprintf("%s: model response contained no text block", e.Operation)
}

// DeployError is a non-2xx answer from the hosting provider
type DeployError struct {
	StatusCode int
	Body       string
}

func (e *DeployError) Error() string {
	return fmt.Sprintf("hosting provider returned status %d: %s", e.StatusCode, e.Body)
}

// DeploymentTimeoutError means polling stopped before a terminal state was seen.
// The deployment may still finish; callers can re-poll with DeploymentID.
type DeploymentTimeoutError struct {
	DeploymentID string
	Attempts     int
	LastState    string
}

func (e *DeploymentTimeoutError) Error() string {
	return fmt.Sprintf("deployment %s not terminal after %d polls (last state %s)", e.DeploymentID, e.Attempts, e.LastState)
}

// KindOf classifies err, looking through wrapped errors
func KindOf(err error) ErrorKind {
	var (
		schemaErr  *ExtractionSchemaError
		noToolErr  *NoStructuredOutputError
		parseErr   *GenerationParseError
		noTextErr  *NoTextBlockError
		deployErr  *DeployError
		timeoutErr *DeploymentTimeoutError
	)

	switch {
	case errors.As(err, &schemaErr):
		return KindValidation
	case errors.As(err, &noToolErr), errors.As(err, &parseErr), errors.As(err, &noTextErr):
		return KindContract
	case errors.As(err, &deployErr):
		return KindTransport
	case errors.As(err, &timeoutErr):
		return KindTimeout
	default:
		return KindInternal
	}
}
