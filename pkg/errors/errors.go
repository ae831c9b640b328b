// Package errors provides coded errors shared by the collector and its collaborators.
//
// Every code has the shape "<area>.<operation>.<reason>"; the predicates below classify an
// error by its reason so callers never compare message strings.
package errors

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeCollectorQueryInvalidInput Code = "collector.query.invalid_input"
	CodeCollectorAddConflict       Code = "collector.add.conflict"

	CodeEmbeddingFactoryUnsupported Code = "embedding.factory.unsupported"
	CodeEmbeddingUpstreamFailure    Code = "embedding.upstream.failure"

	CodeIndexFactoryUnsupported Code = "index.factory.unsupported"
	CodeIndexUpstreamFailure    Code = "index.upstream.failure"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigParseInvalidFormat   Code = "config.parse.invalid_format"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}
	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return oops.Code(code).Wrapf(err, format, args...)
}

// CodeOf returns the code carried by err, or "" for uncoded errors.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}
	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}
	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

// FieldsOf returns the structured fields attached to err.
func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}
	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// IsValidation reports whether err rejects caller-supplied arguments.
func IsValidation(err error) bool {
	code := CodeOf(err)
	if strings.HasPrefix(string(code), "config.") {
		return false
	}
	r := reason(code)
	return r == "invalid" || r == "invalid_input"
}

// IsConfiguration reports whether err comes from bad configuration, including an unknown
// embedder or index type.
func IsConfiguration(err error) bool {
	code := CodeOf(err)
	if code == "" {
		return false
	}
	return strings.HasPrefix(string(code), "config.") || reason(code) == "unsupported"
}

// IsState reports whether err is a corpus state conflict, such as adding to a populated corpus.
func IsState(err error) bool {
	return reason(CodeOf(err)) == "conflict"
}

// IsCollaborator reports whether err was raised by the embedder or the vector index.
func IsCollaborator(err error) bool {
	code := CodeOf(err)
	return strings.Contains(string(code), "upstream") && reason(code) == "failure"
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}
	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
