package tool

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownTool is returned by Dispatch when no handler is registered under the
// requested name.
var ErrUnknownTool = errors.New("tool not found")

// ErrNoData matches every NoDataError via errors.Is.
var ErrNoData = errors.New("no data returned")

// UnknownToolError names the tool that failed to resolve.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("tool %s not found", e.Name)
}

func (e *UnknownToolError) Is(target error) bool { return target == ErrUnknownTool }

// FieldError describes one argument that failed validation.
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("field %s: %s", e.Field, e.Reason)
}

// InvalidArgumentsError is returned when arguments do not match a tool schema.
// The external capability is never called in that case.
type InvalidArgumentsError struct {
	Tool   string
	Fields []FieldError
}

func (e *InvalidArgumentsError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Error())
	}
	if e.Tool == "" {
		return "invalid arguments: " + strings.Join(parts, "; ")
	}
	return fmt.Sprintf("invalid arguments for tool %s: %s", e.Tool, strings.Join(parts, "; "))
}

// FieldNames lists the offending fields in schema order.
func (e *InvalidArgumentsError) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return names
}

// NoDataError reports that the upstream API answered without the data a tool
// needs. Message is the fixed, tool specific text surfaced to the caller.
type NoDataError struct {
	Message string
}

func (e *NoDataError) Error() string { return e.Message }

func (e *NoDataError) Is(target error) bool { return target == ErrNoData }

// NoData builds a NoDataError carrying msg verbatim.
func NoData(msg string) error {
	return &NoDataError{Message: msg}
}
