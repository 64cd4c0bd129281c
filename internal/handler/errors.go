package handler

import (
	"errors"
	"fmt"

	"github.com/roach88/mudsync/internal/codec"
	"github.com/roach88/mudsync/internal/protocol"
)

var (
	// ErrInvalidData means a required event parameter is missing or has the
	// wrong wire type.
	ErrInvalidData = errors.New("invalid data")

	// ErrInvalidNativeType means a field's declared type cannot be decoded.
	ErrInvalidNativeType = protocol.ErrInvalidNativeType

	// ErrInvalidNativeValue means a field's bytes failed typed decode.
	ErrInvalidNativeValue = protocol.ErrInvalidNativeValue
)

// RecordErrorCode categorizes handler failures.
type RecordErrorCode string

const (
	ErrCodeInvalidData        RecordErrorCode = "INVALID_DATA"
	ErrCodeInvalidNativeType  RecordErrorCode = "INVALID_NATIVE_TYPE"
	ErrCodeInvalidNativeValue RecordErrorCode = "INVALID_NATIVE_VALUE"
)

var sentinels = map[RecordErrorCode]error{
	ErrCodeInvalidData:        ErrInvalidData,
	ErrCodeInvalidNativeType:  ErrInvalidNativeType,
	ErrCodeInvalidNativeValue: ErrInvalidNativeValue,
}

// RecordError is a handler-level decode failure for one table.
type RecordError struct {
	// Code identifies the error category.
	Code RecordErrorCode

	// Table is the name of the table being materialized.
	Table string

	// Field names the parameter or record field that failed, if known.
	Field string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *RecordError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: table %s field %s: %v", e.Code, e.Table, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: table %s: %v", e.Code, e.Table, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for e.Code, so errors.Is(err, ErrInvalidData)
// holds for a RecordError with ErrCodeInvalidData whatever its cause.
func (e *RecordError) Is(target error) bool {
	return sentinels[e.Code] == target
}

// Classify wraps a codec or protocol failure into a RecordError for table.
// Errors of any other kind, such as persistence failures, are returned
// unchanged.
func Classify(table string, err error) error {
	if err == nil {
		return nil
	}
	var re *RecordError
	if errors.As(err, &re) {
		return err
	}

	var code RecordErrorCode
	switch {
	case errors.Is(err, codec.ErrMissingParam), errors.Is(err, codec.ErrParamType):
		code = ErrCodeInvalidData
	case errors.Is(err, protocol.ErrInvalidNativeType):
		code = ErrCodeInvalidNativeType
	case errors.Is(err, protocol.ErrInvalidNativeValue):
		code = ErrCodeInvalidNativeValue
	default:
		return err
	}

	out := &RecordError{Code: code, Table: table, Err: err}
	var fe *protocol.FieldError
	if errors.As(err, &fe) {
		out.Field = fe.Field
	}
	return out
}

// IsDecodeError returns true if err is any RecordError.
// Uses errors.As to handle wrapped errors.
func IsDecodeError(err error) bool {
	var re *RecordError
	return errors.As(err, &re)
}
