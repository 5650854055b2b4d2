package fuellog

import (
	"errors"
	"fmt"
)

// Domain-level error values returned by the fuel-log service.
var (
	ErrVehicleNotFound       = errors.New("vehicle not found or access denied")
	ErrEntryNotFound         = errors.New("fuel log entry not found")
	ErrInvalidVehicleID      = errors.New("invalid vehicle id")
	ErrInvalidOwnerID        = errors.New("invalid owner id")
	ErrInvalidLogID          = errors.New("invalid log id")
	ErrInvalidOdometer       = errors.New("invalid odometer")
	ErrInvalidGallons        = errors.New("invalid gallons")
	ErrInvalidPricePerGallon = errors.New("invalid price per gallon")
	ErrInvalidTripMiles      = errors.New("invalid trip miles")
	ErrInvalidOctane         = errors.New("invalid octane")
	ErrInvalidServiceConfig  = errors.New("invalid service config")
)

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
