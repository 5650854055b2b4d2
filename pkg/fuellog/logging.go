package fuellog

import "context"

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// OperationLogger records domain-level events emitted by Service operations.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes one fuel-log operation, including any degraded
// best-effort steps.
type OperationLog struct {
	Operation string
	VehicleID VehicleID
	OwnerID   OwnerID
	LogID     LogID
	Odometer  Odometer
	Warnings  []Warning
	Status    string
	Error     error
}

// WithOperationLogger wires a logger that receives callbacks for every operation.
func WithOperationLogger(logger OperationLogger) ServiceOption {
	return func(service *Service) {
		service.logger = logger
	}
}
