package garage

import "errors"

// Domain-level error values returned by the garage service.
var (
	ErrVINRequired          = errors.New("vin is required")
	ErrOwnerRequired        = errors.New("owner id is required")
	ErrVehicleInsertFailed  = errors.New("failed to add vehicle")
	ErrDuplicateVehicle     = errors.New("vehicle already registered for owner")
	ErrInvalidServiceConfig = errors.New("invalid service config")
)
