package fuellog

import "context"

// ListEntries returns a vehicle's fuel history ordered by odometer ascending.
func (service *Service) ListEntries(requestContext context.Context, ownerID OwnerID, vehicleID VehicleID) ([]Entry, error) {
	if _, err := service.store.GetVehicleForOwner(requestContext, vehicleID, ownerID); err != nil {
		return nil, err
	}
	entries, err := service.store.ListEntries(requestContext, vehicleID)
	if err != nil {
		return nil, WrapError(operationList, "entry", "list", err)
	}
	return entries, nil
}

// VehicleSummary returns the vehicle row with its cached aggregate fields.
func (service *Service) VehicleSummary(requestContext context.Context, ownerID OwnerID, vehicleID VehicleID) (VehicleSummary, error) {
	return service.store.GetVehicleForOwner(requestContext, vehicleID, ownerID)
}
