package fuellog

import (
	"context"
	"fmt"
)

// Service contains the fuel-log domain logic over a Store.
//
// The primary insert is the only hard-fail write. Every step after it
// (odometer bump, neighborhood recalculation, aggregate update) degrades to a
// Warning on the result: the user's fill-up is never lost to a derived-field
// failure, and drift self-heals on the next insert touching the same
// neighborhood.
type Service struct {
	store  Store
	nowFn  func() int64
	logger OperationLogger
}

// NewService wires a Service.
func NewService(store Store, now func() int64, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{store: store, nowFn: now}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// SubmitFuelEntry records one fill-up and repairs the derived fields of its
// odometer neighborhood: the entry itself, its immediate successor, and the
// vehicle aggregate. Entries with odometer readings outside that neighborhood
// are never touched.
func (service *Service) SubmitFuelEntry(ctx context.Context, ownerID OwnerID, input EntryInput) (SubmitResult, error) {
	result, operationError := service.submitFuelEntry(ctx, ownerID, input)
	service.logOperation(ctx, OperationLog{
		Operation: operationSubmit,
		VehicleID: input.VehicleID(),
		OwnerID:   ownerID,
		LogID:     result.LogID,
		Odometer:  input.Odometer(),
		Warnings:  result.Warnings,
		Error:     operationError,
	})
	return result, operationError
}

func (service *Service) submitFuelEntry(ctx context.Context, ownerID OwnerID, input EntryInput) (SubmitResult, error) {
	vehicle, err := service.store.GetVehicleForOwner(ctx, input.VehicleID(), ownerID)
	if err != nil {
		return SubmitResult{}, err
	}

	predecessor, err := service.store.FindPredecessor(ctx, input.VehicleID(), input.Odometer())
	if err != nil {
		return SubmitResult{}, WrapError(operationSubmit, "entry", "predecessor_lookup", err)
	}

	tripMiles := deriveTripMiles(input, predecessor)
	record := EntryRecord{
		VehicleID:         input.VehicleID(),
		OwnerID:           ownerID,
		OccurredAtUnixUTC: input.OccurredAtUnixUTC(),
		Odometer:          input.Odometer(),
		Gallons:           input.Gallons(),
		PricePerGallon:    input.PricePerGallon(),
		TotalCost:         input.Gallons().Float64() * input.PricePerGallon().Float64(),
		TripMiles:         tripMiles,
		MPG:               deriveMPG(tripMiles, input.Gallons()),
		Octane:            octanePointer(input),
		CreatedUnixUTC:    service.nowFn(),
	}
	logID, err := service.store.InsertEntry(ctx, record)
	if err != nil {
		return SubmitResult{}, WrapError(operationSubmit, "entry", "insert", err)
	}

	result := SubmitResult{LogID: logID}

	// A lower or equal reading leaves the cached vehicle odometer alone.
	if input.Odometer().Int64() > vehicle.Odometer {
		if err := service.store.RaiseVehicleOdometer(ctx, input.VehicleID(), ownerID, input.Odometer()); err != nil {
			result.Warnings = append(result.Warnings, Warning{Step: WarningStepOdometerBump, Cause: err})
		}
	}

	// Re-derive against persisted state: a concurrent insert may have changed
	// the predecessor set between the lookup above and the insert.
	suppliedTrip := suppliedTripPointer(input)
	if err := service.recalculateEntry(ctx, logID, suppliedTrip); err != nil {
		result.Warnings = append(result.Warnings, Warning{Step: WarningStepRecalcEntry, Cause: err})
	}

	successor, err := service.store.FindSuccessor(ctx, input.VehicleID(), input.Odometer())
	if err != nil {
		result.Warnings = append(result.Warnings, Warning{Step: WarningStepRecalcSuccessor, Cause: err})
	} else if successor != nil {
		if err := service.recalculateEntry(ctx, successor.LogID, nil); err != nil {
			result.Warnings = append(result.Warnings, Warning{Step: WarningStepRecalcSuccessor, Cause: err})
		}
	}

	if err := service.updateAverageMPG(ctx, input.VehicleID(), ownerID); err != nil {
		result.Warnings = append(result.Warnings, Warning{Step: WarningStepAverageMPG, Cause: err})
	}

	return result, nil
}

// recalculateEntry re-derives trip miles and MPG for one persisted entry from
// its current predecessor. A non-nil suppliedTrip takes precedence over the
// odometer delta, matching the submission path.
func (service *Service) recalculateEntry(ctx context.Context, logID LogID, suppliedTrip *int64) error {
	entry, err := service.store.GetEntry(ctx, logID)
	if err != nil {
		return err
	}
	predecessor, err := service.store.FindPredecessor(ctx, entry.VehicleID, entry.Odometer)
	if err != nil {
		return err
	}
	tripMiles := suppliedTrip
	if tripMiles == nil && predecessor != nil && entry.Odometer > predecessor.Odometer {
		delta := entry.Odometer.Int64() - predecessor.Odometer.Int64()
		tripMiles = &delta
	}
	return service.store.UpdateDerivedFields(ctx, logID, tripMiles, deriveMPG(tripMiles, entry.Gallons))
}

// updateAverageMPG recomputes the vehicle aggregate as the unweighted mean of
// all entries carrying a computed MPG. When no such entries exist the stored
// aggregate is left untouched.
func (service *Service) updateAverageMPG(ctx context.Context, vehicleID VehicleID, ownerID OwnerID) error {
	values, err := service.store.ListMPG(ctx, vehicleID)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}
	var sum float64
	for _, value := range values {
		sum += value
	}
	return service.store.UpdateVehicleAverageMPG(ctx, vehicleID, ownerID, sum/float64(len(values)))
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	service.logger.LogOperation(ctx, entry)
}

func deriveTripMiles(input EntryInput, predecessor *Entry) *int64 {
	if supplied, ok := input.TripMiles(); ok {
		value := supplied
		return &value
	}
	if predecessor != nil && input.Odometer() > predecessor.Odometer {
		delta := input.Odometer().Int64() - predecessor.Odometer.Int64()
		return &delta
	}
	return nil
}

func deriveMPG(tripMiles *int64, gallons Gallons) *float64 {
	if tripMiles == nil || *tripMiles <= 0 || gallons <= 0 {
		return nil
	}
	mpg := float64(*tripMiles) / gallons.Float64()
	return &mpg
}

func suppliedTripPointer(input EntryInput) *int64 {
	if supplied, ok := input.TripMiles(); ok {
		value := supplied
		return &value
	}
	return nil
}

func octanePointer(input EntryInput) *int {
	if octane, ok := input.Octane(); ok {
		value := octane
		return &value
	}
	return nil
}
