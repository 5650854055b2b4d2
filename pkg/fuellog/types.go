package fuellog

import (
	"context"
	"fmt"
	"strings"
)

// VehicleID identifies a user vehicle.
type VehicleID struct {
	value string
}

// OwnerID identifies the authenticated owner of a vehicle.
type OwnerID struct {
	value string
}

// LogID identifies a persisted fuel log entry.
type LogID struct {
	value string
}

// Odometer is a vehicle mileage reading, strictly positive.
type Odometer int64

// Gallons is a fuel volume, strictly positive.
type Gallons float64

// PricePerGallon is a unit fuel price, strictly positive.
type PricePerGallon float64

// NewVehicleID validates and normalizes a vehicle id.
func NewVehicleID(raw string) (VehicleID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return VehicleID{}, fmt.Errorf("%w: empty value", ErrInvalidVehicleID)
	}
	return VehicleID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id VehicleID) String() string {
	return id.value
}

// NewOwnerID validates and normalizes an owner id.
func NewOwnerID(raw string) (OwnerID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return OwnerID{}, fmt.Errorf("%w: empty value", ErrInvalidOwnerID)
	}
	return OwnerID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id OwnerID) String() string {
	return id.value
}

// NewLogID validates and normalizes a log id.
func NewLogID(raw string) (LogID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return LogID{}, fmt.Errorf("%w: empty value", ErrInvalidLogID)
	}
	return LogID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id LogID) String() string {
	return id.value
}

// NewOdometer validates a mileage reading.
func NewOdometer(raw int64) (Odometer, error) {
	if raw <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidOdometer)
	}
	return Odometer(raw), nil
}

// Int64 returns the raw reading.
func (odometer Odometer) Int64() int64 {
	return int64(odometer)
}

// NewGallons validates a fuel volume.
func NewGallons(raw float64) (Gallons, error) {
	if raw <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidGallons)
	}
	return Gallons(raw), nil
}

// Float64 returns the raw volume.
func (gallons Gallons) Float64() float64 {
	return float64(gallons)
}

// NewPricePerGallon validates a unit price.
func NewPricePerGallon(raw float64) (PricePerGallon, error) {
	if raw <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidPricePerGallon)
	}
	return PricePerGallon(raw), nil
}

// Float64 returns the raw price.
func (price PricePerGallon) Float64() float64 {
	return float64(price)
}

// EntryInput carries one validated fill-up submission.
type EntryInput struct {
	vehicleID         VehicleID
	occurredAtUnixUTC int64
	odometer          Odometer
	gallons           Gallons
	pricePerGallon    PricePerGallon
	tripMiles         *int64
	octane            *int
}

// NewEntryInput validates a fill-up submission. Trip miles and octane are
// optional; a supplied trip must be positive.
func NewEntryInput(vehicleID VehicleID, occurredAtUnixUTC int64, odometer Odometer, gallons Gallons, pricePerGallon PricePerGallon, tripMiles *int64, octane *int) (EntryInput, error) {
	if vehicleID == (VehicleID{}) {
		return EntryInput{}, fmt.Errorf("%w: empty value", ErrInvalidVehicleID)
	}
	if odometer <= 0 {
		return EntryInput{}, fmt.Errorf("%w: must be greater than zero", ErrInvalidOdometer)
	}
	if gallons <= 0 {
		return EntryInput{}, fmt.Errorf("%w: must be greater than zero", ErrInvalidGallons)
	}
	if pricePerGallon <= 0 {
		return EntryInput{}, fmt.Errorf("%w: must be greater than zero", ErrInvalidPricePerGallon)
	}
	if tripMiles != nil && *tripMiles <= 0 {
		return EntryInput{}, fmt.Errorf("%w: must be greater than zero when supplied", ErrInvalidTripMiles)
	}
	if octane != nil && *octane <= 0 {
		return EntryInput{}, fmt.Errorf("%w: must be greater than zero when supplied", ErrInvalidOctane)
	}
	return EntryInput{
		vehicleID:         vehicleID,
		occurredAtUnixUTC: occurredAtUnixUTC,
		odometer:          odometer,
		gallons:           gallons,
		pricePerGallon:    pricePerGallon,
		tripMiles:         tripMiles,
		octane:            octane,
	}, nil
}

// VehicleID returns the target vehicle.
func (input EntryInput) VehicleID() VehicleID { return input.vehicleID }

// OccurredAtUnixUTC returns the fill-up date.
func (input EntryInput) OccurredAtUnixUTC() int64 { return input.occurredAtUnixUTC }

// Odometer returns the submitted reading.
func (input EntryInput) Odometer() Odometer { return input.odometer }

// Gallons returns the submitted volume.
func (input EntryInput) Gallons() Gallons { return input.gallons }

// PricePerGallon returns the submitted unit price.
func (input EntryInput) PricePerGallon() PricePerGallon { return input.pricePerGallon }

// TripMiles returns the user-supplied trip distance, when present.
func (input EntryInput) TripMiles() (int64, bool) {
	if input.tripMiles == nil {
		return 0, false
	}
	return *input.tripMiles, true
}

// Octane returns the user-supplied octane, when present.
func (input EntryInput) Octane() (int, bool) {
	if input.octane == nil {
		return 0, false
	}
	return *input.octane, true
}

// Entry is a persisted fill-up with its derived fields.
type Entry struct {
	LogID             LogID
	VehicleID         VehicleID
	OwnerID           OwnerID
	OccurredAtUnixUTC int64
	Odometer          Odometer
	Gallons           Gallons
	PricePerGallon    PricePerGallon
	TotalCost         float64
	TripMiles         *int64
	MPG               *float64
	Octane            *int
	CreatedUnixUTC    int64
}

// EntryRecord is the write shape handed to the store for the primary insert.
type EntryRecord struct {
	VehicleID         VehicleID
	OwnerID           OwnerID
	OccurredAtUnixUTC int64
	Odometer          Odometer
	Gallons           Gallons
	PricePerGallon    PricePerGallon
	TotalCost         float64
	TripMiles         *int64
	MPG               *float64
	Octane            *int
	CreatedUnixUTC    int64
}

// VehicleSummary is the slice of the vehicle row the ledger reads and writes.
type VehicleSummary struct {
	VehicleID  VehicleID
	OwnerID    OwnerID
	Odometer   int64
	AverageMPG *float64
}

// Warning reports a failed best-effort step downstream of the primary insert.
type Warning struct {
	Step  string
	Cause error
}

// SubmitResult distinguishes the primary outcome from secondary effects: the
// log id is authoritative, warnings describe derived state that did not land.
type SubmitResult struct {
	LogID    LogID
	Warnings []Warning
}

// Store is the persistence contract used by Service.
type Store interface {
	GetVehicleForOwner(ctx context.Context, vehicleID VehicleID, ownerID OwnerID) (VehicleSummary, error)
	FindPredecessor(ctx context.Context, vehicleID VehicleID, odometer Odometer) (*Entry, error)
	FindSuccessor(ctx context.Context, vehicleID VehicleID, odometer Odometer) (*Entry, error)
	InsertEntry(ctx context.Context, record EntryRecord) (LogID, error)
	GetEntry(ctx context.Context, logID LogID) (Entry, error)
	UpdateDerivedFields(ctx context.Context, logID LogID, tripMiles *int64, mpg *float64) error
	RaiseVehicleOdometer(ctx context.Context, vehicleID VehicleID, ownerID OwnerID, odometer Odometer) error
	ListMPG(ctx context.Context, vehicleID VehicleID) ([]float64, error)
	UpdateVehicleAverageMPG(ctx context.Context, vehicleID VehicleID, ownerID OwnerID, average float64) error
	ListEntries(ctx context.Context, vehicleID VehicleID) ([]Entry, error)
}
