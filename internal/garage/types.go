package garage

import (
	"context"

	"github.com/MarkoPoloResearchLab/garage/pkg/vinmatch"
)

// VehicleStatus enumerates the ownership lifecycle states shown in the UI.
type VehicleStatus string

const (
	StatusDailyDriver VehicleStatus = "daily_driver"
	StatusProject     VehicleStatus = "project"
	StatusRetired     VehicleStatus = "retired"
)

// VehicleRecord is the write shape for a new user vehicle.
type VehicleRecord struct {
	OwnerID      string
	VIN          string
	Year         int
	Make         string
	Model        string
	Trim         string
	Title        string
	PhotoURL     string
	StockDataID  string
	SpecSnapshot vinmatch.CatalogSpec
	RawSnapshot  map[string]string
	Status       VehicleStatus
}

// MasterScheduleItem is one row of the curated maintenance schedule for a
// catalog vehicle.
type MasterScheduleItem struct {
	ID             string
	VehicleDataID  string
	Name           string
	IntervalMonths int
	IntervalMiles  int
}

// ServiceInterval is one seeded maintenance interval on a user vehicle.
type ServiceInterval struct {
	UserID                  string
	UserVehicleID           string
	MasterServiceScheduleID string
	Name                    string
	IntervalMonths          int
	IntervalMiles           int
}

// AddVehicleResult reports the created vehicle and whether the catalog
// supplied the spec snapshot.
type AddVehicleResult struct {
	VehicleID string
	Matched   bool
}

// Decoder is the external VIN decode provider boundary.
type Decoder interface {
	Decode(ctx context.Context, vin string) (vinmatch.DecodedVin, error)
}

// Store is the persistence contract used by Service.
type Store interface {
	FindCatalogCandidates(ctx context.Context, make string, model string, year int) ([]vinmatch.CatalogSpec, error)
	InsertVehicle(ctx context.Context, record VehicleRecord) (string, error)
	ListMasterSchedule(ctx context.Context, vehicleDataID string) ([]MasterScheduleItem, error)
	InsertServiceIntervals(ctx context.Context, intervals []ServiceInterval) error
}
