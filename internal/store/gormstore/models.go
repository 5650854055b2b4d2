package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UserVehicle represents the user_vehicle table: one owned vehicle with its
// spec snapshot and the cached aggregate fields the fuel ledger maintains.
type UserVehicle struct {
	VehicleID     string         `gorm:"type:uuid;primaryKey"`
	OwnerID       string         `gorm:"not null;index:uniq_owner_vin,unique,priority:1"`
	VIN           string         `gorm:"not null;index:uniq_owner_vin,unique,priority:2"`
	Year          int            `gorm:"not null"`
	Make          string         `gorm:"not null"`
	Model         string         `gorm:"not null"`
	Trim          string         `gorm:""`
	Title         string         `gorm:""`
	PhotoURL      string         `gorm:""`
	StockDataID   *string        `gorm:""`
	SpecSnapshot  datatypes.JSON `gorm:"type:jsonb;not null"`
	Odometer      int64          `gorm:"not null;default:0"`
	AvgMPG        *float64       `gorm:""`
	CurrentStatus string         `gorm:"not null"`
	CreatedAt     time.Time      `gorm:"not null"`
	UpdatedAt     time.Time      `gorm:"not null"`
}

func (UserVehicle) TableName() string { return "user_vehicle" }

func (vehicle *UserVehicle) BeforeCreate(tx *gorm.DB) error {
	if vehicle.VehicleID == "" {
		vehicle.VehicleID = uuid.NewString()
	}
	return nil
}

// FuelLog mirrors the fuel_log table. Ordering is purely by the odometer
// column through the composite index; rows are never reordered physically.
type FuelLog struct {
	LogID          string    `gorm:"type:uuid;primaryKey"`
	UserVehicleID  string    `gorm:"type:uuid;not null;index:idx_fuel_vehicle_odometer,priority:1"`
	OwnerID        string    `gorm:"not null"`
	EventDate      time.Time `gorm:"not null"`
	Odometer       int64     `gorm:"not null;index:idx_fuel_vehicle_odometer,priority:2"`
	Gallons        float64   `gorm:"not null"`
	PricePerGallon float64   `gorm:"not null"`
	TotalCost      float64   `gorm:"not null"`
	TripMiles      *int64    `gorm:""`
	MPG            *float64  `gorm:""`
	Octane         *int      `gorm:""`
	CreatedAt      time.Time `gorm:"not null"`
}

func (FuelLog) TableName() string { return "fuel_log" }

func (log *FuelLog) BeforeCreate(tx *gorm.DB) error {
	if log.LogID == "" {
		log.LogID = uuid.NewString()
	}
	return nil
}

// VehicleData is the curated specs catalog, one row per trim of one
// model-year vehicle. Read-only from this service's perspective.
type VehicleData struct {
	ID                string    `gorm:"type:uuid;primaryKey"`
	Make              string    `gorm:"not null;index:idx_vehicle_data_mmy,priority:1"`
	Model             string    `gorm:"not null;index:idx_vehicle_data_mmy,priority:2"`
	Year              int       `gorm:"not null;index:idx_vehicle_data_mmy,priority:3"`
	Trim              string    `gorm:"not null"`
	TrimDescription   string    `gorm:""`
	EngineSizeL       string    `gorm:""`
	Cylinders         string    `gorm:""`
	HorsepowerHP      string    `gorm:""`
	TorqueFtLbs       string    `gorm:""`
	FuelType          string    `gorm:""`
	DriveType         string    `gorm:""`
	Transmission      string    `gorm:""`
	BodyType          string    `gorm:""`
	EPACombinedMPG    string    `gorm:""`
	EPACityHighwayMPG string    `gorm:""`
	CurbWeightLbs     string    `gorm:""`
	LengthIn          string    `gorm:""`
	WidthIn           string    `gorm:""`
	HeightIn          string    `gorm:""`
	SeatingCapacity   string    `gorm:""`
	BaseMSRP          string    `gorm:""`
	ImageURL          string    `gorm:""`
	CreatedAt         time.Time `gorm:"not null"`
}

func (VehicleData) TableName() string { return "vehicle_data" }

func (catalogRow *VehicleData) BeforeCreate(tx *gorm.DB) error {
	if catalogRow.ID == "" {
		catalogRow.ID = uuid.NewString()
	}
	return nil
}

// MasterServiceSchedule holds curated maintenance intervals per catalog row.
type MasterServiceSchedule struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	VehicleDataID  string `gorm:"type:uuid;not null;index:idx_master_schedule_vehicle"`
	Name           string `gorm:"not null"`
	IntervalMonths int    `gorm:"not null;default:0"`
	IntervalMiles  int    `gorm:"not null;default:0"`
}

func (MasterServiceSchedule) TableName() string { return "master_service_schedule" }

// ServiceInterval is a maintenance interval seeded onto a user vehicle.
type ServiceInterval struct {
	ID                      string    `gorm:"type:uuid;primaryKey"`
	UserID                  string    `gorm:"not null"`
	UserVehicleID           string    `gorm:"type:uuid;not null;index:idx_service_interval_vehicle"`
	MasterServiceScheduleID string    `gorm:"type:uuid;not null"`
	Name                    string    `gorm:"not null"`
	IntervalMonths          int       `gorm:"not null;default:0"`
	IntervalMiles           int       `gorm:"not null;default:0"`
	CreatedAt               time.Time `gorm:"not null"`
}

func (ServiceInterval) TableName() string { return "service_intervals" }

func (interval *ServiceInterval) BeforeCreate(tx *gorm.DB) error {
	if interval.ID == "" {
		interval.ID = uuid.NewString()
	}
	return nil
}
