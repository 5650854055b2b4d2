package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/MarkoPoloResearchLab/garage/internal/garage"
	"github.com/MarkoPoloResearchLab/garage/pkg/fuellog"
	"github.com/MarkoPoloResearchLab/garage/pkg/vinmatch"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	constraintOwnerVIN    = "uniq_owner_vin"
	pgUniqueViolationCode = "23505"
	sqliteConstraintCode  = 19

	errorOperationStore  = "store"
	errorSubjectVehicle  = "vehicle"
	errorSubjectEntry    = "entry"
	errorSubjectCatalog  = "catalog"
	errorSubjectSchedule = "schedule"
	errorCodeGet         = "get"
	errorCodeInsert      = "insert"
	errorCodeInvalid     = "invalid"
	errorCodeList        = "list"
	errorCodeLookup      = "lookup"
	errorCodeUpdate      = "update"
)

// Store implements fuellog.Store and garage.Store using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates the schema. Intended for sqlite development and test
// databases; postgres schemas are managed externally.
func (store *Store) AutoMigrate() error {
	return store.db.AutoMigrate(
		&UserVehicle{},
		&FuelLog{},
		&VehicleData{},
		&MasterServiceSchedule{},
		&ServiceInterval{},
	)
}

func (store *Store) GetVehicleForOwner(ctx context.Context, vehicleID fuellog.VehicleID, ownerID fuellog.OwnerID) (fuellog.VehicleSummary, error) {
	var model UserVehicle
	err := store.db.WithContext(ctx).
		Where("vehicle_id = ? AND owner_id = ?", vehicleID.String(), ownerID.String()).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fuellog.VehicleSummary{}, wrapStoreError(errorSubjectVehicle, errorCodeLookup, fuellog.ErrVehicleNotFound)
		}
		return fuellog.VehicleSummary{}, wrapStoreError(errorSubjectVehicle, errorCodeLookup, err)
	}
	return fuellog.VehicleSummary{
		VehicleID:  vehicleID,
		OwnerID:    ownerID,
		Odometer:   model.Odometer,
		AverageMPG: model.AvgMPG,
	}, nil
}

// FindPredecessor returns the entry with the greatest odometer strictly below
// the given reading, or nil when none exists.
func (store *Store) FindPredecessor(ctx context.Context, vehicleID fuellog.VehicleID, odometer fuellog.Odometer) (*fuellog.Entry, error) {
	return store.findNeighbor(ctx, vehicleID, "odometer < ?", "odometer DESC", odometer)
}

// FindSuccessor returns the entry with the smallest odometer strictly above
// the given reading, or nil when none exists.
func (store *Store) FindSuccessor(ctx context.Context, vehicleID fuellog.VehicleID, odometer fuellog.Odometer) (*fuellog.Entry, error) {
	return store.findNeighbor(ctx, vehicleID, "odometer > ?", "odometer ASC", odometer)
}

func (store *Store) findNeighbor(ctx context.Context, vehicleID fuellog.VehicleID, condition string, order string, odometer fuellog.Odometer) (*fuellog.Entry, error) {
	var model FuelLog
	err := store.db.WithContext(ctx).
		Where("user_vehicle_id = ?", vehicleID.String()).
		Where(condition, odometer.Int64()).
		Order(order).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, wrapStoreError(errorSubjectEntry, errorCodeLookup, err)
	}
	entry, err := mapFuelLog(model)
	if err != nil {
		return nil, wrapStoreError(errorSubjectEntry, errorCodeInvalid, err)
	}
	return &entry, nil
}

func (store *Store) InsertEntry(ctx context.Context, record fuellog.EntryRecord) (fuellog.LogID, error) {
	model := FuelLog{
		UserVehicleID:  record.VehicleID.String(),
		OwnerID:        record.OwnerID.String(),
		EventDate:      time.Unix(record.OccurredAtUnixUTC, 0).UTC(),
		Odometer:       record.Odometer.Int64(),
		Gallons:        record.Gallons.Float64(),
		PricePerGallon: record.PricePerGallon.Float64(),
		TotalCost:      record.TotalCost,
		TripMiles:      record.TripMiles,
		MPG:            record.MPG,
		Octane:         record.Octane,
		CreatedAt:      time.Unix(record.CreatedUnixUTC, 0).UTC(),
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fuellog.LogID{}, wrapStoreError(errorSubjectEntry, errorCodeInsert, err)
	}
	logID, err := fuellog.NewLogID(model.LogID)
	if err != nil {
		return fuellog.LogID{}, wrapStoreError(errorSubjectEntry, errorCodeInvalid, err)
	}
	return logID, nil
}

func (store *Store) GetEntry(ctx context.Context, logID fuellog.LogID) (fuellog.Entry, error) {
	var model FuelLog
	err := store.db.WithContext(ctx).
		Where("log_id = ?", logID.String()).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fuellog.Entry{}, wrapStoreError(errorSubjectEntry, errorCodeGet, fuellog.ErrEntryNotFound)
		}
		return fuellog.Entry{}, wrapStoreError(errorSubjectEntry, errorCodeGet, err)
	}
	entry, err := mapFuelLog(model)
	if err != nil {
		return fuellog.Entry{}, wrapStoreError(errorSubjectEntry, errorCodeInvalid, err)
	}
	return entry, nil
}

func (store *Store) UpdateDerivedFields(ctx context.Context, logID fuellog.LogID, tripMiles *int64, mpg *float64) error {
	err := store.db.WithContext(ctx).
		Model(&FuelLog{}).
		Where("log_id = ?", logID.String()).
		Updates(map[string]interface{}{
			"trip_miles": tripMiles,
			"mpg":        mpg,
		}).Error
	if err != nil {
		return wrapStoreError(errorSubjectEntry, errorCodeUpdate, err)
	}
	return nil
}

// RaiseVehicleOdometer conditionally lifts the cached vehicle odometer. A
// lower or equal submitted reading matches zero rows and is a silent no-op.
func (store *Store) RaiseVehicleOdometer(ctx context.Context, vehicleID fuellog.VehicleID, ownerID fuellog.OwnerID, odometer fuellog.Odometer) error {
	err := store.db.WithContext(ctx).
		Model(&UserVehicle{}).
		Where("vehicle_id = ? AND owner_id = ? AND odometer < ?", vehicleID.String(), ownerID.String(), odometer.Int64()).
		Update("odometer", odometer.Int64()).Error
	if err != nil {
		return wrapStoreError(errorSubjectVehicle, errorCodeUpdate, err)
	}
	return nil
}

func (store *Store) ListMPG(ctx context.Context, vehicleID fuellog.VehicleID) ([]float64, error) {
	var values []float64
	err := store.db.WithContext(ctx).
		Model(&FuelLog{}).
		Where("user_vehicle_id = ? AND mpg IS NOT NULL AND mpg > 0", vehicleID.String()).
		Pluck("mpg", &values).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectEntry, errorCodeList, err)
	}
	return values, nil
}

func (store *Store) UpdateVehicleAverageMPG(ctx context.Context, vehicleID fuellog.VehicleID, ownerID fuellog.OwnerID, average float64) error {
	err := store.db.WithContext(ctx).
		Model(&UserVehicle{}).
		Where("vehicle_id = ? AND owner_id = ?", vehicleID.String(), ownerID.String()).
		Update("avg_mpg", average).Error
	if err != nil {
		return wrapStoreError(errorSubjectVehicle, errorCodeUpdate, err)
	}
	return nil
}

func (store *Store) ListEntries(ctx context.Context, vehicleID fuellog.VehicleID) ([]fuellog.Entry, error) {
	var rows []FuelLog
	err := store.db.WithContext(ctx).
		Where("user_vehicle_id = ?", vehicleID.String()).
		Order("odometer ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectEntry, errorCodeList, err)
	}
	entries := make([]fuellog.Entry, 0, len(rows))
	for _, row := range rows {
		entry, err := mapFuelLog(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectEntry, errorCodeInvalid, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (store *Store) FindCatalogCandidates(ctx context.Context, vehicleMake string, vehicleModel string, year int) ([]vinmatch.CatalogSpec, error) {
	var rows []VehicleData
	err := store.db.WithContext(ctx).
		Where("lower(make) = lower(?) AND lower(model) = lower(?) AND year = ?", vehicleMake, vehicleModel, year).
		Order("trim ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectCatalog, errorCodeList, err)
	}
	candidates := make([]vinmatch.CatalogSpec, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, mapCatalogSpec(row))
	}
	return candidates, nil
}

func (store *Store) InsertVehicle(ctx context.Context, record garage.VehicleRecord) (string, error) {
	snapshot, err := snapshotJSON(record)
	if err != nil {
		return "", wrapStoreError(errorSubjectVehicle, errorCodeInvalid, err)
	}
	var stockDataID *string
	if record.StockDataID != "" {
		value := record.StockDataID
		stockDataID = &value
	}
	model := UserVehicle{
		OwnerID:       record.OwnerID,
		VIN:           record.VIN,
		Year:          record.Year,
		Make:          record.Make,
		Model:         record.Model,
		Trim:          record.Trim,
		Title:         record.Title,
		PhotoURL:      record.PhotoURL,
		StockDataID:   stockDataID,
		SpecSnapshot:  datatypes.JSON(snapshot),
		CurrentStatus: string(record.Status),
	}
	err = store.db.WithContext(ctx).Create(&model).Error
	if isOwnerVINConflict(err) {
		return "", wrapStoreError(errorSubjectVehicle, errorCodeInsert, garage.ErrDuplicateVehicle)
	}
	if err != nil {
		return "", wrapStoreError(errorSubjectVehicle, errorCodeInsert, err)
	}
	return model.VehicleID, nil
}

func (store *Store) ListMasterSchedule(ctx context.Context, vehicleDataID string) ([]garage.MasterScheduleItem, error) {
	var rows []MasterServiceSchedule
	err := store.db.WithContext(ctx).
		Where("vehicle_data_id = ?", vehicleDataID).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectSchedule, errorCodeList, err)
	}
	items := make([]garage.MasterScheduleItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, garage.MasterScheduleItem{
			ID:             row.ID,
			VehicleDataID:  row.VehicleDataID,
			Name:           row.Name,
			IntervalMonths: row.IntervalMonths,
			IntervalMiles:  row.IntervalMiles,
		})
	}
	return items, nil
}

func (store *Store) InsertServiceIntervals(ctx context.Context, intervals []garage.ServiceInterval) error {
	if len(intervals) == 0 {
		return nil
	}
	rows := make([]ServiceInterval, 0, len(intervals))
	for _, interval := range intervals {
		rows = append(rows, ServiceInterval{
			UserID:                  interval.UserID,
			UserVehicleID:           interval.UserVehicleID,
			MasterServiceScheduleID: interval.MasterServiceScheduleID,
			Name:                    interval.Name,
			IntervalMonths:          interval.IntervalMonths,
			IntervalMiles:           interval.IntervalMiles,
		})
	}
	if err := store.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return wrapStoreError(errorSubjectSchedule, errorCodeInsert, err)
	}
	return nil
}

func wrapStoreError(subject string, code string, err error) error {
	return fuellog.WrapError(errorOperationStore, subject, code, err)
}

func mapFuelLog(row FuelLog) (fuellog.Entry, error) {
	logID, err := fuellog.NewLogID(row.LogID)
	if err != nil {
		return fuellog.Entry{}, err
	}
	vehicleID, err := fuellog.NewVehicleID(row.UserVehicleID)
	if err != nil {
		return fuellog.Entry{}, err
	}
	ownerID, err := fuellog.NewOwnerID(row.OwnerID)
	if err != nil {
		return fuellog.Entry{}, err
	}
	odometer, err := fuellog.NewOdometer(row.Odometer)
	if err != nil {
		return fuellog.Entry{}, err
	}
	gallons, err := fuellog.NewGallons(row.Gallons)
	if err != nil {
		return fuellog.Entry{}, err
	}
	pricePerGallon, err := fuellog.NewPricePerGallon(row.PricePerGallon)
	if err != nil {
		return fuellog.Entry{}, err
	}
	return fuellog.Entry{
		LogID:             logID,
		VehicleID:         vehicleID,
		OwnerID:           ownerID,
		OccurredAtUnixUTC: row.EventDate.Unix(),
		Odometer:          odometer,
		Gallons:           gallons,
		PricePerGallon:    pricePerGallon,
		TotalCost:         row.TotalCost,
		TripMiles:         row.TripMiles,
		MPG:               row.MPG,
		Octane:            row.Octane,
		CreatedUnixUTC:    row.CreatedAt.Unix(),
	}, nil
}

func mapCatalogSpec(row VehicleData) vinmatch.CatalogSpec {
	return vinmatch.CatalogSpec{
		ID:                row.ID,
		Make:              row.Make,
		Model:             row.Model,
		Year:              row.Year,
		Trim:              row.Trim,
		TrimDescription:   row.TrimDescription,
		EngineSizeL:       row.EngineSizeL,
		Cylinders:         row.Cylinders,
		HorsepowerHP:      row.HorsepowerHP,
		TorqueFtLbs:       row.TorqueFtLbs,
		FuelType:          row.FuelType,
		DriveType:         row.DriveType,
		Transmission:      row.Transmission,
		BodyType:          row.BodyType,
		EPACombinedMPG:    row.EPACombinedMPG,
		EPACityHighwayMPG: row.EPACityHighwayMPG,
		CurbWeightLbs:     row.CurbWeightLbs,
		LengthIn:          row.LengthIn,
		WidthIn:           row.WidthIn,
		HeightIn:          row.HeightIn,
		SeatingCapacity:   row.SeatingCapacity,
		BaseMSRP:          row.BaseMSRP,
		ImageURL:          row.ImageURL,
	}
}

// snapshotJSON flattens the spec snapshot into the snake_cased document
// shape the web clients read. Raw decode variables come first so normalized
// spec fields win on key collisions.
func snapshotJSON(record garage.VehicleRecord) ([]byte, error) {
	document := make(map[string]string, len(record.RawSnapshot)+24)
	for key, value := range record.RawSnapshot {
		document[key] = value
	}
	spec := record.SpecSnapshot
	putIfPresent(document, "make", spec.Make)
	putIfPresent(document, "model", spec.Model)
	if spec.Year != 0 {
		document["year"] = strconv.Itoa(spec.Year)
	}
	putIfPresent(document, "trim", spec.Trim)
	putIfPresent(document, "trim_description", spec.TrimDescription)
	putIfPresent(document, "engine_size_l", spec.EngineSizeL)
	putIfPresent(document, "cylinders", spec.Cylinders)
	putIfPresent(document, "horsepower_hp", spec.HorsepowerHP)
	putIfPresent(document, "torque_ft_lbs", spec.TorqueFtLbs)
	putIfPresent(document, "fuel_type", spec.FuelType)
	putIfPresent(document, "drive_type", spec.DriveType)
	putIfPresent(document, "transmission", spec.Transmission)
	putIfPresent(document, "body_type", spec.BodyType)
	putIfPresent(document, "epa_combined_mpg", spec.EPACombinedMPG)
	putIfPresent(document, "epa_city_highway_mpg", spec.EPACityHighwayMPG)
	putIfPresent(document, "curb_weight_lbs", spec.CurbWeightLbs)
	putIfPresent(document, "length_in", spec.LengthIn)
	putIfPresent(document, "width_in", spec.WidthIn)
	putIfPresent(document, "height_in", spec.HeightIn)
	putIfPresent(document, "seating_capacity", spec.SeatingCapacity)
	putIfPresent(document, "base_msrp", spec.BaseMSRP)
	putIfPresent(document, "image_url", spec.ImageURL)
	return json.Marshal(document)
}

func putIfPresent(document map[string]string, key string, value string) {
	if value != "" {
		document[key] = value
	}
}

func isOwnerVINConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode && pgErr.ConstraintName == constraintOwnerVIN
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}
