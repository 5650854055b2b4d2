package fuellog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
)

func TestSubmitFirstEntryHasNoDerivedFields(test *testing.T) {
	test.Parallel()
	store := newStubStore(test, 0)
	service := mustNewService(test, store)
	input := mustEntryInput(test, store, 1000, 10, 3.50, nil, nil)

	result, err := service.SubmitFuelEntry(context.Background(), store.vehicle.OwnerID, input)
	if err != nil {
		test.Fatalf("submit: %v", err)
	}
	if len(result.Warnings) != 0 {
		test.Fatalf("expected no warnings, got %+v", result.Warnings)
	}
	entry := store.mustEntry(test, result.LogID)
	if entry.TripMiles != nil || entry.MPG != nil {
		test.Fatalf("expected nil derived fields, got trip %v mpg %v", entry.TripMiles, entry.MPG)
	}
	if store.vehicle.Odometer != 1000 {
		test.Fatalf("expected vehicle odometer 1000, got %d", store.vehicle.Odometer)
	}
	if store.vehicle.AverageMPG != nil {
		test.Fatalf("expected untouched average, got %v", *store.vehicle.AverageMPG)
	}
}

func TestSubmitDerivesTripAndMPGFromPredecessor(test *testing.T) {
	test.Parallel()
	store := newStubStore(test, 1000)
	store.seedEntry(test, 1000, 12, nil, nil)
	service := mustNewService(test, store)
	input := mustEntryInput(test, store, 1300, 10, 3.50, nil, nil)

	result, err := service.SubmitFuelEntry(context.Background(), store.vehicle.OwnerID, input)
	if err != nil {
		test.Fatalf("submit: %v", err)
	}
	entry := store.mustEntry(test, result.LogID)
	if entry.TripMiles == nil || *entry.TripMiles != 300 {
		test.Fatalf("expected trip 300, got %v", entry.TripMiles)
	}
	if entry.MPG == nil || *entry.MPG != 30 {
		test.Fatalf("expected mpg 30, got %v", entry.MPG)
	}
	if store.vehicle.Odometer != 1300 {
		test.Fatalf("expected vehicle odometer bumped to 1300, got %d", store.vehicle.Odometer)
	}
	if store.vehicle.AverageMPG == nil || *store.vehicle.AverageMPG != 30 {
		test.Fatalf("expected average 30, got %v", store.vehicle.AverageMPG)
	}
}

func TestSubmitBackfillRepairsSuccessor(test *testing.T) {
	test.Parallel()
	store := newStubStore(test, 1600)
	distantTrip := int64(200)
	distantMPG := 20.0
	distantID := store.seedEntry(test, 800, 10, &distantTrip, &distantMPG)
	store.seedEntry(test, 1000, 12, nil, nil)
	trip := int64(300)
	mpg := 30.0
	successorID := store.seedEntry(test, 1300, 10, &trip, &mpg)
	tailTrip := int64(300)
	tailMPG := 30.0
	tailID := store.seedEntry(test, 1600, 10, &tailTrip, &tailMPG)
	service := mustNewService(test, store)
	input := mustEntryInput(test, store, 1150, 10, 3.20, nil, nil)

	result, err := service.SubmitFuelEntry(context.Background(), store.vehicle.OwnerID, input)
	if err != nil {
		test.Fatalf("submit: %v", err)
	}
	if len(result.Warnings) != 0 {
		test.Fatalf("expected no warnings, got %+v", result.Warnings)
	}

	inserted := store.mustEntry(test, result.LogID)
	if inserted.TripMiles == nil || *inserted.TripMiles != 150 {
		test.Fatalf("expected inserted trip 150, got %v", inserted.TripMiles)
	}
	if inserted.MPG == nil || *inserted.MPG != 15 {
		test.Fatalf("expected inserted mpg 15, got %v", inserted.MPG)
	}

	successor := store.mustEntry(test, successorID)
	if successor.TripMiles == nil || *successor.TripMiles != 150 {
		test.Fatalf("expected successor trip repaired to 150, got %v", successor.TripMiles)
	}
	if successor.MPG == nil || *successor.MPG != 15 {
		test.Fatalf("expected successor mpg repaired to 15, got %v", successor.MPG)
	}

	// Entries outside the predecessor/successor neighborhood keep their
	// derived fields.
	distant := store.mustEntry(test, distantID)
	if distant.TripMiles == nil || *distant.TripMiles != 200 || distant.MPG == nil || *distant.MPG != 20 {
		test.Fatalf("expected entry below the predecessor untouched, got trip %v mpg %v", distant.TripMiles, distant.MPG)
	}
	tail := store.mustEntry(test, tailID)
	if tail.TripMiles == nil || *tail.TripMiles != 300 || tail.MPG == nil || *tail.MPG != 30 {
		test.Fatalf("expected entry above the successor untouched, got trip %v mpg %v", tail.TripMiles, tail.MPG)
	}

	if store.vehicle.Odometer != 1600 {
		test.Fatalf("expected vehicle odometer unchanged at 1600, got %d", store.vehicle.Odometer)
	}
	// Unweighted mean over 20, 15, 15, 30.
	if store.vehicle.AverageMPG == nil || *store.vehicle.AverageMPG != 20 {
		test.Fatalf("expected average 20, got %v", store.vehicle.AverageMPG)
	}
}

func TestSubmitLowerOdometerLeavesVehicleReadingAlone(test *testing.T) {
	test.Parallel()
	store := newStubStore(test, 2000)
	store.seedEntry(test, 2000, 11, nil, nil)
	service := mustNewService(test, store)
	input := mustEntryInput(test, store, 1500, 10, 3.10, nil, nil)

	result, err := service.SubmitFuelEntry(context.Background(), store.vehicle.OwnerID, input)
	if err != nil {
		test.Fatalf("submit: %v", err)
	}
	if result.LogID == (LogID{}) {
		test.Fatalf("expected inserted log id")
	}
	if store.raises != 0 {
		test.Fatalf("expected no odometer raise, got %d", store.raises)
	}
	if store.vehicle.Odometer != 2000 {
		test.Fatalf("expected vehicle odometer 2000, got %d", store.vehicle.Odometer)
	}
}

func TestSubmitSuppliedTripMilesWins(test *testing.T) {
	test.Parallel()
	store := newStubStore(test, 1000)
	store.seedEntry(test, 1000, 12, nil, nil)
	service := mustNewService(test, store)
	suppliedTrip := int64(120)
	input := mustEntryInput(test, store, 1300, 10, 3.50, &suppliedTrip, nil)

	result, err := service.SubmitFuelEntry(context.Background(), store.vehicle.OwnerID, input)
	if err != nil {
		test.Fatalf("submit: %v", err)
	}
	entry := store.mustEntry(test, result.LogID)
	if entry.TripMiles == nil || *entry.TripMiles != 120 {
		test.Fatalf("expected supplied trip 120 preserved, got %v", entry.TripMiles)
	}
	if entry.MPG == nil || *entry.MPG != 12 {
		test.Fatalf("expected mpg 12 from supplied trip, got %v", entry.MPG)
	}
}

func TestSubmitUnknownVehicleFailsClosed(test *testing.T) {
	test.Parallel()
	store := newStubStore(test, 0)
	store.vehicleErr = ErrVehicleNotFound
	service := mustNewService(test, store)
	input := mustEntryInput(test, store, 1000, 10, 3.50, nil, nil)

	_, err := service.SubmitFuelEntry(context.Background(), store.vehicle.OwnerID, input)
	if !errors.Is(err, ErrVehicleNotFound) {
		test.Fatalf("expected ErrVehicleNotFound, got %v", err)
	}
	if len(store.entries) != 0 {
		test.Fatalf("expected no insert, got %d entries", len(store.entries))
	}
}

func TestSubmitInsertFailureIsFatal(test *testing.T) {
	test.Parallel()
	store := newStubStore(test, 0)
	store.insertErr = errors.New("disk full")
	service := mustNewService(test, store)
	input := mustEntryInput(test, store, 1000, 10, 3.50, nil, nil)

	_, err := service.SubmitFuelEntry(context.Background(), store.vehicle.OwnerID, input)
	if err == nil {
		test.Fatalf("expected insert error")
	}
	var operationError OperationError
	if !errors.As(err, &operationError) {
		test.Fatalf("expected OperationError, got %T", err)
	}
	if operationError.Code() != "insert" {
		test.Fatalf("expected code insert, got %s", operationError.Code())
	}
	if !errors.Is(err, store.insertErr) {
		test.Fatalf("expected wrapped cause, got %v", err)
	}
}

func TestSubmitBestEffortFailuresBecomeWarnings(test *testing.T) {
	test.Parallel()
	store := newStubStore(test, 500)
	store.seedEntry(test, 500, 10, nil, nil)
	store.raiseErr = errors.New("raise failed")
	store.updateDerivedErr = errors.New("derive failed")
	store.listMPGErr = errors.New("aggregate failed")
	service := mustNewService(test, store)
	input := mustEntryInput(test, store, 900, 10, 3.50, nil, nil)

	result, err := service.SubmitFuelEntry(context.Background(), store.vehicle.OwnerID, input)
	if err != nil {
		test.Fatalf("expected degraded success, got %v", err)
	}
	if result.LogID == (LogID{}) {
		test.Fatalf("expected inserted log id despite warnings")
	}
	wantSteps := []string{WarningStepOdometerBump, WarningStepRecalcEntry, WarningStepAverageMPG}
	if len(result.Warnings) != len(wantSteps) {
		test.Fatalf("expected %d warnings, got %+v", len(wantSteps), result.Warnings)
	}
	for index, step := range wantSteps {
		if result.Warnings[index].Step != step {
			test.Fatalf("expected warning %d to be %s, got %s", index, step, result.Warnings[index].Step)
		}
		if result.Warnings[index].Cause == nil {
			test.Fatalf("expected warning cause for %s", step)
		}
	}
}

func TestSubmitSuccessorLookupFailureBecomesWarning(test *testing.T) {
	test.Parallel()
	store := newStubStore(test, 0)
	store.findSuccessorErr = errors.New("lookup failed")
	service := mustNewService(test, store)
	input := mustEntryInput(test, store, 1000, 10, 3.50, nil, nil)

	result, err := service.SubmitFuelEntry(context.Background(), store.vehicle.OwnerID, input)
	if err != nil {
		test.Fatalf("expected degraded success, got %v", err)
	}
	if len(result.Warnings) != 1 || result.Warnings[0].Step != WarningStepRecalcSuccessor {
		test.Fatalf("expected successor warning, got %+v", result.Warnings)
	}
}

func TestSubmitPredecessorLookupFailureIsFatal(test *testing.T) {
	test.Parallel()
	store := newStubStore(test, 0)
	store.findPredecessorErr = errors.New("lookup failed")
	service := mustNewService(test, store)
	input := mustEntryInput(test, store, 1000, 10, 3.50, nil, nil)

	_, err := service.SubmitFuelEntry(context.Background(), store.vehicle.OwnerID, input)
	if err == nil {
		test.Fatalf("expected predecessor lookup error")
	}
	var operationError OperationError
	if !errors.As(err, &operationError) {
		test.Fatalf("expected OperationError, got %T", err)
	}
	if operationError.Code() != "predecessor_lookup" {
		test.Fatalf("expected code predecessor_lookup, got %s", operationError.Code())
	}
	if len(store.entries) != 0 {
		test.Fatalf("expected no insert, got %d entries", len(store.entries))
	}
}

func TestAverageSkipsVehiclesWithoutComputedMPG(test *testing.T) {
	test.Parallel()
	store := newStubStore(test, 0)
	service := mustNewService(test, store)
	input := mustEntryInput(test, store, 1000, 10, 3.50, nil, nil)

	if _, err := service.SubmitFuelEntry(context.Background(), store.vehicle.OwnerID, input); err != nil {
		test.Fatalf("submit: %v", err)
	}
	if len(store.avgUpdates) != 0 {
		test.Fatalf("expected no aggregate update, got %v", store.avgUpdates)
	}
}

func TestListEntriesChecksOwnership(test *testing.T) {
	test.Parallel()
	store := newStubStore(test, 1000)
	store.seedEntry(test, 1000, 10, nil, nil)
	store.vehicleErr = ErrVehicleNotFound
	service := mustNewService(test, store)

	_, err := service.ListEntries(context.Background(), store.vehicle.OwnerID, store.vehicle.VehicleID)
	if !errors.Is(err, ErrVehicleNotFound) {
		test.Fatalf("expected ErrVehicleNotFound, got %v", err)
	}
}

func TestListEntriesReturnsOdometerOrder(test *testing.T) {
	test.Parallel()
	store := newStubStore(test, 1300)
	store.seedEntry(test, 1300, 10, nil, nil)
	store.seedEntry(test, 1000, 10, nil, nil)
	store.seedEntry(test, 1150, 10, nil, nil)
	service := mustNewService(test, store)

	entries, err := service.ListEntries(context.Background(), store.vehicle.OwnerID, store.vehicle.VehicleID)
	if err != nil {
		test.Fatalf("list: %v", err)
	}
	if len(entries) != 3 {
		test.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for index := 1; index < len(entries); index++ {
		if entries[index-1].Odometer > entries[index].Odometer {
			test.Fatalf("expected odometer ascending order, got %d before %d", entries[index-1].Odometer, entries[index].Odometer)
		}
	}
}

func TestNewServiceRejectsNilDependencies(test *testing.T) {
	test.Parallel()
	if _, err := NewService(nil, func() int64 { return 0 }); !errors.Is(err, ErrInvalidServiceConfig) {
		test.Fatalf("expected ErrInvalidServiceConfig for nil store, got %v", err)
	}
	if _, err := NewService(newStubStore(test, 0), nil); !errors.Is(err, ErrInvalidServiceConfig) {
		test.Fatalf("expected ErrInvalidServiceConfig for nil clock, got %v", err)
	}
}

type stubStore struct {
	vehicle VehicleSummary
	entries map[LogID]Entry
	nextID  int

	raises     int
	avgUpdates []float64

	vehicleErr         error
	insertErr          error
	raiseErr           error
	findPredecessorErr error
	findSuccessorErr   error
	getEntryErr        error
	updateDerivedErr   error
	listMPGErr         error
	updateAverageErr   error
	listEntriesErr     error
}

func newStubStore(test *testing.T, vehicleOdometer int64) *stubStore {
	test.Helper()
	return &stubStore{
		vehicle: VehicleSummary{
			VehicleID: mustVehicleID(test, "veh-1"),
			OwnerID:   mustOwnerID(test, "owner-1"),
			Odometer:  vehicleOdometer,
		},
		entries: make(map[LogID]Entry),
	}
}

func (store *stubStore) seedEntry(test *testing.T, odometer int64, gallons float64, tripMiles *int64, mpg *float64) LogID {
	test.Helper()
	store.nextID++
	logID := mustLogID(test, fmt.Sprintf("log-%d", store.nextID))
	store.entries[logID] = Entry{
		LogID:     logID,
		VehicleID: store.vehicle.VehicleID,
		OwnerID:   store.vehicle.OwnerID,
		Odometer:  Odometer(odometer),
		Gallons:   Gallons(gallons),
		TripMiles: tripMiles,
		MPG:       mpg,
	}
	return logID
}

func (store *stubStore) GetVehicleForOwner(ctx context.Context, vehicleID VehicleID, ownerID OwnerID) (VehicleSummary, error) {
	if store.vehicleErr != nil {
		return VehicleSummary{}, store.vehicleErr
	}
	return store.vehicle, nil
}

func (store *stubStore) FindPredecessor(ctx context.Context, vehicleID VehicleID, odometer Odometer) (*Entry, error) {
	if store.findPredecessorErr != nil {
		return nil, store.findPredecessorErr
	}
	var found *Entry
	for _, entry := range store.entries {
		if entry.Odometer >= odometer {
			continue
		}
		if found == nil || entry.Odometer > found.Odometer {
			candidate := entry
			found = &candidate
		}
	}
	return found, nil
}

func (store *stubStore) FindSuccessor(ctx context.Context, vehicleID VehicleID, odometer Odometer) (*Entry, error) {
	if store.findSuccessorErr != nil {
		return nil, store.findSuccessorErr
	}
	var found *Entry
	for _, entry := range store.entries {
		if entry.Odometer <= odometer {
			continue
		}
		if found == nil || entry.Odometer < found.Odometer {
			candidate := entry
			found = &candidate
		}
	}
	return found, nil
}

func (store *stubStore) InsertEntry(ctx context.Context, record EntryRecord) (LogID, error) {
	if store.insertErr != nil {
		return LogID{}, store.insertErr
	}
	store.nextID++
	logID, err := NewLogID(fmt.Sprintf("log-%d", store.nextID))
	if err != nil {
		return LogID{}, err
	}
	store.entries[logID] = Entry{
		LogID:             logID,
		VehicleID:         record.VehicleID,
		OwnerID:           record.OwnerID,
		OccurredAtUnixUTC: record.OccurredAtUnixUTC,
		Odometer:          record.Odometer,
		Gallons:           record.Gallons,
		PricePerGallon:    record.PricePerGallon,
		TotalCost:         record.TotalCost,
		TripMiles:         record.TripMiles,
		MPG:               record.MPG,
		Octane:            record.Octane,
		CreatedUnixUTC:    record.CreatedUnixUTC,
	}
	return logID, nil
}

func (store *stubStore) GetEntry(ctx context.Context, logID LogID) (Entry, error) {
	if store.getEntryErr != nil {
		return Entry{}, store.getEntryErr
	}
	entry, ok := store.entries[logID]
	if !ok {
		return Entry{}, ErrEntryNotFound
	}
	return entry, nil
}

func (store *stubStore) UpdateDerivedFields(ctx context.Context, logID LogID, tripMiles *int64, mpg *float64) error {
	if store.updateDerivedErr != nil {
		return store.updateDerivedErr
	}
	entry, ok := store.entries[logID]
	if !ok {
		return ErrEntryNotFound
	}
	entry.TripMiles = tripMiles
	entry.MPG = mpg
	store.entries[logID] = entry
	return nil
}

func (store *stubStore) RaiseVehicleOdometer(ctx context.Context, vehicleID VehicleID, ownerID OwnerID, odometer Odometer) error {
	if store.raiseErr != nil {
		return store.raiseErr
	}
	store.raises++
	if odometer.Int64() > store.vehicle.Odometer {
		store.vehicle.Odometer = odometer.Int64()
	}
	return nil
}

func (store *stubStore) ListMPG(ctx context.Context, vehicleID VehicleID) ([]float64, error) {
	if store.listMPGErr != nil {
		return nil, store.listMPGErr
	}
	var values []float64
	for _, entry := range store.entries {
		if entry.MPG != nil && *entry.MPG > 0 {
			values = append(values, *entry.MPG)
		}
	}
	return values, nil
}

func (store *stubStore) UpdateVehicleAverageMPG(ctx context.Context, vehicleID VehicleID, ownerID OwnerID, average float64) error {
	if store.updateAverageErr != nil {
		return store.updateAverageErr
	}
	store.avgUpdates = append(store.avgUpdates, average)
	store.vehicle.AverageMPG = &average
	return nil
}

func (store *stubStore) ListEntries(ctx context.Context, vehicleID VehicleID) ([]Entry, error) {
	if store.listEntriesErr != nil {
		return nil, store.listEntriesErr
	}
	entries := make([]Entry, 0, len(store.entries))
	for _, entry := range store.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(left, right int) bool {
		return entries[left].Odometer < entries[right].Odometer
	})
	return entries, nil
}

func (store *stubStore) mustEntry(test *testing.T, logID LogID) Entry {
	test.Helper()
	entry, ok := store.entries[logID]
	if !ok {
		test.Fatalf("entry %s not found", logID.String())
	}
	return entry
}

func mustNewService(test *testing.T, store Store) *Service {
	test.Helper()
	service, err := NewService(store, func() int64 { return 100 })
	if err != nil {
		test.Fatalf("new service: %v", err)
	}
	return service
}

func mustVehicleID(test *testing.T, raw string) VehicleID {
	test.Helper()
	vehicleID, err := NewVehicleID(raw)
	if err != nil {
		test.Fatalf("vehicle id: %v", err)
	}
	return vehicleID
}

func mustOwnerID(test *testing.T, raw string) OwnerID {
	test.Helper()
	ownerID, err := NewOwnerID(raw)
	if err != nil {
		test.Fatalf("owner id: %v", err)
	}
	return ownerID
}

func mustLogID(test *testing.T, raw string) LogID {
	test.Helper()
	logID, err := NewLogID(raw)
	if err != nil {
		test.Fatalf("log id: %v", err)
	}
	return logID
}

func mustEntryInput(test *testing.T, store *stubStore, odometer int64, gallons float64, pricePerGallon float64, tripMiles *int64, octane *int) EntryInput {
	test.Helper()
	odometerValue, err := NewOdometer(odometer)
	if err != nil {
		test.Fatalf("odometer: %v", err)
	}
	gallonsValue, err := NewGallons(gallons)
	if err != nil {
		test.Fatalf("gallons: %v", err)
	}
	priceValue, err := NewPricePerGallon(pricePerGallon)
	if err != nil {
		test.Fatalf("price per gallon: %v", err)
	}
	input, err := NewEntryInput(store.vehicle.VehicleID, 1700000000, odometerValue, gallonsValue, priceValue, tripMiles, octane)
	if err != nil {
		test.Fatalf("entry input: %v", err)
	}
	return input
}
