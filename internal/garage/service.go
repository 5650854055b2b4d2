package garage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MarkoPoloResearchLab/garage/pkg/vinmatch"
	"go.uber.org/zap"
)

// Service orchestrates adding a vehicle by VIN: decode, match against the
// curated catalog, persist the spec snapshot, seed the maintenance plan.
type Service struct {
	store   Store
	decoder Decoder
	logger  *zap.Logger
}

// NewService wires a Service.
func NewService(store Store, decoder Decoder, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if decoder == nil {
		return nil, fmt.Errorf("%w: decoder dependency is nil", ErrInvalidServiceConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, decoder: decoder, logger: logger}, nil
}

// AddVehicleByVIN decodes the VIN, resolves the best catalog match for the
// decoded (make, model, year), and persists the vehicle with either an
// enriched catalog snapshot or a synthetic one built purely from decode data.
// Maintenance-plan seeding is best-effort: a seeding failure is logged and
// the vehicle creation still succeeds.
func (s *Service) AddVehicleByVIN(ctx context.Context, ownerID string, vin string) (AddVehicleResult, error) {
	trimmedOwner := strings.TrimSpace(ownerID)
	if trimmedOwner == "" {
		return AddVehicleResult{}, ErrOwnerRequired
	}
	trimmedVIN := strings.TrimSpace(vin)
	if trimmedVIN == "" {
		return AddVehicleResult{}, ErrVINRequired
	}

	decoded, err := s.decoder.Decode(ctx, trimmedVIN)
	if err != nil {
		return AddVehicleResult{}, err
	}

	candidates, err := s.store.FindCatalogCandidates(ctx, decoded.Make, decoded.Model, decoded.Year)
	if err != nil {
		return AddVehicleResult{}, fmt.Errorf("catalog lookup: %w", err)
	}

	bestMatch, matched := vinmatch.Resolve(decoded, candidates)

	var record VehicleRecord
	if matched {
		enriched := vinmatch.BuildEnrichedSpec(bestMatch, decoded)
		title := bestMatch.TrimDescription
		if title == "" {
			title = bestMatch.Trim
		}
		record = VehicleRecord{
			OwnerID:      trimmedOwner,
			VIN:          trimmedVIN,
			Year:         bestMatch.Year,
			Make:         bestMatch.Make,
			Model:        bestMatch.Model,
			Trim:         bestMatch.Trim,
			Title:        title,
			PhotoURL:     bestMatch.ImageURL,
			StockDataID:  bestMatch.ID,
			SpecSnapshot: enriched,
			Status:       StatusDailyDriver,
		}
	} else {
		synthetic := vinmatch.BuildSyntheticSpec(decoded)
		record = VehicleRecord{
			OwnerID:      trimmedOwner,
			VIN:          trimmedVIN,
			Year:         decoded.Year,
			Make:         decoded.Make,
			Model:        decoded.Model,
			Trim:         synthetic.Trim,
			Title:        synthetic.Trim,
			SpecSnapshot: synthetic,
			RawSnapshot:  decoded.Raw,
			Status:       StatusDailyDriver,
		}
	}

	vehicleID, err := s.store.InsertVehicle(ctx, record)
	if err != nil {
		if errors.Is(err, ErrDuplicateVehicle) {
			return AddVehicleResult{}, err
		}
		return AddVehicleResult{}, fmt.Errorf("%w: %v", ErrVehicleInsertFailed, err)
	}

	if matched {
		if err := s.seedMaintenancePlan(ctx, trimmedOwner, vehicleID, bestMatch.ID); err != nil {
			s.logger.Warn("maintenance plan seeding failed",
				zap.String("owner_id", trimmedOwner),
				zap.String("vehicle_id", vehicleID),
				zap.String("stock_data_id", bestMatch.ID),
				zap.Error(err),
			)
		}
	}

	return AddVehicleResult{VehicleID: vehicleID, Matched: matched}, nil
}

func (s *Service) seedMaintenancePlan(ctx context.Context, ownerID string, vehicleID string, vehicleDataID string) error {
	schedule, err := s.store.ListMasterSchedule(ctx, vehicleDataID)
	if err != nil {
		return err
	}
	if len(schedule) == 0 {
		return nil
	}
	intervals := make([]ServiceInterval, 0, len(schedule))
	for _, item := range schedule {
		intervals = append(intervals, ServiceInterval{
			UserID:                  ownerID,
			UserVehicleID:           vehicleID,
			MasterServiceScheduleID: item.ID,
			Name:                    item.Name,
			IntervalMonths:          item.IntervalMonths,
			IntervalMiles:           item.IntervalMiles,
		})
	}
	return s.store.InsertServiceIntervals(ctx, intervals)
}
