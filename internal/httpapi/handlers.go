package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MarkoPoloResearchLab/garage/internal/garage"
	"github.com/MarkoPoloResearchLab/garage/internal/vindecode"
	"github.com/MarkoPoloResearchLab/garage/pkg/fuellog"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	errorKindUnauthorized   = "unauthorized"
	errorKindInvalidPayload = "invalid_payload"
	errorKindValidation     = "validation_failed"
	errorKindNotFound       = "not_found"
	errorKindPersistence    = "persistence_error"
	errorKindVinNotFound    = "vin_not_decodable"
	errorKindDecodeProvider = "decode_provider_error"
	errorKindDuplicate      = "duplicate_vehicle"
	errorKindInternal       = "internal_error"

	eventDateLayout = "2006-01-02"
)

type httpHandler struct {
	logger        *zap.Logger
	fuelService   FuelService
	garageService GarageService
	cfg           Config
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func errorResponse(kind string, message string) gin.H {
	return gin.H{"error": kind, "message": message}
}

func validationResponse(fieldErrors []fieldError) gin.H {
	return gin.H{"error": errorKindValidation, "message": "validation failed", "field_errors": fieldErrors}
}

type submitFuelRequest struct {
	VehicleID      string  `json:"vehicle_id"`
	EventDate      string  `json:"event_date"`
	Odometer       int64   `json:"odometer"`
	Gallons        float64 `json:"gallons"`
	PricePerGallon float64 `json:"price_per_gallon"`
	TripMiles      *int64  `json:"trip_miles"`
	Octane         *int    `json:"octane"`
}

type warningView struct {
	Step    string `json:"step"`
	Message string `json:"message"`
}

func (handler *httpHandler) handleSubmitFuelEntry(ctx *gin.Context) {
	ownerID, ok := handler.owner(ctx)
	if !ok {
		return
	}

	var request submitFuelRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorKindInvalidPayload, "expected JSON body"))
		return
	}

	var fieldErrors []fieldError
	vehicleID, err := fuellog.NewVehicleID(request.VehicleID)
	if err != nil {
		fieldErrors = append(fieldErrors, fieldError{Field: "vehicle_id", Message: err.Error()})
	}
	occurredAt, err := parseEventDate(request.EventDate)
	if err != nil {
		fieldErrors = append(fieldErrors, fieldError{Field: "event_date", Message: "expected YYYY-MM-DD"})
	}
	odometer, err := fuellog.NewOdometer(request.Odometer)
	if err != nil {
		fieldErrors = append(fieldErrors, fieldError{Field: "odometer", Message: err.Error()})
	}
	gallons, err := fuellog.NewGallons(request.Gallons)
	if err != nil {
		fieldErrors = append(fieldErrors, fieldError{Field: "gallons", Message: err.Error()})
	}
	pricePerGallon, err := fuellog.NewPricePerGallon(request.PricePerGallon)
	if err != nil {
		fieldErrors = append(fieldErrors, fieldError{Field: "price_per_gallon", Message: err.Error()})
	}
	if len(fieldErrors) > 0 {
		ctx.JSON(http.StatusBadRequest, validationResponse(fieldErrors))
		return
	}

	input, err := fuellog.NewEntryInput(vehicleID, occurredAt, odometer, gallons, pricePerGallon, request.TripMiles, request.Octane)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorKindValidation, err.Error()))
		return
	}

	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.RequestTimeout)
	defer cancel()

	result, err := handler.fuelService.SubmitFuelEntry(requestCtx, ownerID, input)
	if err != nil {
		if errors.Is(err, fuellog.ErrVehicleNotFound) {
			ctx.JSON(http.StatusNotFound, errorResponse(errorKindNotFound, "vehicle not found or access denied"))
			return
		}
		handler.logger.Error("submit fuel entry failed", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, errorResponse(errorKindPersistence, "failed to create fuel log entry"))
		return
	}

	warnings := make([]warningView, 0, len(result.Warnings))
	for _, warning := range result.Warnings {
		warnings = append(warnings, warningView{Step: warning.Step, Message: warning.Cause.Error()})
	}
	ctx.JSON(http.StatusCreated, gin.H{"log_id": result.LogID.String(), "warnings": warnings})
}

type addVehicleRequest struct {
	VIN string `json:"vin"`
}

func (handler *httpHandler) handleAddVehicleByVIN(ctx *gin.Context) {
	owner := callerID(ctx)
	if owner == "" {
		ctx.JSON(http.StatusUnauthorized, errorResponse(errorKindUnauthorized, "missing session"))
		return
	}

	var request addVehicleRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorKindInvalidPayload, "expected JSON body"))
		return
	}

	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.RequestTimeout)
	defer cancel()

	result, err := handler.garageService.AddVehicleByVIN(requestCtx, owner, request.VIN)
	if err != nil {
		switch {
		case errors.Is(err, garage.ErrVINRequired), errors.Is(err, vindecode.ErrEmptyVIN):
			ctx.JSON(http.StatusBadRequest, errorResponse(errorKindValidation, "VIN is required"))
		case errors.Is(err, vindecode.ErrVinNotDecodable):
			ctx.JSON(http.StatusNotFound, errorResponse(errorKindVinNotFound, "We're unable to match this VIN to a vehicle. Please ensure you entered your VIN correctly."))
		case errors.Is(err, vindecode.ErrProviderUnavailable):
			ctx.JSON(http.StatusBadGateway, errorResponse(errorKindDecodeProvider, "failed to decode VIN"))
		case errors.Is(err, garage.ErrDuplicateVehicle):
			ctx.JSON(http.StatusConflict, errorResponse(errorKindDuplicate, "this VIN is already in your garage"))
		default:
			handler.logger.Error("add vehicle by vin failed", zap.Error(err))
			ctx.JSON(http.StatusInternalServerError, errorResponse(errorKindInternal, "failed to add vehicle"))
		}
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"vehicle_id": result.VehicleID, "match_found": result.Matched})
}

func (handler *httpHandler) handleGetVehicle(ctx *gin.Context) {
	ownerID, ok := handler.owner(ctx)
	if !ok {
		return
	}
	vehicleID, err := fuellog.NewVehicleID(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorKindValidation, err.Error()))
		return
	}

	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.RequestTimeout)
	defer cancel()

	summary, err := handler.fuelService.VehicleSummary(requestCtx, ownerID, vehicleID)
	if err != nil {
		handler.respondFuelError(ctx, err, "fetch vehicle failed")
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"vehicle_id": summary.VehicleID.String(),
		"odometer":   summary.Odometer,
		"avg_mpg":    summary.AverageMPG,
	})
}

func (handler *httpHandler) handleListFuelLogs(ctx *gin.Context) {
	ownerID, ok := handler.owner(ctx)
	if !ok {
		return
	}
	vehicleID, err := fuellog.NewVehicleID(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorKindValidation, err.Error()))
		return
	}

	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.RequestTimeout)
	defer cancel()

	entries, err := handler.fuelService.ListEntries(requestCtx, ownerID, vehicleID)
	if err != nil {
		handler.respondFuelError(ctx, err, "list fuel logs failed")
		return
	}

	views := make([]gin.H, 0, len(entries))
	for _, entry := range entries {
		views = append(views, gin.H{
			"log_id":           entry.LogID.String(),
			"event_date":       time.Unix(entry.OccurredAtUnixUTC, 0).UTC().Format(eventDateLayout),
			"odometer":         entry.Odometer.Int64(),
			"gallons":          entry.Gallons.Float64(),
			"price_per_gallon": entry.PricePerGallon.Float64(),
			"total_cost":       entry.TotalCost,
			"trip_miles":       entry.TripMiles,
			"mpg":              entry.MPG,
			"octane":           entry.Octane,
		})
	}
	ctx.JSON(http.StatusOK, gin.H{"logs": views})
}

func (handler *httpHandler) respondFuelError(ctx *gin.Context, err error, logMessage string) {
	if errors.Is(err, fuellog.ErrVehicleNotFound) {
		ctx.JSON(http.StatusNotFound, errorResponse(errorKindNotFound, "vehicle not found or access denied"))
		return
	}
	handler.logger.Error(logMessage, zap.Error(err))
	ctx.JSON(http.StatusInternalServerError, errorResponse(errorKindInternal, "unexpected error"))
}

func (handler *httpHandler) owner(ctx *gin.Context) (fuellog.OwnerID, bool) {
	ownerID, err := fuellog.NewOwnerID(callerID(ctx))
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, errorResponse(errorKindUnauthorized, "missing session"))
		return fuellog.OwnerID{}, false
	}
	return ownerID, true
}

func parseEventDate(raw string) (int64, error) {
	parsed, err := time.Parse(eventDateLayout, raw)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return 0, err
		}
	}
	return parsed.UTC().Unix(), nil
}
