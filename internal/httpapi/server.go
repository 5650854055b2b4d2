package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MarkoPoloResearchLab/garage/internal/garage"
	"github.com/MarkoPoloResearchLab/garage/pkg/fuellog"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FuelService is the fuel-log surface the handlers call.
type FuelService interface {
	SubmitFuelEntry(ctx context.Context, ownerID fuellog.OwnerID, input fuellog.EntryInput) (fuellog.SubmitResult, error)
	ListEntries(ctx context.Context, ownerID fuellog.OwnerID, vehicleID fuellog.VehicleID) ([]fuellog.Entry, error)
	VehicleSummary(ctx context.Context, ownerID fuellog.OwnerID, vehicleID fuellog.VehicleID) (fuellog.VehicleSummary, error)
}

// GarageService is the vehicle-registration surface the handlers call.
type GarageService interface {
	AddVehicleByVIN(ctx context.Context, ownerID string, vin string) (garage.AddVehicleResult, error)
}

// Run boots the HTTP API using the supplied configuration and blocks until
// the context is cancelled.
func Run(ctx context.Context, cfg Config, logger *zap.Logger, fuelService FuelService, garageService GarageService) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	router := NewRouter(cfg, logger, fuelService, garageService)
	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("garage api listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// NewRouter assembles the gin engine. Exposed for handler tests.
func NewRouter(cfg Config, logger *zap.Logger, fuelService FuelService, garageService GarageService) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handler := &httpHandler{
		logger:        logger,
		fuelService:   fuelService,
		garageService: garageService,
		cfg:           cfg,
	}

	api := router.Group("/api")
	api.Use(authMiddleware([]byte(cfg.SessionSigningKey), cfg.SessionIssuer))

	api.POST("/garage/vehicles/vin", handler.handleAddVehicleByVIN)
	api.POST("/fuel/logs", handler.handleSubmitFuelEntry)
	api.GET("/vehicles/:id", handler.handleGetVehicle)
	api.GET("/vehicles/:id/fuel", handler.handleListFuelLogs)

	return router
}
