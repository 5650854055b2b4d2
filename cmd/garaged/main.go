package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/MarkoPoloResearchLab/garage/internal/garage"
	"github.com/MarkoPoloResearchLab/garage/internal/httpapi"
	"github.com/MarkoPoloResearchLab/garage/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/garage/internal/vindecode"
	"github.com/MarkoPoloResearchLab/garage/pkg/fuellog"
	"github.com/glebarez/sqlite"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	flagDatabaseURL      = "database-url"
	flagListenAddr       = "listen-addr"
	flagSigningKey       = "session-signing-key"
	flagSessionIssuer    = "session-issuer"
	flagAllowedOrigins   = "allowed-origins"
	flagVinDecoderURL    = "vin-decoder-url"
	configKeyDatabaseURL = "database_url"
	configKeyListenAddr  = "http_listen_addr"
	configKeySigningKey  = "session_signing_key"
	configKeyIssuer      = "session_issuer"
	configKeyOrigins     = "allowed_origins"
	configKeyDecoderURL  = "vin_decoder_url"
	defaultDatabaseURL   = "sqlite:///tmp/garage.db"
	defaultListenAddr    = ":8090"
)

type runtimeConfig struct {
	DatabaseURL    string
	ListenAddr     string
	SigningKey     string
	SessionIssuer  string
	AllowedOrigins string
	VinDecoderURL  string
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "garaged: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "garaged",
		Short:         "Garage management HTTP API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().String(flagDatabaseURL, defaultDatabaseURL, "PostgreSQL or sqlite connection string")
	cmd.Flags().String(flagListenAddr, defaultListenAddr, "HTTP listen address")
	cmd.Flags().String(flagSigningKey, "", "HMAC key for session token verification")
	cmd.Flags().String(flagSessionIssuer, "", "expected session token issuer")
	cmd.Flags().String(flagAllowedOrigins, "", "comma separated CORS origins")
	cmd.Flags().String(flagVinDecoderURL, vindecode.DefaultBaseURL, "VIN decode provider base URL")

	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	envBindings := map[string]string{
		configKeyDatabaseURL: "DATABASE_URL",
		configKeyListenAddr:  "HTTP_LISTEN_ADDR",
		configKeySigningKey:  "SESSION_SIGNING_KEY",
		configKeyIssuer:      "SESSION_ISSUER",
		configKeyOrigins:     "ALLOWED_ORIGINS",
		configKeyDecoderURL:  "VIN_DECODER_URL",
	}
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			return err
		}
	}

	flagBindings := map[string]string{
		configKeyDatabaseURL: flagDatabaseURL,
		configKeyListenAddr:  flagListenAddr,
		configKeySigningKey:  flagSigningKey,
		configKeyIssuer:      flagSessionIssuer,
		configKeyOrigins:     flagAllowedOrigins,
		configKeyDecoderURL:  flagVinDecoderURL,
	}
	for key, flag := range flagBindings {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return err
		}
	}

	cfg.DatabaseURL = viper.GetString(configKeyDatabaseURL)
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultDatabaseURL
	}
	cfg.ListenAddr = viper.GetString(configKeyListenAddr)
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	cfg.SigningKey = viper.GetString(configKeySigningKey)
	cfg.SessionIssuer = viper.GetString(configKeyIssuer)
	cfg.AllowedOrigins = viper.GetString(configKeyOrigins)
	cfg.VinDecoderURL = viper.GetString(configKeyDecoderURL)

	if cfg.SigningKey == "" {
		return fmt.Errorf("session signing key is required")
	}
	return nil
}

func runServer(ctx context.Context, cfg *runtimeConfig) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	gormDB, cleanup, driver, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database open: %w", err)
	}
	defer cleanup()

	store := gormstore.New(gormDB)
	if driver == "sqlite" {
		if err := store.AutoMigrate(); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
	}

	clock := func() int64 { return time.Now().UTC().Unix() }
	fuelService, err := fuellog.NewService(store, clock, fuellog.WithOperationLogger(zapOperationLogger{logger: logger}))
	if err != nil {
		return fmt.Errorf("fuel service init: %w", err)
	}

	decoder := vindecode.NewClient(cfg.VinDecoderURL, nil, logger)
	garageService, err := garage.NewService(store, decoder, logger)
	if err != nil {
		return fmt.Errorf("garage service init: %w", err)
	}

	apiConfig := httpapi.Config{
		ListenAddr:        cfg.ListenAddr,
		AllowedOrigins:    httpapi.ParseAllowedOrigins(cfg.AllowedOrigins),
		SessionSigningKey: cfg.SigningKey,
		SessionIssuer:     cfg.SessionIssuer,
	}
	return httpapi.Run(ctx, apiConfig, logger, fuelService, garageService)
}

// zapOperationLogger forwards fuel-log operation records to zap.
type zapOperationLogger struct {
	logger *zap.Logger
}

func (operationLogger zapOperationLogger) LogOperation(ctx context.Context, entry fuellog.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("vehicle_id", entry.VehicleID.String()),
		zap.String("owner_id", entry.OwnerID.String()),
		zap.String("status", entry.Status),
	}
	if entry.LogID.String() != "" {
		fields = append(fields, zap.String("log_id", entry.LogID.String()))
	}
	for _, warning := range entry.Warnings {
		fields = append(fields, zap.NamedError("warning_"+warning.Step, warning.Cause))
	}
	if entry.Error != nil {
		fields = append(fields, zap.Error(entry.Error))
		operationLogger.logger.Warn("fuel log operation failed", fields...)
		return
	}
	operationLogger.logger.Info("fuel log operation", fields...)
}

func openDatabase(ctx context.Context, dsn string) (*gorm.DB, func() error, string, error) {
	driver, sqlitePath, err := resolveDriver(dsn)
	if err != nil {
		return nil, nil, "", err
	}

	var db *gorm.DB
	switch driver {
	case "postgres":
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(sqlitePath), &gorm.Config{})
	default:
		return nil, nil, "", fmt.Errorf("unsupported database scheme %q", driver)
	}
	if err != nil {
		return nil, nil, "", err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, "", err
	}
	cleanup := func() error { return sqlDB.Close() }
	return db.WithContext(ctx), cleanup, driver, nil
}

func resolveDriver(dsn string) (string, string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres", "", nil
	}
	if strings.HasPrefix(dsn, "sqlite://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", "", fmt.Errorf("parse sqlite url: %w", err)
		}
		path := u.Path
		if path == "" {
			path = u.Host
		}
		if path == "" || path == "/" {
			path = "garage.db"
		}
		sqlitePath, err := normalizeSQLitePath(path)
		return "sqlite", sqlitePath, err
	}
	// Treat everything else as a direct sqlite path.
	sqlitePath, err := normalizeSQLitePath(dsn)
	return "sqlite", sqlitePath, err
}

func normalizeSQLitePath(path string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}
	if strings.HasPrefix(path, "/") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
		return path, nil
	}
	abs := filepath.Join(".", path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}
	return abs, nil
}
