package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openwagemap/openwagemap/internal/auth"
	"github.com/openwagemap/openwagemap/internal/cache"
	"github.com/openwagemap/openwagemap/internal/config"
	"github.com/openwagemap/openwagemap/internal/database"
	"github.com/openwagemap/openwagemap/internal/locations"
	"github.com/openwagemap/openwagemap/internal/logging"
	"github.com/openwagemap/openwagemap/internal/orgs"
	"github.com/openwagemap/openwagemap/internal/server"
	"github.com/openwagemap/openwagemap/internal/stats"
	"github.com/openwagemap/openwagemap/internal/taxonomy"
	"github.com/openwagemap/openwagemap/internal/users"
	"github.com/openwagemap/openwagemap/internal/wages"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "openwagemap-api",
		Short: "OpenWageMap wage transparency backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("redis-address", defaults.GetString("redis.address"), "Redis address (empty for in-process counters)")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().Int("token-ttl-minutes", defaults.GetInt("token.ttl_minutes"), "Submitter token TTL in minutes")
	cmd.PersistentFlags().String("signing-secret", "", "Token signing secret (overrides env)")
	cmd.PersistentFlags().Int("min-location-sample", defaults.GetInt("scoring.min_location_sample"), "Location sample size below which scoring falls back to the organization")
	cmd.PersistentFlags().Int("approve-threshold", defaults.GetInt("scoring.approve_threshold"), "Robust z approval cutoff in hundredths")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "redis.address", "redis-address")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "token.ttl_minutes", "token-ttl-minutes")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
	bindFlag(cmd, "scoring.min_location_sample", "min-location-sample")
	bindFlag(cmd, "scoring.approve_threshold", "approve-threshold")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	var counters cache.Counters
	var objects cache.ObjectStore
	if appConfig.RedisAddress != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: appConfig.RedisAddress})
		defer redisClient.Close()
		counters = cache.NewRedisCounters(redisClient)
		objects = cache.NewRedisObjects(redisClient)
		logger.Info("redis cache enabled", zap.String("address", appConfig.RedisAddress))
	} else {
		counters = cache.NewMemoryCounters()
		objects = cache.NewMemoryObjects()
		logger.Info("in-process cache enabled")
	}

	invalidator, err := cache.NewInvalidator(counters, logger)
	if err != nil {
		return err
	}

	tokenManager := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		Issuer:        "openwagemap-auth",
		Audience:      "openwagemap-api",
		TokenTTL:      time.Duration(appConfig.TokenTTLMin) * time.Minute,
	})

	orgService, err := orgs.NewService(orgs.ServiceConfig{Database: db})
	if err != nil {
		return err
	}
	locationService, err := locations.NewService(locations.ServiceConfig{Database: db})
	if err != nil {
		return err
	}
	taxonomyService, err := taxonomy.NewService(taxonomy.ServiceConfig{Database: db})
	if err != nil {
		return err
	}
	userService, err := users.NewService(users.ServiceConfig{Database: db})
	if err != nil {
		return err
	}

	wageService, err := wages.NewService(wages.ServiceConfig{
		Database:          db,
		Invalidator:       invalidator,
		Rewarder:          userService,
		IDProvider:        wages.NewUUIDProvider(),
		Logger:            logger,
		MinLocationSample: appConfig.MinLocationSample,
		ApproveThreshold:  appConfig.ApproveThreshold,
	})
	if err != nil {
		return err
	}

	statsService, err := stats.NewService(stats.ServiceConfig{
		Database:    db,
		Invalidator: invalidator,
		Objects:     objects,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Wages:     wageService,
		Orgs:      orgService,
		Locations: locationService,
		Taxonomy:  taxonomyService,
		Stats:     statsService,
		Users:     userService,
		Tokens:    tokenManager,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
