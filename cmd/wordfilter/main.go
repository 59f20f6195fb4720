package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/elum-utils/wordfilter"
	"github.com/elum-utils/wordfilter/adapters/enforcer"
	"github.com/elum-utils/wordfilter/adapters/logging"
	"github.com/elum-utils/wordfilter/adapters/storage"
	"github.com/elum-utils/wordfilter/api"
	"github.com/elum-utils/wordfilter/config"
	"github.com/elum-utils/wordfilter/interfaces"
)

func main() {

	// Load the .env file
	if err := godotenv.Load(); err != nil {
		fmt.Println("Error loading .env file: ", err)
	}

	logger := logging.NewSlog(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(os.Getenv("LOG_LEVEL")),
	})))

	//================================================================================
	// Load the settings file
	//================================================================================

	cfgPath := os.Getenv("WORDFILTER_CONFIG")
	if cfgPath == "" {
		cfgPath = "tshock/WordFilter.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalln(err)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		log.Fatalln(err)
	}
	for _, note := range cfg.Check() {
		logger.Warn("config", map[string]any{"path": cfgPath, "note": note})
	}

	//================================================================================
	// Create the storage
	//================================================================================

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStorage(ctx)
	if err != nil {
		log.Fatalln(err)
	}
	defer closeStore()

	//================================================================================
	// Create the moderator
	//================================================================================

	opt := cfg.Options()
	opt.RuleStorage = store
	opt.WarningStorage = store
	opt.Logger = logger
	opt.Enforcer = newEnforcer(logger)
	moderator := wordfilter.New(opt)

	runErr := make(chan error, 1)
	go func() { runErr <- moderator.Run(ctx) }()

	//================================================================================
	// Setup the Gin HTTP router
	//================================================================================

	r := gin.New()
	r.Use(gin.Recovery())

	// Configure CORS for the API
	if origins := GetAllowedOrigins(); len(origins) > 0 {
		corsCfg := cors.DefaultConfig()
		corsCfg.AllowOrigins = origins
		corsCfg.AddAllowHeaders("Authorization")
		r.Use(cors.New(corsCfg))
	}

	server := &api.Server{
		Moderator: moderator,
		Token:     os.Getenv("ADMIN_TOKEN"),
		TokenHash: os.Getenv("ADMIN_TOKEN_HASH"),
		Logger:    logger,
	}
	server.Setup(r.Group("v1"))

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Panicln(err)
		}
	}()
	logger.Info("wordfilter started", map[string]any{
		"addr":  addr,
		"rules": moderator.RuleCount(),
	})

	select {
	case <-ctx.Done():
	case err := <-runErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("moderator stopped", map[string]any{"error": err.Error()})
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", map[string]any{"error": err.Error()})
	}
}

// openStorage uses redis when REDIS_ADDR is set and the DB_URL database
// otherwise.
func openStorage(ctx context.Context) (interfaces.Storage, func(), error) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis %s: %w", addr, err)
		}
		st, err := storage.NewRedisAdapter(client, os.Getenv("REDIS_PREFIX"))
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return st, func() { client.Close() }, nil
	}

	// Get the database driver for the database string
	dbDriver := ParseDatabaseDriver(os.Getenv("DB_URL"))
	if dbDriver == nil {
		return nil, nil, errors.New("failed to create database driver, check DB_URL environment variable")
	}
	db, err := gorm.Open(dbDriver, &gorm.Config{
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	st, err := storage.NewGormAdapter(db)
	if err != nil {
		return nil, nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	return st, closeFn, nil
}

// newEnforcer talks to the TShock REST API when it is configured and only
// logs sanctions otherwise.
func newEnforcer(logger interfaces.Logger) interfaces.Enforcer {
	baseURL := os.Getenv("TSHOCK_REST_URL")
	if baseURL == "" {
		return enforcer.NewLogOnly(logger)
	}
	e, err := enforcer.NewTShock(enforcer.TShockOptions{
		BaseURL: baseURL,
		Token:   os.Getenv("TSHOCK_REST_TOKEN"),
	})
	if err != nil {
		logger.Warn("tshock enforcer disabled", map[string]any{"error": err.Error()})
		return enforcer.NewLogOnly(logger)
	}
	return e
}

// GetAllowedOrigins gets the slice of allowed CORS origins
func GetAllowedOrigins() []string {
	env, ok := os.LookupEnv("CORS_ALLOW_ORIGINS")
	if !ok {
		return nil
	}
	origins := []string{}
	for _, originRaw := range strings.Split(env, ",") {
		if origin := strings.TrimSpace(originRaw); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func parseLevel(v string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(v))); err != nil {
		return slog.LevelInfo
	}
	return level
}
