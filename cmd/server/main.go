package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	echoapi "go.pilab.hu/gamelink/api/echo"
	redcache "go.pilab.hu/gamelink/cache/redis"
	"go.pilab.hu/gamelink/config"
	"go.pilab.hu/gamelink/internal/auth"
	"go.pilab.hu/gamelink/internal/federation"
	"go.pilab.hu/gamelink/mongodb"
	"go.pilab.hu/gamelink/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogging(cfg)
	log.Info().
		Str("http_port", cfg.HTTPPort).
		Str("mongo_db_name", cfg.MongoDBName).
		Str("frontend_url", cfg.FrontendURL).
		Msg("Starting gamelink server")

	ctx := context.Background()
	if err := mongodb.InitMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize MongoDB connection")
	}
	db := mongodb.GetDB()

	// Repositories
	pairingRepo, err := mongodb.NewPairingTokenRepository(ctx, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize PairingTokenRepository")
	}
	sessionRepo, err := mongodb.NewDeviceSessionRepository(ctx, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize DeviceSessionRepository")
	}
	userRepo, err := mongodb.NewUserRepository(ctx, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize UserRepository")
	}
	oauthRepo, err := mongodb.NewUserOAuthRepository(ctx, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize UserOAuthRepository")
	}

	// Optional Redis session cache
	var sessionCache services.SessionCache
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("Failed to connect to Redis")
		}
		sessionCache = redcache.NewSessionCache(redisClient, "gamelink")
		log.Info().Str("addr", cfg.RedisAddr).Msg("Redis session cache enabled")
	}

	// Services
	passwordHasher := auth.NewHasher(bcrypt.DefaultCost)
	tokenService := services.NewTokenService(
		cfg.JWTSecretKey,
		cfg.JWTIssuer,
		cfg.JWTTTL(),
		cfg.PairingTokenTTL(),
		cfg.SessionTTL(),
	)
	handshakeService := services.NewHandshakeService(pairingRepo, sessionRepo, userRepo, tokenService, cfg.FrontendURL)
	authService := services.NewAuthService(userRepo, oauthRepo, passwordHasher, tokenService, handshakeService)
	sessionService := services.NewSessionService(sessionRepo, sessionCache)

	// OAuth providers
	providers := buildProviders(cfg)
	stateStore := federation.NewStateStore(cfg.OAuthStateTTL())
	defer stateStore.Close()

	healthCheck := func(c echo.Context) error {
		if err := mongodb.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	authAPI := echoapi.NewAuthAPI(handshakeService, authService, sessionService, providers, stateStore, healthCheck)
	authAPI.RegisterRoutes(e)

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("HTTP server listening")
		if err := e.Start(":" + cfg.HTTPPort); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start HTTP server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error().Err(err).Msg("Redis close error")
		}
	}
	mongodb.CloseMongoDB(shutdownCtx)

	log.Info().Msg("Server gracefully stopped")
}

func setupLogging(cfg *config.ServerConfig) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func buildProviders(cfg *config.ServerConfig) []federation.Provider {
	var providers []federation.Provider

	if cfg.GoogleClientID != "" {
		google, err := federation.NewGoogleProvider(federation.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid Google OAuth configuration")
		}
		providers = append(providers, google)
		log.Info().Msg("Google OAuth provider enabled")
	}

	if cfg.DiscordClientID != "" {
		discord, err := federation.NewDiscordProvider(federation.Config{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.DiscordRedirectURL,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid Discord OAuth configuration")
		}
		providers = append(providers, discord)
		log.Info().Msg("Discord OAuth provider enabled")
	}

	return providers
}
