package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"google.golang.org/api/option"

	"github.com/accountdesk/accountdesk/handlers"
	"github.com/accountdesk/accountdesk/internal/account"
	"github.com/accountdesk/accountdesk/internal/config"
	"github.com/accountdesk/accountdesk/internal/database"
	"github.com/accountdesk/accountdesk/internal/identity"
	"github.com/accountdesk/accountdesk/internal/oidc"
	"github.com/accountdesk/accountdesk/internal/profiles"
	"github.com/accountdesk/accountdesk/internal/sessions"
	"github.com/accountdesk/accountdesk/internal/storage"
	"github.com/accountdesk/accountdesk/pkg/logger"
	"github.com/accountdesk/accountdesk/pkg/metrics"
	"github.com/accountdesk/accountdesk/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: project=%q profiles=%s verifier=%s mongo=%v redis=%v minio=%v",
		cfg.Firebase.ProjectID, cfg.Profiles.Backend, cfg.Firebase.Verifier,
		cfg.MongoDB.URI != "", cfg.RedisAddr() != "", cfg.MinIO.Endpoint != "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Firebase Admin SDK: token verification, refresh token revocation, Firestore
	var app *firebase.App
	var authClient *auth.Client
	if cfg.Firebase.ProjectID != "" {
		var opts []option.ClientOption
		if cfg.Firebase.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.Firebase.CredentialsFile))
		}
		app, err = firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.Firebase.ProjectID}, opts...)
		if err != nil {
			logger.Fatalf("failed to initialize Firebase app: %v", err)
		}
		authClient, err = app.Auth(ctx)
		if err != nil {
			logger.Warnf("Firebase auth client unavailable, tokens will not be revoked on logout: %v", err)
			authClient = nil
		}
	}

	var revoker identity.Revoker
	if authClient != nil {
		revoker = authClient
	}
	provider, err := identity.NewToolkitProvider(ctx, identity.ToolkitConfig{
		APIKey:        cfg.Firebase.APIKey,
		Endpoint:      cfg.Firebase.Endpoint,
		TokenEndpoint: cfg.Firebase.TokenEndpoint,
		ContinueURL:   cfg.Firebase.ContinueURL,
	}, revoker)
	if err != nil {
		logger.Fatalf("failed to create identity provider client (FIREBASE_API_KEY set?): %v", err)
	}

	verifier := newVerifier(ctx, cfg, authClient)

	// Redis backs sessions, the token blacklist and the distributed rate limiter
	var redisClient *redis.Client
	if addr := cfg.RedisAddr(); addr != "" {
		rc := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rc.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v", addr, err)
			_ = rc.Close()
		} else {
			redisClient = rc
			defer func() { _ = rc.Close() }()
			sessions.SetBlacklistClient(rc)
			logger.Infof("connected to Redis at %s", addr)
		}
	}

	var mongoClient *mongo.Client
	if cfg.MongoDB.URI != "" {
		mongoClient, err = database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5)
		if err != nil {
			if cfg.Profiles.Backend == "mongo" {
				logger.Fatalf("%v", err)
			}
			logger.Warnf("%v", err)
		} else {
			defer func() { _ = mongoClient.Disconnect(context.Background()) }()
		}
	}

	var sessionRepo sessions.Repository
	switch {
	case redisClient != nil:
		sessionRepo = sessions.NewRedisRepository(redisClient, "session:")
		logger.Infof("using Redis for session storage")
	case mongoClient != nil:
		sessionRepo = sessions.NewMongoRepository(mongoClient.Database(cfg.MongoDB.Database).Collection("sessions"))
		logger.Infof("using MongoDB for session storage")
	default:
		sessionRepo = sessions.NewMemoryRepository()
		logger.Warnf("no Redis or MongoDB configured, sessions are kept in memory")
	}
	sessionSvc := sessions.NewService(sessionRepo, cfg.Auth.SessionTTL)

	profileRepo, closeProfiles := newProfileRepository(ctx, cfg, app, mongoClient)
	defer closeProfiles()

	var avatars account.AvatarStore
	var avatarStore *storage.MinIOStorage
	if cfg.MinIO.Endpoint != "" {
		avatarStore, err = storage.NewMinIOStorage(ctx, cfg.MinIO)
		if err != nil {
			logger.Warnf("avatar storage disabled: %v", err)
		} else {
			avatars = avatarStore
		}
	}

	accounts := account.NewService(provider, profiles.NewService(profileRepo), sessionSvc, avatars, account.Options{
		MinPasswordLength:    cfg.Auth.MinPasswordLength,
		RequireVerifiedEmail: cfg.Auth.RequireVerifiedEmail,
	})

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.RequestID(), gin.Logger(), gin.Recovery())

	// Lightweight CORS middleware for dev/test: set common headers and respond to OPTIONS.
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length, X-Request-ID")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	})

	// optional rate limiter, keyed per account behind RequireSession and per IP elsewhere
	limit := func(c *gin.Context) { c.Next() }
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && redisClient != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			limit = middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win)
		} else {
			limit = middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness: 200 only when the stores in use answer
	r.GET("/ready", func(c *gin.Context) {
		rctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		ready := true
		deps := map[string]bool{"verifier": verifier != nil}
		if redisClient != nil {
			deps["redis"] = redisClient.Ping(rctx).Err() == nil
			ready = ready && deps["redis"]
		}
		if mongoClient != nil {
			deps["mongo"] = mongoClient.Ping(rctx, nil) == nil
			ready = ready && deps["mongo"]
		}
		if avatarStore != nil {
			deps["minio"] = avatarStore.Ping(rctx) == nil
		}
		body := gin.H{"deps": deps, "uptime": time.Since(startTime).String()}
		if !ready {
			body["status"] = "not_ready"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		body["status"] = "ready"
		c.JSON(http.StatusOK, body)
	})

	guard := middleware.RequireSession(middleware.SessionOptions{
		Sessions:   sessionSvc,
		Verifier:   verifier,
		Refresher:  provider,
		CookieName: cfg.Auth.CookieName,
	})
	handlers.NewAuthHandler(cfg.Auth, accounts).Register(r.Group("/", limit), guard)
	api := r.Group("/api/v1", guard, limit)
	handlers.NewDashboardHandler(accounts).Register(api)
	handlers.RegisterSwagger(r, cfg.Auth.CookieName)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		logger.Infof("starting account service on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown error: %v", err)
	}
}

// newVerifier picks how session ID tokens are re-verified. nil means sessions
// are trusted as stored.
func newVerifier(ctx context.Context, cfg *config.Config, authClient *auth.Client) middleware.Verifier {
	if cfg.Auth.AllowInsecureToken {
		logger.Warn("enabling insecure token verifier (integration mode)")
		return oidc.NewInsecureVerifier()
	}
	if cfg.Firebase.ProjectID == "" {
		logger.Warnf("FIREBASE_PROJECT_ID not set, ID tokens are not re-verified")
		return nil
	}
	switch cfg.Firebase.Verifier {
	case "oidc":
		ver, err := oidc.NewVerifier(ctx, oidc.SecureTokenIssuer(cfg.Firebase.ProjectID), cfg.Firebase.ProjectID)
		if err != nil {
			logger.Warnf("failed to initialize OIDC verifier: %v", err)
			return nil
		}
		return ver
	default:
		if authClient == nil {
			logger.Warnf("Firebase auth client unavailable, ID tokens are not re-verified")
			return nil
		}
		return oidc.NewFirebaseVerifier(authClient)
	}
}

// newProfileRepository opens the configured profile backend and returns a
// cleanup func.
func newProfileRepository(ctx context.Context, cfg *config.Config, app *firebase.App, mongoClient *mongo.Client) (profiles.Repository, func()) {
	noop := func() {}
	switch cfg.Profiles.Backend {
	case "firestore":
		var fs *firestore.Client
		var err error
		if app != nil {
			fs, err = app.Firestore(ctx)
		} else {
			fs, err = firestore.NewClient(ctx, cfg.Firebase.ProjectID)
		}
		if err != nil {
			logger.Fatalf("failed to create Firestore client: %v", err)
		}
		logger.Infof("using Firestore collection %q for profiles", cfg.Profiles.Collection)
		return profiles.NewFirestoreRepository(fs, cfg.Profiles.Collection), func() { _ = fs.Close() }
	case "mongo":
		if mongoClient == nil {
			logger.Fatalf("PROFILES_BACKEND=mongo but MongoDB is unavailable")
		}
		col := mongoClient.Database(cfg.MongoDB.Database).Collection(cfg.Profiles.Collection)
		return profiles.NewMongoRepository(col), noop
	case "postgres":
		db, err := database.OpenPostgres(cfg.Postgres.DSN)
		if err != nil {
			logger.Fatalf("%v", err)
		}
		repo, err := profiles.NewGormRepository(db)
		if err != nil {
			logger.Fatalf("failed to migrate profiles table: %v", err)
		}
		return repo, func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
	default:
		logger.Warnf("profiles are kept in memory and lost on restart")
		return profiles.NewMemoryRepository(), noop
	}
}
