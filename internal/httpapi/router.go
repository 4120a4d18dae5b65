package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/toreyjames/TokenMeter/internal/config"
	"github.com/toreyjames/TokenMeter/internal/middleware"
	"github.com/toreyjames/TokenMeter/internal/queue"
	"github.com/toreyjames/TokenMeter/internal/spend"
	"github.com/toreyjames/TokenMeter/internal/storage"
	"github.com/toreyjames/TokenMeter/internal/utils"
)

// Dependencies aggregates all services the HTTP layer needs. The caller
// owns shutdown ordering: stop the HTTP server first, then the log
// worker, then close Redis and the database.
type Dependencies struct {
	DB          *storage.DB
	RedisClient *redis.Client
	LogWorker   *storage.LogQueueWorker
	Spend       spend.Tracker

	cleanupStop chan struct{}
}

// Close releases everything the router opened. Safe to call after a
// partial startup failure.
func (d *Dependencies) Close() error {
	var firstErr error
	if d.cleanupStop != nil {
		close(d.cleanupStop)
		d.cleanupStop = nil
	}
	if d.LogWorker != nil {
		if err := d.LogWorker.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if d.RedisClient != nil {
		if err := d.RedisClient.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if d.DB != nil {
		if err := d.DB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewRouter creates an HTTP router with all dependencies wired up.
func NewRouter(cfg *config.Config) (*http.ServeMux, *Dependencies, error) {
	logger := utils.NewLogger("router")

	db, err := storage.NewDB(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps := &Dependencies{DB: db}

	// Redis is optional. Without it the usage queue and spend counters
	// run in process; logs then do not survive a restart.
	if cfg.Redis.Address != "" {
		client, err := storage.NewRedisClient(cfg)
		if err != nil {
			deps.Close()
			return nil, nil, fmt.Errorf("failed to initialize Redis: %w", err)
		}
		deps.RedisClient = client
	} else {
		logger.Warn("Redis not configured, using in-process usage queue and spend tracking")
	}

	queueCfg := queue.DefaultConfig("usage")
	queueCfg.BatchSize = cfg.LogQueue.BatchSize
	queueCfg.BatchTimeout = cfg.LogQueue.BatchTimeout
	queueCfg.MaxRetries = cfg.LogQueue.MaxRetries
	queueCfg.RetryBackoff = cfg.LogQueue.RetryBackoff

	var usageQueue queue.Queue
	var usageDLQ queue.DeadLetterQueue
	if deps.RedisClient != nil {
		usageQueue, err = queue.NewRedisQueue(deps.RedisClient, queueCfg)
		if err != nil {
			deps.Close()
			return nil, nil, fmt.Errorf("failed to create usage queue: %w", err)
		}
		usageDLQ, err = queue.NewRedisDeadLetterQueue(deps.RedisClient, queueCfg)
		if err != nil {
			deps.Close()
			return nil, nil, fmt.Errorf("failed to create usage DLQ: %w", err)
		}
		deps.Spend = spend.NewRedisTracker(deps.RedisClient)
	} else {
		usageQueue = queue.NewMemoryQueue(queueCfg)
		usageDLQ = queue.NewMemoryDeadLetterQueue()
		deps.Spend = spend.NewNoopTracker()
	}

	credentialRepo := storage.NewCredentialRepository(db)
	requestLogRepo := storage.NewRequestLogRepository(db)
	alertRepo := storage.NewAlertRepository(db)
	accountRepo := storage.NewAccountRepository(db)

	deps.LogWorker = storage.NewLogQueueWorker(usageQueue, usageDLQ, requestLogRepo, queueCfg)
	deps.LogWorker.Start(context.Background())

	credentialStore := NewDatabaseCredentialStore(credentialRepo, db.CredentialCache())
	proxyHandler := NewProxyHandler(credentialStore, deps.LogWorker, deps.Spend, cfg.Proxy)

	keysHandler := NewKeysHandler(credentialRepo)
	logsHandler := NewLogsHandler(requestLogRepo)
	statsHandler := NewStatsHandler(requestLogRepo)
	alertsHandler := NewAlertsHandler(alertRepo, requestLogRepo)
	authHandler := NewAuthHandler(accountRepo, cfg.JWTSecret)
	opsHandler := NewOpsHandler(deps.LogWorker, credentialRepo, deps.Spend)

	deps.cleanupStop = make(chan struct{})
	go runCacheCleanup(db, deps.cleanupStop)

	mux := http.NewServeMux()
	registerRoutes(mux, deps, cfg, proxyHandler, keysHandler, logsHandler, statsHandler, alertsHandler, authHandler, opsHandler)

	return mux, deps, nil
}

// runCacheCleanup evicts expired credential cache entries until stop is
// closed.
func runCacheCleanup(db *storage.DB, stop <-chan struct{}) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			db.CleanupExpiredCacheEntries()
		case <-stop:
			return
		}
	}
}

func registerRoutes(
	mux *http.ServeMux,
	deps *Dependencies,
	cfg *config.Config,
	proxy *ProxyHandler,
	keys *KeysHandler,
	logs *LogsHandler,
	stats *StatsHandler,
	alerts *AlertsHandler,
	authh *AuthHandler,
	ops *OpsHandler,
) {
	// Metering proxy. Authenticated by proxy secret inside the handler,
	// not by the dashboard session middleware.
	mux.Handle("/api/v1/{provider}/{path...}", proxy)

	// Health check endpoint - public
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := deps.DB.Health(r.Context()); err != nil {
			utils.RespondWithError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Dashboard authentication - public
	mux.HandleFunc("POST /api/auth/login", authh.Login)

	// Dashboard management endpoints - protected by session JWT
	session := middleware.SessionMiddleware(cfg.JWTSecret)
	mux.Handle("GET /api/keys", session(http.HandlerFunc(keys.List)))
	mux.Handle("POST /api/keys", session(http.HandlerFunc(keys.Create)))
	mux.Handle("DELETE /api/keys/{id}", session(http.HandlerFunc(keys.Delete)))
	mux.Handle("POST /api/keys/test", session(http.HandlerFunc(keys.TestKey)))

	mux.Handle("GET /api/logs", session(http.HandlerFunc(logs.List)))
	mux.Handle("GET /api/stats", session(http.HandlerFunc(stats.Get)))

	mux.Handle("GET /api/alerts", session(http.HandlerFunc(alerts.List)))
	mux.Handle("POST /api/alerts", session(http.HandlerFunc(alerts.Create)))
	mux.Handle("PATCH /api/alerts/{id}", session(http.HandlerFunc(alerts.Update)))
	mux.Handle("DELETE /api/alerts/{id}", session(http.HandlerFunc(alerts.Delete)))

	mux.Handle("GET /api/ops/queue", session(http.HandlerFunc(ops.QueueStatus)))
	mux.Handle("POST /api/ops/queue/dlq/{id}/retry", session(http.HandlerFunc(ops.RetryDeadLetter)))
	mux.Handle("GET /api/ops/spend/{credential_id}", session(http.HandlerFunc(ops.Spend)))
}
