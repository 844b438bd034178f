package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ironlake-data/catalog/internal/authz"
	"github.com/ironlake-data/catalog/internal/catalogstore"
	"github.com/ironlake-data/catalog/internal/domain"
	"github.com/ironlake-data/catalog/internal/httpx"
	"github.com/ironlake-data/catalog/internal/lifecycle"
	"github.com/ironlake-data/catalog/internal/platform/applog"
	ironmongo "github.com/ironlake-data/catalog/internal/platform/mongo"
	"github.com/ironlake-data/catalog/internal/platform/postgres"
	"github.com/ironlake-data/catalog/internal/platform/rabbitmq"
	ironredis "github.com/ironlake-data/catalog/internal/platform/redis"
	"github.com/ironlake-data/catalog/internal/reqctx"
	"github.com/ironlake-data/catalog/internal/reqctx/authn"
	"github.com/ironlake-data/catalog/internal/secrets"
	"github.com/ironlake-data/catalog/internal/storage"
	"github.com/ironlake-data/catalog/internal/taskqueue"
)

// Server bundles the assembled fiber app with the background worker pool it
// shares a process with, plus the port/logger/database fields needed to
// run and shut both down together.
type Server struct {
	app    *fiber.App
	port   string
	log    applog.Logger
	pg     *postgres.Connection
	pool   *taskqueue.WorkerPool
	queues []domain.QueueName
}

// New wires every component in internal/... against cfg in dependency
// order: platform connections first, then domain-facing adapters, then the
// lifecycle service, then the HTTP layer last since it depends on
// everything else.
func New(ctx context.Context, cfg *Config) (*Server, error) {
	log, err := applog.NewZapLogger(applog.ParseLevel(cfg.LogLevel), cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pg := &postgres.Connection{PrimaryDSN: cfg.DBPrimaryDSN, ReplicaDSN: cfg.DBReplicaDSN, DBName: cfg.DBName}
	if err := pg.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	store := catalogstore.New(pg)

	if cfg.RedisURL != "" {
		rconn := &ironredis.Connection{URL: cfg.RedisURL}
		whCache := catalogstore.NewCache(rconn, log, "ironlake:warehouse", cfg.WarehouseCacheTTL)
		store.AttachWarehouseCache(whCache)
	}

	var authzBackend authz.Backend = authz.NewAllowAllBackend()
	if cfg.AuthzBackend == "external" && cfg.AuthzEndpoint != "" {
		authzBackend = authz.NewExternalBackend(cfg.AuthzEndpoint)
	}

	authorizer := authz.New(authzBackend)

	queue := taskqueue.New(pg)

	var events *taskqueue.EventPublisher
	if cfg.RabbitMQURL != "" {
		rmq := &rabbitmq.Connection{URL: cfg.RabbitMQURL, Exchange: cfg.RabbitMQExchange}
		events = taskqueue.NewEventPublisher(rmq, log)
	} else {
		events = taskqueue.NewEventPublisher(nil, log)
	}

	secretStore, err := buildSecretStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	credVendor := storage.NewCredentialVendor()

	svc := lifecycle.NewService(store, authorizer, queue, events, secretStore, credVendor, log)

	fileIOFor := func(ctx context.Context, warehouseID string) (storage.FileIO, error) {
		wh, err := store.Warehouses.GetByID(ctx, warehouseID)
		if err != nil {
			return nil, err
		}

		var creds map[string]string

		if wh.StorageSecretID != nil {
			secret, err := secretStore.Get(ctx, *wh.StorageSecretID)
			if err != nil {
				return nil, err
			}

			creds = secret.Payload
		}

		return storage.NewFileIO(ctx, wh.StorageProfile, creds)
	}

	registry := taskqueue.NewRegistry()
	taskqueue.RegisterBuiltins(registry, store, queue, fileIOFor, cfg.TaskLogRetention)
	pool := taskqueue.NewWorkerPool(queue, registry, log, cfg.WorkerPollInterval, cfg.WorkerHeartbeatTimeout)

	verifier := authn.NewVerifier(cfg.JWKSUrl, cfg.JWKSCacheDuration)
	resolver := reqctx.NewActorResolver(verifier)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(httpx.WithRequestContext(resolver))

	httpx.RegisterRoutes(app, httpx.NewCatalogHandlers(svc, cfg.DefaultProjectID), httpx.NewManagementHandlers(svc, queue))

	return &Server{
		app:  app,
		port: cfg.Port,
		log:  log,
		pg:   pg,
		pool: pool,
		queues: []domain.QueueName{
			domain.QueueTabularExpiration,
			domain.QueueTabularPurge,
			domain.QueueStats,
			domain.QueueTaskLogCleanup,
		},
	}, nil
}

func buildSecretStore(ctx context.Context, cfg *Config, log applog.Logger) (lifecycle.SecretStore, error) {
	switch cfg.SecretsBackend {
	case "secretsmanager":
		primary, err := secrets.NewSecretsManagerStore(ctx, cfg.AWSRegion, "ironlake")
		if err != nil {
			return nil, fmt.Errorf("init secrets manager store: %w", err)
		}

		return wrapCached(primary, cfg, log), nil
	default:
		mconn := &ironmongo.Connection{URI: cfg.MongoURI, Database: cfg.MongoDB}
		primary := secrets.NewMongoStore(mconn, cfg.SecretsCollection)

		return wrapCached(primary, cfg, log), nil
	}
}

func wrapCached(primary secrets.Store, cfg *Config, log applog.Logger) secrets.Store {
	if cfg.RedisURL == "" {
		return primary
	}

	rconn := &ironredis.Connection{URL: cfg.RedisURL}
	cache := catalogstore.NewCache(rconn, log, "ironlake:secret", cfg.SecretCacheTTL)

	return secrets.NewCachedStore(primary, cache)
}

// Run starts the worker pool in the background and blocks serving HTTP
// until ctx is cancelled. This service has exactly one HTTP launcher, so
// no multi-launcher abstraction is needed.
func (s *Server) Run(ctx context.Context) error {
	go s.pool.Run(ctx, s.queues, 30*time.Second)

	errCh := make(chan error, 1)

	go func() {
		errCh <- s.app.Listen(":" + s.port)
	}()

	select {
	case <-ctx.Done():
		return s.app.Shutdown()
	case err := <-errCh:
		return err
	}
}

func (s *Server) Logger() applog.Logger { return s.log }

func (s *Server) DB() *postgres.Connection { return s.pg }
