package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"placement-backend/internal/applications"
	"placement-backend/internal/contracts"
	"placement-backend/internal/events"
	"placement-backend/internal/jobs"
	"placement-backend/internal/notifications"
	"placement-backend/internal/queue"
	"placement-backend/internal/shared/config"
	"placement-backend/internal/shared/server"
	"placement-backend/internal/shared/storage/db"
	"placement-backend/internal/shared/storage/object"
	localstore "placement-backend/internal/shared/storage/object/local"
	s3store "placement-backend/internal/shared/storage/object/s3"
	"placement-backend/internal/users"
)

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client
	Events *events.Publisher

	UsersRepo         users.Repo
	JobsRepo          jobs.Repo
	ApplicationsRepo  applications.Repo
	ContractsRepo     contracts.Repo
	NotificationsRepo notifications.Repo

	UsersService        *users.Service
	JobsService         *jobs.Service
	ApplicationsService *applications.Service
	Dispatcher          *applications.Dispatcher

	UsersHandler         *users.Handler
	JobsHandler          *jobs.Handler
	ApplicationsHandler  *applications.Handler
	ContractsHandler     *contracts.Handler
	NotificationsHandler *notifications.Handler
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	publisher := buildEvents(ctx, cfg)

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
		Events: publisher,
	}
	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:               app.Config,
		UsersHandler:         app.UsersHandler,
		JobsHandler:          app.JobsHandler,
		ApplicationsHandler:  app.ApplicationsHandler,
		ContractsHandler:     app.ContractsHandler,
		NotificationsHandler: app.NotificationsHandler,
	})

	return app, nil
}

func buildServices(app *App) {
	if app.DB != nil {
		app.UsersRepo = &users.PGRepo{DB: app.DB}
		app.JobsRepo = &jobs.PGRepo{DB: app.DB}
		app.ContractsRepo = &contracts.PGRepo{DB: app.DB}
		app.NotificationsRepo = &notifications.PGRepo{DB: app.DB}
		app.ApplicationsRepo = &applications.PGRepo{DB: app.DB}
	} else {
		app.UsersRepo = users.NewMemoryRepo()
		app.JobsRepo = jobs.NewMemoryRepo()
		app.ContractsRepo = contracts.NewMemoryRepo()
		app.NotificationsRepo = notifications.NewMemoryRepo()
		app.ApplicationsRepo = applications.NewMemoryRepo(app.JobsRepo, app.ContractsRepo)
	}

	app.UsersService = users.NewService(app.UsersRepo)
	app.JobsService = &jobs.Service{Repo: app.JobsRepo}

	app.Dispatcher = &applications.Dispatcher{
		Apps:      app.ApplicationsRepo,
		Jobs:      app.JobsRepo,
		Contracts: app.ContractsRepo,
		Generator: contracts.StaticGenerator{},
		Users:     app.UsersService,
		Notifier:  &notifications.StoreSink{Repo: app.NotificationsRepo},
	}
	app.ApplicationsService = &applications.Service{
		Repo:       app.ApplicationsRepo,
		Jobs:       app.JobsRepo,
		Queue:      app.Queue,
		Dispatcher: app.Dispatcher,
		Events:     app.Events,
	}

	app.UsersHandler = users.NewHandler(app.UsersService)
	app.JobsHandler = jobs.NewHandler(app.JobsService)
	app.ApplicationsHandler = applications.NewHandler(app.ApplicationsService, app.Store)
	app.ContractsHandler = contracts.NewHandler(app.ContractsRepo)
	app.NotificationsHandler = notifications.NewHandler(app.NotificationsRepo)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.EffectQueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.EffectQueueURL)
}

// buildEvents treats Redis as optional: without REDIS_URL, or when the
// connection fails, transition events are simply not published.
func buildEvents(ctx context.Context, cfg config.Config) *events.Publisher {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return nil
	}
	publisher, err := events.NewPublisher(ctx, cfg.RedisURL)
	if err != nil {
		log.Printf("bootstrap: redis connect failed; transition events disabled: %v", err)
		return nil
	}
	return publisher
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
