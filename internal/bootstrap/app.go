package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	googleauth "resume-ranker/internal/auth"
	"resume-ranker/internal/llm"
	openai "resume-ranker/internal/llm/openai"
	"resume-ranker/internal/profiles"
	"resume-ranker/internal/queue"
	"resume-ranker/internal/ranking"
	"resume-ranker/internal/render"
	"resume-ranker/internal/services/health"
	"resume-ranker/internal/shared/config"
	"resume-ranker/internal/shared/server"
	"resume-ranker/internal/shared/storage/db"
	"resume-ranker/internal/shared/storage/object"
	localstore "resume-ranker/internal/shared/storage/object/local"
	s3store "resume-ranker/internal/shared/storage/object/s3"
	"resume-ranker/internal/users"
)

// App holds shared dependencies and the wired router.
type App struct {
	Config          config.Config
	Router          *gin.Engine
	DB              *sql.DB
	Store           object.ObjectStore
	Files           server.RouteRegistrar
	Queue           queue.Client
	ProfilesService *profiles.Service
	RankingService  *ranking.Service
	UsersService    *users.Service
	ProfileHandler  *profiles.Handler
	RankHandler     *ranking.Handler
	UsersHandler    *users.Handler
	SummaryHandler  *llm.Handler
	DocsHandler     *render.Handler
	GoogleAuth      *googleauth.GoogleService
	Health          *health.Service
}

// Build prepares shared dependencies and wires routes.
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

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
	}
	if files, ok := store.(server.RouteRegistrar); ok {
		app.Files = files
	}
	if sqlDB != nil {
		app.Health = health.NewService(sqlDB)
	} else {
		app.Health = health.NewService(nil)
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:         app.Config,
		ProfileHandler: app.ProfileHandler,
		RankHandler:    app.RankHandler,
		UserHandler:    app.UsersHandler,
		SummaryHandler: app.SummaryHandler,
		DocsHandler:    app.DocsHandler,
		GoogleAuth:     app.GoogleAuth,
		Files:          app.Files,
		Health:         app.Health,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if config.IsDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if config.IsDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	// Dev databases are migrated on boot; other environments run cmd/migrate.
	if config.IsDevLike(cfg.Env) {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir, []byte(cfg.FileSigningSecret), cfg.PublicBaseURL), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.QueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.QueueURL, cfg.AWSRegion)
}

func buildCompleter(cfg config.Config) (llm.Completer, error) {
	if cfg.LLMProvider != "openai" {
		return llm.PlaceholderClient{}, nil
	}
	return openai.NewClient(os.Getenv("OPENAI_API_KEY"), cfg.LLMModel)
}

func buildServices(app *App) error {
	cfg := app.Config

	var (
		profileStore profiles.Store
		rankRepo     ranking.Repo
		userRepo     users.Repo
	)
	if app.DB != nil {
		profileStore = profiles.NewPGStore(app.DB)
		rankRepo = ranking.NewPGRepo(app.DB)
		userRepo = users.NewPGRepo(app.DB)
	} else {
		profileStore = profiles.NewMemoryStore()
		rankRepo = ranking.NewMemoryRepo()
		userRepo = users.NewMemoryRepo()
	}

	profileSvc := profiles.NewStoreService(profileStore, cfg.FreeCreditsLimit)
	rankSvc := ranking.NewService(ranking.Deps{
		Repo:           rankRepo,
		Profiles:       profileSvc,
		Store:          app.Store,
		Queue:          app.Queue,
		Workers:        cfg.RankWorkers,
		ExtractTimeout: cfg.RankExtractTimeout,
		SignedURLTTL:   cfg.SignedURLTTL,
	})
	userSvc := users.NewService(userRepo, profileSvc)

	completer, err := buildCompleter(cfg)
	if err != nil {
		return err
	}

	app.ProfilesService = profileSvc
	app.RankingService = rankSvc
	app.UsersService = userSvc
	app.ProfileHandler = profiles.NewHandler(profileSvc)
	app.RankHandler = ranking.NewHandler(rankSvc, cfg.RankMaxFiles, cfg.RankMaxUploadBytes)
	app.UsersHandler = users.NewHandler(userSvc)
	app.SummaryHandler = llm.NewHandler(completer)
	app.DocsHandler = render.NewHandler()
	app.GoogleAuth = googleauth.NewGoogleService(
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.GoogleRedirectURL,
		cfg.UIRedirectURL,
		userSvc,
	)

	if app.RankHandler == nil || app.ProfileHandler == nil {
		return errors.New("failed to initialize handlers")
	}
	return nil
}
