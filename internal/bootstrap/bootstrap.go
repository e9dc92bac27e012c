package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	appAuth "github.com/yigit/communityhub/internal/app/auth"
	appControllers "github.com/yigit/communityhub/internal/app/controllers"
	appMigrations "github.com/yigit/communityhub/internal/app/migrations"
	"github.com/yigit/communityhub/internal/app/notifications"
	appRepos "github.com/yigit/communityhub/internal/app/repositories"
	appRoutes "github.com/yigit/communityhub/internal/app/routes"
	appServices "github.com/yigit/communityhub/internal/app/services"
	"github.com/yigit/communityhub/internal/config"
	"github.com/yigit/communityhub/internal/db"
	appMiddleware "github.com/yigit/communityhub/internal/middleware"
	pkgAuth "github.com/yigit/communityhub/internal/pkg/auth"
	"github.com/yigit/communityhub/internal/pkg/cache"
	"github.com/yigit/communityhub/internal/pkg/email"
	"github.com/yigit/communityhub/internal/pkg/helpers"
	"github.com/yigit/communityhub/internal/pkg/logger"
	"github.com/yigit/communityhub/internal/pkg/metrics"
	"github.com/yigit/communityhub/internal/pkg/push"
	"github.com/yigit/communityhub/internal/seed"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	ActivityService     appServices.ActivityService
	FeedService         appServices.FeedService
	NotificationService appServices.NotificationService
	SocialService       appServices.SocialService
	CommunityService    appServices.CommunityService
	MessageService      appServices.MessageService
	Dispatcher          *notifications.Dispatcher
	Controllers         appRoutes.Controllers
	AuthMiddleware      *appMiddleware.AuthMiddleware
	Repos               *appRepos.Repositories
	JWTService          *pkgAuth.JWTService
	AuthzService        *appAuth.AuthorizationService
	UnreadCounter       *cache.UnreadCounter // nil when Redis is not configured
	Logger              zerolog.Logger
}

// Close waits for pending deliveries and releases connections held by the dependencies
func (d *Dependencies) Close() {
	d.Dispatcher.Wait()
	if d.UnreadCounter != nil {
		if err := d.UnreadCounter.Close(); err != nil {
			d.Logger.Warn().Err(err).Msg("Failed to close redis client")
		}
	}
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.ParseLevel(cfg.Logging.Level)
	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: strings.ToLower(cfg.Logging.Format) == "text",
	})

	lgr := logger.Get()
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection and runs migrations.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*db.PostgresDB, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	migrationsDir := cfg.Database.MigrationsDir
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		database.Close()
		lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
		return nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	migrator := appMigrations.NewMigrator(database.Pool, lgr)
	if err := migrator.MigrateFromDirectory(ctx, migrationsDir); err != nil {
		database.Close()
		lgr.Error().Err(err).Msg("Database migration error")
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")

	return database, nil
}

// buildNotifiers returns the outbound channels enabled by the configuration
func buildNotifiers(ctx context.Context, cfg *config.Config, repos *appRepos.Repositories, lgr zerolog.Logger) []notifications.Notifier {
	var notifiers []notifications.Notifier

	smtpConfig := email.SMTPConfig{
		Host:      cfg.SMTP.Host,
		Port:      cfg.SMTP.Port,
		Username:  cfg.SMTP.Username,
		Password:  cfg.SMTP.Password,
		FromName:  cfg.SMTP.FromName,
		FromEmail: cfg.SMTP.FromEmail,
		UseTLS:    cfg.SMTP.UseTLS,
		BaseURL:   cfg.Server.PublicURL,
	}
	if smtpConfig.Configured() {
		mailer := email.NewEmailService(smtpConfig, logger.Component("email"))
		notifiers = append(notifiers, notifications.NewEmailNotifier(repos.UserRepository, mailer, lgr))
	} else {
		lgr.Info().Msg("SMTP not configured, email notifications disabled")
	}

	if cfg.Push.Enabled {
		client, err := push.NewFCMClient(ctx, cfg.Push.CredentialsFile)
		if err != nil {
			lgr.Error().Err(err).Msg("Failed to initialize push client, push notifications disabled")
		} else {
			notifiers = append(notifiers, notifications.NewPushNotifier(repos.UserRepository, repos.PushSubscriptionRepository, client, lgr))
		}
	}
	return notifiers
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(cfg *config.Config, database *db.PostgresDB, lgr zerolog.Logger) (*Dependencies, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deps := &Dependencies{Logger: lgr}
	deps.Repos = appRepos.NewRepositories(database)

	if err := seed.CreateDefaultData(ctx, deps.Repos, lgr); err != nil {
		lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
	}

	if cfg.RedisEnabled() {
		counter, err := cache.NewUnreadCounter(ctx, cache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		}, logger.Component("cache"))
		if err != nil {
			// Counts fall back to the database
			lgr.Warn().Err(err).Msg("Redis unavailable, unread counts are not cached")
		} else {
			deps.UnreadCounter = counter
		}
	}

	deps.AuthzService = appAuth.NewAuthorizationService(deps.Repos.MembershipRepository)

	engine := notifications.NewEngine(deps.Repos.Directory, logger.Component("notifications"))
	dispatcher := notifications.NewDispatcher(
		logger.Component("dispatcher"),
		deps.UnreadCounter,
		buildNotifiers(ctx, cfg, deps.Repos, logger.Component("notifiers"))...,
	)
	deps.Dispatcher = dispatcher

	limits := appServices.FeedLimits{
		DefaultPageSize: cfg.Feed.DefaultPageSize,
		MaxPageSize:     cfg.Feed.MaxPageSize,
	}

	deps.ActivityService = appServices.NewActivityService(
		deps.Repos.ActivityStore,
		engine,
		dispatcher,
		deps.AuthzService,
		logger.Component("activities"),
	)
	deps.FeedService = appServices.NewFeedService(
		deps.Repos.FeedRepository,
		appRepos.NewActivityHydrator(deps.Repos.ActivityRepository),
		deps.AuthzService,
		limits,
		logger.Component("feed"),
	)
	deps.NotificationService = appServices.NewNotificationService(
		deps.Repos.NotificationRepository,
		deps.UnreadCounter,
		deps.AuthzService,
		limits,
		logger.Component("inbox"),
	)
	deps.SocialService = appServices.NewSocialService(
		deps.Repos.SocialStore,
		deps.Repos.GraphRepository,
		deps.Repos.PushSubscriptionRepository,
		engine,
		dispatcher,
		deps.AuthzService,
		logger.Component("social"),
	)
	deps.CommunityService = appServices.NewCommunityService(
		deps.Repos.SocialStore,
		deps.Repos.CommunityRepository,
		logger.Component("communities"),
	)
	deps.MessageService = appServices.NewMessageService(
		deps.Repos.MessageStore,
		deps.Repos.GraphRepository,
		deps.Repos.FeedRepository,
		appRepos.NewMessageHydrator(deps.Repos.MessageRepository),
		engine,
		dispatcher,
		deps.AuthzService,
		limits,
		logger.Component("messages"),
	)

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, time.Hour),
		TokenIssuer:    cfg.JWT.Issuer,
	})
	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)

	deps.Controllers = appRoutes.Controllers{
		Activity:     appControllers.NewActivityController(deps.ActivityService),
		Feed:         appControllers.NewFeedController(deps.FeedService),
		Notification: appControllers.NewNotificationController(deps.NotificationService),
		Community:    appControllers.NewCommunityController(deps.CommunityService, deps.SocialService),
		User:         appControllers.NewUserController(deps.SocialService),
		Message:      appControllers.NewMessageController(deps.MessageService),
	}
	if !isProduction(cfg) {
		deps.Controllers.Auth = appControllers.NewAuthController(deps.Repos.UserRepository, deps.JWTService, logger.Component("auth"))
	}

	return deps, nil
}

func isProduction(cfg *config.Config) bool {
	return strings.ToLower(cfg.Server.Mode) == "production"
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if isProduction(cfg) {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.Use(gin.Recovery(), appMiddleware.RequestLogger(), metrics.GinMiddleware())
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		lgr.Warn().Err(err).Msg("Invalid trusted proxies, trusting none")
		_ = router.SetTrustedProxies(nil)
	}

	appRoutes.SetupSwagger(router)
	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware)

	return router
}
