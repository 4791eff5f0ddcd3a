package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appAuth "github.com/yigit/lingoschool/internal/app/auth"
	appControllers "github.com/yigit/lingoschool/internal/app/controllers"
	appMigrations "github.com/yigit/lingoschool/internal/app/migrations"
	appRepos "github.com/yigit/lingoschool/internal/app/repositories"
	appRoutes "github.com/yigit/lingoschool/internal/app/routes"
	appServices "github.com/yigit/lingoschool/internal/app/services"
	"github.com/yigit/lingoschool/internal/config"
	"github.com/yigit/lingoschool/internal/db"
	appMiddleware "github.com/yigit/lingoschool/internal/middleware"
	pkgAuth "github.com/yigit/lingoschool/internal/pkg/auth"
	"github.com/yigit/lingoschool/internal/pkg/dberrors"
	"github.com/yigit/lingoschool/internal/pkg/email"
	"github.com/yigit/lingoschool/internal/pkg/events"
	"github.com/yigit/lingoschool/internal/pkg/filestorage"
	"github.com/yigit/lingoschool/internal/pkg/logger"
	"github.com/yigit/lingoschool/internal/pkg/metrics"
	"github.com/yigit/lingoschool/internal/pkg/mq"
	"github.com/yigit/lingoschool/internal/pkg/offline"
	"github.com/yigit/lingoschool/internal/pkg/studentid"
	"github.com/yigit/lingoschool/internal/pkg/websocket"
	"github.com/yigit/lingoschool/internal/seed"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	DB         *db.PostgresDB
	Repos      *appRepos.Repositories
	JWTService *pkgAuth.JWTService
	Authz      *appAuth.AuthorizationService
	Metrics    *metrics.Metrics
	Hub        *websocket.Hub
	// MQ is nil unless RabbitMQ is enabled and reachable
	MQ        *mq.Publisher
	Publisher events.Publisher

	UserService     *appServices.UserService
	SettingsService *appServices.SettingsService

	Controllers    appRoutes.Controllers
	AuthMiddleware *appMiddleware.AuthMiddleware
	Logger         zerolog.Logger
}

// ConfigPath returns the config file location, overridable with CONFIG_PATH
func ConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return filepath.Join("configs", "config.yaml")
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger(service string) (*config.Config, zerolog.Logger, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		logger.Error().Err(err).Msg("Failed to load .env file")
		return nil, zerolog.Logger{}, err
	}

	cfg, err := config.LoadConfig(ConfigPath())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	logger.Configure(logger.Config{
		Level:   logLevel,
		Pretty:  strings.ToLower(cfg.Logging.Format) == "text",
		Service: service,
	})

	lgr := log.Logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase connects to PostgreSQL and applies migrations. When the
// database cannot be reached the pool is still returned with online=false;
// registrations are then queued on disk until it comes back.
func SetupDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (database *db.PostgresDB, online bool, err error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err = db.NewPostgresDB(ctx, cfg)
	if database == nil {
		lgr.Error().Err(err).Msg("Failed to configure database pool")
		return nil, false, err
	}
	if err != nil {
		lgr.Warn().Err(err).Msg("Database unreachable, starting in offline registration mode")
		return database, false, nil
	}
	lgr.Info().Msg("Database connection successfully established.")

	if err := Migrate(ctx, cfg, database, lgr); err != nil {
		database.Close()
		return nil, false, err
	}
	return database, true, nil
}

// Migrate applies the SQL migrations in cfg.Database.MigrationsPath
func Migrate(ctx context.Context, cfg *config.Config, database *db.PostgresDB, lgr zerolog.Logger) error {
	migrationsDir := cfg.Database.MigrationsPath
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
		return fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	lgr.Info().Str("path", migrationsDir).Msg("Running database migrations...")
	if err := appMigrations.NewMigrator(database.Pool).MigrateFromDirectory(ctx, migrationsDir); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		return fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")
	return nil
}

// WhenDatabaseUp pings every interval until ping succeeds and onUp returns
// nil. It is used when the API started without a database so migrations and
// seeding run as soon as it becomes reachable. It returns ctx.Err() when
// cancelled first.
func WhenDatabaseUp(ctx context.Context, interval time.Duration, ping, onUp func(context.Context) error, lgr zerolog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if err := ping(ctx); err != nil {
			lgr.Debug().Err(err).Int("attempt", attempt).Msg("Database still unreachable")
			continue
		}
		if err := onUp(ctx); err != nil {
			lgr.Error().Err(err).Int("attempt", attempt).Msg("Database is back but setup failed, retrying")
			continue
		}
		lgr.Info().Int("attempt", attempt).Msg("Database is back, migrations and defaults applied")
		return nil
	}
}

// SeedDefaults creates the first admin and the lesson duration settings
func SeedDefaults(ctx context.Context, cfg *config.Config, deps *Dependencies) {
	err := seed.CreateDefaultData(ctx,
		deps.Repos.UserRepository,
		deps.UserService,
		deps.SettingsService,
		seed.Options{AdminEmail: cfg.Seed.AdminEmail, AdminPassword: cfg.Seed.AdminPassword},
		deps.Logger,
	)
	if err != nil {
		deps.Logger.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
	}
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(cfg *config.Config, database *db.PostgresDB, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{DB: database, Logger: lgr}

	deps.Repos = appRepos.NewRepositories(database)
	deps.Metrics = metrics.New()

	fileStorage, err := filestorage.NewLocalStorage(cfg.Server.StoragePath)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize file storage")
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}
	queue, err := offline.NewQueue(cfg.Registration.OfflineDir)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize offline registration queue")
		return nil, fmt.Errorf("failed to initialize offline queue: %w", err)
	}

	deps.Publisher = buildPublisher(cfg, deps, lgr)

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:       cfg.JWT.Secret,
		AccessTokenExp:  cfg.AccessTokenTTL(),
		RefreshTokenExp: cfg.RefreshTokenTTL(),
		TokenIssuer:     cfg.JWT.Issuer,
	})

	repos := deps.Repos
	deps.Authz = appAuth.NewAuthorizationService(repos.StudentRepository, repos.UserRepository, repos.MemoRepository)
	ids := studentid.NewGenerator(repos.StudentRepository, dberrors.IsUnavailable)

	authService := appServices.NewAuthService(repos.UserRepository, repos.TokenRepository, repos.StudentRepository, database, deps.JWTService, lgr)
	deps.UserService = appServices.NewUserService(repos.UserRepository, repos.TokenRepository, database, lgr)
	studentService := appServices.NewStudentService(
		repos.UserRepository, repos.StudentRepository, database, ids, queue,
		deps.Authz, deps.Publisher, deps.Metrics, lgr,
	).InLocation(cfg.Location())
	deps.SettingsService = appServices.NewSettingsService(repos.SettingsRepository, database, lgr)
	reservationService := appServices.NewReservationService(
		repos.ReservationRepository, repos.UserRepository, repos.StudentRepository,
		deps.SettingsService, database, deps.Authz, deps.Publisher, lgr,
	)
	paymentService := appServices.NewPaymentService(repos.PaymentRepository, repos.StudentRepository, deps.Authz, deps.Publisher, cfg.School.DefaultCurrency, lgr)
	agreementService := appServices.NewAgreementService(
		repos.AgreementRepository, repos.StudentRepository, fileStorage,
		deps.Authz, deps.Publisher, deps.Metrics,
		appServices.AgreementOptions{SchoolName: cfg.School.Name, TermsVersion: cfg.School.TermsVersion},
		lgr,
	)
	memoService := appServices.NewMemoService(repos.MemoRepository, repos.StudentRepository, repos.ReservationRepository, deps.Authz, lgr)
	intakeService := appServices.NewIntakeService(repos.InquiryRepository, deps.Publisher, lgr)
	analyticsService := appServices.NewAnalyticsService(repos.AnalyticsRepository, cfg.School.DefaultCurrency, lgr)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService, cfg.JWT.CookieName)

	cookie := pkgAuth.SessionCookie{Name: cfg.JWT.CookieName, Secure: cfg.JWT.CookieSecure, Domain: cfg.JWT.CookieDomain}
	deps.Controllers = appRoutes.Controllers{
		Auth:        appControllers.NewAuthController(authService, cookie, lgr),
		User:        appControllers.NewUserController(deps.UserService),
		Student:     appControllers.NewStudentController(studentService, lgr),
		Settings:    appControllers.NewSettingsController(deps.SettingsService),
		Reservation: appControllers.NewReservationController(reservationService),
		Payment:     appControllers.NewPaymentController(paymentService),
		Agreement:   appControllers.NewAgreementController(agreementService),
		Memo:        appControllers.NewMemoController(memoService),
		Intake:      appControllers.NewIntakeController(intakeService, lgr),
		Analytics:   appControllers.NewAnalyticsController(analyticsService),
		DashboardWS: websocket.NewHandler(deps.Hub, cfg.Server.CORSOrigins, lgr).HandleDashboard,
	}

	return deps, nil
}

// buildPublisher fans domain events out to the dashboard hub and either
// RabbitMQ (read by the notifier) or, without a broker, straight to email.
func buildPublisher(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) events.Publisher {
	deps.Hub = websocket.NewHub(lgr)
	publishers := []events.Publisher{deps.Hub, countingPublisher{deps.Metrics}}

	if cfg.RabbitMQ.Enabled {
		p, err := mq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err == nil {
			deps.MQ = p
			lgr.Info().Str("exchange", cfg.RabbitMQ.Exchange).Msg("Publishing events to RabbitMQ")
			return events.NewMultiPublisher(append(publishers, p)...)
		}
		lgr.Warn().Err(err).Msg("RabbitMQ unavailable, sending notification emails in-process")
	}

	sender := NewEmailSender(cfg, lgr)
	dispatcher := events.NewEmailDispatcher(sender, email.Composer{School: cfg.School.Name})
	return events.NewMultiPublisher(append(publishers, dispatcher)...)
}

// NewEmailSender builds the configured email provider
func NewEmailSender(cfg *config.Config, lgr zerolog.Logger) email.Sender {
	return email.NewSender(email.Config{
		Provider: cfg.Email.Provider,
		SMTP: email.SMTPConfig{
			Host:     cfg.Email.SMTP.Host,
			Port:     cfg.Email.SMTP.Port,
			Username: cfg.Email.SMTP.Username,
			Password: cfg.Email.SMTP.Password,
			UseTLS:   cfg.Email.SMTP.UseTLS,
		},
		SendGridAPIKey: cfg.Email.SendGridAPIKey,
		FromName:       cfg.Email.FromName,
		FromEmail:      cfg.Email.FromEmail,
		SubjectPrefix:  "[" + cfg.School.Name + "]",
	}, lgr)
}

type countingPublisher struct {
	m *metrics.Metrics
}

func (p countingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.m.EventPublished(ev.Type)
	return nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(appMiddleware.RequestLogger(lgr))
	router.Use(appMiddleware.Metrics(deps.Metrics))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", appMiddleware.RequestIDHeader},
		ExposeHeaders:    []string{appMiddleware.RequestIDHeader, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	appRoutes.SetupSwagger(router)
	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})
	router.GET("/health", healthHandler(deps.DB))
	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	return router
}

// healthHandler reports degraded while the database is unreachable; the API
// keeps accepting registrations in that state.
func healthHandler(database *db.PostgresDB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := database.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up"})
	}
}
