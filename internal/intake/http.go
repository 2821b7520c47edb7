// Пакет intake - HTTP-сервис приема заявок онбординга. Принимает форму
// (multipart или JSON), загружает приложенные файлы во внешнее блоб-хранилище,
// создает запись во внешнем хранилище записей и ведет локальный журнал
// отправок.
//
// Основные возможности:
//   - Прием формы онбординга одним запросом.
//   - Загрузка файлов с выбором провайдера хранилища по конфигурации.
//   - Терпимость к частичным сбоям загрузки файлов.
//   - Операционные уведомления по email и метрики Prometheus.
package intake

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/sobdigital/sob-intake/internal/intake/airtable"
	"github.com/sobdigital/sob-intake/internal/intake/config"
	"github.com/sobdigital/sob-intake/internal/intake/cronmanager"
	"github.com/sobdigital/sob-intake/internal/intake/dao"
	filestorage "github.com/sobdigital/sob-intake/internal/intake/file-storage"
	"github.com/sobdigital/sob-intake/internal/intake/notifications"
)

type Services struct {
	db           *gorm.DB
	storage      filestorage.Uploader
	store        *airtable.Client
	emailService *notifications.EmailService
}

var cfg *config.Config
var appVersion string

// ServerHeader middleware adds a `Server` header to the response.
func ServerHeader(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderServer, "SOBIntake")
		return next(c)
	}
}

func Server(db *gorm.DB, c *config.Config, version string) {
	cfg = c
	appVersion = version

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
		}

		// Ignore 404
		if code == http.StatusNotFound {
			c.NoContent(http.StatusNotFound)
			return
		}
		slog.Error("Unhandled error in endpoint", "url", c.Request().URL, "err", err)
		EErrorMsgStatus(c, nil, code)
	}

	store, err := airtable.NewClient(cfg)
	if err != nil {
		slog.Error("Fail init record store client", "err", err)
		os.Exit(1)
	}

	storage, err := filestorage.NewFromConfig(cfg, store)
	if err != nil {
		slog.Error("Fail init file storage", "provider", cfg.StorageProvider, "err", err)
		os.Exit(1)
	}
	slog.Info("File storage ready", "provider", cfg.StorageProvider)

	es := notifications.NewEmailService(cfg)

	jobRegistry := cronmanager.JobRegistry{
		"submission_log_prune": cronmanager.Job{
			Func: func() {
				cutoff := time.Now().AddDate(0, 0, -cfg.LogRetentionDays)
				n, err := dao.PruneSubmissions(db, cutoff)
				if err != nil {
					slog.Error("Prune submission log", "err", err)
					return
				}
				if n > 0 {
					slog.Info("Pruned submission log", "rows", n)
				}
			},
			Schedule: "0 1 * * *", // daily at 01:00
		},
	}

	cronManager := cronmanager.NewCronManager(jobRegistry)
	if err := cronManager.LoadJobs(); err != nil {
		slog.Error("Failed to load cron jobs", "err", err)
		os.Exit(1)
	}

	s := &Services{
		db:           db,
		storage:      storage,
		store:        store,
		emailService: es,
	}

	cronManager.Start()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		slog.Info("Shutting down gracefully, press Ctrl+C again to force")
		cronManager.Stop()
		es.Stop()
		os.Exit(0)
	}()

	// Global middlewares
	e.Use(ServerHeader)
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowCredentials: true,
	}))
	e.Use(middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{
		Limit: "5M",
		Skipper: func(c echo.Context) bool {
			// the form arrives as one multipart request with all attachments
			return c.Path() == "/api/submit/"
		},
	}))
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level:     9,
		MinLength: 2048,
	}))
	e.Use(echoprometheus.NewMiddleware("sob_intake"))
	e.Pre(middleware.AddTrailingSlash())

	e.Validator = NewRequestValidator()

	apiGroup := e.Group("/api/")

	s.AddSubmitServices(apiGroup)

	// Version endpoint
	apiGroup.GET("version/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"version":  version,
			"provider": cfg.StorageProvider,
		})
	})

	// Health endpoint
	apiGroup.GET("_health/", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	// Prometheus metrics
	go func() {
		bootTimeGauge := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sob_intake",
			Name:      "boot_time",
			Help:      "Server startup time",
		})
		bootTimeGauge.Set(float64(time.Now().UnixMilli()))

		if err := prometheus.Register(bootTimeGauge); err != nil {
			slog.Error("Register boot time gauge", "err", err)
			os.Exit(1)
		}

		metrics := echo.New()
		metrics.HideBanner = true
		metrics.GET("/metrics", echoprometheus.NewHandler())
		if err := metrics.Start(":2112"); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server fail", "err", err)
		}
	}()

	if err := e.Start(":" + cfg.Port); err != nil {
		slog.Error("Server fail", "err", err)
	}
}
