// Пакет portal - HTTP-сервис редактора документов портала.
//
// Основные возможности:
//   - Сессии редактирования документа, хранящегося в поле записи портала.
//   - Выполнение команд редактора, вставка из буфера обмена и загрузка изображений.
//   - Рассылка изменений документа по вебсокету.
//   - Выгрузка документа в HTML, Markdown и текст.
//   - API файлов для хранения вставленных изображений.
package portal

// @title Portal editor API
// @version 1.0
// @description Сессии редактирования документов портала и API файлов.
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
// @BasePath /
import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aisa-it/portal/portal.go/internal/portal/config"
	contentstore "github.com/aisa-it/portal/portal.go/internal/portal/content-store"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/commands"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/decorator"
	filestorage "github.com/aisa-it/portal/portal.go/internal/portal/file-storage"
	"github.com/aisa-it/portal/portal.go/internal/portal/limiter"
	store "github.com/aisa-it/portal/portal.go/internal/portal/memory-store"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"

	_ "github.com/aisa-it/portal/portal.go/internal/portal/docs"
	echoSwagger "github.com/swaggo/echo-swagger"
)

//go:generate go run github.com/swaggo/swag/cmd/swag@latest init -ot go,json --generalInfo /http.go --parseInternal --propertyStrategy snakecase --dir ./ --output docs --parseDependency 1
//go:generate echo "Generate docs"
//go:generate go run ../../cmd/docsgen/main.go -out ../../api_errors.md

const shutdownTimeout = 30 * time.Second

// ServerHeader middleware adds a `Server` header to the response.
func ServerHeader(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderServer, "Portal")
		return next(c)
	}
}

type Services struct {
	cfg        *config.Config
	version    string
	contents   contentstore.Store
	storage    filestorage.FileStorage
	limiter    limiter.Limiter
	decorators *decorator.Registry
	sessions   *store.SessionStore[*EditorSession]
	hub        *EditorHub
	registerer prometheus.Registerer
}

type Deps struct {
	Contents contentstore.Store
	Storage  filestorage.FileStorage
	Limiter  limiter.Limiter
	// Registerer для метрик HTTP и команд редактора, по умолчанию prometheus.DefaultRegisterer
	Registerer prometheus.Registerer
}

func NewServices(cfg *config.Config, version string, deps Deps) *Services {
	s := &Services{
		cfg:        cfg,
		version:    version,
		contents:   deps.Contents,
		storage:    deps.Storage,
		limiter:    deps.Limiter,
		decorators: decorator.Default(),
		hub:        NewEditorHub(),
		registerer: deps.Registerer,
	}
	if s.registerer == nil {
		s.registerer = prometheus.DefaultRegisterer
	}
	s.sessions = store.NewSessionStore(cfg.SessionIdle(), s.expireSession)
	return s
}

// Router собирает echo со всеми маршрутами сервиса.
func (s *Services) Router() (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
		}

		if code == http.StatusNotFound {
			c.NoContent(http.StatusNotFound)
			return
		}
		if code == http.StatusUnauthorized {
			EErrorMsgStatus(c, errors.New("invalid api token"), code)
			return
		}
		slog.Error("Unhandled error in endpoint", "url", c.Request().URL, "err", err)
		EErrorMsgStatus(c, nil, code)
	}
	e.Validator = NewRequestValidator()

	promMiddleware, err := echoprometheus.MiddlewareConfig{
		Subsystem:  "portal",
		Registerer: s.registerer,
	}.ToMiddleware()
	if err != nil {
		return nil, err
	}
	if err := commands.RegisterMetrics(s.registerer); err != nil {
		return nil, err
	}

	uploadLimit := s.cfg.MaxUploadSize() + 1024*1024
	e.Use(ServerHeader)
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowCredentials: true,
	}))
	e.Use(middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{
		Limit: bodyLimit(max(int64(s.cfg.MaxContentSize()), uploadLimit)),
	}))
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level:     9,
		MinLength: 2048,
		Skipper: func(c echo.Context) bool {
			return strings.HasSuffix(c.Path(), "/ws/") ||
				strings.HasPrefix(c.Path(), "/api/file/") ||
				strings.Contains(c.Request().URL.Path, "swagger")
		},
	}))
	e.Use(promMiddleware)
	e.Pre(middleware.AddTrailingSlashWithConfig(middleware.TrailingSlashConfig{
		Skipper: func(c echo.Context) bool {
			return strings.Contains(c.Request().URL.Path, "swagger")
		},
	}))

	apiGroup := e.Group("/api/")

	apiGroup.GET("version/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"version":  s.version,
			"sessions": s.sessions.Len(),
		})
	})
	apiGroup.GET("_health/", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	if s.cfg.SwaggerEnable {
		apiGroup.GET("swagger/*", echoSwagger.WrapHandler)
	}

	s.AddEditorServices(apiGroup.Group("editor/"))
	s.AddFileServices(apiGroup.Group("file/"))

	return e, nil
}

// Server запускает HTTP-сервер и сервер метрик и останавливает их при отмене ctx.
// Перед выходом все открытые сессии сохраняются и закрываются.
func Server(ctx context.Context, s *Services) error {
	e, err := s.Router()
	if err != nil {
		return err
	}

	bootTimeGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "portal",
		Name:      "boot_time",
		Help:      "Server startup time",
	})
	bootTimeGauge.Set(float64(time.Now().UnixMilli()))
	if err := s.registerer.Register(bootTimeGauge); err != nil {
		return err
	}

	metrics := echo.New()
	metrics.HideBanner = true
	var gatherer prometheus.Gatherer
	if g, ok := s.registerer.(prometheus.Gatherer); ok {
		gatherer = g
	}
	metrics.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	go func() {
		if err := metrics.Start(s.cfg.MetricsAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server fail", "err", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Start(s.cfg.ListenAddr)
	}()

	select {
	case err = <-errCh:
	case <-ctx.Done():
		slog.Info("Shutting down gracefully, press Ctrl+C again to force")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = e.Shutdown(sctx)
		metrics.Shutdown(sctx)
	}

	s.Close()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close сохраняет и закрывает все открытые сессии.
func (s *Services) Close() {
	for _, session := range s.sessions.Drain() {
		s.closeSession(session, "server shutdown")
	}
}

func bodyLimit(size int64) string {
	const mb = 1024 * 1024
	return fmt.Sprintf("%dM", (size+mb-1)/mb)
}
