package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/univault/univault/pkg/application"
	"github.com/univault/univault/pkg/configuration"
	"github.com/univault/univault/pkg/metrics"
	"github.com/univault/univault/pkg/middleware"
)

type DefaultOptions struct {
	Logger        *logrus.Logger
	Configuration *configuration.Configuration
	Application   application.Application
	Pool          *pgxpool.Pool
}

// Default assembles the HTTP server. The base stack runs outermost so every
// module middleware (the audit sentinel included) sees the request logger,
// params and pool already in place.
func Default(options *DefaultOptions) (*http.Server, error) {
	app := options.Application
	conf := options.Configuration

	router := mux.NewRouter()
	router.Use(
		middleware.WithLogger(options.Logger),
		middleware.WithRequestParams(),
		middleware.WithPool(options.Pool),
		corsMiddleware(conf),
	)
	for _, m := range app.Middleware() {
		router.Use(m)
	}
	for _, controller := range app.Controllers() {
		controller.Register(router)
	}
	if conf.Prometheus.Enabled {
		metrics.NewPrometheusController(conf.Prometheus.Path).Register(router)
	}

	return &http.Server{
		Addr:              conf.SocketAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

func corsMiddleware(conf *configuration.Configuration) mux.MiddlewareFunc {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{conf.Origin, conf.FrontendURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
	})
	return c.Handler
}
