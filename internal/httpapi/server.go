// Package httpapi exposes the table-data query layer over HTTP. Every
// endpoint answers with the same envelope of code, msg, and data, so
// clients can branch on the code field without inspecting HTTP status
// details.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/go9sky/tuckview/internal/filehistory"
	"github.com/go9sky/tuckview/tabledata"
	"github.com/go9sky/tuckview/tabledata/registry"
)

// Option defines a function signature to configure the Server.
type Option func(*Server) error

// WithLogger configures the logger used for request-scoped warnings
// and errors.
func WithLogger(logger tabledata.Logger) Option {
	return func(s *Server) error {
		s.logger = logger

		return nil
	}
}

// WithHistory configures the recent-files store. Without one the
// recent-files endpoints answer with empty lists.
func WithHistory(store *filehistory.Store) Option {
	return func(s *Server) error {
		s.history = store

		return nil
	}
}

// WithRecognizer adds a source-recognition predicate used by the
// discover-files endpoint.
func WithRecognizer(recognize func(string) bool) Option {
	return func(s *Server) error {
		s.recognizers = append(s.recognizers, recognize)

		return nil
	}
}

// WithMetricsRegisterer configures where HTTP metrics are registered.
func WithMetricsRegisterer(registerer prometheus.Registerer) Option {
	return func(s *Server) error {
		s.registerer = registerer

		return nil
	}
}

// Server wires the connection registry and recent-files store into a
// gin router.
type Server struct {
	registry    *registry.Registry
	history     *filehistory.Store
	logger      tabledata.Logger
	recognizers []func(string) bool
	registerer  prometheus.Registerer
	startedAt   time.Time
}

// NewServer creates a Server serving the given registry.
func NewServer(connections *registry.Registry, options ...Option) (*Server, error) {
	server := &Server{
		registry:  connections,
		startedAt: time.Now(),
	}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, err
		}
	}

	return server, nil
}

// Router builds the gin engine with all routes and middleware attached.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(newHTTPMetrics(s.registerer).handler())

	api := router.Group("/api")
	api.POST("/open-file", s.openFile)
	api.DELETE("/close-file/:id", s.closeFile)
	api.GET("/tables/:id", s.listTables)
	api.GET("/schema/:id/:table", s.tableSchema)
	api.GET("/rows/:id/:table", s.tableRows)
	api.GET("/capabilities/:id", s.capabilities)
	api.GET("/database-info/:id", s.databaseInfo)
	api.GET("/recent-files", s.recentFiles)
	api.DELETE("/recent-files/:id", s.removeRecentFile)
	api.GET("/discover-files", s.discoverFiles)
	api.GET("/status", s.status)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

func (s *Server) logWarn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

func (s *Server) logError(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Error(msg, args...)
	}
}

// ListenAndServe runs the HTTP server on addr until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s.Router())
}
