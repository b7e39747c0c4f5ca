// Package api exposes the registry, the flows and the settings to the host UI over
// a localhost-only HTTP API.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/moyoez/filetool-go/api/controllers"
	"github.com/moyoez/filetool-go/api/middlewares"
	"github.com/moyoez/filetool-go/notify"
	"github.com/moyoez/filetool-go/registry"
	"github.com/moyoez/filetool-go/tool"
)

const DefaultPort = 53320

// Deps are the collaborators the routes are wired to. Hub and Notifier are optional.
type Deps struct {
	Store    registry.Store
	Flows    controllers.Flows
	Status   controllers.StatusChecker
	Hub      *notify.Hub
	Notifier notify.Notifier
}

// Server is the local HTTP API server.
type Server struct {
	port   int
	deps   Deps
	engine *gin.Engine
	server *http.Server
	mu     sync.RWMutex
}

func NewServer(port int, deps Deps) *Server {
	if port <= 0 {
		port = DefaultPort
	}
	return &Server{port: port, deps: deps}
}

// Handler builds the routes, for tests and for embedding in another server.
func (s *Server) Handler() http.Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil {
		s.engine = s.setupRoutes()
	}
	return s.engine
}

func (s *Server) setupRoutes() *gin.Engine {
	if tool.DefaultLogger.GetLevel() == log.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery())

	var hub interface{ Clients() int }
	if s.deps.Hub != nil {
		hub = s.deps.Hub
	}
	fileCtrl := controllers.NewFileController(s.deps.Store, s.deps.Notifier)
	flowCtrl := controllers.NewFlowController(s.deps.Store, s.deps.Flows)
	statusCtrl := controllers.NewStatusController(s.deps.Store, s.deps.Status, hub)

	self := engine.Group("/api/self/v1", middlewares.OnlyAllowLocal)
	{
		self.GET("/files", fileCtrl.List)
		self.POST("/files", fileCtrl.Add)
		self.GET("/files/recent", fileCtrl.Recent)
		self.POST("/files/delete-batch", fileCtrl.DeleteBatch)
		self.GET("/files/:id", fileCtrl.Get)
		self.DELETE("/files/:id", fileCtrl.Delete)
		self.PUT("/files/:id/name", fileCtrl.Rename)
		self.GET("/files/:id/history", fileCtrl.History)
		self.GET("/files/:id/qrcode", fileCtrl.QRCode)

		self.POST("/files/:id/extract", flowCtrl.Extract)
		self.POST("/files/:id/pdf2images", flowCtrl.PdfToImages)
		self.POST("/files/:id/pdf2single", flowCtrl.PdfSinglePage)
		self.POST("/files/:id/doc2images", flowCtrl.DocToImages)
		self.POST("/files/:id/convert", flowCtrl.Convert)
		self.POST("/files/:id/compress", flowCtrl.Compress)
		self.GET("/jobs/:id", flowCtrl.Job)

		self.GET("/settings", controllers.SettingsGet)
		self.PUT("/settings", controllers.SettingsPut)
		self.PUT("/settings/api-base-url", controllers.SettingsPutAPIBaseURL)

		self.GET("/status", statusCtrl.Status)
		self.GET("/stats", statusCtrl.Stats)
		self.DELETE("/history", statusCtrl.ClearHistory)
		self.DELETE("/data", statusCtrl.ClearData)

		if s.deps.Hub != nil {
			self.GET("/notify/ws", s.deps.Hub.HandleWS)
		}
	}
	return engine
}

// Start listens on localhost and blocks until the server stops.
func (s *Server) Start() error {
	handler := s.Handler()

	addr := net.JoinHostPort("127.0.0.1", fmt.Sprint(s.port))
	s.mu.Lock()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	tool.DefaultLogger.Infof("Starting API server on http://%s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
