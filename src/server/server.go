package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"sync"
	"time"

	"stock-insight/src/interfaces"
	"stock-insight/src/logger"
	"stock-insight/src/models"
	"stock-insight/src/utils"

	"github.com/gin-gonic/gin"
)

//go:embed templates/dashboard.html
var templateFS embed.FS

const (
	sessionCookie = "stock_insight_session"
	shutdownWait  = 5 * time.Second
)

// -----------------------------------------------------------------------------
// InsightServer serves the dashboard, the JSON API and the live feed.
// -----------------------------------------------------------------------------

type InsightServer struct {
	Config   *models.MConfig
	Logger   *logger.Logger
	Analyzer interfaces.IAnalyzer
	DB       interfaces.IDatabase

	engine     *gin.Engine
	httpServer *http.Server

	// WebSocket clients, owned by the hub goroutine
	clients    map[*Client]struct{}
	broadcast  chan models.MAnalysisEvent
	register   chan *Client
	unregister chan *Client
	replay     chan *Client
	quit       chan struct{}
	stopOnce   sync.Once

	recent      *utils.RingBuffer[models.MAnalysisEvent]
	connections int
	connMu      sync.RWMutex

	// watchlistSymbols returns a snapshot; Config.Watchlist may be rewritten at runtime.
	watchlistSymbols func() []string
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewInsightServer(cfg *models.MConfig, log *logger.Logger, analyzer interfaces.IAnalyzer, db interfaces.IDatabase) (*InsightServer, error) {
	if !strings.EqualFold(cfg.LogLevel, "DEBUG") {
		gin.SetMode(gin.ReleaseMode)
	}

	tmpl, err := template.New("dashboard.html").Funcs(templateFuncs).ParseFS(templateFS, "templates/dashboard.html")
	if err != nil {
		return nil, fmt.Errorf("parse dashboard template: %w", err)
	}

	s := &InsightServer{
		Config:     cfg,
		Logger:     log,
		Analyzer:   analyzer,
		DB:         db,
		engine:     gin.New(),
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan models.MAnalysisEvent, utils.BroadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		replay:     make(chan *Client),
		quit:       make(chan struct{}),
		recent:     utils.NewRingBuffer[models.MAnalysisEvent](utils.RecentEventsCapacity),
	}
	initial := append([]string(nil), cfg.Watchlist.Symbols...)
	s.watchlistSymbols = func() []string { return initial }

	s.engine.SetHTMLTemplate(tmpl)
	s.engine.Use(gin.Recovery(), s.requestLogger(), s.cors())
	s.setupRoutes()

	go s.handleWebsockets()
	return s, nil
}

// -----------------------------------------------------------------------------

// SetWatchlistSource makes /api/config read the live watchlist from fn.
// Call before Start.
func (s *InsightServer) SetWatchlistSource(fn func() []string) {
	if fn != nil {
		s.watchlistSymbols = fn
	}
}

// -----------------------------------------------------------------------------

func (s *InsightServer) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// -----------------------------------------------------------------------------

func (s *InsightServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.Request.URL.Path == "/ws" {
			return
		}
		s.Logger.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *InsightServer) setupRoutes() {
	s.engine.GET("/", s.getDashboard)

	api := s.engine.Group("/api")
	api.POST("/analyze", s.postAnalyze)
	api.GET("/history", s.getHistory)
	api.GET("/tickers", s.getTickers)
	api.GET("/config", s.getConfig)
	api.GET("/health", s.getHealth)

	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------

// Handler exposes the router, mainly for tests.
func (s *InsightServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start blocks until the listener fails or Stop is called.
func (s *InsightServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.Logger.Info("Starting server on http://%s", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *InsightServer) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.quit)
		if s.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownWait)
			defer cancel()
			err = s.httpServer.Shutdown(ctx)
		}
	})
	return err
}

// -----------------------------------------------------------------------------

func (s *InsightServer) connectionCount() int {
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	return s.connections
}
