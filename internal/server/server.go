package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/drakos74/level-trader/internal/account"
	"github.com/drakos74/level-trader/internal/level"
	"github.com/drakos74/level-trader/internal/leverage"
	"github.com/drakos74/level-trader/internal/model"
	"github.com/drakos74/level-trader/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const (
	defaultLimit = 50
	maxLimit     = 1000
)

// Reporter exposes the state of the decision loop.
type Reporter interface {
	Stats() model.AccountStats
	Balance() float64
	Position() (model.Position, bool)
	Weights() level.Weights
	Leverage() leverage.Stats
	Market() (model.MarketState, bool)
}

// Stats is the account report.
type Stats struct {
	Balance  float64            `json:"balance"`
	Account  model.AccountStats `json:"account"`
	Summary  account.Summary    `json:"summary"`
	Position *model.Position    `json:"position,omitempty"`
}

// Server serves the reports of the decision loop over http.
type Server struct {
	name     string
	port     int
	debug    bool
	reporter Reporter
	ledger   storage.Ledger
	gatherer prometheus.Gatherer
	http     *http.Server
}

// NewServer creates a new report server.
func NewServer(name string, port int, reporter Reporter, ledger storage.Ledger, gatherer prometheus.Gatherer) *Server {
	return &Server{
		name:     name,
		port:     port,
		reporter: reporter,
		ledger:   ledger,
		gatherer: gatherer,
	}
}

// Debug sets the server to debug mode
func (s *Server) Debug() *Server {
	s.debug = true
	return s
}

// Handler builds the routes of the server.
func (s *Server) Handler() http.Handler {
	if s.debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	if s.debug {
		router.Use(gin.Logger())
	}

	router.GET("/live", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/stats", s.stats)
	router.GET("/trades", s.trades)
	router.GET("/leverage", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.reporter.Leverage())
	})
	router.GET("/weights", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.reporter.Weights())
	})
	router.GET("/market", func(c *gin.Context) {
		market, ok := s.reporter.Market()
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no market state yet"})
			return
		}
		c.JSON(http.StatusOK, market)
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	return router
}

// Run starts the server and shuts it down when the context is done.
func (s *Server) Run(ctx context.Context) error {
	s.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdown); err != nil {
			log.Error().Err(err).Str("server", s.name).Msg("could not shut down server")
		}
	}()

	log.Info().Str("server", s.name).Int("port", s.port).Msg("starting server")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("could not start report server: %w", err)
	}
	return nil
}

func (s *Server) stats(c *gin.Context) {
	trades, err := s.ledger.Recent(0)
	if err != nil {
		s.error(c, err)
		return
	}
	stats := Stats{
		Balance: s.reporter.Balance(),
		Account: s.reporter.Stats(),
		Summary: account.Summarize(trades),
	}
	if p, ok := s.reporter.Position(); ok {
		stats.Position = &p
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) trades(c *gin.Context) {
	limit := defaultLimit
	if l := c.Query("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   true,
				"message": fmt.Sprintf("invalid limit '%s'", l),
			})
			return
		}
		limit = n
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	trades, err := s.ledger.Recent(limit)
	if err != nil {
		s.error(c, err)
		return
	}
	c.JSON(http.StatusOK, trades)
}

func (s *Server) error(c *gin.Context, err error) {
	log.Error().Err(err).Str("path", c.FullPath()).Msg("error for http request")
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   true,
		"message": err.Error(),
	})
}
