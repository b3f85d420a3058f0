// Package api serves the read-only HTTP view of the ledger.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/eigerco/fraudledger/internal/crypto"
	"github.com/eigerco/fraudledger/internal/ledger"
	"github.com/eigerco/fraudledger/internal/record"
)

const requestIDHeader = "X-Request-Id"

// Queries is the read side of *ledger.Engine.
type Queries interface {
	GetReport(id uint64) (record.Report, error)
	Settlement(id uint64) (record.Settlement, error)
	Validations(id uint64) ([]record.Validation, error)
	VoteCounts(id uint64) (record.Tally, error)
	CanFinalize(id uint64) (bool, error)
	ReportsForCustomer(customer crypto.Address) ([]record.Report, error)
	FraudScore(customer crypto.Address) (uint8, error)
	MemberStats(a crypto.Address) (record.MemberStats, error)
	Balance(a crypto.Address) (uint64, error)
	ListPendingReports() ([]uint64, error)
	ListFinalizableReports() ([]uint64, error)
	ReportCounter() (uint64, error)
}

type Server struct {
	queries Queries
	log     zerolog.Logger
	metrics http.Handler
}

type Option func(*Server)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

func New(q Queries, opts ...Option) *Server {
	s := &Server{queries: q, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the gin router.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", s.Health)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics))
	}

	v1 := r.Group("/v1")
	v1.GET("/reports/pending", s.ListPending)
	v1.GET("/reports/finalizable", s.ListFinalizable)
	v1.GET("/reports/:id", s.GetReport)
	v1.GET("/reports/:id/validations", s.GetValidations)
	v1.GET("/customers/:addr/reports", s.CustomerReports)
	v1.GET("/customers/:addr/score", s.CustomerScore)
	v1.GET("/members/:addr/stats", s.MemberStats)
	return r
}

// Serve listens on addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http api listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http api: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http api shutdown: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)

		start := time.Now()
		c.Next()

		s.log.Debug().
			Str("request_id", id).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("http request")
	}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const codeInvalidParam = "invalid_param"

func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrReportNotFound):
		status = http.StatusNotFound
	case ledger.Category(err) != ledger.CategoryInternal:
		status = http.StatusBadRequest
	}
	c.AbortWithStatusJSON(status, gin.H{"error": errorBody{Code: ledger.Code(err), Message: err.Error()}})
}

func abortInvalidParam(c *gin.Context, name string, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": errorBody{
		Code:    codeInvalidParam,
		Message: fmt.Sprintf("%s: %v", name, err),
	}})
}

func reportID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		abortInvalidParam(c, "id", err)
		return 0, false
	}
	return id, true
}

func address(c *gin.Context) (crypto.Address, bool) {
	a, err := crypto.ParseAddress(c.Param("addr"))
	if err != nil {
		abortInvalidParam(c, "addr", err)
		return crypto.Address{}, false
	}
	return a, true
}
