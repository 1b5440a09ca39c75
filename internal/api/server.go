// Package api exposes the engine over HTTP: risk and portfolio queries, signal
// submission, operator resets, Prometheus metrics and a websocket event stream.
package api

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rxtech-lab/argo-execution/internal/engine"
	"github.com/rxtech-lab/argo-execution/internal/logger"
	"github.com/rxtech-lab/argo-execution/internal/metrics"
	"github.com/rxtech-lab/argo-execution/internal/types"
	"github.com/rxtech-lab/argo-execution/pkg/errors"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 100
	shutdownTimeout     = 5 * time.Second
)

// Engine is what the API needs from the execution engine.
type Engine interface {
	ProcessSignal(ctx context.Context, signal types.Signal) engine.SignalResult
	RiskMetrics() types.RiskMetrics
	Positions(filter types.PositionFilter) []types.Position
	OpenOrders(filter types.PositionFilter) []types.Order
	OrderHistory(limit int) []types.Order
	Trades(limit int) []types.Trade
	Marks(filter types.PositionFilter, outcome string) ([]types.Mark, error)
	Stats() types.DailySessionStats
	CancelOrder(ctx context.Context, orderID string) (bool, error)
	ResetCircuitBreaker()
	ResetRiskState()
	SetPaperPrice(exchangeName string, pair string, price float64) error
}

// riskResponse is RiskMetrics with an infinite recovery factor encoded as null.
type riskResponse struct {
	types.RiskMetrics
	RecoveryFactor *float64 `json:"recovery_factor"`
}

func newRiskResponse(m types.RiskMetrics) riskResponse {
	response := riskResponse{RiskMetrics: m}

	if !math.IsInf(m.RecoveryFactor, 0) && !math.IsNaN(m.RecoveryFactor) {
		rf := m.RecoveryFactor
		response.RecoveryFactor = &rf
	}

	return response
}

type ordersResponse struct {
	Open    []types.Order `json:"open"`
	History []types.Order `json:"history"`
}

type cancelResponse struct {
	OrderID  string `json:"order_id"`
	Canceled bool   `json:"canceled"`
}

type paperPriceRequest struct {
	Exchange string  `json:"exchange"`
	Pair     string  `json:"pair"`
	Price    float64 `json:"price"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code,omitempty"`
}

// Server serves the engine API.
type Server struct {
	engine     Engine
	hub        *Hub
	router     *mux.Router
	httpServer *http.Server
	listener   net.Listener
	logger     *logger.Logger
}

// NewServer builds the router. gatherer backs GET /metrics; nil uses the default registry.
func NewServer(e Engine, hub *Hub, gatherer prometheus.Gatherer, log *logger.Logger) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		engine: e,
		hub:    hub,
		router: mux.NewRouter(),
		logger: log.Named("api"),
	}

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/risk", s.handleRisk).Methods(http.MethodGet)
	api.HandleFunc("/risk/circuit-breaker/reset", s.handleResetCircuitBreaker).Methods(http.MethodPost)
	api.HandleFunc("/risk/reset", s.handleResetRisk).Methods(http.MethodPost)
	api.HandleFunc("/positions", s.handlePositions).Methods(http.MethodGet)
	api.HandleFunc("/orders", s.handleOrders).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", s.handleCancelOrder).Methods(http.MethodDelete)
	api.HandleFunc("/trades", s.handleTrades).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/signals", s.handleSignal).Methods(http.MethodPost)
	api.HandleFunc("/signals", s.handleMarks).Methods(http.MethodGet)
	api.HandleFunc("/paper/prices", s.handlePaperPrice).Methods(http.MethodPost)

	s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	if hub != nil {
		s.router.HandleFunc("/ws", hub.ServeWS)
	}

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on address and serves in the background. ":0" picks a free port.
func (s *Server) Start(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to listen on %s", address)
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	s.logger.Info("API listening", zap.String("address", listener.Addr().String()))

	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

// Shutdown stops the HTTP server and disconnects websocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.hub != nil {
		s.hub.Close()
	}

	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	return s.httpServer.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error(), Code: int(errors.GetCode(err))})
}

func filterFromQuery(r *http.Request) types.PositionFilter {
	query := r.URL.Query()

	return types.PositionFilter{
		Exchange:   query.Get("exchange"),
		Pair:       query.Get("pair"),
		StrategyID: query.Get("strategy_id"),
	}
}

func limitFromQuery(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultHistoryLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "invalid limit %q", raw)
	}

	return limit, nil
}

func (s *Server) handleRisk(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, newRiskResponse(s.engine.RiskMetrics()))
}

func (s *Server) handleResetCircuitBreaker(w http.ResponseWriter, _ *http.Request) {
	s.engine.ResetCircuitBreaker()
	s.logger.Info("Circuit breaker reset by operator")
	s.writeJSON(w, http.StatusOK, newRiskResponse(s.engine.RiskMetrics()))
}

func (s *Server) handleResetRisk(w http.ResponseWriter, _ *http.Request) {
	s.engine.ResetRiskState()
	s.logger.Info("Risk state reset by operator")
	s.writeJSON(w, http.StatusOK, newRiskResponse(s.engine.RiskMetrics()))
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Positions(filterFromQuery(r)))
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	limit, err := limitFromQuery(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)

		return
	}

	filter := filterFromQuery(r)

	history := make([]types.Order, 0)
	for _, order := range s.engine.OrderHistory(limit) {
		if filter.Matches(order.Exchange, order.Pair, order.StrategyID) {
			history = append(history, order)
		}
	}

	s.writeJSON(w, http.StatusOK, ordersResponse{
		Open:    s.engine.OpenOrders(filter),
		History: history,
	})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]

	canceled, err := s.engine.CancelOrder(r.Context(), orderID)
	if err != nil {
		status := http.StatusBadGateway

		switch errors.GetCode(err) {
		case errors.ErrCodeOrderNotFound:
			status = http.StatusNotFound
		case errors.ErrCodeInvalidTransition:
			status = http.StatusConflict
		}

		s.writeError(w, status, err)

		return
	}

	s.writeJSON(w, http.StatusOK, cancelResponse{OrderID: orderID, Canceled: canceled})
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	limit, err := limitFromQuery(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)

		return
	}

	filter := filterFromQuery(r)

	trades := make([]types.Trade, 0)
	for _, trade := range s.engine.Trades(limit) {
		if filter.Matches(trade.Exchange, trade.Pair, trade.StrategyID) {
			trades = append(trades, trade)
		}
	}

	s.writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Stats())
}

// handleSignal answers 201 for an accepted signal, 422 for a dropped or rejected one
// and 502 when the exchange refused the order. The body is always the signal result.
func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	var signal types.Signal
	if err := json.NewDecoder(r.Body).Decode(&signal); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.Wrap(errors.ErrCodeInvalidSignal, "failed to decode signal", err))

		return
	}

	result := s.engine.ProcessSignal(r.Context(), signal)

	status := http.StatusUnprocessableEntity

	switch result.Outcome {
	case metrics.SignalAccepted:
		status = http.StatusCreated
	case metrics.SignalFailed:
		status = http.StatusBadGateway
	}

	s.writeJSON(w, status, result)
}

// handleMarks lists archived signal decisions, filtered by position and outcome.
func (s *Server) handleMarks(w http.ResponseWriter, r *http.Request) {
	marks, err := s.engine.Marks(filterFromQuery(r), r.URL.Query().Get("outcome"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)

		return
	}

	s.writeJSON(w, http.StatusOK, marks)
}

func (s *Server) handlePaperPrice(w http.ResponseWriter, r *http.Request) {
	var req paperPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.Wrap(errors.ErrCodeInvalidParameter, "failed to decode price", err))

		return
	}

	if err := s.engine.SetPaperPrice(req.Exchange, req.Pair, req.Price); err != nil {
		status := http.StatusBadRequest
		if errors.HasCode(err, errors.ErrCodeUnknownExchange) {
			status = http.StatusNotFound
		}

		s.writeError(w, status, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}
