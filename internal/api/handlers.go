package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"neurallempire-signal-engine/internal/cache"
	"neurallempire-signal-engine/internal/database"
	"neurallempire-signal-engine/internal/engine"

	"github.com/gin-gonic/gin"
)

// handleEvaluate runs the full pipeline for one candidate trade.
func (s *Server) handleEvaluate(c *gin.Context) {
	var req engine.SignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	resp, err := s.orchestrator.Evaluate(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrInvalidRequest):
			errorResponse(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, engine.ErrUpstreamData):
			errorResponse(c, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, engine.ErrPersistence):
			// The verdict was computed but not recorded; return it with the
			// failure so the caller does not retry blindly.
			c.JSON(http.StatusInternalServerError, resp)
		default:
			errorResponse(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	// Best-effort cache write; the ledger row already exists.
	if s.signalCache != nil && resp.Signal != nil {
		_ = s.signalCache.RecordSignal(c.Request.Context(), resp.Signal)
	}

	c.JSON(http.StatusOK, resp)
}

// handleRecentSignals returns the latest verdicts, cache first.
func (s *Server) handleRecentSignals(c *gin.Context) {
	limit := parseLimit(c, 20, 100)

	if s.signalCache != nil {
		if signals, err := s.signalCache.GetRecentSignals(c.Request.Context(), limit); err == nil && len(signals) > 0 {
			successResponse(c, signals)
			return
		}
	}

	signals, err := s.repo.GetRecentSignals(c.Request.Context(), limit)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "Failed to fetch recent signals")
		return
	}
	successResponse(c, signals)
}

// handleSignalByID returns one verdict by ledger ID.
func (s *Server) handleSignalByID(c *gin.Context) {
	id := c.Param("id")

	if s.signalCache != nil {
		if signal, err := s.signalCache.GetSignalByID(c.Request.Context(), id); err == nil {
			successResponse(c, signal)
			return
		}
	}

	signal, err := s.repo.GetSignalByID(c.Request.Context(), id)
	if errors.Is(err, database.ErrSignalNotFound) {
		errorResponse(c, http.StatusNotFound, "Signal not found")
		return
	}
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "Failed to fetch signal")
		return
	}
	successResponse(c, signal)
}

// handleSignalsBySymbol returns recent verdicts for one symbol.
func (s *Server) handleSignalsBySymbol(c *gin.Context) {
	symbol := c.Param("symbol")
	limit := parseLimit(c, 20, 100)

	signals, err := s.repo.GetSignalsBySymbol(c.Request.Context(), symbol, limit)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "Failed to fetch signals")
		return
	}
	successResponse(c, signals)
}

// handleStatus reports engine counters and subsystem health.
func (s *Server) handleStatus(c *gin.Context) {
	total, approved, err := s.repo.CountSignals(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "Failed to fetch signal counts")
		return
	}

	status := gin.H{
		"uptime_seconds":   int64(time.Since(s.startedAt).Seconds()),
		"signals_total":    total,
		"signals_approved": approved,
		"auth_enabled":     s.authEnabled,
		"ws_clients":       ClientCount(),
	}
	if s.signalCache != nil {
		status["cache"] = s.signalCache.Stats()
	} else {
		status["cache"] = cache.Stats{Healthy: false}
	}

	successResponse(c, status)
}

func parseLimit(c *gin.Context, defaultLimit, maxLimit int) int {
	limit := defaultLimit
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit
}
