// README: Run handlers: start a simulation run, fetch its report and orders.
package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taxisim/internal/modules/sim"
	"taxisim/internal/store"
)

// maxUntilStep bounds synchronous runs so one request cannot hold a worker
// forever.
const maxUntilStep = 100000

type RunHandler struct {
	runner *sim.Runner
	store  *store.Store
}

// NewRunHandler creates the handler. store may be nil; runs are then not
// persisted.
func NewRunHandler(runner *sim.Runner, st *store.Store) *RunHandler {
	return &RunHandler{runner: runner, store: st}
}

type createRunReq struct {
	StartTime          int    `json:"start_time"`
	TimeWindow         int    `json:"time_window"`
	TaxiCount          int    `json:"taxi_count"`
	MatchStrategy      string `json:"match_strategy"`
	RepositionStrategy string `json:"reposition_strategy"`
	WaitingThreshold   int    `json:"waiting_threshold"`
	MaxPickupTime      int    `json:"max_pickup_time"`
	MaxRepositionTime  int    `json:"max_reposition_time"`
	Seed               int64  `json:"seed"`
	UntilStep          int    `json:"until_step"`
}

// Create runs a simulation synchronously and returns its metrics report.
func (h *RunHandler) Create(c *gin.Context) {
	var req createRunReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.UntilStep <= 0 || req.UntilStep > maxUntilStep {
		writeError(c, http.StatusBadRequest, "until_step must be in 1..100000")
		return
	}
	cfg := sim.Config{
		StartTime:          req.StartTime,
		TimeWindow:         req.TimeWindow,
		TaxiCount:          req.TaxiCount,
		MatchStrategy:      req.MatchStrategy,
		RepositionStrategy: req.RepositionStrategy,
		WaitingThreshold:   req.WaitingThreshold,
		MaxPickupTime:      req.MaxPickupTime,
		MaxRepositionTime:  req.MaxRepositionTime,
		Seed:               req.Seed,
	}

	s, err := h.runner.New(cfg)
	if err != nil {
		writeRunError(c, err)
		return
	}

	var runID int64
	if h.store != nil {
		runID, err = h.store.CreateRun(c.Request.Context(), cfg)
		if err != nil {
			writeRunError(c, err)
			return
		}
	}

	result := s.Run(c.Request.Context(), req.UntilStep)

	if h.store != nil {
		ctx := c.Request.Context()
		if err := h.store.SaveOrders(ctx, runID, result.Orders); err != nil {
			log.Printf("failed to save orders for run %d: %v", runID, err)
		}
		if err := h.store.FinishRun(ctx, runID, result.Report); err != nil {
			log.Printf("failed to finish run %d: %v", runID, err)
		}
	}

	writeJSON(c, http.StatusCreated, gin.H{
		"run_id": runID,
		"report": result.Report,
	})
}

// Get returns a persisted run with its report.
func (h *RunHandler) Get(c *gin.Context) {
	if h.store == nil {
		writeError(c, http.StatusNotFound, "run persistence disabled")
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid run id")
		return
	}
	run, err := h.store.GetRun(c.Request.Context(), id)
	if err != nil {
		writeRunError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, run)
}

// GetOrders returns a persisted run's exported order records.
func (h *RunHandler) GetOrders(c *gin.Context) {
	if h.store == nil {
		writeError(c, http.StatusNotFound, "run persistence disabled")
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid run id")
		return
	}
	records, err := h.store.GetRunOrders(c.Request.Context(), id)
	if err != nil {
		writeRunError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, records)
}
