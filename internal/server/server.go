// Package server exposes the development and capital analytics over HTTP.
// Analysis requests upload CSV batches; a cron-driven refresher recomputes
// the published result from the backing database between uploads.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/RMendoza92-afk/finance-ops-command-sub002/internal/engine"
	"github.com/RMendoza92-afk/finance-ops-command-sub002/internal/ingest"
	"github.com/RMendoza92-afk/finance-ops-command-sub002/pkg/capital"
	"github.com/RMendoza92-afk/finance-ops-command-sub002/pkg/constants"
	"github.com/RMendoza92-afk/finance-ops-command-sub002/pkg/output"
	"github.com/RMendoza92-afk/finance-ops-command-sub002/pkg/projection"
)

// SnapshotStore is the persistence surface the server needs. Satisfied by
// store.SQLiteStore.
type SnapshotStore interface {
	ReplaceSnapshot(engine.Snapshot) error
	LoadSnapshot() (engine.Snapshot, error)
}

type handler struct {
	logger        *zap.Logger
	engine        *engine.Engine
	store         SnapshotStore
	maxUploadSize int64
	version       string

	mu     sync.RWMutex
	latest *engine.Result
}

// NewHandler constructs the HTTP handler serving the analytics API. The
// store may be nil, in which case uploads are analyzed without persistence
// and the periodic refresh has nothing to reload.
func NewHandler(logger *zap.Logger, eng *engine.Engine, snapshots SnapshotStore, maxUploadSize int64, version string) http.Handler {
	mux, _ := NewRefreshableHandler(logger, eng, snapshots, maxUploadSize, version)
	return mux
}

func newHandler(logger *zap.Logger, eng *engine.Engine, snapshots SnapshotStore, maxUploadSize int64, version string) *handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	return &handler{
		logger:        logger,
		engine:        eng,
		store:         snapshots,
		maxUploadSize: maxUploadSize,
		version:       trimmedVersion,
	}
}

type analyzeResponse struct {
	Summaries []summaryRow    `json:"summaries"`
	Factors   []factorRow     `json:"factors"`
	Capital   capitalResponse `json:"capital"`
	Warnings  []string        `json:"warnings,omitempty"`
	Duration  string          `json:"duration"`
}

type summaryRow struct {
	AccidentYear    int      `json:"accidentYear"`
	EarnedPremium   float64  `json:"earnedPremium"`
	NetPaid         float64  `json:"netPaid"`
	Reserves        float64  `json:"reserves"`
	IBNR            *float64 `json:"ibnr,omitempty"`
	Incurred        float64  `json:"incurred"`
	LossRatio       float64  `json:"lossRatio"`
	LossRatioSource string   `json:"lossRatioSource"`
	UltimateLoss    *float64 `json:"ultimateLoss,omitempty"`
}

type factorRow struct {
	FromMonth int     `json:"fromMonth"`
	ToMonth   int     `json:"toMonth"`
	Selected  float64 `json:"selected"`
	Source    string  `json:"source"`
}

type capitalResponse struct {
	YearsIncluded            int     `json:"yearsIncluded"`
	TotalReserves            float64 `json:"totalReserves"`
	TotalIBNR                float64 `json:"totalIbnr"`
	Trailing12MEarnedPremium float64 `json:"trailing12MEarnedPremium"`
	AuthorizedControlLevel   float64 `json:"authorizedControlLevel"`
	PolicyholderSurplus      float64 `json:"policyholderSurplus"`
	RBCRatio                 float64 `json:"rbcRatio"`
	DisplayRBCRatio          float64 `json:"displayRbcRatio"`
	Status                   string  `json:"status"`
	Strategy                 string  `json:"strategy"`
}

func (h *handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), "server.handleAnalyze")
			return
		}
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err), "server.handleAnalyze")
		return
	}

	triangleFile, err := h.formFile(r, "triangle")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "missing triangle file", "server.handleAnalyze")
		return
	}
	defer h.closeUpload(triangleFile, "server.handleAnalyze")

	// The aggregate file is optional; years without aggregates fall back
	// to triangle-derived figures.
	aggregateFile, err := h.formFile(r, "aggregates")
	if err == nil {
		defer h.closeUpload(aggregateFile, "server.handleAnalyze")
	}

	reader := ingest.NewReader(h.logger)
	var snapshot engine.Snapshot
	if aggregateFile != nil {
		snapshot, err = reader.ReadSnapshot(triangleFile, aggregateFile)
	} else {
		snapshot, err = reader.ReadSnapshot(triangleFile, nil)
	}
	if err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to read upload: %v", err), "server.handleAnalyze")
		return
	}

	result := h.engine.Run(snapshot)
	h.publish(result)

	if h.store != nil {
		if err := h.store.ReplaceSnapshot(snapshot); err != nil {
			h.logger.Warn("failed to persist uploaded snapshot",
				zap.String("op", "server.handleAnalyze"),
				zap.Error(err),
			)
		}
	}

	elapsed := time.Since(start)
	h.logger.Info("analysis computed",
		zap.String("op", "server.handleAnalyze"),
		zap.Int("summaries", len(result.Summaries)),
		zap.Int("points", len(snapshot.Points)),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, analyzeResponse{
		Summaries: buildSummaryRows(result.Summaries),
		Factors:   buildFactorRows(result),
		Capital:   buildCapitalResponse(result.Capital),
		Warnings:  result.Warnings,
		Duration:  elapsed.String(),
	})
}

func (h *handler) formFile(r *http.Request, field string) (multipart.File, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, err
	}
	return file, nil
}

func (h *handler) closeUpload(file multipart.File, op string) {
	if err := file.Close(); err != nil {
		h.logger.Warn("failed to close uploaded file",
			zap.String("op", op),
			zap.Error(err),
		)
	}
}

func (h *handler) handleCapital(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	result, ok := h.current()
	if !ok {
		h.respondError(w, http.StatusNotFound, "no analysis available yet", "server.handleCapital")
		return
	}
	h.writeJSON(w, http.StatusOK, buildCapitalResponse(result.Capital))
}

func (h *handler) handleSummaries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	result, ok := h.current()
	if !ok {
		h.respondError(w, http.StatusNotFound, "no analysis available yet", "server.handleSummaries")
		return
	}
	h.writeJSON(w, http.StatusOK, buildSummaryRows(result.Summaries))
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) publish(result engine.Result) {
	h.mu.Lock()
	h.latest = &result
	h.mu.Unlock()
}

func (h *handler) current() (engine.Result, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.latest == nil {
		return engine.Result{}, false
	}
	return *h.latest, true
}

// refreshFromStore recomputes the published result from persisted data.
func (h *handler) refreshFromStore() error {
	if h.store == nil {
		return nil
	}

	snapshot, err := h.store.LoadSnapshot()
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if len(snapshot.Points) == 0 && len(snapshot.Aggregates) == 0 {
		return nil
	}

	result := h.engine.Run(snapshot)
	h.publish(result)
	h.logger.Info("refreshed analysis from store",
		zap.String("op", "server.refreshFromStore"),
		zap.Int("summaries", len(result.Summaries)),
	)
	return nil
}

// NewRefreshableHandler wires the handler and additionally returns a
// Refreshable for triggering or scheduling recomputation from the store.
func NewRefreshableHandler(logger *zap.Logger, eng *engine.Engine, snapshots SnapshotStore, maxUploadSize int64, version string) (http.Handler, *Refreshable) {
	h := newHandler(logger, eng, snapshots, maxUploadSize, version)

	mux := http.NewServeMux()

	// Analysis API endpoint (CSV upload)
	mux.HandleFunc("/api/analyze", h.handleAnalyze)

	// Read-only views over the most recent result
	mux.HandleFunc("/api/capital", h.handleCapital)
	mux.HandleFunc("/api/summaries", h.handleSummaries)

	// Version endpoint for client metadata
	mux.HandleFunc("/api/version", h.handleVersion)

	return mux, &Refreshable{h: h}
}

// Refreshable lets callers trigger or schedule recomputation against the
// handler's backing store.
type Refreshable struct {
	h *handler
}

// Refresh recomputes the published result immediately.
func (r *Refreshable) Refresh() error {
	return r.h.refreshFromStore()
}

// Schedule starts a cron runner that refreshes on the given schedule. An
// empty schedule is a no-op and returns (nil, nil).
func (r *Refreshable) Schedule(schedule string) (*cron.Cron, error) {
	if schedule == "" {
		return nil, nil
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if err := r.h.refreshFromStore(); err != nil {
			r.h.logger.Error("scheduled refresh failed",
				zap.String("op", "server.Refreshable.Schedule"),
				zap.Error(err),
			)
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}

	c.Start()
	r.h.logger.Info("refresh schedule started",
		zap.String("op", "server.Refreshable.Schedule"),
		zap.String("schedule", schedule),
	)
	return c, nil
}

func (h *handler) respondError(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Error("analysis request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func buildSummaryRows(summaries []projection.AccidentYearSummary) []summaryRow {
	rows := make([]summaryRow, 0, len(summaries))
	for _, summary := range summaries {
		row := summaryRow{
			AccidentYear:    summary.AccidentYear,
			EarnedPremium:   summary.EarnedPremium,
			NetPaid:         summary.NetPaid,
			Reserves:        summary.Reserves,
			Incurred:        summary.Incurred,
			LossRatio:       summary.LossRatio,
			LossRatioSource: string(summary.LossRatioSource),
		}
		if summary.IBNRMeaningful {
			v := summary.IBNR
			row.IBNR = &v
		}
		if summary.HasUltimate {
			v := summary.UltimateLoss
			row.UltimateLoss = &v
		}
		rows = append(rows, row)
	}
	return rows
}

func buildFactorRows(result engine.Result) []factorRow {
	rows := make([]factorRow, 0, len(result.Factors))
	for _, factor := range result.Factors {
		rows = append(rows, factorRow{
			FromMonth: factor.FromMonth,
			ToMonth:   factor.ToMonth,
			Selected:  factor.Selected,
			Source:    string(factor.Source),
		})
	}
	return rows
}

func buildCapitalResponse(pos capital.Position) capitalResponse {
	return capitalResponse{
		YearsIncluded:            pos.YearsIncluded,
		TotalReserves:            pos.TotalReserves,
		TotalIBNR:                pos.TotalIBNR,
		Trailing12MEarnedPremium: pos.Trailing12MEarnedPremium,
		AuthorizedControlLevel:   pos.AuthorizedControlLevel,
		PolicyholderSurplus:      pos.PolicyholderSurplus,
		RBCRatio:                 pos.RBCRatio,
		DisplayRBCRatio:          output.ClampRatioForDisplay(pos.RBCRatio),
		Status:                   string(pos.Status),
		Strategy:                 string(pos.Strategy),
	}
}
