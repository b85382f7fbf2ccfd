package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/pricelens/backend/internal/analysis"
	"github.com/pricelens/backend/internal/db"
	"github.com/pricelens/backend/internal/decision"
	"github.com/pricelens/backend/internal/errs"
	"github.com/pricelens/backend/internal/metrics"
	"github.com/pricelens/backend/internal/models"
	"github.com/pricelens/backend/internal/ontology"
)

type Handler struct {
	Store     *db.Store
	Repo      *ontology.Repository
	Analysis  *analysis.Service
	Decisions *decision.Recorder
	Validator *validator.Validate
	Logger    zerolog.Logger
	Metrics   *metrics.OntologyMetrics

	// DefaultPreset backs the setup endpoint when no preset is requested.
	DefaultPreset string
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Seed an organization's pricing ontology
// @Description Derives segments from the customer base, seeds tiers, value metrics and patterns. Idempotent.
// @Tags setup
// @Produce json
// @Param orgID path string true "Organization ID"
// @Param preset query string false "Segmentation preset"
// @Success 200 {object} analysis.SetupSummary
// @Failure 500 {object} map[string]any
// @Router /api/orgs/{orgID}/setup [post]
func (h *Handler) Setup(c *gin.Context) {
	orgID := c.Param("orgID")
	summary, err := h.Analysis.Setup(c.Request.Context(), orgID, presetOrDefault(c.Query("preset"), h.DefaultPreset))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func presetOrDefault(requested, fallback string) string {
	if requested == "" {
		return fallback
	}
	return requested
}

type AnalysisRequest struct {
	CompetitiveContext *models.CompetitiveContext `json:"competitive_context"`
}

// @Summary Run the pricing analysis pipeline
// @Description Refreshes segments, computes economics, generates options and evaluates them through the council.
// @Tags analysis
// @Accept json
// @Produce json
// @Param orgID path string true "Organization ID"
// @Success 200 {object} analysis.Result
// @Failure 404 {object} map[string]any
// @Router /api/orgs/{orgID}/analysis [post]
func (h *Handler) RunAnalysis(c *gin.Context) {
	orgID := c.Param("orgID")

	var req AnalysisRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
			return
		}
	}

	runID, err := h.Store.CreateRun(c.Request.Context(), orgID, "RUNNING")
	if err != nil {
		h.Logger.Error().Err(err).Msg("failed to create run")
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to create run", err.Error())
		return
	}

	result, err := h.Analysis.Run(c.Request.Context(), orgID, req.CompetitiveContext)
	status := "SUCCESS"
	if err != nil {
		status = "FAILED"
	}
	h.Metrics.AnalysisRun(status)
	b, _ := json.Marshal(result)
	if finishErr := h.Store.FinishRun(c.Request.Context(), runID, status, b); finishErr != nil {
		h.Logger.Error().Err(finishErr).Msg("failed to finish run")
	}

	if err != nil {
		h.Logger.Error().Err(err).Str("organization_id", orgID).Msg("analysis failed")
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// @Summary Latest analysis run
// @Tags runs
// @Produce json
// @Param orgID path string true "Organization ID"
// @Success 200 {object} models.AnalysisRun
// @Router /api/orgs/{orgID}/runs/latest [get]
func (h *Handler) RunsLatest(c *gin.Context) {
	run, err := h.Store.GetLatestRun(c.Request.Context(), c.Param("orgID"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "No runs found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load run", err.Error())
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *Handler) SegmentsList(c *gin.Context) {
	orgID := c.Param("orgID")
	activeOnly := !strings.EqualFold(c.Query("include_archived"), "true")
	segments, err := h.Store.ListSegments(c.Request.Context(), orgID, activeOnly)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list segments", err.Error())
		return
	}

	// Stored counts go stale between runs; annotate with live assignments.
	counts, err := h.Store.CountCustomersBySegment(c.Request.Context(), orgID)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to count customers", err.Error())
		return
	}
	for i := range segments {
		if n, ok := counts[segments[i].ID]; ok {
			segments[i].CustomerCount = n
		}
	}
	c.JSON(http.StatusOK, gin.H{"items": segments})
}

type SegmentUpdateRequest struct {
	Name         *string                   `json:"name"`
	Criteria     []models.SegmentCriterion `json:"criteria"`
	ValueDrivers []string                  `json:"value_drivers"`
}

func (h *Handler) SegmentUpdate(c *gin.Context) {
	orgID := c.Param("orgID")
	id := c.Param("id")

	var req SegmentUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}

	seg, err := h.Store.GetSegment(c.Request.Context(), orgID, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Segment not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load segment", err.Error())
		return
	}

	if req.Name != nil {
		seg.Name = *req.Name
	}
	if req.Criteria != nil {
		seg.Criteria = req.Criteria
		seg.IsSystemGenerated = false
	}
	if req.ValueDrivers != nil {
		seg.ValueDrivers = req.ValueDrivers
	}

	updated, err := h.Repo.UpdateSegment(c.Request.Context(), seg, ontology.Mutation{
		Action:      models.ActionUpdate,
		TriggeredBy: "manual",
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) SegmentArchive(c *gin.Context) {
	archived, err := h.Repo.ArchiveSegment(c.Request.Context(), c.Param("orgID"), c.Param("id"), ontology.Mutation{
		Action:      models.ActionArchive,
		TriggeredBy: "manual",
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, archived)
}

func (h *Handler) TiersList(c *gin.Context) {
	tiers, err := h.Store.ListTiers(c.Request.Context(), c.Param("orgID"), true)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list tiers", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": tiers})
}

func (h *Handler) EconomicsLatest(c *gin.Context) {
	snap, err := h.Store.LatestEconomicsSnapshot(c.Request.Context(), c.Param("orgID"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "No economics computed yet", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load economics", err.Error())
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) PatternsList(c *gin.Context) {
	patterns, err := h.Store.ListPatterns(c.Request.Context(), c.Param("orgID"), c.Query("type"))
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list patterns", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": patterns})
}

// @Summary Query the ontology audit log
// @Tags audit
// @Produce json
// @Param orgID path string true "Organization ID"
// @Param entity_type query string false "Entity type"
// @Param action query string false "Action"
// @Param from query string false "RFC3339 lower bound"
// @Param to query string false "RFC3339 upper bound"
// @Param limit query int false "Max rows (default 100)"
// @Success 200 {object} map[string]any
// @Router /api/orgs/{orgID}/audit [get]
func (h *Handler) AuditList(c *gin.Context) {
	filter := db.AuditFilter{
		EntityType: c.Query("entity_type"),
		EntityID:   c.Query("entity_id"),
		Action:     c.Query("action"),
	}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "from must be RFC3339", err.Error())
			return
		}
		filter.From = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "to must be RFC3339", err.Error())
			return
		}
		filter.To = &t
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be a positive integer", nil)
			return
		}
		filter.Limit = n
	}

	items, err := h.Store.ListAudit(c.Request.Context(), c.Param("orgID"), filter)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to query audit log", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) EntityTimeline(c *gin.Context) {
	items, err := h.Store.EntityTimeline(c.Request.Context(), c.Param("orgID"), c.Param("entityType"), c.Param("entityID"))
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load timeline", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type DecisionCreateRequest struct {
	Question          string                 `json:"question" validate:"required"`
	OptionsConsidered []string               `json:"options_considered" validate:"required,min=1"`
	ChosenOptionID    string                 `json:"chosen_option_id" validate:"required"`
	Reasoning         string                 `json:"reasoning" validate:"required"`
	Options           []models.PricingOption `json:"options" validate:"required,min=1"`
}

// @Summary Record a pricing decision
// @Description Freezes the chosen option together with a snapshot of the ontology it was decided against.
// @Tags decisions
// @Accept json
// @Produce json
// @Param orgID path string true "Organization ID"
// @Success 201 {object} models.DecisionRecord
// @Failure 400 {object} map[string]any
// @Router /api/orgs/{orgID}/decisions [post]
func (h *Handler) DecisionCreate(c *gin.Context) {
	var req DecisionCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	record, err := h.Decisions.Create(c.Request.Context(), c.Param("orgID"), decision.CreateInput{
		Question:          req.Question,
		OptionsConsidered: req.OptionsConsidered,
		ChosenOptionID:    req.ChosenOptionID,
		Reasoning:         req.Reasoning,
		Options:           req.Options,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (h *Handler) DecisionsList(c *gin.Context) {
	items, err := h.Store.ListDecisions(c.Request.Context(), c.Param("orgID"))
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list decisions", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) DecisionGet(c *gin.Context) {
	record, err := h.Store.GetDecision(c.Request.Context(), c.Param("orgID"), c.Param("id"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Decision not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load decision", err.Error())
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *Handler) DecisionTrail(c *gin.Context) {
	items, err := h.Store.DecisionTrail(c.Request.Context(), c.Param("orgID"), c.Param("id"))
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load decision trail", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type OutcomeRequest struct {
	ActualARRChange   float64 `json:"actual_arr_change"`
	ActualChurnChange float64 `json:"actual_churn_change"`
	Learnings         string  `json:"learnings"`
}

// @Summary Record the measured outcome of a decision
// @Description Sets the actual ARR and churn deltas exactly once and scores prediction accuracy.
// @Tags decisions
// @Accept json
// @Produce json
// @Param orgID path string true "Organization ID"
// @Param id path string true "Decision ID"
// @Success 200 {object} models.DecisionRecord
// @Failure 404 {object} map[string]any
// @Router /api/orgs/{orgID}/decisions/{id}/outcome [post]
func (h *Handler) DecisionOutcome(c *gin.Context) {
	var req OutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}

	record, err := h.Decisions.RecordOutcome(c.Request.Context(), c.Param("orgID"), c.Param("id"), decision.OutcomeInput{
		ActualARRChange:   req.ActualARRChange,
		ActualChurnChange: req.ActualChurnChange,
		Learnings:         req.Learnings,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// writeDomainError maps service-layer error kinds onto HTTP statuses.
func writeDomainError(c *gin.Context, err error) {
	kind := errs.KindOf(err)
	status := http.StatusInternalServerError
	code := string(kind)
	switch kind {
	case errs.KindNotFound:
		status = http.StatusNotFound
	case errs.KindInvalidInput:
		status = http.StatusBadRequest
	case errs.KindDegenerate:
		status = http.StatusUnprocessableEntity
	}
	if code == "" {
		code = "INTERNAL_ERROR"
	}
	writeError(c, status, code, err.Error(), nil)
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
