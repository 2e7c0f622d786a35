package integrity

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"campaignmerch_backend/internal/http/response"
	"campaignmerch_backend/platform/apperr"
	"campaignmerch_backend/platform/httpkit"
)

// SweepScheduler hands a sweep off to a background queue instead of running
// it on the request.
type SweepScheduler interface {
	EnqueueSweep(ctx context.Context, requestedBy string) error
}

// Handler exposes the integrity engine on the admin API.
type Handler struct {
	sweeper   *Sweeper
	scheduler SweepScheduler
}

func NewHandler(sweeper *Sweeper) *Handler {
	return &Handler{sweeper: sweeper}
}

// SetSweepScheduler routes admin-triggered sweeps through the background
// queue. Without one, sweeps run on the request.
func (h *Handler) SetSweepScheduler(scheduler SweepScheduler) {
	h.scheduler = scheduler
}

// Sweep starts a full integrity sweep. With a scheduler configured the sweep
// is enqueued and runs in the worker; admin tooling polls Status and Report.
// Otherwise it runs synchronously on the request.
func (h *Handler) Sweep(c *gin.Context) {
	if h.scheduler != nil {
		if err := h.scheduler.EnqueueSweep(c.Request.Context(), c.GetString(httpkit.ContextUserIDKey)); err != nil {
			response.FromError(c, err)
			return
		}
		response.JSON(c, http.StatusAccepted, gin.H{"enqueued": true})
		return
	}

	report, err := h.sweeper.SweepAll(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, report)
}

// Report returns the most recent completed sweep report.
func (h *Handler) Report(c *gin.Context) {
	report := h.sweeper.GetLastReport()
	if report == nil {
		response.FromError(c, apperr.NotFound("no sweep has completed yet"))
		return
	}
	response.OK(c, report)
}

// Status reports whether a sweep is currently running.
func (h *Handler) Status(c *gin.Context) {
	response.OK(c, gin.H{"running": h.sweeper.IsSweepRunning()})
}

// CacheStats returns reference cache diagnostics.
func (h *Handler) CacheStats(c *gin.Context) {
	response.OK(c, h.sweeper.CacheStats())
}

// CheckBundle validates one bundle and applies auto-fixes per configuration.
// ?dryRun=true validates without executing any action.
func (h *Handler) CheckBundle(c *gin.Context) {
	bundleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid bundle id", nil)
		return
	}

	var report BundleValidationReport
	if c.Query("dryRun") == "true" {
		report, err = h.sweeper.CheckBundleDryRun(c.Request.Context(), bundleID)
	} else {
		report, err = h.sweeper.CheckBundle(c.Request.Context(), bundleID)
	}
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, report)
}

// CleanupOrphans removes orphaned lines from one bundle.
func (h *Handler) CleanupOrphans(c *gin.Context) {
	bundleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid bundle id", nil)
		return
	}

	removed, err := h.sweeper.CleanupOrphans(c.Request.Context(), bundleID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"removedProductIds": removed})
}
