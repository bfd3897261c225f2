package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "pengaduan/internal/errors"
	"pengaduan/internal/model"
	"pengaduan/internal/workflow"
)

// workflowView is the body of every workflow response.
type workflowView struct {
	Draft       *model.Tindakan      `json:"draft"`
	Affordances workflow.Affordances `json:"affordances"`
	Warnings    []string             `json:"warnings,omitempty"`
}

func view(e *workflow.Engine, warnings []string) workflowView {
	return workflowView{
		Draft:       e.Draft(),
		Affordances: e.Affordances(),
		Warnings:    warnings,
	}
}

// engine opens the engine of :id or writes the error response.
func (h *Handler) engine(c *gin.Context) (*workflow.Engine, bool) {
	e, err := h.deps.Engines.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return e, true
}

// GetWorkflow returns the draft and what may be done with it. ?reload=true
// refetches the record first.
func (h *Handler) GetWorkflow(c *gin.Context) {
	e, ok := h.engine(c)
	if !ok {
		return
	}
	if c.Query("reload") == "true" {
		if _, err := e.Reload(c.Request.Context()); err != nil {
			writeError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, view(e, nil))
}

// EditDraft merges the fields present in the body into the draft. Absent
// and null fields are left alone; status, ids and processed_by cannot be
// edited here.
func (h *Handler) EditDraft(c *gin.Context) {
	var patch model.Tindakan
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	e, ok := h.engine(c)
	if !ok {
		return
	}
	if err := e.Edit(func(t *model.Tindakan) { mergeDraft(t, &patch) }); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view(e, nil))
}

func mergeDraft(dst, src *model.Tindakan) {
	if src.Situasi != nil {
		dst.Situasi = src.Situasi
	}
	if src.OPD != nil {
		dst.OPD = src.OPD
	}
	if src.TrackingID != nil {
		dst.TrackingID = src.TrackingID
	}
	if src.URL != nil {
		dst.URL = src.URL
	}
	if src.StatusLaporan != nil {
		dst.StatusLaporan = src.StatusLaporan
	}
	if src.Photos != nil {
		dst.Photos = src.Photos
	}
	if src.Prioritas != nil {
		dst.Prioritas = src.Prioritas
	}
	if src.Tag != nil {
		dst.Tag = src.Tag
	}
	if src.Keterangan != nil {
		dst.Keterangan = src.Keterangan
	}
}

// Save persists the draft without changing the status.
func (h *Handler) Save(c *gin.Context) {
	e, ok := h.engine(c)
	if !ok {
		return
	}
	if _, err := e.Save(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view(e, nil))
}

// Advance moves the record to its next status.
func (h *Handler) Advance(c *gin.Context) {
	e, ok := h.engine(c)
	if !ok {
		return
	}
	res, err := e.AdvanceStep(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view(e, res.Warnings))
}

type retreatRequest struct {
	Confirm bool `json:"confirm"`
}

// Retreat is two-phase: without {"confirm":true} it only opens the
// confirmation (202); with it the previous status is persisted.
func (h *Handler) Retreat(c *gin.Context) {
	var req retreatRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	e, ok := h.engine(c)
	if !ok {
		return
	}

	if !req.Confirm {
		if err := e.RequestRetreat(); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, view(e, nil))
		return
	}

	res, err := e.Retreat(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view(e, res.Warnings))
}

// CancelRetreat dismisses a pending retreat confirmation.
func (h *Handler) CancelRetreat(c *gin.Context) {
	e, ok := h.engine(c)
	if !ok {
		return
	}
	e.CancelRetreat()
	c.JSON(http.StatusOK, view(e, nil))
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

// Reject closes the report with a reason.
func (h *Handler) Reject(c *gin.Context) {
	h.terminate(c, (*workflow.Engine).Reject)
}

// Complete marks the report handled with a reason.
func (h *Handler) Complete(c *gin.Context) {
	h.terminate(c, (*workflow.Engine).Complete)
}

func (h *Handler) terminate(c *gin.Context, action func(*workflow.Engine, context.Context, string) (*workflow.Result, error)) {
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	e, ok := h.engine(c)
	if !ok {
		return
	}
	res, err := action(e, c.Request.Context(), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view(e, res.Warnings))
}

type kesimpulanRequest struct {
	Text string `json:"text"`
}

// AddKesimpulan appends a follow-up note.
func (h *Handler) AddKesimpulan(c *gin.Context) {
	var req kesimpulanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	e, ok := h.engine(c)
	if !ok {
		return
	}
	list, err := e.AddFollowUp(c.Request.Context(), req.Text)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"kesimpulan": list})
}

// EditKesimpulan rewrites the note at :index.
func (h *Handler) EditKesimpulan(c *gin.Context) {
	index, ok := indexParam(c)
	if !ok {
		return
	}
	var req kesimpulanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	e, ok := h.engine(c)
	if !ok {
		return
	}
	list, err := e.EditFollowUp(c.Request.Context(), index, req.Text)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kesimpulan": list})
}

// DeleteKesimpulan removes the note at :index.
func (h *Handler) DeleteKesimpulan(c *gin.Context) {
	index, ok := indexParam(c)
	if !ok {
		return
	}

	e, ok := h.engine(c)
	if !ok {
		return
	}
	list, err := e.RemoveFollowUp(c.Request.Context(), index)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kesimpulan": list})
}

func indexParam(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid index"})
		return 0, false
	}
	return index, true
}

// writeError maps the typed errors to status codes.
func writeError(c *gin.Context, err error) {
	var (
		verr   *apperrors.ValidationError
		rlerr  *apperrors.RateLimitError
		apierr *apperrors.APIError
	)

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": verr.Message, "fields": verr.Fields})
	case errors.As(err, &rlerr):
		log.Printf("⚠️  Rate limited: %s", rlerr.Key)
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case apperrors.IsIdentity(err):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case apperrors.IsBusy(err), apperrors.IsStep(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &apierr):
		if apierr.StatusCode == http.StatusNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		log.Printf("❌ Unhandled error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
