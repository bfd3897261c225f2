// Package server exposes the workflow engine over HTTP for the dashboard.
//
// Routes:
//   - GET    /health                            service health
//   - GET    /metrics                           Prometheus scrape endpoint
//   - GET    /notifications                     current notice
//   - DELETE /notifications                     dismiss the notice
//   - GET    /geocode?lat=&lon=                 reverse geocoding
//   - PUT    /mode/:name                        toggle a backend mode
//   - GET    /reports/:id/workflow              draft and affordances
//   - PATCH  /reports/:id/workflow              edit the draft locally
//   - POST   /reports/:id/save                  persist the draft as is
//   - POST   /reports/:id/advance               next step
//   - POST   /reports/:id/retreat               previous step (two-phase)
//   - DELETE /reports/:id/retreat               cancel a pending retreat
//   - POST   /reports/:id/reject                close an unverified report
//   - POST   /reports/:id/complete              finish an unverified report
//   - POST   /reports/:id/kesimpulan            add a follow-up note
//   - PUT    /reports/:id/kesimpulan/:index     edit a follow-up note
//   - DELETE /reports/:id/kesimpulan/:index     delete a follow-up note
package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pengaduan/internal/geo"
	"pengaduan/internal/metrics"
	"pengaduan/internal/notify"
	"pengaduan/internal/workflow"
)

// Engines hands out the workflow engine of a report.
type Engines interface {
	Open(ctx context.Context, reportID string) (*workflow.Engine, error)
	Forget(reportID string)
}

// ModeSetter toggles backend modes.
type ModeSetter interface {
	SetMode(ctx context.Context, name string, active bool) error
}

// Geocoder resolves coordinates.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (*geo.Place, error)
}

// Notices is the notification board as seen by the dashboard.
type Notices interface {
	Current() (notify.Notice, bool)
	Dismiss()
}

// Deps are the collaborators of the router. Nil members disable their
// routes.
type Deps struct {
	Engines  Engines
	Modes    ModeSetter
	Geocoder Geocoder
	Notices  Notices
	Health   gin.HandlerFunc
}

// Handler serves the dashboard API.
type Handler struct {
	deps Deps
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps Deps) *gin.Engine {
	h := &Handler{deps: deps}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.Middleware())

	if deps.Health != nil {
		r.GET("/health", deps.Health)
	}
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if deps.Notices != nil {
		r.GET("/notifications", h.CurrentNotice)
		r.DELETE("/notifications", h.DismissNotice)
	}
	if deps.Geocoder != nil {
		r.GET("/geocode", h.Geocode)
	}
	if deps.Modes != nil {
		r.PUT("/mode/:name", h.SetMode)
	}

	if deps.Engines != nil {
		reports := r.Group("/reports/:id")
		{
			reports.GET("/workflow", h.GetWorkflow)
			reports.PATCH("/workflow", h.EditDraft)
			reports.POST("/save", h.Save)
			reports.POST("/advance", h.Advance)
			reports.POST("/retreat", h.Retreat)
			reports.DELETE("/retreat", h.CancelRetreat)
			reports.POST("/reject", h.Reject)
			reports.POST("/complete", h.Complete)
			reports.POST("/kesimpulan", h.AddKesimpulan)
			reports.PUT("/kesimpulan/:index", h.EditKesimpulan)
			reports.DELETE("/kesimpulan/:index", h.DeleteKesimpulan)
		}
	}

	return r
}

// CurrentNotice returns the visible notice, or 204 when there is none.
func (h *Handler) CurrentNotice(c *gin.Context) {
	n, ok := h.deps.Notices.Current()
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, n)
}

// DismissNotice clears the visible notice.
func (h *Handler) DismissNotice(c *gin.Context) {
	h.deps.Notices.Dismiss()
	c.Status(http.StatusNoContent)
}

type geocodeQuery struct {
	Lat *float64 `form:"lat" binding:"required"`
	Lon *float64 `form:"lon" binding:"required"`
}

// Geocode resolves ?lat=&lon= into place names.
func (h *Handler) Geocode(c *gin.Context) {
	var q geocodeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lon are required"})
		return
	}

	place, err := h.deps.Geocoder.Reverse(c.Request.Context(), *q.Lat, *q.Lon)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, place)
}

type modeRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SetMode toggles a backend mode.
func (h *Handler) SetMode(c *gin.Context) {
	var req modeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	name := c.Param("name")
	if err := h.deps.Modes.SetMode(c.Request.Context(), name, *req.Active); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mode": name, "active": *req.Active})
}
