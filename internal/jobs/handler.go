package jobs

import (
	"net/http"

	"gigwork_maps/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidJobID = "invalid job ID"

// Handler exposes job-site endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Site handles GET /api/v1/jobs/:id/site
func (h *Handler) Site(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidJobID, nil)
		return
	}

	marker, err := h.svc.SiteMarker(c.Request.Context(), jobID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, marker)
}

// Geocode handles POST /api/v1/jobs/:id/geocode
func (h *Handler) Geocode(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidJobID, nil)
		return
	}

	if httpkit.HandleError(c, h.svc.RequestGeocode(c.Request.Context(), jobID)) {
		return
	}
	httpkit.JSON(c, http.StatusAccepted, gin.H{"status": "accepted"})
}
