// README: Courier location endpoints.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kedai/internal/http/middleware"
	"kedai/internal/modules/location"
	"kedai/internal/types"
)

type LocationHandler struct {
	location *location.Service
}

func NewLocationHandler(l *location.Service) *LocationHandler {
	return &LocationHandler{location: l}
}

type reportReq struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (h *LocationHandler) Report(c *gin.Context) {
	var req reportReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}
	err := h.location.Report(c.Request.Context(), middleware.Caller(c), types.Point{Lat: req.Lat, Lng: req.Lng})
	if err != nil {
		writeFault(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reported": true})
}

func (h *LocationHandler) Clear(c *gin.Context) {
	if err := h.location.Clear(c.Request.Context(), middleware.Caller(c)); err != nil {
		writeFault(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

func (h *LocationHandler) Locate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, found, err := h.location.Locate(c.Request.Context(), middleware.Caller(c), id)
	if err != nil {
		writeFault(c, err)
		return
	}
	if !found {
		writeError(c, http.StatusNotFound, "not_found", "no recent position for this courier")
		return
	}
	c.JSON(http.StatusOK, gin.H{"courier_id": id, "lat": p.Lat, "lng": p.Lng})
}
