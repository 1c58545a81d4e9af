// README: Base handler utilities (param parsing, fault-to-status mapping).
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"kedai/internal/fault"
)

type errorResponse struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, http.StatusBadRequest, "bad_request", "invalid "+name)
		return 0, false
	}
	return id, true
}

func writeError(c *gin.Context, status int, kind, msg string) {
	c.JSON(status, errorResponse{Kind: kind, Error: msg})
}

// writeFault maps the failure taxonomy to HTTP statuses in one place.
func writeFault(c *gin.Context, err error) {
	kind := fault.KindOf(err)
	msg := err.Error()
	var f *fault.Fault
	if errors.As(err, &f) && f.Reason != "" {
		msg = f.Reason
	}

	switch kind {
	case fault.Unauthenticated:
		writeError(c, http.StatusUnauthorized, string(kind), msg)
	case fault.Forbidden, fault.NotOwner:
		writeError(c, http.StatusForbidden, string(kind), msg)
	case fault.NotFound:
		writeError(c, http.StatusNotFound, string(kind), msg)
	case fault.InvalidTransition, fault.PreconditionFailed:
		writeError(c, http.StatusConflict, string(kind), msg)
	case fault.ExpiredOrExhausted:
		writeError(c, http.StatusGone, string(kind), msg)
	default:
		writeError(c, http.StatusInternalServerError, string(fault.Storage), "internal error")
	}
}
