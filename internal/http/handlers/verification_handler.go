// README: COD verification endpoints.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kedai/internal/http/middleware"
	"kedai/internal/modules/verification"
)

type VerificationHandler struct {
	verification *verification.Service
}

func NewVerificationHandler(v *verification.Service) *VerificationHandler {
	return &VerificationHandler{verification: v}
}

func (h *VerificationHandler) Generate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	issued, err := h.verification.Generate(c.Request.Context(), verification.GenerateCommand{
		OrderID: id,
		Actor:   middleware.Caller(c),
	})
	if err != nil {
		writeFault(c, err)
		return
	}
	if issued.Trusted {
		c.JSON(http.StatusOK, gin.H{"order_id": id, "trusted": true})
		return
	}
	// The code goes out through SMS in production; returning it here keeps
	// the demo flow self-contained.
	c.JSON(http.StatusOK, gin.H{
		"order_id":   id,
		"code":       issued.Code,
		"expires_at": issued.ExpiresAt,
	})
}

type verifyReq struct {
	Code string `json:"code" binding:"required"`
}

func (h *VerificationHandler) Verify(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req verifyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}
	err := h.verification.Verify(c.Request.Context(), verification.VerifyCommand{
		OrderID: id,
		Actor:   middleware.Caller(c),
		Code:    req.Code,
	})
	if err != nil {
		writeFault(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": id, "verified": true})
}
