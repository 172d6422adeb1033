package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"local-services-server/middleware"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AdminHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password are required")
		return
	}

	res, err := h.admins.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"token":     res.Token,
		"tokenType": res.TokenType,
		"expiresAt": res.ExpiresAt,
		"admin":     res.Admin,
	})
}

func (h *AdminHandler) Me(c *gin.Context) {
	admin, ok := middleware.GetAdmin(c)
	if !ok {
		middleware.AbortWithError(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "admin": admin})
}
