package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/team-hex/hexcert/core"
	"github.com/team-hex/hexcert/service"
)

// AuthHandlers contains HTTP handlers for the authentication endpoints
type AuthHandlers struct {
	authService *service.AuthService
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
	}
}

// nonceBody is the embedded challenge object on verify and login requests.
type nonceBody struct {
	Message string `json:"message" binding:"required"`
}

// Nonce handles POST /nonce: it issues a signing challenge for the claimed
// wallet address.
func (h *AuthHandlers) Nonce(c *gin.Context) {
	var req struct {
		WalletAddress string `json:"wallet_address" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	challenge, err := h.authService.CreateChallenge(c.Request.Context(), req.WalletAddress)
	if err != nil {
		if errors.Is(err, core.ErrInvalidAddress) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wallet address"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create challenge"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": challenge.Message,
		"value":   challenge.Hash,
	})
}

// VerifySignature handles POST /verify/signature and answers with a bare
// boolean. Any other method on the path gets a Forbidden response.
func (h *AuthHandlers) VerifySignature(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		c.JSON(http.StatusForbidden, gin.H{
			"response": c.Request.Method + " forbidden",
		})
		return
	}

	var req struct {
		WalletAddress string    `json:"wallet_address" binding:"required"`
		Nonce         nonceBody `json:"nonce" binding:"required"`
		Signature     string    `json:"signature" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	verified := h.authService.VerifySignature(c.Request.Context(), req.Nonce.Message, req.Signature, req.WalletAddress)
	c.JSON(http.StatusOK, verified)
}

// Register handles POST /users: find-or-create of the account record keyed
// by wallet address.
func (h *AuthHandlers) Register(c *gin.Context) {
	var req struct {
		User struct {
			WalletAddress string `json:"wallet_address" binding:"required"`
		} `json:"user" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	user, err := h.authService.RegisterUser(c.Request.Context(), req.User.WalletAddress)
	if err != nil {
		if errors.Is(err, core.ErrInvalidAddress) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wallet address"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// Login handles the login request
func (h *AuthHandlers) Login(c *gin.Context) {
	var req struct {
		WalletAddress string    `json:"wallet_address" binding:"required"`
		Nonce         nonceBody `json:"nonce" binding:"required"`
		Signature     string    `json:"signature" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	accessToken, refreshToken, err := h.authService.Login(c.Request.Context(), req.Nonce.Message, req.Signature, req.WalletAddress)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Authentication failed"

		switch {
		case errors.Is(err, core.ErrInvalidSignature):
			statusCode = http.StatusUnauthorized
			errorMsg = "Invalid signature"
		case errors.Is(err, core.ErrInvalidAddress):
			statusCode = http.StatusBadRequest
			errorMsg = "Invalid wallet address"
		}

		c.JSON(statusCode, gin.H{"error": errorMsg})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"token_type":    "Bearer",
		"expires_in":    300, // 5 minutes in seconds
	})
}

// Refresh handles token refresh
func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	accessToken, refreshToken, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Failed to refresh tokens"

		switch {
		case errors.Is(err, core.ErrInvalidToken):
			statusCode = http.StatusBadRequest
			errorMsg = "Invalid refresh token"
		case errors.Is(err, core.ErrTokenExpired):
			statusCode = http.StatusUnauthorized
			errorMsg = "Refresh token expired"
		case errors.Is(err, core.ErrTokenInvalidated):
			statusCode = http.StatusUnauthorized
			errorMsg = "Refresh token has been invalidated"
		}

		c.JSON(statusCode, gin.H{"error": errorMsg})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"token_type":    "Bearer",
		"expires_in":    300, // 5 minutes in seconds
	})
}

// Logout handles session logout
func (h *AuthHandlers) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.authService.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		if errors.Is(err, core.ErrTokenExpired) {
			// Even if expired, logout is considered successful.
			c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid refresh token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me returns information about the authenticated user
func (h *AuthHandlers) Me(c *gin.Context) {
	address, exists := c.Get("userAddress")
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	user, err := h.authService.GetUser(c.Request.Context(), address.(string))
	if err != nil {
		// The session is valid even when no explicit registration happened.
		c.JSON(http.StatusOK, gin.H{"address": address})
		return
	}

	c.JSON(http.StatusOK, user)
}

// Authorize checks if a user is authorized
func (h *AuthHandlers) Authorize(c *gin.Context) {
	// The auth middleware already validated the token and re-checked
	// revocation; nothing left to do but confirm.
	address, exists := c.Get("userAddress")
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authorized": true,
		"address":    address,
	})
}
