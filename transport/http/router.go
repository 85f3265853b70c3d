package http

import (
	"github.com/gin-gonic/gin"

	"github.com/team-hex/hexcert/contract"
	"github.com/team-hex/hexcert/service"
)

// SetupRouter sets up the Gin router
func SetupRouter(authService *service.AuthService, factory *contract.CertificateFactory) *gin.Engine {
	router := gin.Default()

	handlers := NewAuthHandlers(authService)
	registry := NewRegistryHandlers(factory)

	// Public authentication surface.
	router.POST("/nonce", handlers.Nonce)
	router.Any("/verify/signature", handlers.VerifySignature)
	router.POST("/users", handlers.Register)

	auth := router.Group("/auth")
	{
		auth.POST("/login", handlers.Login)
		auth.POST("/refresh", handlers.Refresh)
		auth.POST("/logout", handlers.Logout)
	}

	// Protected API routes.
	api := router.Group("/api")
	api.Use(AuthMiddleware(authService))
	{
		api.GET("/me", handlers.Me)
		api.GET("/authorize", handlers.Authorize)
	}

	// Contract surface. Admin and registrant gating happen inside the
	// factory against the authenticated wallet address.
	reg := router.Group("/registry")
	reg.Use(AuthMiddleware(authService))
	{
		reg.POST("/universities", registry.AuthorizeUniversity)
		reg.GET("/universities", registry.ListUniversities)
		reg.GET("/universities/index/:index", registry.GetUniversityByIndex)
		reg.GET("/universities/:id", registry.GetUniversity)
		reg.POST("/universities/:id/revoke", registry.RevokeUniversity)
		reg.POST("/universities/:id/restore", registry.RestoreUniversity)
		reg.POST("/universities/:id/registrant", registry.ChangeRegistrant)
		reg.GET("/registrants/:address", registry.GetRegistrant)
	}

	certs := router.Group("/certificates")
	certs.Use(AuthMiddleware(authService))
	{
		certs.POST("", registry.IssueCertificate)
		certs.PUT("/base-uri", registry.SetBaseURI)
		certs.GET("/supply", registry.TotalSupply)
		certs.GET("/balance/:address", registry.BalanceOf)
		certs.GET("/:id/uri", registry.TokenURI)
		certs.GET("/:id/owner", registry.OwnerOf)
		certs.POST("/:id/transfer", registry.TransferCertificate)
	}

	return router
}
