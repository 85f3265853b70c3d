package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/team-hex/hexcert/contract"
	"github.com/team-hex/hexcert/core"
)

// RegistryHandlers exposes the certificate factory's entry points over HTTP.
// The caller identity is the wallet address authenticated by the auth
// middleware; admin and registrant gating happen inside the contract.
type RegistryHandlers struct {
	factory *contract.CertificateFactory
}

// NewRegistryHandlers creates new registry handlers
func NewRegistryHandlers(factory *contract.CertificateFactory) *RegistryHandlers {
	return &RegistryHandlers{factory: factory}
}

// caller resolves the authenticated wallet address from the request context.
func caller(c *gin.Context) (common.Address, bool) {
	address, exists := c.Get("userAddress")
	if !exists {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return common.Address{}, false
	}
	return common.HexToAddress(address.(string)), true
}

// parseUniversityID validates and decodes a 32-byte hex university id.
func parseUniversityID(raw string) (common.Hash, bool) {
	if !strings.HasPrefix(raw, "0x") || len(raw) != 66 {
		return common.Hash{}, false
	}
	return common.HexToHash(raw), true
}

// abortContractErr maps contract errors to HTTP statuses: validation 400,
// authorization 403, not-found 404, conflicts 409.
func abortContractErr(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrNotAdmin),
		errors.Is(err, core.ErrNotAuthorizedIssuer),
		errors.Is(err, core.ErrNotCertificateOwner):
		status = http.StatusForbidden
	case errors.Is(err, core.ErrUniversityNotFound),
		errors.Is(err, core.ErrCertificateNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrUniversityExists),
		errors.Is(err, core.ErrRegistrantTaken):
		status = http.StatusConflict
	case errors.Is(err, core.ErrInvalidAddress),
		errors.Is(err, core.ErrInvalidChallenge):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// AuthorizeUniversity handles POST /registry/universities. Admin-gated.
func (h *RegistryHandlers) AuthorizeUniversity(c *gin.Context) {
	callerAddr, ok := caller(c)
	if !ok {
		return
	}

	var req struct {
		UniversityID string `json:"university_id" binding:"required"`
		Registrant   string `json:"registrant" binding:"required"`
		Directory    string `json:"directory" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	id, ok := parseUniversityID(req.UniversityID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid university id"})
		return
	}
	if !common.IsHexAddress(req.Registrant) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid registrant address"})
		return
	}

	university, err := h.factory.AuthorizeUniversity(c.Request.Context(), callerAddr, id, common.HexToAddress(req.Registrant), req.Directory)
	if err != nil {
		abortContractErr(c, err)
		return
	}

	c.JSON(http.StatusCreated, university)
}

// RevokeUniversity handles POST /registry/universities/:id/revoke. Admin-gated.
func (h *RegistryHandlers) RevokeUniversity(c *gin.Context) {
	h.setAuthorization(c, false)
}

// RestoreUniversity handles POST /registry/universities/:id/restore. Admin-gated.
func (h *RegistryHandlers) RestoreUniversity(c *gin.Context) {
	h.setAuthorization(c, true)
}

func (h *RegistryHandlers) setAuthorization(c *gin.Context, authorized bool) {
	callerAddr, ok := caller(c)
	if !ok {
		return
	}

	id, ok := parseUniversityID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid university id"})
		return
	}

	var err error
	if authorized {
		err = h.factory.RestoreUniversityAuthorization(c.Request.Context(), callerAddr, id)
	} else {
		err = h.factory.RevokeUniversityAuthorization(c.Request.Context(), callerAddr, id)
	}
	if err != nil {
		abortContractErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"authorized": authorized})
}

// ChangeRegistrant handles POST /registry/universities/:id/registrant. Admin-gated.
func (h *RegistryHandlers) ChangeRegistrant(c *gin.Context) {
	callerAddr, ok := caller(c)
	if !ok {
		return
	}

	id, ok := parseUniversityID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid university id"})
		return
	}

	var req struct {
		Registrant string `json:"registrant" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if !common.IsHexAddress(req.Registrant) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid registrant address"})
		return
	}

	if err := h.factory.ChangeUniversityRegistrant(c.Request.Context(), callerAddr, id, common.HexToAddress(req.Registrant)); err != nil {
		abortContractErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"registrant": common.HexToAddress(req.Registrant)})
}

// ListUniversities handles GET /registry/universities.
func (h *RegistryHandlers) ListUniversities(c *gin.Context) {
	count := h.factory.UniversityCount()
	universities := make([]*core.University, 0, count)
	for i := 0; i < count; i++ {
		id, err := h.factory.UniversityIDByIndex(i)
		if err != nil {
			break
		}
		if university, err := h.factory.GetUniversity(id); err == nil {
			universities = append(universities, university)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"count":        count,
		"universities": universities,
	})
}

// GetUniversity handles GET /registry/universities/:id.
func (h *RegistryHandlers) GetUniversity(c *gin.Context) {
	id, ok := parseUniversityID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid university id"})
		return
	}

	university, err := h.factory.GetUniversity(id)
	if err != nil {
		abortContractErr(c, err)
		return
	}

	c.JSON(http.StatusOK, university)
}

// GetUniversityByIndex handles GET /registry/universities/index/:index.
func (h *RegistryHandlers) GetUniversityByIndex(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid index"})
		return
	}

	id, err := h.factory.UniversityIDByIndex(index)
	if err != nil {
		abortContractErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"university_id": id})
}

// GetRegistrant handles GET /registry/registrants/:address.
func (h *RegistryHandlers) GetRegistrant(c *gin.Context) {
	raw := c.Param("address")
	if !common.IsHexAddress(raw) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wallet address"})
		return
	}

	address := common.HexToAddress(raw)
	c.JSON(http.StatusOK, gin.H{
		"university_id": h.factory.GetUniversityID(address),
		"authorized":    h.factory.IsAuthorized(address),
	})
}

// IssueCertificate handles POST /certificates. Registrant-gated by the contract.
func (h *RegistryHandlers) IssueCertificate(c *gin.Context) {
	callerAddr, ok := caller(c)
	if !ok {
		return
	}

	var req struct {
		Receiver string `json:"receiver" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if !common.IsHexAddress(req.Receiver) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid receiver address"})
		return
	}

	certificate, err := h.factory.IssueCertificate(c.Request.Context(), callerAddr, common.HexToAddress(req.Receiver))
	if err != nil {
		abortContractErr(c, err)
		return
	}

	uri, _ := h.factory.TokenURI(certificate.TokenID)
	c.JSON(http.StatusCreated, gin.H{
		"token_id":      certificate.TokenID,
		"owner":         certificate.Owner,
		"university_id": certificate.UniversityID,
		"token_uri":     uri,
	})
}

// TransferCertificate handles POST /certificates/:id/transfer. Owner-gated.
func (h *RegistryHandlers) TransferCertificate(c *gin.Context) {
	callerAddr, ok := caller(c)
	if !ok {
		return
	}

	tokenID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid token id"})
		return
	}

	var req struct {
		To string `json:"to" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if !common.IsHexAddress(req.To) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipient address"})
		return
	}

	if err := h.factory.TransferCertificate(c.Request.Context(), callerAddr, common.HexToAddress(req.To), tokenID); err != nil {
		abortContractErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token_id": tokenID, "owner": common.HexToAddress(req.To)})
}

// SetBaseURI handles PUT /certificates/base-uri. Admin-gated.
func (h *RegistryHandlers) SetBaseURI(c *gin.Context) {
	callerAddr, ok := caller(c)
	if !ok {
		return
	}

	var req struct {
		BaseURI string `json:"base_uri" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.factory.SetBaseURI(c.Request.Context(), callerAddr, req.BaseURI); err != nil {
		abortContractErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"base_uri": req.BaseURI})
}

// TokenURI handles GET /certificates/:id/uri.
func (h *RegistryHandlers) TokenURI(c *gin.Context) {
	tokenID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid token id"})
		return
	}

	uri, err := h.factory.TokenURI(tokenID)
	if err != nil {
		abortContractErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token_id": tokenID, "token_uri": uri})
}

// OwnerOf handles GET /certificates/:id/owner.
func (h *RegistryHandlers) OwnerOf(c *gin.Context) {
	tokenID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid token id"})
		return
	}

	owner, err := h.factory.OwnerOf(tokenID)
	if err != nil {
		abortContractErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token_id": tokenID, "owner": owner})
}

// TotalSupply handles GET /certificates/supply.
func (h *RegistryHandlers) TotalSupply(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"total_supply": h.factory.TotalSupply()})
}

// BalanceOf handles GET /certificates/balance/:address.
func (h *RegistryHandlers) BalanceOf(c *gin.Context) {
	raw := c.Param("address")
	if !common.IsHexAddress(raw) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wallet address"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"balance": h.factory.BalanceOf(common.HexToAddress(raw))})
}
