package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"social-gateway/domain/model"
	"social-gateway/interfaces/middleware"
	"social-gateway/usecase"
)

type IAuthHandler interface {
	Handshake(c *gin.Context)
	Inspect(c *gin.Context)
	Callback(c *gin.Context)
	Revoke(c *gin.Context)
}

type AuthHandler struct {
	authUsecase usecase.IAuthUsecase
}

func NewAuthHandler(authUsecase usecase.IAuthUsecase) IAuthHandler {
	return &AuthHandler{authUsecase: authUsecase}
}

// Handshake serves both legs of /auth. The presence of callback parameters
// (code for OAuth2, oauth_verifier for OAuth1) distinguishes the finish leg
// from the start leg.
func (h *AuthHandler) Handshake(c *gin.Context) {
	client := middleware.ClientName(c)
	service := c.Query("service")
	if service == "" {
		badRequest(c, "Missing service")
		return
	}
	params := c.Request.URL.Query()

	if params.Get("code") == "" && params.Get("oauth_verifier") == "" {
		redirect, err := h.authUsecase.Start(c.Request.Context(), client, service)
		if err != nil {
			renderError(c, err)
			return
		}
		c.Redirect(http.StatusFound, redirect)
		return
	}

	guid, isNew, err := h.authUsecase.Finish(c.Request.Context(), client, service, params)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"guid": guid, "is_new": isNew})
}

// Callback finishes the handshake for providers that POST the callback to
// /auth/{service} instead of redirecting the user's browser.
func (h *AuthHandler) Callback(c *gin.Context) {
	client := middleware.ClientName(c)
	service := c.Param("tail")
	if err := c.Request.ParseForm(); err != nil {
		badRequest(c, "Malformed form body")
		return
	}
	params := c.Request.URL.Query()
	for k, vs := range c.Request.PostForm {
		for _, v := range vs {
			params.Add(k, v)
		}
	}

	guid, isNew, err := h.authUsecase.Finish(c.Request.Context(), client, service, params)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"guid": guid, "is_new": isNew})
}

func (h *AuthHandler) Inspect(c *gin.Context) {
	client := middleware.ClientName(c)
	authz, err := h.authUsecase.Inspect(c.Request.Context(), client, c.Param("tail"))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, inspectBody(authz))
}

func (h *AuthHandler) Revoke(c *gin.Context) {
	client := middleware.ClientName(c)
	if err := h.authUsecase.Revoke(c.Request.Context(), client, c.Param("tail")); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": "Revocation successful"})
}

// inspectBody keeps token material off the wire.
func inspectBody(authz *model.Authorization) gin.H {
	body := gin.H{
		"guid":         authz.GUID,
		"service_name": authz.ServiceName,
		"user_id":      authz.UserID,
	}
	if authz.ExpiredOn != nil {
		body["expired_on"] = authz.ExpiredOn.Unix()
	}
	return body
}
