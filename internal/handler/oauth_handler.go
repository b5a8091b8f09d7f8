package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"draftly/config"
	"draftly/internal/domain"
	"draftly/internal/models"
	"draftly/internal/repository"
	"draftly/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// OAuthHandler drives the social login flow. Providers are resolved by an
// explicit switch; only Google is wired today, Apple exists in the data model
// for accounts imported from mobile.
type OAuthHandler struct {
	cfg       *config.Config
	authSvc   *service.AuthService
	auditRepo *repository.AuditLogRepository
	log       *logrus.Logger
}

func NewOAuthHandler(cfg *config.Config, authSvc *service.AuthService, auditRepo *repository.AuditLogRepository, log *logrus.Logger) *OAuthHandler {
	return &OAuthHandler{cfg: cfg, authSvc: authSvc, auditRepo: auditRepo, log: log}
}

func (h *OAuthHandler) googleConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.cfg.OAuth.GoogleClientID,
		ClientSecret: h.cfg.OAuth.GoogleClientSecret,
		RedirectURL:  h.cfg.OAuth.GoogleRedirectURL,
		Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
		Endpoint:     google.Endpoint,
	}
}

// Authorize redirects the user to the provider's consent screen.
func (h *OAuthHandler) Authorize(c *gin.Context) {
	switch c.Param("provider") {
	case domain.ProviderGoogle:
		if h.cfg.OAuth.GoogleClientID == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google OAuth not configured"})
			return
		}
		c.Redirect(http.StatusFound, h.googleConfig().AuthCodeURL("state", oauth2.AccessTypeOffline))
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
	}
}

type googleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Callback exchanges the code, fetches the profile, and finishes login with a
// redirect to the frontend. Failures redirect with a generic error flag so
// gateway internals never reach the browser.
func (h *OAuthHandler) Callback(c *gin.Context) {
	provider := c.Param("provider")
	if provider != domain.ProviderGoogle {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		return
	}
	code := c.Query("code")
	if code == "" {
		h.redirectError(c, "oauth_failed")
		return
	}
	ctx := c.Request.Context()
	conf := h.googleConfig()
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		h.redirectError(c, "oauth_failed")
		return
	}
	resp, err := conf.Client(ctx, tok).Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil || resp.StatusCode != http.StatusOK {
		h.redirectError(c, "oauth_failed")
		return
	}
	defer resp.Body.Close()
	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		h.redirectError(c, "oauth_failed")
		return
	}
	u, access, refresh, err := h.authSvc.LoginWithProvider(provider, info.ID, info.Email, info.Name, info.Picture)
	if err != nil {
		if errors.Is(err, service.ErrAccountExists) {
			h.redirectError(c, "account_exists")
			return
		}
		h.log.WithError(err).Error("oauth login failed")
		h.redirectError(c, "oauth_failed")
		return
	}
	_ = h.auditRepo.Create(&models.AuditLog{UserID: &u.ID, Action: "oauth_login", Resource: "auth", ResourceID: provider, IP: c.ClientIP(), UserAgent: c.Request.UserAgent()})

	// Tokens travel in the fragment so they never hit server logs.
	redirect := h.cfg.Server.FrontendURL + "/auth/callback#access_token=" +
		url.QueryEscape(access) + "&refresh_token=" + url.QueryEscape(refresh)
	c.Redirect(http.StatusFound, redirect)
}

// tokeninfoResponse is the reply from https://oauth2.googleapis.com/tokeninfo?id_token=...
type tokeninfoResponse struct {
	Aud     string `json:"aud"`
	Sub     string `json:"sub"` // Google ID
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Token exchanges a provider id token for a JWT pair. Mobile clients sign in
// natively and never see the redirect flow.
func (h *OAuthHandler) Token(c *gin.Context) {
	if c.Param("provider") != domain.ProviderGoogle {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		return
	}
	if h.cfg.OAuth.GoogleClientID == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google OAuth not configured"})
		return
	}
	var req struct {
		IDToken string `json:"id_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id_token required"})
		return
	}
	resp, err := http.Get("https://oauth2.googleapis.com/tokeninfo?id_token=" + url.QueryEscape(req.IDToken))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token verification failed"})
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id_token"})
		return
	}
	var info tokeninfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid token response"})
		return
	}
	if info.Sub == "" || info.Email == "" || info.Aud != h.cfg.OAuth.GoogleClientID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token payload"})
		return
	}
	u, access, refresh, err := h.authSvc.LoginWithProvider(domain.ProviderGoogle, info.Sub, info.Email, info.Name, info.Picture)
	if err != nil {
		if errors.Is(err, service.ErrAccountExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "account exists with a different login method"})
			return
		}
		h.log.WithError(err).Error("oauth token exchange failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	_ = h.auditRepo.Create(&models.AuditLog{UserID: &u.ID, Action: "oauth_token", Resource: "auth", ResourceID: domain.ProviderGoogle, IP: c.ClientIP(), UserAgent: c.Request.UserAgent()})
	c.JSON(http.StatusOK, gin.H{"user": u, "access_token": access, "refresh_token": refresh})
}

func (h *OAuthHandler) redirectError(c *gin.Context, code string) {
	c.Redirect(http.StatusFound, h.cfg.Server.FrontendURL+"/login?error="+url.QueryEscape(code))
}
