package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"atrium/internal/identity/models"
	"atrium/internal/identity/service"
	platformmw "atrium/internal/platform/middleware"
	jsonutil "atrium/internal/transport/http/json"
	"atrium/internal/transport/http/shared"
	domainerrors "atrium/pkg/domain-errors"
)

// AuthService is the identity surface the transport depends on.
type AuthService interface {
	Login(ctx context.Context, req service.LoginRequest) (*service.LoginResult, error)
	Refresh(ctx context.Context, tokenString string) (*service.LoginResult, error)
	Profile(ctx context.Context, userID int64) (*models.User, []models.CompanyMembership, error)
}

// AuthHandler serves login, refresh, and profile endpoints.
type AuthHandler struct {
	auth AuthService
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(auth AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type loginRequest struct {
	UserName  string `json:"user_name"`
	Password  string `json:"password"`
	CompanyID int64  `json:"company_id,omitempty"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	CompanyID   int64     `json:"company_id,omitempty"`
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, r, domainerrors.New(domainerrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if req.UserName == "" || req.Password == "" {
		shared.WriteError(w, r, domainerrors.New(domainerrors.CodeInvalidInput, "user_name and password are required"))
		return
	}

	result, err := h.auth.Login(r.Context(), service.LoginRequest{
		UserName:  req.UserName,
		Password:  req.Password,
		CompanyID: req.CompanyID,
		UserAgent: r.UserAgent(),
		RemoteIP:  r.RemoteAddr,
	})
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	writeToken(w, result)
}

func (h *AuthHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		shared.WriteError(w, r, domainerrors.New(domainerrors.CodeUnauthorized, "bearer token required"))
		return
	}
	result, err := h.auth.Refresh(r.Context(), token)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	writeToken(w, result)
}

type profileResponse struct {
	UserID      int64             `json:"user_id"`
	UserName    string            `json:"user_name"`
	FullName    string            `json:"full_name"`
	LastLoginAt *time.Time        `json:"last_login_at,omitempty"`
	Companies   []companyResponse `json:"companies"`
}

type companyResponse struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Default bool   `json:"default,omitempty"`
	Active  bool   `json:"active"`
}

func (h *AuthHandler) handleProfile(w http.ResponseWriter, r *http.Request) {
	c, ok := platformmw.ClaimsFrom(r.Context())
	if !ok {
		shared.WriteError(w, r, domainerrors.New(domainerrors.CodeUnauthorized, "authentication required"))
		return
	}

	user, memberships, err := h.auth.Profile(r.Context(), c.UserID)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}

	companies := make([]companyResponse, 0, len(memberships))
	for _, m := range memberships {
		companies = append(companies, companyResponse{
			ID: m.CompanyID, Name: m.CompanyName, Default: m.Default, Active: m.Active,
		})
	}
	jsonutil.WriteJSON(w, http.StatusOK, profileResponse{
		UserID:      user.ID,
		UserName:    user.UserName,
		FullName:    user.FullName(),
		LastLoginAt: user.LastLoginAt,
		Companies:   companies,
	})
}

// handleValidateCompanyAccess answers whether the caller's token grants
// access to the queried company. Decided from claims alone.
func (h *AuthHandler) handleValidateCompanyAccess(w http.ResponseWriter, r *http.Request) {
	c, ok := platformmw.ClaimsFrom(r.Context())
	if !ok {
		shared.WriteError(w, r, domainerrors.New(domainerrors.CodeUnauthorized, "authentication required"))
		return
	}

	companyID, err := strconv.ParseInt(r.URL.Query().Get("company_id"), 10, 64)
	if err != nil || companyID <= 0 {
		shared.WriteError(w, r, domainerrors.New(domainerrors.CodeInvalidInput, "company_id query parameter is required"))
		return
	}

	jsonutil.WriteJSON(w, http.StatusOK, map[string]any{
		"company_id": companyID,
		"has_access": c.CanAccessCompany(companyID),
	})
}

func writeToken(w http.ResponseWriter, result *service.LoginResult) {
	resp := tokenResponse{
		AccessToken: result.Token,
		TokenType:   "Bearer",
		ExpiresAt:   result.ExpiresAt,
	}
	if id, ok := result.Claims.CompanyID(); ok {
		resp.CompanyID = id
	}
	jsonutil.WriteJSON(w, http.StatusOK, resp)
}

func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) <= len(prefix) || auth[:len(prefix)] != prefix {
		return "", false
	}
	return auth[len(prefix):], true
}
