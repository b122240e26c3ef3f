package httptransport

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"atrium/internal/sentinel"
	"atrium/internal/tenant/datactx"
	"atrium/internal/tenant/directory"
	"atrium/internal/tenant/resolver"
	"atrium/internal/tenant/scope"
	jsonutil "atrium/internal/transport/http/json"
	"atrium/internal/transport/http/shared"
	domainerrors "atrium/pkg/domain-errors"
)

// TenantHandler serves company administration and tenant store health.
type TenantHandler struct {
	directory directory.Directory
	admin     directory.Admin
	resolver  *resolver.Resolver
	factory   *datactx.Factory
}

// NewTenantHandler creates a TenantHandler.
func NewTenantHandler(dir directory.Directory, admin directory.Admin, res *resolver.Resolver, factory *datactx.Factory) *TenantHandler {
	return &TenantHandler{directory: dir, admin: admin, resolver: res, factory: factory}
}

type companyView struct {
	CompanyID   int64  `json:"company_id"`
	CompanyName string `json:"company_name"`
	StoreName   string `json:"store_name,omitempty"`
	Store       string `json:"store,omitempty"`
	Active      bool   `json:"active"`
}

func (h *TenantHandler) handleGetCompany(w http.ResponseWriter, r *http.Request) {
	companyID, ok := companyIDParam(w, r)
	if !ok {
		return
	}

	d, err := h.directory.Lookup(r.Context(), companyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			shared.WriteError(w, r, domainerrors.New(domainerrors.CodeTenantNotFound,
				fmt.Sprintf("company %d does not exist", companyID)))
			return
		}
		shared.WriteError(w, r, domainerrors.Wrap(err, domainerrors.CodeStoreUnreachable,
			"tenant directory lookup failed"))
		return
	}

	jsonutil.WriteJSON(w, http.StatusOK, companyView{
		CompanyID:   d.CompanyID,
		CompanyName: d.CompanyName,
		StoreName:   d.StoreName,
		Store:       d.RedactedDSN(),
		Active:      d.Active,
	})
}

func (h *TenantHandler) handleActivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *TenantHandler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

// setActive flips the directory flag and evicts the cached descriptor so the
// change takes effect on the next request, not after a TTL.
func (h *TenantHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	companyID, ok := companyIDParam(w, r)
	if !ok {
		return
	}

	if err := h.admin.SetActive(r.Context(), companyID, active); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			shared.WriteError(w, r, domainerrors.New(domainerrors.CodeTenantNotFound,
				fmt.Sprintf("company %d does not exist", companyID)))
			return
		}
		shared.WriteError(w, r, domainerrors.Wrap(err, domainerrors.CodeStoreUnreachable,
			"tenant directory update failed"))
		return
	}
	h.resolver.Invalidate(r.Context(), companyID)

	jsonutil.WriteJSON(w, http.StatusOK, map[string]any{
		"company_id": companyID,
		"active":     active,
	})
}

// handleStoreHealth probes the bound tenant's store. It exercises the same
// connect-and-probe path request handlers use, so a green answer means real
// queries will reach this tenant's database.
func (h *TenantHandler) handleStoreHealth(w http.ResponseWriter, r *http.Request) {
	handle, err := h.factory.OpenCurrent(r.Context())
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}

	companyID, _ := scope.CompanyID(r.Context())
	jsonutil.WriteJSON(w, http.StatusOK, map[string]any{
		"company_id": companyID,
		"store":      "ok",
		"open_conns": handle.DB().Stats().OpenConnections,
	})
}

func companyIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	companyID, err := strconv.ParseInt(chi.URLParam(r, "companyID"), 10, 64)
	if err != nil || companyID <= 0 {
		shared.WriteError(w, r, domainerrors.New(domainerrors.CodeInvalidInput, "invalid company id"))
		return 0, false
	}
	return companyID, true
}
