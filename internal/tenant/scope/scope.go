// Package scope holds the current tenant for the lifetime of one request.
// The descriptor rides on the request context and nowhere else: binding it to
// any longer-lived structure (a service field, a package variable) would let
// concurrent requests observe each other's tenant.
package scope

import (
	"context"

	"atrium/internal/tenant/models"
)

type ctxKey struct{}

// WithCurrent returns a child context carrying the resolved descriptor.
func WithCurrent(ctx context.Context, d *models.Descriptor) context.Context {
	return context.WithValue(ctx, ctxKey{}, d)
}

// Current returns the descriptor bound to this request, if any.
func Current(ctx context.Context) (*models.Descriptor, bool) {
	d, ok := ctx.Value(ctxKey{}).(*models.Descriptor)
	if !ok || d == nil {
		return nil, false
	}
	return d, true
}

// CompanyID returns the bound company id, if a tenant is bound.
func CompanyID(ctx context.Context) (int64, bool) {
	d, ok := Current(ctx)
	if !ok {
		return 0, false
	}
	return d.CompanyID, true
}
