// Package models defines the tenant domain records. A Descriptor is read-only
// within the resolution core; only tenant administration mutates directory rows.
package models

import "strings"

// Descriptor is the resolved connection metadata for one company's data store.
type Descriptor struct {
	CompanyID   int64  `json:"company_id"`
	CompanyName string `json:"company_name"`
	StoreName   string `json:"store_name"`
	// DSN opens the company's data store. Never serialized, never logged in
	// cleartext; use RedactedDSN for diagnostics.
	DSN    string `json:"-"`
	Active bool   `json:"active"`
}

// RedactedDSN returns the connection descriptor with credentials masked,
// safe for logs.
func (d *Descriptor) RedactedDSN() string {
	if i := strings.Index(d.DSN, "@"); i > 0 {
		return "***@" + d.DSN[i+1:]
	}
	if d.DSN == "" {
		return ""
	}
	return "***"
}
