// Package main provides a CLI tool for generating test tokens for the Atrium
// API. These tokens use the dev signing key and will NOT work in production.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	identitymodels "atrium/internal/identity/models"
	"atrium/internal/identity/token"
)

const (
	// Dev signing key, matching config.go when JWT_SIGNING_KEY is not set.
	devSigningKey = "dev-secret-key-change-in-production"

	defaultIssuer   = "atrium"
	defaultAudience = "atrium"
	defaultTokenTTL = 24 * time.Hour
)

type tokenOutput struct {
	Token     string            `json:"token"`
	Type      string            `json:"type"`
	ExpiresIn string            `json:"expires_in"`
	Usage     map[string]string `json:"usage"`
}

func main() {
	userID := flag.Int64("user-id", 41, "User ID embedded in the token")
	userName := flag.String("user-name", "jdoe", "User name claim")
	companyID := flag.Int64("company-id", 7, "Primary company id (0 omits the claim)")
	companies := flag.String("companies", "7:Acme", "Comma-separated id:name company grants")
	roles := flag.String("roles", "Operator", "Comma-separated role names")
	system := flag.Bool("system", false, "Mark the roles as system roles")
	permissions := flag.String("permissions", "orders.read", "Comma-separated permission names")
	ttl := flag.Duration("ttl", defaultTokenTTL, "Token time-to-live")
	signingKey := flag.String("signing-key", devSigningKey, "HS256 signing key")
	asJSON := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	issuer, err := token.New(*signingKey, defaultIssuer, defaultAudience, *ttl)
	if err != nil {
		fatal("init issuer: %v", err)
	}

	user := &identitymodels.User{ID: *userID, UserName: *userName, Active: true}

	var roleList []identitymodels.Role
	for i, name := range splitNonEmpty(*roles) {
		roleList = append(roleList, identitymodels.Role{ID: int64(i + 1), Name: name, System: *system})
	}

	var memberships []identitymodels.CompanyMembership
	for _, pair := range splitNonEmpty(*companies) {
		var id int64
		var name string
		if _, err := fmt.Sscanf(pair, "%d:%s", &id, &name); err != nil {
			fatal("invalid company grant %q, want id:name", pair)
		}
		memberships = append(memberships, identitymodels.CompanyMembership{
			CompanyID: id, CompanyName: name, Active: true,
		})
	}

	signed, _, err := issuer.Issue(context.Background(), user, roleList,
		splitNonEmpty(*permissions), memberships, *companyID)
	if err != nil {
		fatal("issue token: %v", err)
	}

	if *asJSON {
		out := tokenOutput{
			Token:     signed,
			Type:      "Bearer",
			ExpiresIn: ttl.String(),
			Usage: map[string]string{
				"curl": fmt.Sprintf(`curl -H "Authorization: Bearer %s" http://localhost:8080/auth/profile`, signed),
			},
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fatal("encode output: %v", err)
		}
		return
	}
	fmt.Println(signed)
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
