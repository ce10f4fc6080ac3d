package config

import (
	"os"
	"strings"
)

// CostTrackingEnabled controls whether order completion posts a COGS journal
// alongside the revenue journal. Defaults to on.
//
// Set via env:
// - COST_TRACKING_ENABLED=false
func CostTrackingEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("COST_TRACKING_ENABLED")))
	if v == "" {
		return true
	}
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// StrictDocImmutability enables fintech-grade guardrails: inventory-affecting
// documents cannot be edited once they have posted movements; they must be
// voided and recreated.
//
// Set via env:
// - STRICT_INVENTORY_DOC_IMMUTABLE=true
func StrictDocImmutability() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("STRICT_INVENTORY_DOC_IMMUTABLE")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
