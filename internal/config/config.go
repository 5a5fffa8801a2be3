package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string
	JWTIssuer   string
	JWTTTL      time.Duration
	CORSOrigins []string

	// Billing provider settings.
	BillingAPIKey         string
	BillingAPIBase        string
	BillingStoreSubdomain string
	BillingWebhookSecret  string
	PlanVariants          []PlanVariant

	// Entitlement resolution.
	EntitlementFunctionURL string
	EntitlementTimeout     time.Duration
}

// PlanVariant maps a billing variant id to the path used to build its checkout URL.
type PlanVariant struct {
	VariantID    string
	CheckoutPath string
}

// Load reads configuration from the environment and performs minimal validation.
func Load() (Config, error) {
	cfg := Config{
		Port:                   fallback(os.Getenv("PORT"), "8080"),
		DatabaseURL:            strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:              strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTIssuer:              fallback(os.Getenv("JWT_ISSUER"), "dealflow-backend"),
		CORSOrigins:            parseCSV(fallback(os.Getenv("CORS_ALLOWED_ORIGINS"), "*")),
		BillingAPIKey:          strings.TrimSpace(os.Getenv("BILLING_API_KEY")),
		BillingAPIBase:         fallback(os.Getenv("BILLING_API_BASE"), "https://api.lemonsqueezy.com/v1"),
		BillingStoreSubdomain:  fallback(os.Getenv("BILLING_STORE_SUBDOMAIN"), "ardev"),
		BillingWebhookSecret:   strings.TrimSpace(os.Getenv("BILLING_WEBHOOK_SECRET")),
		EntitlementFunctionURL: strings.TrimSpace(os.Getenv("ENTITLEMENT_FUNCTION_URL")),
	}

	minutes := fallback(os.Getenv("JWT_TTL_MINUTES"), "60")
	if ttlMinutes, err := strconv.Atoi(minutes); err == nil && ttlMinutes > 0 {
		cfg.JWTTTL = time.Duration(ttlMinutes) * time.Minute
	} else {
		cfg.JWTTTL = 60 * time.Minute
	}

	seconds := fallback(os.Getenv("ENTITLEMENT_TIMEOUT_SECONDS"), "5")
	if timeoutSeconds, err := strconv.Atoi(seconds); err == nil && timeoutSeconds > 0 {
		cfg.EntitlementTimeout = time.Duration(timeoutSeconds) * time.Second
	} else {
		cfg.EntitlementTimeout = 5 * time.Second
	}

	cfg.PlanVariants = parsePlanVariants(os.Getenv("BILLING_PLAN_VARIANTS"))

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// parsePlanVariants reads "variantID:checkoutPath" pairs separated by commas,
// e.g. "560079:e761a092-...,560099:cf2a4077-...".
func parsePlanVariants(input string) []PlanVariant {
	var out []PlanVariant
	for _, part := range strings.Split(input, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		pair := strings.SplitN(trimmed, ":", 2)
		if len(pair) != 2 || strings.TrimSpace(pair[0]) == "" || strings.TrimSpace(pair[1]) == "" {
			continue
		}
		out = append(out, PlanVariant{
			VariantID:    strings.TrimSpace(pair[0]),
			CheckoutPath: strings.TrimSpace(pair[1]),
		})
	}
	return out
}
