package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/ardev/dealflow-be/internal/config"
)

// Plan is a purchasable variant enriched with its product details and a
// constructed checkout URL.
type Plan struct {
	ID             string         `json:"id"`
	Type           string         `json:"type"`
	Attributes     map[string]any `json:"attributes"`
	ProductDetails map[string]any `json:"product_details,omitempty"`
	CheckoutURL    string         `json:"checkout_url"`
}

type apiResource struct {
	Type          string         `json:"type"`
	ID            string         `json:"id"`
	Attributes    map[string]any `json:"attributes"`
	Relationships struct {
		Product struct {
			Data struct {
				ID string `json:"id"`
			} `json:"data"`
		} `json:"product"`
	} `json:"relationships"`
}

type variantResponse struct {
	Data     apiResource   `json:"data"`
	Included []apiResource `json:"included"`
}

// PlanService lists the configured plan variants from the billing provider's
// REST API.
type PlanService struct {
	apiKey    string
	apiBase   string
	subdomain string
	variants  []config.PlanVariant
	client    *http.Client
}

// NewPlanService constructs the service. A nil client uses http.DefaultClient.
func NewPlanService(cfg config.Config, client *http.Client) *PlanService {
	if client == nil {
		client = http.DefaultClient
	}
	return &PlanService{
		apiKey:    cfg.BillingAPIKey,
		apiBase:   cfg.BillingAPIBase,
		subdomain: cfg.BillingStoreSubdomain,
		variants:  cfg.PlanVariants,
		client:    client,
	}
}

// ListPlans fetches each configured variant plus its related product. Variants
// that fail to fetch are skipped rather than failing the whole listing.
func (s *PlanService) ListPlans(ctx context.Context) ([]Plan, error) {
	if s.apiKey == "" {
		return nil, errors.New("billing API key not configured")
	}

	plans := make([]Plan, 0, len(s.variants))
	for _, variant := range s.variants {
		plan, err := s.fetchVariant(ctx, variant)
		if err != nil {
			log.Printf("billing: fetching variant %s failed: %v", variant.VariantID, err)
			continue
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

func (s *PlanService) fetchVariant(ctx context.Context, variant config.PlanVariant) (Plan, error) {
	url := fmt.Sprintf("%s/variants/%s?include=product", s.apiBase, variant.VariantID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Plan{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept", "application/vnd.api+json")
	req.Header.Set("Content-Type", "application/vnd.api+json")

	resp, err := s.client.Do(req)
	if err != nil {
		return Plan{}, fmt.Errorf("fetch variant: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Plan{}, fmt.Errorf("variant fetch returned status %d", resp.StatusCode)
	}

	var body variantResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Plan{}, fmt.Errorf("decode variant: %w", err)
	}

	plan := Plan{
		ID:          body.Data.ID,
		Type:        body.Data.Type,
		Attributes:  body.Data.Attributes,
		CheckoutURL: fmt.Sprintf("https://%s.lemonsqueezy.com/buy/%s", s.subdomain, variant.CheckoutPath),
	}

	productID := body.Data.Relationships.Product.Data.ID
	for _, included := range body.Included {
		if included.Type == "products" && included.ID == productID {
			plan.ProductDetails = included.Attributes
			break
		}
	}
	return plan, nil
}
