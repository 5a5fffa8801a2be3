// Package billing integrates the payment provider: verifying and applying its
// signed webhooks, and listing purchasable plans from its REST API.
package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/ardev/dealflow-be/internal/http/respond"
	"github.com/ardev/dealflow-be/internal/models"
	"github.com/ardev/dealflow-be/internal/storage"
)

// Webhook event names the handler acts on.
const (
	eventSubscriptionCreated   = "subscription_created"
	eventSubscriptionUpdated   = "subscription_updated"
	eventSubscriptionCancelled = "subscription_cancelled"
)

// signatureHeader carries the provider's HMAC-SHA256 hex digest of the raw body.
const signatureHeader = "X-Signature"

type webhookAttributes struct {
	OrderID     int64      `json:"order_id"`
	ProductID   int64      `json:"product_id"`
	VariantID   int64      `json:"variant_id"`
	ProductName string     `json:"product_name"`
	VariantName string     `json:"variant_name"`
	Status      string     `json:"status"`
	RenewsAt    *time.Time `json:"renews_at"`
	EndsAt      *time.Time `json:"ends_at"`
	TrialEndsAt *time.Time `json:"trial_ends_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

type webhookEnvelope struct {
	Meta struct {
		EventName  string `json:"event_name"`
		CustomData *struct {
			UserID string `json:"user_id"`
		} `json:"custom_data"`
	} `json:"meta"`
	Data struct {
		Type       string            `json:"type"`
		ID         string            `json:"id"`
		Attributes webhookAttributes `json:"attributes"`
	} `json:"data"`
}

// WebhookHandler receives signed subscription events from the billing provider
// and mirrors them into the subscription store.
type WebhookHandler struct {
	secret []byte
	subs   storage.SubscriptionStore
}

// NewWebhookHandler constructs the handler with the shared webhook secret.
func NewWebhookHandler(secret string, subs storage.SubscriptionStore) *WebhookHandler {
	return &WebhookHandler{secret: []byte(secret), subs: subs}
}

// Register attaches the webhook route to the mux.
func (h *WebhookHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/webhooks/billing", h.handle)
}

func (h *WebhookHandler) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if len(h.secret) == 0 {
		log.Printf("billing: webhook secret not configured")
		respond.Error(w, http.StatusInternalServerError, "webhook secret not configured")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "unable to read body")
		return
	}

	signature := r.Header.Get(signatureHeader)
	if signature == "" {
		log.Printf("billing: webhook received without %s header", signatureHeader)
		respond.Error(w, http.StatusBadRequest, "signature missing")
		return
	}
	if !h.verifySignature(body, signature) {
		log.Printf("billing: invalid webhook signature")
		respond.Error(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var payload webhookEnvelope
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Printf("billing: failed to parse webhook payload: %v", err)
		respond.Error(w, http.StatusBadRequest, "invalid payload")
		return
	}

	if payload.Meta.CustomData == nil || payload.Meta.CustomData.UserID == "" {
		log.Printf("billing: webhook %s without user_id in custom_data", payload.Meta.EventName)
		respond.Error(w, http.StatusBadRequest, "user_id missing in custom_data")
		return
	}

	if err := h.apply(r, payload); err != nil {
		log.Printf("billing: webhook %s for subscription %s failed: %v",
			payload.Meta.EventName, payload.Data.ID, err)
		respond.Error(w, http.StatusInternalServerError, "webhook processing error")
		return
	}

	respond.JSON(w, http.StatusOK, "webhook processed", nil)
}

func (h *WebhookHandler) apply(r *http.Request, payload webhookEnvelope) error {
	eventName := payload.Meta.EventName
	userID := payload.Meta.CustomData.UserID
	attrs := payload.Data.Attributes

	switch eventName {
	case eventSubscriptionCreated, eventSubscriptionUpdated:
		sub := models.Subscription{
			UserID:                 userID,
			ProviderSubscriptionID: payload.Data.ID,
			ProviderOrderID:        fmt.Sprintf("%d", attrs.OrderID),
			ProviderProductID:      fmt.Sprintf("%d", attrs.ProductID),
			ProviderVariantID:      fmt.Sprintf("%d", attrs.VariantID),
			Status:                 attrs.Status,
			ProductName:            attrs.ProductName,
			VariantName:            attrs.VariantName,
			RenewsAt:               attrs.RenewsAt,
			EndsAt:                 attrs.EndsAt,
			TrialEndsAt:            attrs.TrialEndsAt,
		}
		if eventName == eventSubscriptionCreated {
			sub.CreatedAt = attrs.CreatedAt
		}
		if err := h.subs.Upsert(r.Context(), sub); err != nil {
			return err
		}
		log.Printf("billing: subscription %s %s for user %s", payload.Data.ID, eventName, userID)
		return nil

	case eventSubscriptionCancelled:
		if err := h.subs.MarkCancelled(r.Context(), payload.Data.ID, attrs.Status, attrs.EndsAt); err != nil {
			return err
		}
		log.Printf("billing: subscription %s cancelled for user %s", payload.Data.ID, userID)
		return nil

	default:
		log.Printf("billing: unhandled webhook event %q", eventName)
		return nil
	}
}

// verifySignature computes HMAC-SHA256 over the raw body and compares the hex
// digest against the header value in constant time.
func (h *WebhookHandler) verifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	digest := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(digest), []byte(signature))
}
