package handlers

import (
	"log"
	"net/http"

	"github.com/ardev/dealflow-be/internal/billing"
	"github.com/ardev/dealflow-be/internal/http/respond"
)

// PlansHandler serves the enriched plan listing from the billing provider.
type PlansHandler struct {
	plans *billing.PlanService
}

// NewPlansHandler constructs the handler.
func NewPlansHandler(plans *billing.PlanService) *PlansHandler {
	return &PlansHandler{plans: plans}
}

// Register attaches the plans route to the mux.
func (h *PlansHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/plans", h.handle)
}

func (h *PlansHandler) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	plans, err := h.plans.ListPlans(r.Context())
	if err != nil {
		log.Printf("list plans error: %v", err)
		respond.Error(w, http.StatusInternalServerError, "failed to list plans")
		return
	}
	respond.JSON(w, http.StatusOK, "available plans", plans)
}
