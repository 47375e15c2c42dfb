package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/DukeRupert/nexleads/internal/billing"
	"github.com/DukeRupert/nexleads/internal/domain"
	"github.com/DukeRupert/nexleads/internal/service"
)

// BillingHandler starts Stripe Checkout and Customer Portal sessions.
//
// Routes handled:
//   - POST /user/billing/checkout  -> CreateCheckout
//   - POST /user/billing/portal    -> OpenPortal
//
// The plan change itself is applied by the Stripe webhook.
type BillingHandler struct {
	billing     billing.Service
	userService service.UserService
	frontendURL string
	logger      *slog.Logger
}

// NewBillingHandler creates a new BillingHandler.
// billingService may be nil when Stripe is not configured (development mode).
func NewBillingHandler(billingService billing.Service, userService service.UserService, frontendURL string, logger *slog.Logger) *BillingHandler {
	return &BillingHandler{
		billing:     billingService,
		userService: userService,
		frontendURL: strings.TrimSuffix(frontendURL, "/"),
		logger:      logger,
	}
}

// RegisterRoutes registers billing routes on the provided mux.
func (h *BillingHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("POST /user/billing/checkout", requireUser(http.HandlerFunc(h.CreateCheckout)))
	mux.Handle("POST /user/billing/portal", requireUser(http.HandlerFunc(h.OpenPortal)))
}

type checkoutRequest struct {
	Plan domain.PlanID `json:"plan" validate:"required,oneof=pro platinum"`
}

type redirectResponse struct {
	URL string `json:"url"`
}

func (h *BillingHandler) notConfigured(w http.ResponseWriter, r *http.Request, op string) {
	ErrorResponse(w, r, h.logger, domain.Errorf(domain.ENOTIMPL, op, "Billing is not configured"))
}

// CreateCheckout returns a Stripe Checkout URL for a paid plan. A Stripe
// customer is created on first use.
func (h *BillingHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	const op = "billing.checkout"

	if h.billing == nil {
		h.notConfigured(w, r, op)
		return
	}

	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}

	var req checkoutRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	customerID := user.StripeCustomerID
	if customerID == "" {
		id, err := h.billing.CreateCustomer(user.Email, user.Name)
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.Wrap(err, domain.EPAYMENT, op, "Could not start checkout"))
			return
		}
		if err := h.userService.UpdateStripeCustomer(r.Context(), user.ID, id); err != nil {
			ErrorResponse(w, r, h.logger, err)
			return
		}
		customerID = id
	}

	url, err := h.billing.CreateCheckoutSession(billing.CheckoutParams{
		CustomerID: customerID,
		UserID:     user.ID.String(),
		Plan:       req.Plan,
		SuccessURL: h.frontendURL + "/subscription?status=success",
		CancelURL:  h.frontendURL + "/subscription?status=cancelled",
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Wrap(err, domain.EPAYMENT, op, "Could not start checkout"))
		return
	}

	h.logger.Info("checkout session created", "user_id", user.ID, "plan", req.Plan)
	writeJSON(w, http.StatusOK, redirectResponse{URL: url})
}

// OpenPortal returns a Stripe Customer Portal URL.
func (h *BillingHandler) OpenPortal(w http.ResponseWriter, r *http.Request) {
	const op = "billing.portal"

	if h.billing == nil {
		h.notConfigured(w, r, op)
		return
	}

	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}

	if user.StripeCustomerID == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "No billing account found. Subscribe to a paid plan first."))
		return
	}

	url, err := h.billing.CreatePortalSession(user.StripeCustomerID, h.frontendURL+"/subscription")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Wrap(err, domain.EPAYMENT, op, "Could not open billing portal"))
		return
	}

	writeJSON(w, http.StatusOK, redirectResponse{URL: url})
}
