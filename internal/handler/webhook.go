package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/DukeRupert/nexleads/internal/billing"
	"github.com/DukeRupert/nexleads/internal/domain"
	"github.com/DukeRupert/nexleads/internal/service"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
)

// MaxWebhookBodySize limits Stripe webhook payloads.
const MaxWebhookBodySize = 64 << 10

// errSkipEvent marks an event that was understood but does not apply to any
// account. It is acknowledged with 200.
var errSkipEvent = errors.New("webhook event skipped")

// WebhookHandler turns Stripe billing events into plan transitions.
//
// Route:
//   - POST /webhooks/stripe -> HandleStripeWebhook
//
// This route is PUBLIC (no auth middleware) because Stripe calls it directly.
// Authentication is via the Stripe webhook signature verification.
type WebhookHandler struct {
	billing     billing.Service
	userService service.UserService
	quota       service.QuotaService
	logger      *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
// billingService may be nil when Stripe is not configured.
func NewWebhookHandler(billingService billing.Service, userService service.UserService, quota service.QuotaService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		billing:     billingService,
		userService: userService,
		quota:       quota,
		logger:      logger,
	}
}

// RegisterRoutes registers webhook routes on the provided mux.
func (h *WebhookHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /webhooks/stripe", h.HandleStripeWebhook)
}

// HandleStripeWebhook verifies and dispatches one Stripe event. A failed plan
// transition answers 500 so Stripe retries the delivery.
func (h *WebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	if h.billing == nil {
		h.logger.Warn("stripe webhook received but billing is not configured")
		w.WriteHeader(http.StatusOK)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxWebhookBodySize))
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	event, err := h.billing.VerifyWebhookSignature(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.logger.Warn("webhook signature verification failed", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.logger.Info("stripe webhook received", "type", event.Type, "id", event.ID)

	switch event.Type {
	case "checkout.session.completed":
		err = h.handleCheckoutCompleted(r.Context(), event)
	case "invoice.payment_succeeded":
		err = h.handlePaymentSucceeded(r.Context(), event)
	case "customer.subscription.deleted":
		err = h.handleSubscriptionDeleted(r.Context(), event)
	default:
		h.logger.Debug("unhandled webhook event type", "type", event.Type)
	}

	switch {
	case err == nil, errors.Is(err, errSkipEvent):
		w.WriteHeader(http.StatusOK)
	default:
		h.logger.Error("failed to process webhook event", "type", event.Type, "id", event.ID, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (h *WebhookHandler) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		h.logger.Error("failed to parse checkout session", "error", err)
		return errSkipEvent
	}

	plan := domain.PlanID(session.Metadata[billing.MetadataPlanKey])
	if !plan.IsValid() {
		h.logger.Warn("checkout session without a valid plan", "session_id", session.ID, "plan", plan)
		return errSkipEvent
	}

	userID, err := h.checkoutUser(ctx, session)
	if err != nil {
		if !skippableLookup(err) {
			return err
		}
		h.logger.Warn("checkout session for unknown user", "session_id", session.ID, "error", err)
		return errSkipEvent
	}

	return h.transition(ctx, userID, plan, session.ID)
}

// checkoutUser resolves the account from the client reference, falling back
// to the Stripe customer.
func (h *WebhookHandler) checkoutUser(ctx context.Context, session stripe.CheckoutSession) (uuid.UUID, error) {
	if id, err := uuid.Parse(session.ClientReferenceID); err == nil {
		return id, nil
	}
	if session.Customer == nil {
		return uuid.Nil, domain.Errorf(domain.ENOTFOUND, "webhook.checkout_user", "Session has no client reference or customer")
	}
	user, err := h.userService.GetByStripeCustomerID(ctx, session.Customer.ID)
	if err != nil {
		return uuid.Nil, err
	}
	return user.ID, nil
}

// handlePaymentSucceeded starts a new paid cycle on renewal invoices. The
// first invoice of a subscription is covered by checkout.session.completed.
func (h *WebhookHandler) handlePaymentSucceeded(ctx context.Context, event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		h.logger.Error("failed to parse invoice payment succeeded event", "error", err)
		return errSkipEvent
	}

	if invoice.BillingReason != stripe.InvoiceBillingReasonSubscriptionCycle || invoice.Customer == nil {
		return errSkipEvent
	}

	var plan domain.PlanID
	if invoice.Lines != nil {
		for _, line := range invoice.Lines.Data {
			if line.Price != nil {
				if plan = h.billing.PlanForPriceID(line.Price.ID); plan != "" {
					break
				}
			}
		}
	}
	if plan == "" {
		h.logger.Warn("renewal invoice without a known price", "invoice_id", invoice.ID)
		return errSkipEvent
	}

	user, err := h.userService.GetByStripeCustomerID(ctx, invoice.Customer.ID)
	if err != nil {
		if !skippableLookup(err) {
			return err
		}
		h.logger.Debug("user not found for payment succeeded", "customer_id", invoice.Customer.ID)
		return errSkipEvent
	}

	return h.transition(ctx, user.ID, plan, invoice.ID)
}

// handleSubscriptionDeleted returns the account to the free plan.
func (h *WebhookHandler) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		h.logger.Error("failed to parse subscription deleted event", "error", err)
		return errSkipEvent
	}

	if sub.Customer == nil {
		h.logger.Warn("subscription deleted event missing customer", "subscription_id", sub.ID)
		return errSkipEvent
	}

	user, err := h.userService.GetByStripeCustomerID(ctx, sub.Customer.ID)
	if err != nil {
		if !skippableLookup(err) {
			return err
		}
		h.logger.Warn("user not found for subscription deletion", "customer_id", sub.Customer.ID)
		return errSkipEvent
	}

	return h.transition(ctx, user.ID, domain.PlanFree, sub.ID)
}

func (h *WebhookHandler) transition(ctx context.Context, userID uuid.UUID, plan domain.PlanID, transactionID string) error {
	record, err := h.quota.ApplyTransition(ctx, domain.TransitionParams{
		UserID:        userID,
		PlanID:        plan,
		PaymentMethod: domain.PaymentMethodStripe,
		TransactionID: transactionID,
	})
	if err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			return errSkipEvent
		}
		return err
	}

	h.logger.Info("plan transition applied", "user_id", userID, "plan", record.Plan, "transaction_id", transactionID)
	return nil
}

// skippableLookup reports whether a failed account lookup means the event
// belongs to no account. Any other failure is returned so Stripe retries.
func skippableLookup(err error) bool {
	return domain.ErrorCode(err) == domain.ENOTFOUND
}
