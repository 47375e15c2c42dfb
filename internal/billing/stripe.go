// Package billing provides Stripe billing integration for plan purchases.
package billing

import (
	"fmt"

	"github.com/DukeRupert/nexleads/internal/domain"
	"github.com/stripe/stripe-go/v79"
	billingportalsession "github.com/stripe/stripe-go/v79/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/webhook"
)

// MetadataPlanKey is the checkout session metadata key holding the plan id.
const MetadataPlanKey = "plan"

// CheckoutParams describes a checkout session for one plan.
type CheckoutParams struct {
	CustomerID string
	UserID     string
	Plan       domain.PlanID
	SuccessURL string
	CancelURL  string
}

// Service defines the interface for billing operations.
type Service interface {
	// CreateCustomer creates a new Stripe customer for the given email.
	CreateCustomer(email, name string) (string, error)

	// CreateCheckoutSession creates a Stripe Checkout session for a paid plan.
	// Returns the checkout URL to redirect the user to.
	CreateCheckoutSession(params CheckoutParams) (string, error)

	// CreatePortalSession creates a Stripe Customer Portal session.
	// Returns the portal URL to redirect the user to.
	CreatePortalSession(customerID, returnURL string) (string, error)

	// VerifyWebhookSignature verifies the Stripe webhook signature and returns the event.
	VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error)

	// PlanForPriceID returns the plan sold at a Stripe price, or "" if none.
	PlanForPriceID(priceID string) domain.PlanID

	// PriceIDForPlan returns the Stripe price of a paid plan, or "" if none.
	PriceIDForPlan(plan domain.PlanID) string
}

// PriceConfig holds the Stripe price IDs for each paid plan.
type PriceConfig struct {
	ProPriceID      string
	PlatinumPriceID string
}

// stripeService is the concrete implementation of Service.
type stripeService struct {
	webhookSecret string
	planToPrice   map[domain.PlanID]string
	priceToPlan   map[string]domain.PlanID
}

// NewStripeService creates a new Stripe billing service.
//
// The secretKey is used to authenticate Stripe API calls.
// The webhookSecret is used to verify incoming webhook signatures.
func NewStripeService(secretKey, webhookSecret string, prices PriceConfig) Service {
	stripe.Key = secretKey

	s := &stripeService{
		webhookSecret: webhookSecret,
		planToPrice:   make(map[domain.PlanID]string),
		priceToPlan:   make(map[string]domain.PlanID),
	}
	s.addPrice(domain.PlanPro, prices.ProPriceID)
	s.addPrice(domain.PlanPlatinum, prices.PlatinumPriceID)
	return s
}

func (s *stripeService) addPrice(plan domain.PlanID, priceID string) {
	if priceID == "" {
		return
	}
	s.planToPrice[plan] = priceID
	s.priceToPlan[priceID] = plan
}

func (s *stripeService) CreateCustomer(email, name string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	c, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe create customer: %w", err)
	}
	return c.ID, nil
}

func (s *stripeService) CreateCheckoutSession(p CheckoutParams) (string, error) {
	priceID := s.PriceIDForPlan(p.Plan)
	if priceID == "" {
		return "", fmt.Errorf("stripe create checkout session: no price configured for plan %q", p.Plan)
	}

	params := &stripe.CheckoutSessionParams{
		Customer:          stripe.String(p.CustomerID),
		ClientReferenceID: stripe.String(p.UserID),
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
	}
	params.AddMetadata(MetadataPlanKey, string(p.Plan))

	sess, err := checkoutsession.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe create checkout session: %w", err)
	}
	return sess.URL, nil
}

func (s *stripeService) CreatePortalSession(customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	sess, err := billingportalsession.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe create portal session: %w", err)
	}
	return sess.URL, nil
}

func (s *stripeService) VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("stripe webhook signature verification failed: %w", err)
	}
	return event, nil
}

func (s *stripeService) PlanForPriceID(priceID string) domain.PlanID {
	return s.priceToPlan[priceID]
}

func (s *stripeService) PriceIDForPlan(plan domain.PlanID) string {
	return s.planToPrice[plan]
}
