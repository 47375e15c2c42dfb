package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DukeRupert/nexleads/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
)

// eventBilling returns a billing mock whose signature check yields an event
// of the given type carrying raw as its object.
func eventBilling(eventType, raw string) *mockBilling {
	return &mockBilling{
		prices: map[string]domain.PlanID{"price_pro": domain.PlanPro, "price_plat": domain.PlanPlatinum},
		VerifyWebhookSignatureFunc: func(payload []byte, signature string) (stripe.Event, error) {
			if signature != "valid" {
				return stripe.Event{}, errors.New("bad signature")
			}
			return stripe.Event{
				ID:   "evt_1",
				Type: stripe.EventType(eventType),
				Data: &stripe.EventData{Raw: json.RawMessage(raw)},
			}, nil
		},
	}
}

func postWebhook(h *WebhookHandler, signature string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{}`))
	req.Header.Set("Stripe-Signature", signature)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestWebhookHandler_CheckoutCompleted(t *testing.T) {
	userID := uuid.New()
	quota := &mockQuotaService{}
	raw := `{"id":"cs_123","client_reference_id":"` + userID.String() + `","metadata":{"plan":"platinum"}}`
	h := NewWebhookHandler(eventBilling("checkout.session.completed", raw), &mockUserService{}, quota, newTestLogger())

	rec := postWebhook(h, "valid")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, quota.transitions, 1)
	assert.Equal(t, domain.TransitionParams{
		UserID:        userID,
		PlanID:        domain.PlanPlatinum,
		PaymentMethod: domain.PaymentMethodStripe,
		TransactionID: "cs_123",
	}, quota.transitions[0])
}

func TestWebhookHandler_CheckoutCompleted_FallsBackToCustomer(t *testing.T) {
	user := testUser()
	quota := &mockQuotaService{}
	users := &mockUserService{
		GetByStripeCustomerIDFunc: func(ctx context.Context, customerID string) (*domain.User, error) {
			if customerID != "cus_9" {
				return nil, domain.NotFound("user.get_by_stripe_customer", "user", customerID)
			}
			return user, nil
		},
	}
	raw := `{"id":"cs_9","customer":"cus_9","metadata":{"plan":"pro"}}`
	h := NewWebhookHandler(eventBilling("checkout.session.completed", raw), users, quota, newTestLogger())

	rec := postWebhook(h, "valid")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, quota.transitions, 1)
	assert.Equal(t, user.ID, quota.transitions[0].UserID)
	assert.Equal(t, domain.PlanPro, quota.transitions[0].PlanID)
}

func TestWebhookHandler_RenewalInvoice(t *testing.T) {
	user := testUser()
	users := &mockUserService{
		GetByStripeCustomerIDFunc: func(ctx context.Context, customerID string) (*domain.User, error) {
			return user, nil
		},
	}

	tests := []struct {
		name        string
		raw         string
		transitions int
	}{
		{
			name:        "subscription cycle",
			raw:         `{"id":"in_1","billing_reason":"subscription_cycle","customer":"cus_1","lines":{"data":[{"price":{"id":"price_pro"}}]}}`,
			transitions: 1,
		},
		{
			name:        "first invoice is covered by checkout",
			raw:         `{"id":"in_2","billing_reason":"subscription_create","customer":"cus_1","lines":{"data":[{"price":{"id":"price_pro"}}]}}`,
			transitions: 0,
		},
		{
			name:        "unknown price",
			raw:         `{"id":"in_3","billing_reason":"subscription_cycle","customer":"cus_1","lines":{"data":[{"price":{"id":"price_other"}}]}}`,
			transitions: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quota := &mockQuotaService{}
			h := NewWebhookHandler(eventBilling("invoice.payment_succeeded", tt.raw), users, quota, newTestLogger())

			rec := postWebhook(h, "valid")

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Len(t, quota.transitions, tt.transitions)
		})
	}
}

func TestWebhookHandler_SubscriptionDeleted(t *testing.T) {
	user := testUser()
	quota := &mockQuotaService{}
	users := &mockUserService{
		GetByStripeCustomerIDFunc: func(ctx context.Context, customerID string) (*domain.User, error) {
			return user, nil
		},
	}
	h := NewWebhookHandler(eventBilling("customer.subscription.deleted", `{"id":"sub_1","customer":"cus_1"}`), users, quota, newTestLogger())

	rec := postWebhook(h, "valid")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, quota.transitions, 1)
	assert.Equal(t, domain.PlanFree, quota.transitions[0].PlanID)
	assert.Equal(t, "sub_1", quota.transitions[0].TransactionID)
}

func TestWebhookHandler_BadSignature(t *testing.T) {
	quota := &mockQuotaService{}
	h := NewWebhookHandler(eventBilling("checkout.session.completed", `{}`), &mockUserService{}, quota, newTestLogger())

	rec := postWebhook(h, "forged")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, quota.transitions)
}

func TestWebhookHandler_TransitionFailureRetries(t *testing.T) {
	quota := &mockQuotaService{
		ApplyTransitionFunc: func(ctx context.Context, params domain.TransitionParams) (*domain.SubscriptionRecord, error) {
			return nil, domain.Internal(errors.New("db down"), "quota.apply_transition", "failed")
		},
	}
	raw := `{"id":"cs_1","client_reference_id":"` + uuid.NewString() + `","metadata":{"plan":"pro"}}`
	h := NewWebhookHandler(eventBilling("checkout.session.completed", raw), &mockUserService{}, quota, newTestLogger())

	rec := postWebhook(h, "valid")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWebhookHandler_UnhandledAndUnconfigured(t *testing.T) {
	quota := &mockQuotaService{}

	h := NewWebhookHandler(eventBilling("customer.created", `{"id":"cus_1"}`), &mockUserService{}, quota, newTestLogger())
	assert.Equal(t, http.StatusOK, postWebhook(h, "valid").Code)

	h = NewWebhookHandler(nil, &mockUserService{}, quota, newTestLogger())
	assert.Equal(t, http.StatusOK, postWebhook(h, "anything").Code)

	assert.Empty(t, quota.transitions)
}

func TestWebhookHandler_UserLookupFailure(t *testing.T) {
	events := []struct {
		name      string
		eventType string
		raw       string
	}{
		{
			name:      "checkout by customer",
			eventType: "checkout.session.completed",
			raw:       `{"id":"cs_1","customer":"cus_1","metadata":{"plan":"pro"}}`,
		},
		{
			name:      "renewal",
			eventType: "invoice.payment_succeeded",
			raw:       `{"id":"in_1","billing_reason":"subscription_cycle","customer":"cus_1","lines":{"data":[{"price":{"id":"price_pro"}}]}}`,
		},
		{
			name:      "cancellation",
			eventType: "customer.subscription.deleted",
			raw:       `{"id":"sub_1","customer":"cus_1"}`,
		},
	}

	lookups := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"database error is retried", domain.Internal(errors.New("connection refused"), "user.get_by_stripe_customer", "Failed to retrieve user"), http.StatusInternalServerError},
		{"unknown customer is skipped", domain.NotFound("user.get_by_stripe_customer", "user", "cus_1"), http.StatusOK},
	}

	for _, ev := range events {
		for _, lk := range lookups {
			t.Run(ev.name+"/"+lk.name, func(t *testing.T) {
				quota := &mockQuotaService{}
				users := &mockUserService{
					GetByStripeCustomerIDFunc: func(ctx context.Context, customerID string) (*domain.User, error) {
						return nil, lk.err
					},
				}
				h := NewWebhookHandler(eventBilling(ev.eventType, ev.raw), users, quota, newTestLogger())

				rec := postWebhook(h, "valid")

				assert.Equal(t, lk.wantStatus, rec.Code)
				assert.Empty(t, quota.transitions)
			})
		}
	}
}

func TestWebhookHandler_CheckoutWithoutAccountReference(t *testing.T) {
	quota := &mockQuotaService{}
	h := NewWebhookHandler(eventBilling("checkout.session.completed", `{"id":"cs_2","metadata":{"plan":"pro"}}`), &mockUserService{}, quota, newTestLogger())

	rec := postWebhook(h, "valid")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, quota.transitions)
}
