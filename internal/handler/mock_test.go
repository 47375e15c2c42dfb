package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/DukeRupert/nexleads/internal/auth"
	"github.com/DukeRupert/nexleads/internal/billing"
	"github.com/DukeRupert/nexleads/internal/domain"
	"github.com/DukeRupert/nexleads/internal/email"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
)

var errNotMocked = errors.New("not mocked")

// passthrough stands in for the auth middleware in handler tests.
func passthrough(next http.Handler) http.Handler { return next }

// withUser puts user on the request context.
func withUser(r *http.Request, user *domain.User) *http.Request {
	return r.WithContext(auth.SetUser(r.Context(), user))
}

func testUser() *domain.User {
	return &domain.User{
		ID:         uuid.New(),
		Name:       "Jane Doe",
		Email:      "jane@example.com",
		Type:       domain.UserTypeUser,
		IsVerified: true,
		Ledger: &domain.Ledger{
			Plan:       domain.PlanFree,
			LeadsLimit: 30,
		},
	}
}

// =============================================================================
// UserService
// =============================================================================

type mockUserService struct {
	SignupFunc                   func(ctx context.Context, params domain.SignupParams) (*domain.VerificationCodeResult, error)
	ResendVerificationCodeFunc   func(ctx context.Context, email string) (*domain.VerificationCodeResult, error)
	VerifyEmailFunc              func(ctx context.Context, email, code string) (*domain.LoginResult, error)
	LoginFunc                    func(ctx context.Context, email, password string) (*domain.LoginResult, error)
	CreatePasswordResetTokenFunc func(ctx context.Context, email string) (*domain.PasswordResetResult, error)
	ResetPasswordFunc            func(ctx context.Context, params domain.ResetPasswordParams) error
	ChangePasswordFunc           func(ctx context.Context, params domain.PasswordChangeParams) error
	UpdatePersonalInfoFunc       func(ctx context.Context, params domain.PersonalInfoParams) (*domain.User, error)
	UpdateStripeCustomerFunc     func(ctx context.Context, userID uuid.UUID, customerID string) error
	GetByStripeCustomerIDFunc    func(ctx context.Context, customerID string) (*domain.User, error)
}

func (m *mockUserService) Signup(ctx context.Context, params domain.SignupParams) (*domain.VerificationCodeResult, error) {
	if m.SignupFunc != nil {
		return m.SignupFunc(ctx, params)
	}
	return nil, errNotMocked
}

func (m *mockUserService) ResendVerificationCode(ctx context.Context, email string) (*domain.VerificationCodeResult, error) {
	if m.ResendVerificationCodeFunc != nil {
		return m.ResendVerificationCodeFunc(ctx, email)
	}
	return nil, errNotMocked
}

func (m *mockUserService) VerifyEmail(ctx context.Context, email, code string) (*domain.LoginResult, error) {
	if m.VerifyEmailFunc != nil {
		return m.VerifyEmailFunc(ctx, email, code)
	}
	return nil, errNotMocked
}

func (m *mockUserService) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	return nil, errNotMocked
}

func (m *mockUserService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	return nil, errNotMocked
}

func (m *mockUserService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return nil, errNotMocked
}

func (m *mockUserService) CreatePasswordResetToken(ctx context.Context, email string) (*domain.PasswordResetResult, error) {
	if m.CreatePasswordResetTokenFunc != nil {
		return m.CreatePasswordResetTokenFunc(ctx, email)
	}
	return nil, errNotMocked
}

func (m *mockUserService) ResetPassword(ctx context.Context, params domain.ResetPasswordParams) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, params)
	}
	return errNotMocked
}

func (m *mockUserService) ChangePassword(ctx context.Context, params domain.PasswordChangeParams) error {
	if m.ChangePasswordFunc != nil {
		return m.ChangePasswordFunc(ctx, params)
	}
	return errNotMocked
}

func (m *mockUserService) UpdatePersonalInfo(ctx context.Context, params domain.PersonalInfoParams) (*domain.User, error) {
	if m.UpdatePersonalInfoFunc != nil {
		return m.UpdatePersonalInfoFunc(ctx, params)
	}
	return nil, errNotMocked
}

func (m *mockUserService) UpdateProfilePicture(ctx context.Context, userID uuid.UUID, url string) (*domain.User, error) {
	return nil, errNotMocked
}

func (m *mockUserService) UpdateStripeCustomer(ctx context.Context, userID uuid.UUID, customerID string) error {
	if m.UpdateStripeCustomerFunc != nil {
		return m.UpdateStripeCustomerFunc(ctx, userID, customerID)
	}
	return errNotMocked
}

func (m *mockUserService) GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.User, error) {
	if m.GetByStripeCustomerIDFunc != nil {
		return m.GetByStripeCustomerIDFunc(ctx, customerID)
	}
	return nil, errNotMocked
}

// =============================================================================
// Mailer
// =============================================================================

type mockMailer struct {
	SendVerificationCodeFunc   func(ctx context.Context, to, name, code string) error
	SendPasswordResetEmailFunc func(ctx context.Context, to, name, token string) error
	codes                      []string
}

func (m *mockMailer) SendVerificationCode(ctx context.Context, to, name, code string) error {
	m.codes = append(m.codes, code)
	if m.SendVerificationCodeFunc != nil {
		return m.SendVerificationCodeFunc(ctx, to, name, code)
	}
	return nil
}

func (m *mockMailer) SendPasswordResetEmail(ctx context.Context, to, name, token string) error {
	if m.SendPasswordResetEmailFunc != nil {
		return m.SendPasswordResetEmailFunc(ctx, to, name, token)
	}
	return nil
}

func (m *mockMailer) Send(ctx context.Context, msg email.Message) error {
	return nil
}

// =============================================================================
// LeadService
// =============================================================================

type mockLeadService struct {
	SearchFunc       func(ctx context.Context, params domain.LeadSearchParams) (*domain.LeadSearchResult, error)
	SaveFunc         func(ctx context.Context, params domain.SaveLeadParams) (*domain.Lead, error)
	ListFunc         func(ctx context.Context, userID uuid.UUID) ([]domain.Lead, error)
	UpdateStatusFunc func(ctx context.Context, userID, leadID uuid.UUID, status domain.LeadStatus) (*domain.Lead, error)
}

func (m *mockLeadService) Search(ctx context.Context, params domain.LeadSearchParams) (*domain.LeadSearchResult, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, params)
	}
	return nil, errNotMocked
}

func (m *mockLeadService) Save(ctx context.Context, params domain.SaveLeadParams) (*domain.Lead, error) {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, params)
	}
	return nil, errNotMocked
}

func (m *mockLeadService) List(ctx context.Context, userID uuid.UUID) ([]domain.Lead, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, userID)
	}
	return nil, errNotMocked
}

func (m *mockLeadService) UpdateStatus(ctx context.Context, userID, leadID uuid.UUID, status domain.LeadStatus) (*domain.Lead, error) {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, userID, leadID, status)
	}
	return nil, errNotMocked
}

// =============================================================================
// EmailService
// =============================================================================

type mockEmailService struct {
	ComposeFunc   func(ctx context.Context, params domain.ComposeParams) (*domain.ComposeResult, error)
	SendBulkFunc  func(ctx context.Context, params domain.BulkSendParams) (*domain.SendResult, error)
	ListFunc      func(ctx context.Context, userID uuid.UUID, folder string) ([]domain.Email, error)
	MoveFunc      func(ctx context.Context, userID, emailID uuid.UUID, folder domain.EmailFolder) (*domain.Email, error)
	TrackOpenFunc func(ctx context.Context, emailID uuid.UUID) error
}

func (m *mockEmailService) Compose(ctx context.Context, params domain.ComposeParams) (*domain.ComposeResult, error) {
	if m.ComposeFunc != nil {
		return m.ComposeFunc(ctx, params)
	}
	return nil, errNotMocked
}

func (m *mockEmailService) SendBulk(ctx context.Context, params domain.BulkSendParams) (*domain.SendResult, error) {
	if m.SendBulkFunc != nil {
		return m.SendBulkFunc(ctx, params)
	}
	return nil, errNotMocked
}

func (m *mockEmailService) SendToRecipients(ctx context.Context, params domain.BulkSendParams, kind string) (*domain.SendResult, error) {
	return nil, errNotMocked
}

func (m *mockEmailService) List(ctx context.Context, userID uuid.UUID, folder string) ([]domain.Email, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, userID, folder)
	}
	return nil, errNotMocked
}

func (m *mockEmailService) Get(ctx context.Context, userID, emailID uuid.UUID) (*domain.Email, error) {
	return nil, errNotMocked
}

func (m *mockEmailService) SaveDraft(ctx context.Context, params domain.DraftParams) (*domain.Email, error) {
	return nil, errNotMocked
}

func (m *mockEmailService) Move(ctx context.Context, userID, emailID uuid.UUID, folder domain.EmailFolder) (*domain.Email, error) {
	if m.MoveFunc != nil {
		return m.MoveFunc(ctx, userID, emailID, folder)
	}
	return nil, errNotMocked
}

func (m *mockEmailService) Resend(ctx context.Context, userID, emailID uuid.UUID, body string) (*domain.Email, error) {
	return nil, errNotMocked
}

func (m *mockEmailService) TrackOpen(ctx context.Context, emailID uuid.UUID) error {
	if m.TrackOpenFunc != nil {
		return m.TrackOpenFunc(ctx, emailID)
	}
	return errNotMocked
}

func (m *mockEmailService) Redeliver(ctx context.Context, userID, emailID uuid.UUID, kind string) error {
	return errNotMocked
}

// =============================================================================
// QuotaService
// =============================================================================

type mockQuotaService struct {
	ApplyTransitionFunc func(ctx context.Context, params domain.TransitionParams) (*domain.SubscriptionRecord, error)
	CurrentFunc         func(ctx context.Context, userID uuid.UUID) (*domain.Ledger, error)
	HistoryFunc         func(ctx context.Context, userID uuid.UUID) ([]domain.SubscriptionRecord, error)
	transitions         []domain.TransitionParams
}

func (m *mockQuotaService) Authorize(ctx context.Context, userID uuid.UUID) (domain.Decision, error) {
	return domain.Decision{}, errNotMocked
}

func (m *mockQuotaService) RecordUsage(ctx context.Context, userID uuid.UUID, count int) {}

func (m *mockQuotaService) ApplyTransition(ctx context.Context, params domain.TransitionParams) (*domain.SubscriptionRecord, error) {
	m.transitions = append(m.transitions, params)
	if m.ApplyTransitionFunc != nil {
		return m.ApplyTransitionFunc(ctx, params)
	}
	plan, err := domain.ResolvePlan(params.PlanID)
	if err != nil {
		return nil, err
	}
	return &domain.SubscriptionRecord{
		ID:            uuid.New(),
		UserID:        params.UserID,
		Plan:          plan.ID,
		Price:         plan.MonthlyPrice,
		PaymentMethod: params.PaymentMethod,
		TransactionID: params.TransactionID,
	}, nil
}

func (m *mockQuotaService) Current(ctx context.Context, userID uuid.UUID) (*domain.Ledger, error) {
	if m.CurrentFunc != nil {
		return m.CurrentFunc(ctx, userID)
	}
	return nil, errNotMocked
}

func (m *mockQuotaService) History(ctx context.Context, userID uuid.UUID) ([]domain.SubscriptionRecord, error) {
	if m.HistoryFunc != nil {
		return m.HistoryFunc(ctx, userID)
	}
	return nil, errNotMocked
}

// =============================================================================
// billing.Service
// =============================================================================

type mockBilling struct {
	VerifyWebhookSignatureFunc func(payload []byte, signature string) (stripe.Event, error)
	CreateCustomerFunc         func(email, name string) (string, error)
	CreateCheckoutSessionFunc  func(params billing.CheckoutParams) (string, error)
	prices                     map[string]domain.PlanID
}

func (m *mockBilling) CreateCustomer(email, name string) (string, error) {
	if m.CreateCustomerFunc != nil {
		return m.CreateCustomerFunc(email, name)
	}
	return "", errNotMocked
}

func (m *mockBilling) CreateCheckoutSession(params billing.CheckoutParams) (string, error) {
	if m.CreateCheckoutSessionFunc != nil {
		return m.CreateCheckoutSessionFunc(params)
	}
	return "", errNotMocked
}

func (m *mockBilling) CreatePortalSession(customerID, returnURL string) (string, error) {
	return "", errNotMocked
}

func (m *mockBilling) VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error) {
	if m.VerifyWebhookSignatureFunc != nil {
		return m.VerifyWebhookSignatureFunc(payload, signature)
	}
	return stripe.Event{}, errNotMocked
}

func (m *mockBilling) PlanForPriceID(priceID string) domain.PlanID {
	return m.prices[priceID]
}

func (m *mockBilling) PriceIDForPlan(plan domain.PlanID) string {
	for price, p := range m.prices {
		if p == plan {
			return price
		}
	}
	return ""
}
