// Package service contains the business logic layer.
//
// Services orchestrate interactions between repositories, external APIs,
// and domain logic. They are responsible for:
// - Input validation
// - Business rule enforcement
// - Transaction coordination
// - Error translation (database errors -> domain errors)
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"
	"unicode"

	"github.com/DukeRupert/nexleads/internal/auth"
	"github.com/DukeRupert/nexleads/internal/domain"
	"github.com/DukeRupert/nexleads/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

// =============================================================================
// Configuration Constants
// =============================================================================

const (
	// BcryptCost is the cost factor for bcrypt password hashing.
	//
	// SECURITY NOTE: This should NOT be configurable at runtime. If you need to
	// change it, do so here and redeploy.
	BcryptCost = 12

	// MinPasswordLength is the minimum password length.
	MinPasswordLength = 8

	// MaxPasswordLength caps input at bcrypt's 72-byte limit.
	MaxPasswordLength = 72

	// MinTokenDuration and MaxTokenDuration bound the configured JWT lifetime.
	MinTokenDuration = 15 * time.Minute
	MaxTokenDuration = 30 * 24 * time.Hour
)

// Generic messages that do not reveal whether an account, code or token exists.
const (
	ErrMsgInvalidVerificationCode = "Invalid or expired verification code"
	ErrMsgInvalidResetLink        = "Invalid or expired reset link"
	ErrMsgInvalidCredentials      = "Invalid email or password"
	ErrMsgAccountBlocked          = "User is blocked. Please contact support."
)

// dummyHash is compared against when the email is unknown so that login
// takes the same time either way.
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// commonPasswords are rejected regardless of length and character mix.
// Compared case-insensitively.
var commonPasswords = func() map[string]struct{} {
	m := make(map[string]struct{})
	for _, p := range []string{
		"password1", "password12", "password123", "passw0rd",
		"qwerty123", "qwerty12", "letmein1", "letmein123",
		"welcome1", "welcome123", "admin123", "abc12345",
		"abcd1234", "iloveyou1", "monkey123", "dragon123",
		"football1", "baseball1", "sunshine1", "trustno1",
		"changeme1",
	} {
		m[p] = struct{}{}
	}
	return m
}()

// =============================================================================
// Interface Definition
// =============================================================================

// UserService defines the interface for account and authentication operations.
type UserService interface {
	// Signup creates an unverified account with the default quota ledger and
	// returns the raw verification code for the caller to email.
	// Returns domain.ECONFLICT if the email is registered.
	Signup(ctx context.Context, params domain.SignupParams) (*domain.VerificationCodeResult, error)

	// ResendVerificationCode replaces the code of an unverified account.
	ResendVerificationCode(ctx context.Context, email string) (*domain.VerificationCodeResult, error)

	// VerifyEmail checks the code, marks the account verified, assigns its
	// NexLeads address and returns an access token.
	VerifyEmail(ctx context.Context, email, code string) (*domain.LoginResult, error)

	// Login authenticates with email and password.
	// Returns domain.EUNAUTHORIZED for bad credentials and domain.EFORBIDDEN
	// for blocked accounts.
	Login(ctx context.Context, email, password string) (*domain.LoginResult, error)

	// Authenticate resolves a bearer token to its user.
	Authenticate(ctx context.Context, token string) (*domain.User, error)

	// GetByID retrieves a user by their ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// CreatePasswordResetToken issues a reset token for the account.
	// Returns domain.ENOTFOUND for unknown emails.
	CreatePasswordResetToken(ctx context.Context, email string) (*domain.PasswordResetResult, error)

	// ResetPassword validates the token and sets the new password.
	ResetPassword(ctx context.Context, params domain.ResetPasswordParams) error

	// ChangePassword changes a password after checking the current one.
	ChangePassword(ctx context.Context, params domain.PasswordChangeParams) error

	// UpdatePersonalInfo changes name and email.
	UpdatePersonalInfo(ctx context.Context, params domain.PersonalInfoParams) (*domain.User, error)

	// UpdateProfilePicture stores the URL of an uploaded picture.
	UpdateProfilePicture(ctx context.Context, userID uuid.UUID, url string) (*domain.User, error)

	// UpdateStripeCustomer saves the Stripe customer ID for a user.
	UpdateStripeCustomer(ctx context.Context, userID uuid.UUID, stripeCustomerID string) error

	// GetByStripeCustomerID retrieves a user by their Stripe customer ID.
	GetByStripeCustomerID(ctx context.Context, stripeCustomerID string) (*domain.User, error)
}

// UserServiceConfig holds optional settings for the user service.
type UserServiceConfig struct {
	// MailDomain is the domain of generated NexLeads addresses.
	MailDomain string
}

// =============================================================================
// Implementation
// =============================================================================

type userService struct {
	queries    *repository.Queries
	tokens     *auth.TokenManager
	mailDomain string
	logger     *slog.Logger
	now        func() time.Time
}

// NewUserService creates a new UserService instance.
func NewUserService(queries *repository.Queries, tokens *auth.TokenManager, cfg UserServiceConfig, logger *slog.Logger) UserService {
	mailDomain := strings.TrimSpace(cfg.MailDomain)
	if mailDomain == "" {
		mailDomain = "nexleads.io"
	}
	return &userService{
		queries:    queries,
		tokens:     tokens,
		mailDomain: mailDomain,
		logger:     logger,
		now:        time.Now,
	}
}

// normalizeTokenDuration clamps a configured JWT lifetime. Zero means the
// default.
func normalizeTokenDuration(d time.Duration) time.Duration {
	if d == 0 {
		return domain.DefaultAccessTokenDuration
	}
	if d < MinTokenDuration {
		return MinTokenDuration
	}
	if d > MaxTokenDuration {
		return MaxTokenDuration
	}
	return d
}

// NewTokenManager builds the JWT manager with a clamped expiry.
func NewTokenManager(secret string, expiry time.Duration) *auth.TokenManager {
	return auth.NewTokenManager(secret, normalizeTokenDuration(expiry))
}

// =============================================================================
// Signup and Verification
// =============================================================================

// Signup registers a new account.
//
// The account starts with a free-plan ledger whose cycle begins now. The raw
// verification code is returned once and only its hash is stored.
func (s *userService) Signup(ctx context.Context, params domain.SignupParams) (*domain.VerificationCodeResult, error) {
	const op = "user.signup"

	params.Email = strings.ToLower(strings.TrimSpace(params.Email))
	params.Name = strings.TrimSpace(params.Name)

	if params.Name == "" {
		return nil, domain.Invalid(op, "Name is required")
	}
	if err := validateEmail(params.Email); err != nil {
		return nil, domain.Wrap(err, domain.EINVALID, op, domain.ErrorMessage(err))
	}
	if params.Password != params.ConfirmPassword {
		return nil, domain.Invalid(op, "Passwords do not match")
	}
	if err := validatePassword(params.Password); err != nil {
		return nil, domain.Wrap(err, domain.EINVALID, op, domain.ErrorMessage(err))
	}

	_, err := s.queries.GetUserByEmail(ctx, params.Email)
	if err == nil {
		_, _ = bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
		return nil, domain.Conflict(op, "User already exists")
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Internal(err, op, "Failed to check email availability")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to hash password")
	}

	code, err := generateOTP()
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to generate verification code")
	}

	now := s.now()
	expiresAt := now.Add(domain.OTPDuration)
	ledger := domain.NewLedger(now)

	repoUser, err := s.queries.CreateUser(ctx, repository.CreateUserParams{
		Name:         params.Name,
		Email:        params.Email,
		PasswordHash: string(passwordHash),
		UserType:     string(domain.UserTypeUser),
		OtpHash:      domain.ToNullString(hashToken(code)),
		OtpExpiresAt: sql.NullTime{Time: expiresAt, Valid: true},
		Plan:         domain.ToNullString(string(ledger.Plan)),
		LeadsLimit:   sql.NullInt32{Int32: int32(ledger.LeadsLimit), Valid: true},
		LeadsUsed:    sql.NullInt32{Int32: int32(ledger.LeadsUsed), Valid: true},
		ResetDate:    domain.ToNullTime(ledger.ResetDate),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.Conflict(op, "User already exists")
		}
		return nil, domain.Internal(err, op, "Failed to create user")
	}

	user := repoUserToDomain(repoUser)
	s.logger.Info("user signed up", "user_id", user.ID, "email", user.Email)

	return &domain.VerificationCodeResult{User: user, Code: code, ExpiresAt: expiresAt}, nil
}

// ResendVerificationCode issues a new code for an unverified account.
func (s *userService) ResendVerificationCode(ctx context.Context, email string) (*domain.VerificationCodeResult, error) {
	const op = "user.resend_verification_code"

	email = strings.ToLower(strings.TrimSpace(email))
	repoUser, err := s.queries.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", email)
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}
	if repoUser.IsVerified {
		return nil, domain.Conflict(op, "Email is already verified")
	}

	code, err := generateOTP()
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to generate verification code")
	}
	expiresAt := s.now().Add(domain.OTPDuration)

	if err := s.queries.UpdateUserOTP(ctx, repoUser.ID,
		domain.ToNullString(hashToken(code)),
		sql.NullTime{Time: expiresAt, Valid: true},
	); err != nil {
		return nil, domain.Internal(err, op, "Failed to store verification code")
	}

	return &domain.VerificationCodeResult{User: repoUserToDomain(repoUser), Code: code, ExpiresAt: expiresAt}, nil
}

// VerifyEmail completes signup.
//
// Unknown email, wrong code and expired code all return the same message.
func (s *userService) VerifyEmail(ctx context.Context, email, code string) (*domain.LoginResult, error) {
	const op = "user.verify_email"

	email = strings.ToLower(strings.TrimSpace(email))
	code = strings.TrimSpace(code)

	if len(code) != domain.OTPDigits {
		return nil, domain.Invalid(op, ErrMsgInvalidVerificationCode)
	}

	repoUser, err := s.queries.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Invalid(op, ErrMsgInvalidVerificationCode)
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	if !repoUser.OtpHash.Valid || !repoUser.OtpExpiresAt.Valid {
		return nil, domain.Invalid(op, ErrMsgInvalidVerificationCode)
	}
	if subtle.ConstantTimeCompare([]byte(repoUser.OtpHash.String), []byte(hashToken(code))) != 1 {
		return nil, domain.Invalid(op, ErrMsgInvalidVerificationCode)
	}
	if !s.now().Before(repoUser.OtpExpiresAt.Time) {
		return nil, domain.Invalid(op, ErrMsgInvalidVerificationCode)
	}

	address, err := generateNexleadsEmail(repoUser.Name, s.mailDomain)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to generate mailbox address")
	}

	verified, err := s.queries.MarkUserVerified(ctx, repoUser.ID, address)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to verify email")
	}

	user := repoUserToDomain(verified)
	token, _, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to issue access token")
	}

	s.logger.Info("email verified", "user_id", user.ID, "nexleads_email", user.NexleadsEmail)

	return &domain.LoginResult{User: user, Token: token}, nil
}

// =============================================================================
// Login and Token Authentication
// =============================================================================

// Login authenticates a user and issues an access token.
func (s *userService) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	const op = "user.login"

	email = strings.ToLower(strings.TrimSpace(email))

	repoUser, err := s.queries.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
			return nil, domain.Unauthorized(op, ErrMsgInvalidCredentials)
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(repoUser.PasswordHash), []byte(password)); err != nil {
		return nil, domain.Unauthorized(op, ErrMsgInvalidCredentials)
	}

	if repoUser.IsBlocked {
		s.logger.Info("blocked user attempted login", "user_id", repoUser.ID)
		return nil, domain.Forbidden(op, ErrMsgAccountBlocked)
	}

	user := repoUserToDomain(repoUser)
	token, _, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to issue access token")
	}

	s.logger.Info("user logged in", "user_id", user.ID, "email", user.Email)

	return &domain.LoginResult{User: user, Token: token}, nil
}

// Authenticate validates a bearer token and loads its user.
func (s *userService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	const op = "user.authenticate"

	if token == "" {
		return nil, domain.Unauthorized(op, "Not authorized, no token")
	}

	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, domain.Unauthorized(op, "Not authorized, token failed")
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, domain.Unauthorized(op, "Not authorized, token failed")
	}

	repoUser, err := s.queries.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Unauthorized(op, "Not authorized, token failed")
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	return repoUserToDomain(repoUser), nil
}

// GetByID retrieves a user by their ID.
func (s *userService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const op = "user.get"

	repoUser, err := s.queries.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", id.String())
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	return repoUserToDomain(repoUser), nil
}

// =============================================================================
// Password Reset
// =============================================================================

// CreatePasswordResetToken issues a reset token valid for ten minutes.
func (s *userService) CreatePasswordResetToken(ctx context.Context, email string) (*domain.PasswordResetResult, error) {
	const op = "user.create_password_reset_token"

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, domain.Invalid(op, "Email is required")
	}

	repoUser, err := s.queries.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", email)
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	token, err := generateSecureToken()
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to generate reset token")
	}
	expiresAt := s.now().Add(domain.PasswordResetTokenDuration)

	if err := s.queries.SetPasswordResetToken(ctx, repoUser.ID, hashToken(token), expiresAt); err != nil {
		return nil, domain.Internal(err, op, "Failed to store reset token")
	}

	s.logger.Info("password reset requested", "user_id", repoUser.ID)

	return &domain.PasswordResetResult{
		Token:     token,
		ExpiresAt: expiresAt,
		Email:     repoUser.Email,
		Name:      repoUser.Name,
	}, nil
}

// ResetPassword sets a new password using a reset token.
func (s *userService) ResetPassword(ctx context.Context, params domain.ResetPasswordParams) error {
	const op = "user.reset_password"

	if params.Password != params.ConfirmPassword {
		return domain.Invalid(op, "Passwords do not match")
	}
	if len(params.Token) != domain.TokenBytes*2 {
		return domain.Invalid(op, ErrMsgInvalidResetLink)
	}
	if err := validatePassword(params.Password); err != nil {
		return domain.Wrap(err, domain.EINVALID, op, domain.ErrorMessage(err))
	}

	repoUser, err := s.queries.GetUserByResetTokenHash(ctx, hashToken(params.Token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Invalid(op, ErrMsgInvalidResetLink)
		}
		return domain.Internal(err, op, "Failed to validate reset token")
	}
	if !repoUser.ResetTokenExpiresAt.Valid || !s.now().Before(repoUser.ResetTokenExpiresAt.Time) {
		return domain.Invalid(op, ErrMsgInvalidResetLink)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
	if err != nil {
		return domain.Internal(err, op, "Failed to hash password")
	}

	if err := s.queries.ResetUserPassword(ctx, repoUser.ID, string(passwordHash)); err != nil {
		return domain.Internal(err, op, "Failed to update password")
	}

	s.logger.Info("password reset", "user_id", repoUser.ID)
	return nil
}

// =============================================================================
// Settings
// =============================================================================

// ChangePassword changes a user's password.
func (s *userService) ChangePassword(ctx context.Context, params domain.PasswordChangeParams) error {
	const op = "user.change_password"

	if params.CurrentPassword == "" || params.NewPassword == "" {
		return domain.Invalid(op, "Current and new password are required")
	}
	if err := validatePassword(params.NewPassword); err != nil {
		return domain.Wrap(err, domain.EINVALID, op, domain.ErrorMessage(err))
	}

	repoUser, err := s.queries.GetUserByID(ctx, params.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "user", params.UserID.String())
		}
		return domain.Internal(err, op, "Failed to retrieve user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(repoUser.PasswordHash), []byte(params.CurrentPassword)); err != nil {
		return domain.Invalid(op, "Current password is incorrect")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.NewPassword), BcryptCost)
	if err != nil {
		return domain.Internal(err, op, "Failed to hash password")
	}

	if err := s.queries.UpdateUserPassword(ctx, params.UserID, string(passwordHash)); err != nil {
		return domain.Internal(err, op, "Failed to update password")
	}

	s.logger.Info("password changed", "user_id", params.UserID)
	return nil
}

// UpdatePersonalInfo changes a user's name and email.
func (s *userService) UpdatePersonalInfo(ctx context.Context, params domain.PersonalInfoParams) (*domain.User, error) {
	const op = "user.update_personal_info"

	params.Name = strings.TrimSpace(params.Name)
	params.Email = strings.ToLower(strings.TrimSpace(params.Email))

	if params.Name == "" {
		return nil, domain.Invalid(op, "Name is required")
	}
	if err := validateEmail(params.Email); err != nil {
		return nil, domain.Wrap(err, domain.EINVALID, op, domain.ErrorMessage(err))
	}

	taken, err := s.queries.EmailTakenByOther(ctx, params.Email, params.UserID)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to check email availability")
	}
	if taken {
		return nil, domain.Invalid(op, "Email already in use")
	}

	repoUser, err := s.queries.UpdateUserPersonalInfo(ctx, params.UserID, params.Name, params.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", params.UserID.String())
		}
		if isUniqueViolation(err) {
			return nil, domain.Invalid(op, "Email already in use")
		}
		return nil, domain.Internal(err, op, "Failed to update personal info")
	}

	s.logger.Info("personal info updated", "user_id", params.UserID)
	return repoUserToDomain(repoUser), nil
}

// UpdateProfilePicture records a new profile picture URL.
func (s *userService) UpdateProfilePicture(ctx context.Context, userID uuid.UUID, url string) (*domain.User, error) {
	const op = "user.update_profile_picture"

	repoUser, err := s.queries.UpdateUserProfilePicture(ctx, userID, url)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", userID.String())
		}
		return nil, domain.Internal(err, op, "Failed to update profile picture")
	}
	return repoUserToDomain(repoUser), nil
}

// =============================================================================
// Billing
// =============================================================================

// UpdateStripeCustomer saves the Stripe customer ID for a user.
func (s *userService) UpdateStripeCustomer(ctx context.Context, userID uuid.UUID, stripeCustomerID string) error {
	const op = "user.update_stripe_customer"

	if err := s.queries.UpdateUserStripeCustomerID(ctx, userID, stripeCustomerID); err != nil {
		return domain.Internal(err, op, "Failed to update Stripe customer")
	}

	s.logger.Info("stripe customer linked", "user_id", userID, "stripe_customer_id", stripeCustomerID)
	return nil
}

// GetByStripeCustomerID retrieves a user by their Stripe customer ID.
func (s *userService) GetByStripeCustomerID(ctx context.Context, stripeCustomerID string) (*domain.User, error) {
	const op = "user.get_by_stripe_customer"

	repoUser, err := s.queries.GetUserByStripeCustomerID(ctx, stripeCustomerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", stripeCustomerID)
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}
	return repoUserToDomain(repoUser), nil
}

// =============================================================================
// Helpers
// =============================================================================

// generateSecureToken returns 32 random bytes hex-encoded to 64 characters.
func generateSecureToken() (string, error) {
	bytes := make([]byte, domain.TokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// generateOTP returns a zero-padded numeric code of domain.OTPDigits digits.
func generateOTP() (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < domain.OTPDigits; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", domain.OTPDigits, n.Int64()), nil
}

// hashToken creates a SHA-256 hash of a code or token for storage.
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// generateNexleadsEmail builds "<slug>.<6 hex>@<domain>" from a display name.
func generateNexleadsEmail(name, mailDomain string) (string, error) {
	suffix := make([]byte, 3)
	if _, err := rand.Read(suffix); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s.%s@%s", slugify(name), hex.EncodeToString(suffix), mailDomain), nil
}

// slugify lower-cases a name and joins its alphanumeric runs with dots.
func slugify(name string) string {
	var b strings.Builder
	pendingDot := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDot && b.Len() > 0 {
				b.WriteByte('.')
			}
			pendingDot = false
			b.WriteRune(r)
			continue
		}
		pendingDot = true
	}
	if b.Len() == 0 {
		return "user"
	}
	return b.String()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// repoUserToDomain converts a repository.User to domain.User. The password
// hash is never copied.
func repoUserToDomain(u repository.User) *domain.User {
	return &domain.User{
		ID:               u.ID,
		Name:             u.Name,
		Email:            u.Email,
		NexleadsEmail:    domain.NullStringValue(u.NexleadsEmail),
		ProfilePicture:   domain.NullStringValue(u.ProfilePicture),
		Type:             domain.UserType(u.UserType),
		IsVerified:       u.IsVerified,
		IsBlocked:        u.IsBlocked,
		StripeCustomerID: domain.NullStringValue(u.StripeCustomerID),
		Ledger:           ledgerFromRow(u.Plan, u.LeadsLimit, u.LeadsUsed, u.ResetDate),
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
		VerifiedAt:       domain.NullTimeValue(u.VerifiedAt),
	}
}

// validateEmail validates an email address format.
func validateEmail(email string) error {
	if email == "" {
		return domain.Invalid("", "Email is required")
	}
	if len(email) > 254 {
		return domain.Invalid("", "Email must be 254 characters or less")
	}

	at := strings.Count(email, "@")
	if at != 1 {
		return domain.Invalid("", "Email must contain exactly one @ symbol")
	}
	atIndex := strings.Index(email, "@")
	if atIndex == 0 {
		return domain.Invalid("", "Email cannot start with @")
	}
	if atIndex == len(email)-1 {
		return domain.Invalid("", "Email cannot end with @")
	}
	if !strings.Contains(email[atIndex+1:], ".") {
		return domain.Invalid("", "Email domain must contain a dot")
	}
	if strings.Contains(email, "..") {
		return domain.Invalid("", "Email cannot contain consecutive dots")
	}
	return nil
}

// validatePassword validates password strength requirements.
//
// Rules:
// - 8 to 72 characters
// - At least one letter and one number
// - Not on the common password list
func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return domain.Invalid("", "Password must be at least 8 characters")
	}
	if len(password) > MaxPasswordLength {
		return domain.Invalid("", "Password must be 72 characters or less")
	}

	var hasLetter, hasNumber bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasNumber = true
		}
	}
	if !hasLetter {
		return domain.Invalid("", "Password must contain at least one letter")
	}
	if !hasNumber {
		return domain.Invalid("", "Password must contain at least one number")
	}

	if _, ok := commonPasswords[strings.ToLower(password)]; ok {
		return domain.Invalid("", "Password is too common. Please choose a stronger password")
	}
	return nil
}
