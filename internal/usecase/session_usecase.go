package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/clients"
	"storefront/internal/domain"
	"storefront/internal/state"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const (
	msgInvalidCredentials = "Invalid credentials"
	msgRegistrationFailed = "Registration failed"
)

type SessionOptions struct {
	// RegisterAutoLogin logs the new account in right after Register.
	RegisterAutoLogin bool
}

// SessionUseCase owns the authentication lifecycle.
type SessionUseCase struct {
	state *state.State
	auth  clients.AuthClient
	opts  SessionOptions
	now   func() time.Time
	log   *logrus.Logger
}

func NewSessionUseCase(st *state.State, auth clients.AuthClient, opts SessionOptions, logger *logrus.Logger) *SessionUseCase {
	return &SessionUseCase{
		state: st,
		auth:  auth,
		opts:  opts,
		now:   time.Now,
		log:   logger,
	}
}

// Restore runs once at startup: it loads the persisted token and, if there
// is one, resolves the identity behind it.
func (uc *SessionUseCase) Restore(ctx context.Context) state.Snapshot {
	token, _ := uc.state.Load(ctx)
	if token == "" {
		return uc.state.Snapshot()
	}

	if tokenExpired(token, uc.now()) {
		uc.log.Warn("Use Case: Persisted token has expired, discarding it")
		uc.state.ClearIfToken(ctx, token)
		return uc.state.Snapshot()
	}

	if _, err := uc.FetchIdentity(ctx); err != nil {
		uc.log.Warnf("Use Case: Could not restore session: %v", err)
	}
	return uc.state.Snapshot()
}

// FetchIdentity resolves the user for the current token. Any failure clears
// the session exactly like Logout.
func (uc *SessionUseCase) FetchIdentity(ctx context.Context) (*domain.User, error) {
	token := uc.state.Token()
	if token == "" {
		return nil, domain.ErrNotAuthenticated
	}

	user, err := uc.auth.Me(ctx)
	if err != nil {
		uc.log.Warnf("Use Case: Identity fetch failed, clearing session: %v", err)
		uc.state.ClearIfToken(ctx, token)
		return nil, fmt.Errorf("failed to fetch identity: %w", err)
	}

	if !uc.state.SetUser(ctx, token, user) {
		return nil, fmt.Errorf("session changed while fetching identity: %w", domain.ErrNotAuthenticated)
	}
	uc.log.Infof("Use Case: Session authenticated as %s (ID: %d)", user.Username, user.ID)
	return user, nil
}

func (uc *SessionUseCase) Login(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	uc.log.Infof("Use Case: Attempting login for email: %s", email)

	uc.state.SetLoading(ctx, true)
	defer uc.state.SetLoading(ctx, false)

	token, err := uc.auth.Login(ctx, email, password)
	if err != nil {
		return nil, uc.loginError(email, err)
	}

	if err := uc.state.SetToken(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to store access token: %w", err)
	}

	user, err := uc.FetchIdentity(ctx)
	if err != nil {
		return nil, err
	}
	uc.log.Infof("Use Case: Login successful for %s (ID: %d)", email, user.ID)
	return user, nil
}

func (uc *SessionUseCase) loginError(email string, err error) error {
	if errors.Is(err, domain.ErrMissingToken) {
		uc.log.Errorf("Use Case: Login for %s returned no token", email)
		return &domain.FailureError{Reason: domain.ErrInvalidCredentials, Message: msgInvalidCredentials, Err: err}
	}

	apiErr, ok := clients.AsAPIError(err)
	if !ok || (apiErr.Kind != clients.ValidationFailure && apiErr.Kind != clients.AuthorizationFailure) {
		uc.log.Errorf("Use Case: Login for %s failed: %v", email, err)
		return fmt.Errorf("login failed: %w", err)
	}

	message := msgInvalidCredentials
	switch {
	case apiErr.Detail != "":
		message = apiErr.Detail
	case len(apiErr.NonFieldErrors) > 0:
		message = apiErr.NonFieldErrors[0]
	}
	uc.log.Warnf("Use Case: Login rejected for %s: %s", email, message)
	return &domain.FailureError{Reason: domain.ErrInvalidCredentials, Message: message, Err: err}
}

// Register creates an account. Whether it also logs in is configured with
// SessionOptions.RegisterAutoLogin.
func (uc *SessionUseCase) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	uc.log.Infof("Use Case: Attempting registration for email: %s", req.Email)

	if req.PasswordConfirm != req.Password {
		uc.log.Warn("Use Case: Registration failed - passwords do not match")
		return nil, &domain.ValidationError{
			Message: "Passwords do not match",
			Fields:  map[string][]string{"password_confirm": {"Passwords do not match"}},
			Cause:   domain.ErrRegistrationFailed,
		}
	}
	if req.UserType == "" {
		req.UserType = domain.UserTypeConsumer
	}

	uc.state.SetLoading(ctx, true)
	created, err := uc.auth.Register(ctx, req)
	uc.state.SetLoading(ctx, false)
	if err != nil {
		return nil, uc.registerError(req.Email, err)
	}
	uc.log.Infof("Use Case: User registered successfully. Email: %s", req.Email)

	if !uc.opts.RegisterAutoLogin {
		return created, nil
	}
	return uc.Login(ctx, req.Email, req.Password)
}

func (uc *SessionUseCase) registerError(email string, err error) error {
	apiErr, ok := clients.AsAPIError(err)
	if !ok || apiErr.Kind != clients.ValidationFailure {
		uc.log.Errorf("Use Case: Registration for %s failed: %v", email, err)
		return &domain.FailureError{Reason: domain.ErrRegistrationFailed, Message: msgRegistrationFailed, Err: err}
	}

	if len(apiErr.FieldErrors) == 0 && len(apiErr.NonFieldErrors) == 0 {
		message := msgRegistrationFailed
		if apiErr.Detail != "" {
			message = apiErr.Detail
		}
		uc.log.Warnf("Use Case: Registration rejected for %s: %s", email, message)
		return &domain.FailureError{Reason: domain.ErrRegistrationFailed, Message: message, Err: err}
	}

	fields := make(map[string][]string, len(apiErr.FieldErrors)+1)
	for name, messages := range apiErr.FieldErrors {
		fields[name] = messages
	}
	if len(apiErr.NonFieldErrors) > 0 {
		fields["non_field_errors"] = apiErr.NonFieldErrors
	}
	message := registrationMessage(apiErr)
	uc.log.Warnf("Use Case: Registration rejected for %s: %s", email, message)
	return &domain.ValidationError{Message: message, Fields: fields, Cause: domain.ErrRegistrationFailed}
}

// registrationMessage picks what to show: every password problem, else the
// first email or username problem, else the server detail.
func registrationMessage(apiErr *clients.APIError) string {
	if msgs := apiErr.FieldErrors["password"]; len(msgs) > 0 {
		return strings.Join(msgs, ", ")
	}
	for _, field := range []string{"email", "username"} {
		if msgs := apiErr.FieldErrors[field]; len(msgs) > 0 {
			return msgs[0]
		}
	}
	if apiErr.Detail != "" {
		return apiErr.Detail
	}
	if len(apiErr.NonFieldErrors) > 0 {
		return apiErr.NonFieldErrors[0]
	}
	return apiErr.Message()
}

// Logout never fails.
func (uc *SessionUseCase) Logout(ctx context.Context) {
	if uc.state.Clear(ctx) {
		uc.log.Info("Use Case: Logged out")
	}
}

func (uc *SessionUseCase) Snapshot() state.Snapshot {
	return uc.state.Snapshot()
}

func (uc *SessionUseCase) IsAuthenticated() bool {
	return uc.state.IsAuthenticated()
}

// tokenExpired reads the exp claim of a JWT without verifying it. Tokens
// that are not JWTs, or carry no exp, are never considered expired here.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.Time.After(now)
}
