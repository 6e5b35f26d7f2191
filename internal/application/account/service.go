// Package account implements the account lifecycle: registration, email
// verification, login, profile management and password recovery.
package account

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-accounts-nosql/internal/config"
	"github.com/go-accounts-nosql/internal/domain"
	"github.com/go-accounts-nosql/internal/infrastructure/metrics"
	"github.com/go-accounts-nosql/internal/pkg/password"
	"github.com/go-accounts-nosql/internal/pkg/validate"
	"github.com/samber/oops"
)

// Operation names used for metrics and error context.
const (
	OpRegister             = "register"
	OpVerify               = "verify"
	OpLogin                = "login"
	OpShowProfile          = "show_profile"
	OpUpdateProfile        = "update_profile"
	OpChangePassword       = "change_password"
	OpRequestPasswordReset = "request_password_reset"
	OpResetPassword        = "reset_password"
)

type Service interface {
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.Identity, error)
	Verify(ctx context.Context, req domain.VerifyRequest) error
	Login(ctx context.Context, req domain.LoginRequest) (*domain.Identity, error)
	ShowProfile(ctx context.Context, accountID string) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, accountID string, req domain.UpdateProfileRequest) (*domain.Profile, error)
	ChangePassword(ctx context.Context, accountID string, req domain.ChangePasswordRequest) error
	RequestPasswordReset(ctx context.Context, req domain.PasswordResetRequest) error
	ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error
}

type accountStore interface {
	Create(ctx context.Context, email, passwordHash string) (*domain.Account, error)
	FindByID(ctx context.Context, accountID string) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	SetEnabled(ctx context.Context, email string) (*domain.Account, error)
	UpdateProfile(ctx context.Context, accountID string, upd domain.ProfileUpdate) (*domain.Profile, error)
	UpdatePassword(ctx context.Context, accountID, passwordHash string) error
}

type codeStore interface {
	Issue(ctx context.Context, email string, purpose domain.CodePurpose, ttl time.Duration) (string, error)
	Consume(ctx context.Context, code string, purpose domain.CodePurpose) (string, error)
}

// Notifier delivers a code to the account's email address.
type Notifier interface {
	Send(ctx context.Context, n domain.Notification) error
}

type hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

type service struct {
	accounts      accountStore
	codes         codeStore
	notifier      Notifier
	hasher        hasher
	metrics       *metrics.Recorder
	verifyTTL     time.Duration
	resetTTL      time.Duration
	failOnNotify  bool
	notifyTimeout time.Duration
}

type ServiceDeps struct {
	AccountRepo accountStore
	CodeStore   codeStore
	Notifier    Notifier
	Hasher      hasher
	Metrics     *metrics.Recorder // optional

	VerifyCodeTTL     time.Duration
	ResetCodeTTL      time.Duration
	NotifyFailureMode string // config.NotifyFailureIgnore | config.NotifyFailureFail
	NotifyTimeout     time.Duration
}

func NewService(deps ServiceDeps) Service {
	notifyTimeout := deps.NotifyTimeout
	if notifyTimeout <= 0 {
		notifyTimeout = 5 * time.Second
	}
	return &service{
		accounts:      deps.AccountRepo,
		codes:         deps.CodeStore,
		notifier:      deps.Notifier,
		hasher:        deps.Hasher,
		metrics:       deps.Metrics,
		verifyTTL:     deps.VerifyCodeTTL,
		resetTTL:      deps.ResetCodeTTL,
		failOnNotify:  deps.NotifyFailureMode == config.NotifyFailureFail,
		notifyTimeout: notifyTimeout,
	}
}

func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (_ *domain.Identity, err error) {
	defer func() { s.metrics.Operation(OpRegister, err) }()

	if err := validate.Struct(req); err != nil {
		return nil, oops.Code(CodeInvalidInput).Wrap(err)
	}
	if err := password.Validate(req.Password, req.ConfirmedPassword); err != nil {
		return nil, oops.Code(CodeWeakPassword).Wrap(err)
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, collaboratorErr(OpRegister, err)
	}
	a, err := s.accounts.Create(ctx, req.Email, hash)
	if errors.Is(err, domain.ErrConflict) {
		return nil, oops.Code(CodeDuplicateEmail).With("email", domain.NormalizeEmail(req.Email)).Wrap(err)
	}
	if err != nil {
		return nil, collaboratorErr(OpRegister, err)
	}

	// The account exists from here on; a lost code can be re-sent by logging in.
	if err := s.sendCode(ctx, a.Email, domain.PurposeVerifyAccount); err != nil {
		if s.failOnNotify {
			return nil, collaboratorErr(OpRegister, err)
		}
		slog.WarnContext(ctx, "verification code not delivered", "account_id", a.AccountID, "err", err)
	}
	return a.Identity(), nil
}

func (s *service) Verify(ctx context.Context, req domain.VerifyRequest) (err error) {
	defer func() { s.metrics.Operation(OpVerify, err) }()

	if err := validate.Struct(req); err != nil {
		return oops.Code(CodeInvalidInput).Wrap(err)
	}
	email, err := s.consume(ctx, req.Code, domain.PurposeVerifyAccount)
	if err != nil {
		return err
	}
	if _, err := s.accounts.SetEnabled(ctx, email); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return oops.Code(CodeInvalidCode).Wrap(domain.ErrInvalidCode)
		}
		return collaboratorErr(OpVerify, err)
	}
	return nil
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (_ *domain.Identity, err error) {
	defer func() { s.metrics.Operation(OpLogin, err) }()

	if err := validate.Struct(req); err != nil {
		return nil, oops.Code(CodeInvalidInput).Wrap(err)
	}
	a, err := s.accounts.FindByEmail(ctx, req.Email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, oops.Code(CodeWrongEmail).Wrapf(err, "no account for this email")
	}
	if err != nil {
		return nil, collaboratorErr(OpLogin, err)
	}
	if !s.hasher.Verify(req.Password, a.PasswordHash) {
		return nil, oops.Code(CodeWrongPassword).Wrapf(domain.ErrUnauthorized, "wrong password")
	}
	if !a.Verified() {
		// Best effort: the caller gets the not-verified signal whatever the outcome.
		if err := s.sendCode(ctx, a.Email, domain.PurposeVerifyAccount); err != nil {
			slog.WarnContext(ctx, "verification code not re-sent", "account_id", a.AccountID, "err", err)
		}
		return nil, oops.Code(CodeNotVerified).With("account_id", a.AccountID).Wrap(domain.ErrNotVerified)
	}
	return a.Identity(), nil
}

func (s *service) ShowProfile(ctx context.Context, accountID string) (_ *domain.Profile, err error) {
	defer func() { s.metrics.Operation(OpShowProfile, err) }()
	return s.profile(ctx, OpShowProfile, accountID)
}

func (s *service) UpdateProfile(ctx context.Context, accountID string, req domain.UpdateProfileRequest) (_ *domain.Profile, err error) {
	defer func() { s.metrics.Operation(OpUpdateProfile, err) }()

	if err := validate.Struct(req); err != nil {
		return nil, oops.Code(CodeInvalidInput).Wrap(err)
	}
	upd := domain.ProfileUpdate{Email: req.Email, FirstName: req.FirstName, LastName: req.LastName}
	if upd.Empty() {
		return s.profile(ctx, OpUpdateProfile, accountID)
	}
	p, err := s.accounts.UpdateProfile(ctx, accountID, upd)
	switch {
	case errors.Is(err, domain.ErrConflict):
		return nil, oops.Code(CodeDuplicateEmail).With("account_id", accountID).Wrap(err)
	case errors.Is(err, domain.ErrNotFound):
		return nil, oops.Code(CodeNotFound).With("account_id", accountID).Wrap(err)
	case err != nil:
		return nil, collaboratorErr(OpUpdateProfile, err)
	}
	return p, nil
}

func (s *service) ChangePassword(ctx context.Context, accountID string, req domain.ChangePasswordRequest) (err error) {
	defer func() { s.metrics.Operation(OpChangePassword, err) }()

	if err := validate.Struct(req); err != nil {
		return oops.Code(CodeInvalidInput).Wrap(err)
	}
	if err := password.Validate(req.NewPassword, req.ConfirmedNewPassword); err != nil {
		return oops.Code(CodeWeakPassword).Wrap(err)
	}
	a, err := s.accounts.FindByID(ctx, accountID)
	if errors.Is(err, domain.ErrNotFound) {
		return oops.Code(CodeNotFound).With("account_id", accountID).Wrap(err)
	}
	if err != nil {
		return collaboratorErr(OpChangePassword, err)
	}
	if !s.hasher.Verify(req.OldPassword, a.PasswordHash) {
		return oops.Code(CodeWrongOldPassword).Wrapf(domain.ErrUnauthorized, "wrong old password")
	}
	return s.storePassword(ctx, OpChangePassword, a.AccountID, req.NewPassword)
}

func (s *service) RequestPasswordReset(ctx context.Context, req domain.PasswordResetRequest) (err error) {
	defer func() { s.metrics.Operation(OpRequestPasswordReset, err) }()

	if err := validate.Struct(req); err != nil {
		return oops.Code(CodeInvalidInput).Wrap(err)
	}
	a, err := s.accounts.FindByEmail(ctx, req.Email)
	if errors.Is(err, domain.ErrNotFound) {
		return oops.Code(CodeWrongEmail).Wrapf(err, "no account for this email")
	}
	if err != nil {
		return collaboratorErr(OpRequestPasswordReset, err)
	}

	code, err := s.issue(ctx, a.Email, domain.PurposeResetPassword)
	if err != nil {
		return collaboratorErr(OpRequestPasswordReset, err)
	}
	if err := s.notify(ctx, a.Email, domain.PurposeResetPassword, code); err != nil {
		if s.failOnNotify {
			return collaboratorErr(OpRequestPasswordReset, err)
		}
		slog.WarnContext(ctx, "reset code not delivered", "account_id", a.AccountID, "err", err)
	}
	return nil
}

func (s *service) ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) (err error) {
	defer func() { s.metrics.Operation(OpResetPassword, err) }()

	if err := validate.Struct(req); err != nil {
		return oops.Code(CodeInvalidInput).Wrap(err)
	}
	// Everything that can reject the new password runs before the code is spent.
	if err := password.Validate(req.NewPassword, req.ConfirmedNewPassword); err != nil {
		return oops.Code(CodeWeakPassword).Wrap(err)
	}
	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return collaboratorErr(OpResetPassword, err)
	}

	email, err := s.consume(ctx, req.Code, domain.PurposeResetPassword)
	if err != nil {
		return err
	}
	a, err := s.accounts.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return oops.Code(CodeInvalidCode).Wrap(domain.ErrInvalidCode)
	}
	if err != nil {
		return collaboratorErr(OpResetPassword, err)
	}
	if err := s.accounts.UpdatePassword(ctx, a.AccountID, hash); err != nil {
		return collaboratorErr(OpResetPassword, err)
	}
	return nil
}

func (s *service) profile(ctx context.Context, op, accountID string) (*domain.Profile, error) {
	a, err := s.accounts.FindByID(ctx, accountID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, oops.Code(CodeNotFound).With("account_id", accountID).Wrap(err)
	}
	if err != nil {
		return nil, collaboratorErr(op, err)
	}
	return a.Profile(), nil
}

func (s *service) storePassword(ctx context.Context, op, accountID, plaintext string) error {
	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		return collaboratorErr(op, err)
	}
	if err := s.accounts.UpdatePassword(ctx, accountID, hash); err != nil {
		return collaboratorErr(op, err)
	}
	return nil
}

// sendCode issues a code for purpose and delivers it to email.
func (s *service) sendCode(ctx context.Context, email string, purpose domain.CodePurpose) error {
	code, err := s.issue(ctx, email, purpose)
	if err != nil {
		return err
	}
	return s.notify(ctx, email, purpose, code)
}

func (s *service) issue(ctx context.Context, email string, purpose domain.CodePurpose) (string, error) {
	ttl := s.verifyTTL
	if purpose == domain.PurposeResetPassword {
		ttl = s.resetTTL
	}
	code, err := s.codes.Issue(ctx, email, purpose, ttl)
	if err != nil {
		return "", err
	}
	s.metrics.Code(string(purpose), metrics.CodeIssued)
	return code, nil
}

// consume resolves a code to its email. Unknown, expired, spent and
// wrong-purpose codes are indistinguishable to the caller.
func (s *service) consume(ctx context.Context, code string, purpose domain.CodePurpose) (string, error) {
	email, err := s.codes.Consume(ctx, code, purpose)
	if errors.Is(err, domain.ErrNotFound) {
		s.metrics.Code(string(purpose), metrics.CodeRejected)
		return "", oops.Code(CodeInvalidCode).Wrap(domain.ErrInvalidCode)
	}
	if err != nil {
		return "", collaboratorErr("consume_code", err)
	}
	s.metrics.Code(string(purpose), metrics.CodeConsumed)
	return email, nil
}

// notify delivers on a context detached from the request so a client
// disconnect does not abort delivery; notifyTimeout bounds it instead.
func (s *service) notify(ctx context.Context, email string, purpose domain.CodePurpose, code string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()

	action := purpose.Action()
	err := s.notifier.Send(ctx, domain.Notification{Email: email, Action: action, Code: code})
	s.metrics.Notification(action, err)
	return err
}
