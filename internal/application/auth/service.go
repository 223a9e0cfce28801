package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/plateping/api/internal/application/guard"
	"github.com/plateping/api/internal/application/otp"
	"github.com/plateping/api/internal/domain"
	"github.com/plateping/api/internal/infrastructure/apple"
	"github.com/plateping/api/internal/infrastructure/line"
	"github.com/plateping/api/internal/pkg/plate"
	"github.com/plateping/api/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

// User record attribute names used in partial update maps.
const (
	fieldPasswordHash    = "password_hash"
	fieldLineDisplayName = "line_display_name"
	fieldLinePictureURL  = "line_picture_url"
	fieldIsLineFriend    = "is_line_friend"
	fieldAppleEmail      = "apple_email"
	fieldAppleFullName   = "apple_full_name"
)

// LoginResult is what every successful credential path converges on.
type LoginResult struct {
	AccessToken string
	User        *domain.User
}

type Service interface {
	// Phone/OTP flows.
	VerifyPhone(ctx context.Context, phone string) (code string, remaining int, err error)
	Login(ctx context.Context, phone, code string) (*LoginResult, error)
	SetPassword(ctx context.Context, phone, code, password string) (*LoginResult, error)
	ResetPassword(ctx context.Context, phone, code, newPassword string) error
	CheckPhone(ctx context.Context, phone string) (exists, hasPassword bool, err error)
	ResetVerifyCount(ctx context.Context, phone string) error

	// Password flows.
	PasswordLogin(ctx context.Context, phone, password string) (*LoginResult, error)
	PlateLogin(ctx context.Context, licensePlate, password string) (*LoginResult, error)

	// Federated flows.
	LineAuthorizeURL(state string, mobile bool) string
	LineLogin(ctx context.Context, code, redirectURI string) (*LoginResult, error)
	LineMobileLogin(ctx context.Context, code string) (*LoginResult, error)
	LineTokenLogin(ctx context.Context, accessToken string) (*LoginResult, error)
	AppleLogin(ctx context.Context, identityToken, fullName, email string) (*LoginResult, error)
}

type userStore interface {
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	GetByLicensePlate(ctx context.Context, plate string) (*domain.User, error)
	GetByLineUserID(ctx context.Context, lineUserID string) (*domain.User, error)
	GetByAppleUserID(ctx context.Context, appleUserID string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type tokenSigner interface {
	Sign(user *domain.User, identity domain.ProviderIdentity) (string, error)
}

type lineClient interface {
	AuthorizeURL(state string, mobile bool) string
	CallbackURL(mobile bool) string
	ExchangeCode(ctx context.Context, code, redirectURI string) (*line.Token, error)
	FetchProfile(ctx context.Context, accessToken string) (*line.Profile, error)
	FetchFriendshipStatus(ctx context.Context, accessToken string) bool
}

type appleVerifier interface {
	Verify(ctx context.Context, identityToken string) (*apple.Payload, error)
}

type service struct {
	users  userStore
	otp    *otp.Engine
	guard  *guard.Guard
	line   lineClient
	apple  appleVerifier
	signer tokenSigner
}

type ServiceDeps struct {
	UserRepo  userStore
	OTPEngine *otp.Engine
	Guard     *guard.Guard
	Line      lineClient
	Apple     appleVerifier
	Signer    tokenSigner
}

func NewService(deps ServiceDeps) Service {
	return &service{
		users:  deps.UserRepo,
		otp:    deps.OTPEngine,
		guard:  deps.Guard,
		line:   deps.Line,
		apple:  deps.Apple,
		signer: deps.Signer,
	}
}

// ── Phone/OTP flows ─────────────────────────────────────────────────────────

func (s *service) VerifyPhone(ctx context.Context, phone string) (string, int, error) {
	return s.otp.Issue(ctx, phone)
}

func (s *service) Login(ctx context.Context, phone, code string) (*LoginResult, error) {
	if err := s.otp.Verify(ctx, phone, code); err != nil {
		return nil, verifyErr(err)
	}
	return s.finish(ctx, domain.PhoneIdentity{Phone: phone})
}

func (s *service) SetPassword(ctx context.Context, phone, code, password string) (*LoginResult, error) {
	if !validate.Password(password) {
		return nil, fmt.Errorf("password must be 6-12 letters or digits: %w", domain.ErrBadRequest)
	}
	if err := s.otp.Verify(ctx, phone, code); err != nil {
		return nil, verifyErr(err)
	}
	user, err := s.resolve(ctx, domain.PhoneIdentity{Phone: phone})
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, user.UserID, map[string]interface{}{fieldPasswordHash: string(hash)}); err != nil {
		return nil, err
	}
	user.PasswordHash = string(hash)
	return s.issue(user, domain.PhoneIdentity{Phone: phone})
}

func (s *service) ResetPassword(ctx context.Context, phone, code, newPassword string) error {
	user, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		return err
	}
	if !validate.Password(newPassword) {
		return fmt.Errorf("password must be 6-12 letters or digits: %w", domain.ErrBadRequest)
	}
	if err := s.otp.Verify(ctx, phone, code); err != nil {
		return verifyErr(err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.users.Update(ctx, user.UserID, map[string]interface{}{fieldPasswordHash: string(hash)})
}

func (s *service) CheckPhone(ctx context.Context, phone string) (bool, bool, error) {
	user, err := s.users.GetByPhone(ctx, phone)
	if errors.Is(err, domain.ErrNotFound) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return true, user.HasPassword(), nil
}

func (s *service) ResetVerifyCount(ctx context.Context, phone string) error {
	return s.otp.ResetDailyCount(ctx, phone)
}

// ── Password flows ──────────────────────────────────────────────────────────

func (s *service) PasswordLogin(ctx context.Context, phone, password string) (*LoginResult, error) {
	user, err := s.lookupForPassword(ctx, guard.ScopePassword, phone, func() (*domain.User, error) {
		return s.users.GetByPhone(ctx, phone)
	})
	if err != nil {
		return nil, err
	}
	if err := s.checkPassword(ctx, guard.ScopePassword, phone, user, password); err != nil {
		return nil, err
	}
	return s.finish(ctx, domain.PhoneIdentity{Phone: phone})
}

func (s *service) PlateLogin(ctx context.Context, licensePlate, password string) (*LoginResult, error) {
	normalized := plate.Normalize(licensePlate)
	user, err := s.lookupForPassword(ctx, guard.ScopePlatePassword, normalized, func() (*domain.User, error) {
		return s.users.GetByLicensePlate(ctx, normalized)
	})
	if err != nil {
		return nil, err
	}
	if err := s.checkPassword(ctx, guard.ScopePlatePassword, normalized, user, password); err != nil {
		return nil, err
	}
	return s.finish(ctx, domain.PlateIdentity{LicensePlate: normalized})
}

// lookupForPassword finds the account for a password check. A nonexistent
// account takes the same guarded path as a wrong password so callers cannot
// enumerate users: the lockout counter advances and the error is the generic
// invalid-credential one.
func (s *service) lookupForPassword(ctx context.Context, scope guard.Scope, subject string, get func() (*domain.User, error)) (*domain.User, error) {
	user, err := get()
	if errors.Is(err, domain.ErrNotFound) {
		return nil, s.guard.Fail(ctx, scope, subject, "")
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *service) checkPassword(ctx context.Context, scope guard.Scope, subject string, user *domain.User, password string) error {
	if !user.HasPassword() {
		// No secret was compared, so the lockout counter does not move.
		return domain.ErrNoPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return s.guard.Fail(ctx, scope, subject, "")
	}
	return s.guard.Reset(ctx, scope, subject)
}

// ── Federated flows ─────────────────────────────────────────────────────────

func (s *service) LineAuthorizeURL(state string, mobile bool) string {
	return s.line.AuthorizeURL(state, mobile)
}

func (s *service) LineLogin(ctx context.Context, code, redirectURI string) (*LoginResult, error) {
	tok, err := s.line.ExchangeCode(ctx, code, redirectURI)
	if err != nil {
		return nil, providerErr("line code exchange", err)
	}
	return s.lineProfileLogin(ctx, tok.AccessToken)
}

// LineMobileLogin is the code flow with the deep-link callback URI; it reuses
// the exact same exchange and resolution path.
func (s *service) LineMobileLogin(ctx context.Context, code string) (*LoginResult, error) {
	return s.LineLogin(ctx, code, s.line.CallbackURL(true))
}

func (s *service) LineTokenLogin(ctx context.Context, accessToken string) (*LoginResult, error) {
	return s.lineProfileLogin(ctx, accessToken)
}

func (s *service) lineProfileLogin(ctx context.Context, accessToken string) (*LoginResult, error) {
	profile, err := s.line.FetchProfile(ctx, accessToken)
	if err != nil {
		return nil, providerErr("line profile fetch", err)
	}
	identity := domain.LineIdentity{
		LineUserID:  profile.UserID,
		DisplayName: profile.DisplayName,
		PictureURL:  profile.PictureURL,
		IsFriend:    s.line.FetchFriendshipStatus(ctx, accessToken),
	}
	// Resolution and store errors propagate as-is: blocked accounts surface
	// distinctly and internal faults stay fatal instead of masquerading as a
	// provider failure.
	return s.finish(ctx, identity)
}

func (s *service) AppleLogin(ctx context.Context, identityToken, fullName, email string) (*LoginResult, error) {
	payload, err := s.apple.Verify(ctx, identityToken)
	if err != nil {
		return nil, err
	}
	// Apple only supplies email/name on the first authorization; prefer the
	// verified token claim over the client-supplied value.
	if payload.Email != "" {
		email = payload.Email
	}
	identity := domain.AppleIdentity{Subject: payload.Subject, Email: email, FullName: fullName}
	return s.finish(ctx, identity)
}

// ── Shared tail ─────────────────────────────────────────────────────────────

// finish runs identity resolution and session issuance, the tail every
// credential path converges on.
func (s *service) finish(ctx context.Context, identity domain.ProviderIdentity) (*LoginResult, error) {
	user, err := s.resolve(ctx, identity)
	if err != nil {
		return nil, err
	}
	return s.issue(user, identity)
}

func (s *service) issue(user *domain.User, identity domain.ProviderIdentity) (*LoginResult, error) {
	token, err := s.signer.Sign(user, identity)
	if err != nil {
		return nil, err
	}
	return &LoginResult{AccessToken: token, User: user}, nil
}

// verifyErr adds the restart instruction to lockout errors from the OTP path.
func verifyErr(err error) error {
	if errors.Is(err, domain.ErrLocked) {
		return fmt.Errorf("verification code invalidated, request a new one: %w", domain.ErrLocked)
	}
	return err
}

// providerErr logs the real cause and hands the caller an opaque failure.
func providerErr(stage string, err error) error {
	slog.Warn("provider login failed", "stage", stage, "err", err)
	return domain.ErrProviderLogin
}
