package services

import (
	"context"
	"encoding/base32"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/shashiranjanraj/cafe/app/models"
	"github.com/shashiranjanraj/cafe/app/repositories"
	"github.com/shashiranjanraj/cafe/pkg/cache"
	"github.com/shashiranjanraj/cafe/pkg/crypt"
	"github.com/shashiranjanraj/cafe/pkg/logger"
	"github.com/shashiranjanraj/cafe/pkg/metrics"
)

const (
	totpPeriod     = 30
	totpSkew       = 1
	totpSecretSize = 20 // bytes, 160 bits
)

var codePattern = regexp.MustCompile(`^[0-9]{6}$`)

// Enrollment is what an authenticator app needs to produce codes.
type Enrollment struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
}

// TrustStatus is a point-in-time view of a user's trust window.
type TrustStatus struct {
	Trusted    bool `json:"trusted"`
	TTLSeconds int  `json:"ttl_seconds"`
	Enrolled   bool `json:"enrolled"`
}

// TrustGate tracks per-user second factor trust windows. Secrets live sealed
// on the user's profile; windows live in the cache under trust:<user id>
// with the store's TTL doing the expiry.
type TrustGate struct {
	users    *repositories.UserRepository
	store    cache.Store
	box      *crypt.Box
	issuer   string
	duration time.Duration
	now      func() time.Time
}

type TrustOption func(*TrustGate)

// WithTrustClock replaces time.Now for code validation and TTL arithmetic.
func WithTrustClock(now func() time.Time) TrustOption {
	return func(g *TrustGate) { g.now = now }
}

func NewTrustGate(users *repositories.UserRepository, store cache.Store, box *crypt.Box,
	issuer string, duration time.Duration, opts ...TrustOption) *TrustGate {
	g := &TrustGate{
		users:    users,
		store:    store,
		box:      box,
		issuer:   issuer,
		duration: duration,
		now:      time.Now,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Duration is the length of a fresh trust window.
func (g *TrustGate) Duration() time.Duration { return g.duration }

func trustKey(userID uint) string { return "trust:" + strconv.FormatUint(uint64(userID), 10) }

// EnrollSecret returns the user's TOTP secret, generating one on first call.
// Later calls return the same secret until Reset.
func (g *TrustGate) EnrollSecret(ctx context.Context, user models.User) (Enrollment, error) {
	secret, err := g.secret(ctx, user)
	if err != nil {
		return Enrollment{}, err
	}
	if secret != "" {
		return g.enrollment(user, secret)
	}

	key, err := g.generate(user, nil)
	if err != nil {
		return Enrollment{}, err
	}
	sealed, err := g.box.Seal(key.Secret())
	if err != nil {
		return Enrollment{}, fmt.Errorf("trust: seal secret: %w", err)
	}
	stored, err := g.users.SetTOTPSecretIfEmpty(ctx, user.ID, sealed)
	if err != nil {
		return Enrollment{}, fmt.Errorf("trust: store secret: %w", err)
	}
	if !stored {
		// Lost a race with a concurrent enrollment; hand out the winner's.
		secret, err = g.secret(ctx, user)
		if err != nil {
			return Enrollment{}, err
		}
		return g.enrollment(user, secret)
	}

	logger.Audit(ctx, "trust.enrolled", "user_id", user.ID)
	return Enrollment{Secret: key.Secret(), ProvisioningURI: key.URL()}, nil
}

// VerifyCode checks code against the enrolled secret and opens a fresh trust
// window on success. Not enrolled and malformed codes are plain false.
func (g *TrustGate) VerifyCode(ctx context.Context, user models.User, code string) (bool, error) {
	secret, err := g.secret(ctx, user)
	if err != nil {
		return false, err
	}
	if secret == "" {
		metrics.TrustVerifications.WithLabelValues("not_enrolled").Inc()
		return false, nil
	}
	if !codePattern.MatchString(code) {
		metrics.TrustVerifications.WithLabelValues("rejected").Inc()
		return false, nil
	}

	now := g.now()
	ok, err := totp.ValidateCustom(code, secret, now, totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      totpSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil || !ok {
		metrics.TrustVerifications.WithLabelValues("rejected").Inc()
		logger.Audit(ctx, "trust.rejected", "user_id", user.ID)
		return false, nil
	}

	expiry := now.Add(g.duration).UnixMilli()
	if err := g.store.Set(ctx, trustKey(user.ID), expiry, g.duration); err != nil {
		return false, fmt.Errorf("trust: open window: %w", err)
	}
	metrics.TrustVerifications.WithLabelValues("accepted").Inc()
	logger.Audit(ctx, "trust.verified", "user_id", user.ID, "ttl_seconds", int(g.duration/time.Second))
	return true, nil
}

// Status reports the remaining window without changing it.
func (g *TrustGate) Status(ctx context.Context, user models.User) (TrustStatus, error) {
	secret, err := g.secret(ctx, user)
	if err != nil {
		return TrustStatus{}, err
	}
	ttl, err := g.remaining(ctx, user.ID)
	if err != nil {
		return TrustStatus{}, err
	}
	return TrustStatus{Trusted: ttl > 0, TTLSeconds: ttl, Enrolled: secret != ""}, nil
}

// IsTrusted is the predicate the permission layer consults. Store failures
// count as untrusted.
func (g *TrustGate) IsTrusted(ctx context.Context, userID uint) bool {
	ttl, err := g.remaining(ctx, userID)
	if err != nil {
		logger.WithCtx(ctx).Warn("trust: status lookup failed", "user_id", userID, "error", err)
		return false
	}
	return ttl > 0
}

// Revoke closes the user's trust window.
func (g *TrustGate) Revoke(ctx context.Context, userID uint, reason string) error {
	if err := g.store.Del(ctx, trustKey(userID)); err != nil {
		return fmt.Errorf("trust: revoke: %w", err)
	}
	metrics.TrustRevocations.WithLabelValues(reason).Inc()
	logger.Audit(ctx, "trust.revoked", "user_id", userID, "reason", reason)
	return nil
}

// Reset revokes the window and rotates the secret, so every authenticator
// provisioned with the old secret stops working.
func (g *TrustGate) Reset(ctx context.Context, user models.User) (Enrollment, error) {
	if err := g.Revoke(ctx, user.ID, "reset"); err != nil {
		return Enrollment{}, err
	}
	if _, err := g.users.EnsureProfile(ctx, user); err != nil {
		return Enrollment{}, fmt.Errorf("trust: ensure profile: %w", err)
	}

	key, err := g.generate(user, nil)
	if err != nil {
		return Enrollment{}, err
	}
	sealed, err := g.box.Seal(key.Secret())
	if err != nil {
		return Enrollment{}, fmt.Errorf("trust: seal secret: %w", err)
	}
	if err := g.users.SetTOTPSecret(ctx, user.ID, sealed); err != nil {
		return Enrollment{}, fmt.Errorf("trust: store secret: %w", err)
	}
	logger.Audit(ctx, "trust.reset", "user_id", user.ID)
	return Enrollment{Secret: key.Secret(), ProvisioningURI: key.URL()}, nil
}

func (g *TrustGate) remaining(ctx context.Context, userID uint) (int, error) {
	var expiry int64
	found, err := g.store.Get(ctx, trustKey(userID), &expiry)
	if err != nil {
		return 0, fmt.Errorf("trust: read window: %w", err)
	}
	if !found {
		return 0, nil
	}
	left := time.UnixMilli(expiry).Sub(g.now())
	if left <= 0 {
		return 0, nil
	}
	return int(left / time.Second), nil
}

// secret returns the user's plaintext secret, "" when not enrolled. The
// profile is created on first touch.
func (g *TrustGate) secret(ctx context.Context, user models.User) (string, error) {
	profile, err := g.users.EnsureProfile(ctx, user)
	if err != nil {
		return "", fmt.Errorf("trust: ensure profile: %w", err)
	}
	if !profile.Enrolled() {
		return "", nil
	}
	plain, err := g.box.Open(profile.TOTPSecret)
	if err != nil {
		return "", fmt.Errorf("trust: open secret: %w", err)
	}
	return plain, nil
}

func (g *TrustGate) enrollment(user models.User, secret string) (Enrollment, error) {
	raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(secret)
	if err != nil {
		return Enrollment{}, fmt.Errorf("trust: decode secret: %w", err)
	}
	key, err := g.generate(user, raw)
	if err != nil {
		return Enrollment{}, err
	}
	return Enrollment{Secret: key.Secret(), ProvisioningURI: key.URL()}, nil
}

// generate builds an otpauth key; a nil raw secret draws a random one.
func (g *TrustGate) generate(user models.User, raw []byte) (*otp.Key, error) {
	account := user.Username
	if account == "" {
		account = strconv.FormatUint(uint64(user.ID), 10)
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      g.issuer,
		AccountName: account,
		Period:      totpPeriod,
		SecretSize:  totpSecretSize,
		Secret:      raw,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("trust: generate secret: %w", err)
	}
	return key, nil
}
