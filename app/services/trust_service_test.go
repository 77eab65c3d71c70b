package services_test

import (
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/cafe/app/models"
	"github.com/shashiranjanraj/cafe/app/repositories"
	"github.com/shashiranjanraj/cafe/app/services"
	"github.com/shashiranjanraj/cafe/pkg/cache"
	"github.com/shashiranjanraj/cafe/pkg/crypt"
)

type trustFixture struct {
	gate  *services.TrustGate
	clock *fakeClock
	user  models.User
	users *repositories.UserRepository
}

func newTrustFixture(t *testing.T) trustFixture {
	t.Helper()
	db := newDB(t)
	clock := newClock()
	users := repositories.NewUserRepository(db)
	gate := services.NewTrustGate(users, cache.NewMemory(cache.WithClock(clock.Now)), crypt.NewBox("test-key"),
		"CafeApp", 300*time.Second, services.WithTrustClock(clock.Now))
	return trustFixture{gate: gate, clock: clock, user: createUser(t, db, "staff", models.RoleElevated), users: users}
}

func (f trustFixture) code(t *testing.T, secret string, at time.Time) string {
	t.Helper()
	code, err := totp.GenerateCode(secret, at)
	require.NoError(t, err)
	return code
}

func TestVerifyWithoutEnrollmentIsFalse(t *testing.T) {
	f := newTrustFixture(t)
	ctx := t.Context()

	for _, code := range []string{"000000", "123456", "", "abc"} {
		ok, err := f.gate.VerifyCode(ctx, f.user, code)
		require.NoError(t, err)
		assert.False(t, ok, code)
	}

	st, err := f.gate.Status(ctx, f.user)
	require.NoError(t, err)
	assert.Equal(t, services.TrustStatus{}, st)
}

func TestEnrollmentIsIdempotent(t *testing.T) {
	f := newTrustFixture(t)
	ctx := t.Context()

	first, err := f.gate.EnrollSecret(ctx, f.user)
	require.NoError(t, err)
	second, err := f.gate.EnrollSecret(ctx, f.user)
	require.NoError(t, err)

	assert.Equal(t, first.Secret, second.Secret)
	assert.Len(t, first.Secret, 32)
	assert.True(t, strings.HasPrefix(first.ProvisioningURI, "otpauth://totp/"))
	assert.Contains(t, first.ProvisioningURI, "issuer=CafeApp")
	assert.Contains(t, second.ProvisioningURI, "secret="+first.Secret)

	profile, err := f.users.EnsureProfile(ctx, f.user)
	require.NoError(t, err)
	assert.True(t, profile.Enrolled())
	assert.NotContains(t, profile.TOTPSecret, first.Secret, "secret is stored sealed")

	st, err := f.gate.Status(ctx, f.user)
	require.NoError(t, err)
	assert.True(t, st.Enrolled)
	assert.False(t, st.Trusted)
}

func TestVerifyOpensWindowThatExpires(t *testing.T) {
	f := newTrustFixture(t)
	ctx := t.Context()
	enr, err := f.gate.EnrollSecret(ctx, f.user)
	require.NoError(t, err)

	ok, err := f.gate.VerifyCode(ctx, f.user, f.code(t, enr.Secret, f.clock.Now()))
	require.NoError(t, err)
	require.True(t, ok)

	st, err := f.gate.Status(ctx, f.user)
	require.NoError(t, err)
	assert.True(t, st.Trusted)
	assert.Equal(t, 300, st.TTLSeconds)
	assert.True(t, f.gate.IsTrusted(ctx, f.user.ID))

	f.clock.Advance(100 * time.Second)
	st, err = f.gate.Status(ctx, f.user)
	require.NoError(t, err)
	assert.Equal(t, 200, st.TTLSeconds)

	f.clock.Advance(200 * time.Second)
	st, err = f.gate.Status(ctx, f.user)
	require.NoError(t, err)
	assert.False(t, st.Trusted)
	assert.Zero(t, st.TTLSeconds)
	assert.False(t, f.gate.IsTrusted(ctx, f.user.ID))
}

func TestReverifyResetsWindow(t *testing.T) {
	f := newTrustFixture(t)
	ctx := t.Context()
	enr, err := f.gate.EnrollSecret(ctx, f.user)
	require.NoError(t, err)

	ok, err := f.gate.VerifyCode(ctx, f.user, f.code(t, enr.Secret, f.clock.Now()))
	require.NoError(t, err)
	require.True(t, ok)

	f.clock.Advance(120 * time.Second)
	ok, err = f.gate.VerifyCode(ctx, f.user, f.code(t, enr.Secret, f.clock.Now()))
	require.NoError(t, err)
	require.True(t, ok)

	st, err := f.gate.Status(ctx, f.user)
	require.NoError(t, err)
	assert.Equal(t, 300, st.TTLSeconds)
}

func TestVerifyToleratesOneStepOfDrift(t *testing.T) {
	f := newTrustFixture(t)
	ctx := t.Context()
	enr, err := f.gate.EnrollSecret(ctx, f.user)
	require.NoError(t, err)
	now := f.clock.Now()

	ok, err := f.gate.VerifyCode(ctx, f.user, f.code(t, enr.Secret, now.Add(-30*time.Second)))
	require.NoError(t, err)
	assert.True(t, ok, "previous step")

	ok, err = f.gate.VerifyCode(ctx, f.user, f.code(t, enr.Secret, now.Add(30*time.Second)))
	require.NoError(t, err)
	assert.True(t, ok, "next step")

	ok, err = f.gate.VerifyCode(ctx, f.user, f.code(t, enr.Secret, now.Add(-5*time.Minute)))
	require.NoError(t, err)
	assert.False(t, ok, "ten steps back")
}

func TestVerifyRejectsMalformedCodes(t *testing.T) {
	f := newTrustFixture(t)
	ctx := t.Context()
	enr, err := f.gate.EnrollSecret(ctx, f.user)
	require.NoError(t, err)
	valid := f.code(t, enr.Secret, f.clock.Now())

	for _, code := range []string{valid[:5], valid + "0", " " + valid, "abcdef"} {
		ok, err := f.gate.VerifyCode(ctx, f.user, code)
		require.NoError(t, err)
		assert.False(t, ok, code)
	}
	assert.False(t, f.gate.IsTrusted(ctx, f.user.ID))
}

func TestRevokeClosesWindow(t *testing.T) {
	f := newTrustFixture(t)
	ctx := t.Context()
	enr, err := f.gate.EnrollSecret(ctx, f.user)
	require.NoError(t, err)
	ok, err := f.gate.VerifyCode(ctx, f.user, f.code(t, enr.Secret, f.clock.Now()))
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, f.gate.Revoke(ctx, f.user.ID, "logout"))
	assert.False(t, f.gate.IsTrusted(ctx, f.user.ID))

	st, err := f.gate.Status(ctx, f.user)
	require.NoError(t, err)
	assert.True(t, st.Enrolled, "revoke keeps the secret")
}

func TestResetRotatesSecret(t *testing.T) {
	f := newTrustFixture(t)
	ctx := t.Context()
	old, err := f.gate.EnrollSecret(ctx, f.user)
	require.NoError(t, err)
	ok, err := f.gate.VerifyCode(ctx, f.user, f.code(t, old.Secret, f.clock.Now()))
	require.NoError(t, err)
	require.True(t, ok)

	fresh, err := f.gate.Reset(ctx, f.user)
	require.NoError(t, err)
	assert.NotEqual(t, old.Secret, fresh.Secret)
	assert.False(t, f.gate.IsTrusted(ctx, f.user.ID))

	again, err := f.gate.EnrollSecret(ctx, f.user)
	require.NoError(t, err)
	assert.Equal(t, fresh.Secret, again.Secret)

	ok, err = f.gate.VerifyCode(ctx, f.user, f.code(t, fresh.Secret, f.clock.Now()))
	require.NoError(t, err)
	assert.True(t, ok)
}
