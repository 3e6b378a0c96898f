package auth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

var (
	alice = domain.User{ID: "u-req-1", Name: "Alice Martin", Role: domain.RoleRequester}
	erin  = domain.User{ID: "u-admin-1", Name: "Erin Walsh", Role: domain.RoleAdministrator}
)

func newSession(user domain.User, ttl time.Duration) domain.Session {
	now := time.Now()
	return domain.Session{ID: "s-" + user.ID, UserID: user.ID, Role: user.Role, IssuedAt: now, ExpiresAt: now.Add(ttl)}
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	session := newSession(alice, time.Hour)

	token, err := tm.GenerateToken(session)
	require.NoError(t, err)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, claims.UserID)
	assert.Equal(t, domain.RoleRequester, claims.Role)
	assert.Equal(t, session.ID, claims.SessionID())
}

func TestParseTokenRejects(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)

	expired, err := tm.GenerateToken(newSession(alice, -time.Minute))
	require.NoError(t, err)
	_, err = tm.ParseToken(expired)
	assert.Error(t, err)

	foreign, err := NewTokenManager("other", time.Hour).GenerateToken(newSession(alice, time.Hour))
	require.NoError(t, err)
	_, err = tm.ParseToken(foreign)
	assert.Error(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: alice.ID}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tm.ParseToken(unsigned)
	assert.Error(t, err)
}

func TestSessionRegistry(t *testing.T) {
	reg := NewSessionRegistry()
	session := newSession(alice, time.Hour)
	reg.Add(session)

	got, ok := reg.Active(session.ID, time.Now())
	require.True(t, ok)
	assert.Equal(t, session, got)

	_, ok = reg.Active(session.ID, session.ExpiresAt)
	assert.False(t, ok)
	assert.Equal(t, 0, reg.Len())

	reg.Add(session)
	assert.True(t, reg.Remove(session.ID))
	assert.False(t, reg.Remove(session.ID))
}

func TestSessionRegistryHasUser(t *testing.T) {
	reg := NewSessionRegistry()
	first := newSession(alice, time.Hour)
	second := newSession(alice, time.Hour)
	second.ID = "s-u-req-1-tab2"
	reg.Add(first)
	reg.Add(second)

	assert.True(t, reg.HasUser(alice.ID, time.Now()))
	assert.False(t, reg.HasUser(erin.ID, time.Now()))

	reg.Remove(first.ID)
	assert.True(t, reg.HasUser(alice.ID, time.Now()))
	assert.False(t, reg.HasUser(alice.ID, second.ExpiresAt))

	reg.Remove(second.ID)
	assert.False(t, reg.HasUser(alice.ID, time.Now()))
}

func newTestApp(tm *TokenManager, reg *SessionRegistry, users repository.UserRepository) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).SendString(domainErr.Code)
		},
	})
	mw := NewAuthMiddleware(tm, reg, users)
	app.Get("/me", mw.Handle, func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(p.User.Name)
	})
	app.Get("/stats", mw.Handle, RequireAction(policy.ActionViewStats), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func call(t *testing.T, app *fiber.App, path, token string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestMiddleware(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	reg := NewSessionRegistry()
	users := repository.NewMemoryUserRepository(alice, erin)
	app := newTestApp(tm, reg, users)

	aliceSession := newSession(alice, time.Hour)
	reg.Add(aliceSession)
	aliceToken, err := tm.GenerateToken(aliceSession)
	require.NoError(t, err)

	erinSession := newSession(erin, time.Hour)
	reg.Add(erinSession)
	erinToken, err := tm.GenerateToken(erinSession)
	require.NoError(t, err)

	status, body := call(t, app, "/me", aliceToken)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Alice Martin", body)

	status, _ = call(t, app, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = call(t, app, "/stats", aliceToken)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, apperrors.CodeForbidden, body)

	status, _ = call(t, app, "/stats", erinToken)
	assert.Equal(t, http.StatusOK, status)

	reg.Remove(aliceSession.ID)
	status, _ = call(t, app, "/me", aliceToken)
	assert.Equal(t, http.StatusUnauthorized, status)
}
