package handlers

import (
	"net/http"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sociuslabs/socius/backend/internal/models"
	"github.com/sociuslabs/socius/backend/pkg/apperrors"
)

type fakeMailer struct {
	sent     []sentMail
	failSend error
}

type sentMail struct {
	to      string
	subject string
	body    string
}

func (m *fakeMailer) Send(to, subject, body string) error {
	if m.failSend != nil {
		return m.failSend
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func newAuthFixture() (*AuthHandler, *fakeUserRepo, *fakeMailer) {
	users := newFakeUserRepo()
	m := &fakeMailer{}
	handler := NewAuthHandler(users, nil, m, "test-secret", "http://localhost:8080")
	return handler, users, m
}

func register(t *testing.T, h *AuthHandler, username, email, password string) map[string]any {
	t.Helper()
	c, rec := newTestContext(t, http.MethodPost, "/auth/register", models.RegisterRequest{
		Username: username, Email: email, Password: password,
	}, nil)
	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	return decodeBody(t, rec)
}

func TestRegisterAndLogin(t *testing.T) {
	h, users, _ := newAuthFixture()

	body := register(t, h, "alice", "alice@example.com", "password123")
	data := body["data"].(map[string]any)
	assert.NotEmpty(t, data["token"])
	assert.Equal(t, "alice", data["user"].(map[string]any)["username"])

	stored, err := users.GetUserByEmail(nil, "alice@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "password123", stored.Password, "password must be stored hashed")

	c, rec := newTestContext(t, http.MethodPost, "/auth/login", models.LoginRequest{
		Email: "alice@example.com", Password: "password123",
	}, nil)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decodeBody(t, rec)["data"].(map[string]any)["token"])
}

func TestRegisterDuplicateEmail(t *testing.T) {
	h, _, _ := newAuthFixture()
	register(t, h, "alice", "alice@example.com", "password123")

	c, _ := newTestContext(t, http.MethodPost, "/auth/register", models.RegisterRequest{
		Username: "alice2", Email: "alice@example.com", Password: "password123",
	}, nil)
	err := h.Register(c)
	require.Error(t, err)
	appErr := apperrors.From(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeAlreadyExists, appErr.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	h, _, _ := newAuthFixture()
	register(t, h, "alice", "alice@example.com", "password123")

	c, _ := newTestContext(t, http.MethodPost, "/auth/login", models.LoginRequest{
		Email: "alice@example.com", Password: "wrongpass",
	}, nil)
	err := h.Login(c)
	require.Error(t, err)
	appErr := apperrors.From(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeUnauthorized, appErr.Code)
}

func TestLoginDeactivatedAccount(t *testing.T) {
	h, users, _ := newAuthFixture()
	register(t, h, "alice", "alice@example.com", "password123")

	stored, err := users.GetUserByEmail(nil, "alice@example.com")
	require.NoError(t, err)
	require.NoError(t, users.Deactivate(nil, stored.ID))

	c, _ := newTestContext(t, http.MethodPost, "/auth/login", models.LoginRequest{
		Email: "alice@example.com", Password: "password123",
	}, nil)
	err = h.Login(c)
	require.Error(t, err)
	appErr := apperrors.From(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeUnauthorized, appErr.Code)
}

var resetTokenPattern = regexp.MustCompile(`reset-password/([0-9a-f]+)`)

func TestForgotAndResetPassword(t *testing.T) {
	h, users, m := newAuthFixture()
	register(t, h, "alice", "alice@example.com", "password123")

	c, rec := newTestContext(t, http.MethodPost, "/auth/forgot-password", models.ForgotPasswordRequest{
		Email: "alice@example.com",
	}, nil)
	require.NoError(t, h.ForgotPassword(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, m.sent, 1)
	assert.Equal(t, "alice@example.com", m.sent[0].to)

	match := resetTokenPattern.FindStringSubmatch(m.sent[0].body)
	require.Len(t, match, 2, "mail body must carry the reset link")
	token := match[1]

	stored, err := users.GetUserByEmail(nil, "alice@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, token, stored.ResetPasswordToken, "raw token must never be stored")

	c, rec = newTestContext(t, http.MethodPut, "/auth/reset-password/"+token, models.ResetPasswordRequest{
		Password: "newpassword1",
	}, nil)
	c.SetParamNames("token")
	c.SetParamValues(token)
	require.NoError(t, h.ResetPassword(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Old password out, new password in.
	c, _ = newTestContext(t, http.MethodPost, "/auth/login", models.LoginRequest{
		Email: "alice@example.com", Password: "password123",
	}, nil)
	require.Error(t, h.Login(c))

	c, rec = newTestContext(t, http.MethodPost, "/auth/login", models.LoginRequest{
		Email: "alice@example.com", Password: "newpassword1",
	}, nil)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Token is single use.
	c, _ = newTestContext(t, http.MethodPut, "/auth/reset-password/"+token, models.ResetPasswordRequest{
		Password: "anotherpass1",
	}, nil)
	c.SetParamNames("token")
	c.SetParamValues(token)
	err = h.ResetPassword(c)
	require.Error(t, err)
}

func TestForgotPasswordUnknownEmailStaysNeutral(t *testing.T) {
	h, _, m := newAuthFixture()

	c, rec := newTestContext(t, http.MethodPost, "/auth/forgot-password", models.ForgotPasswordRequest{
		Email: "nobody@example.com",
	}, nil)
	require.NoError(t, h.ForgotPassword(c))
	assert.Equal(t, http.StatusOK, rec.Code, "existence of an account must not be revealed")
	assert.Empty(t, m.sent)
}

func TestForgotPasswordMailFailureRollsBackToken(t *testing.T) {
	h, users, m := newAuthFixture()
	register(t, h, "alice", "alice@example.com", "password123")
	m.failSend = apperrors.Delivery("smtp unreachable", nil)

	c, _ := newTestContext(t, http.MethodPost, "/auth/forgot-password", models.ForgotPasswordRequest{
		Email: "alice@example.com",
	}, nil)
	err := h.ForgotPassword(c)
	require.Error(t, err)

	stored, err := users.GetUserByEmail(nil, "alice@example.com")
	require.NoError(t, err)
	assert.Empty(t, stored.ResetPasswordToken, "undeliverable token must not stay valid")
}
