package api

import (
	"net/http"
	"testing"

	"github.com/Corphon/AICodeReviewer/internal/auth"
	"github.com/Corphon/AICodeReviewer/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	User    models.PublicUser `json:"user"`
}

type loginResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	User    models.PublicUser `json:"user"`
	Token   string            `json:"token"`
}

func (s *testServer) signup(t *testing.T, username, email, password string) models.PublicUser {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/signup", models.SignupRequest{Username: username, Email: email, Password: password})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp signupResponse
	decode(t, w, &resp)
	return resp.User
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/login", models.LoginRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp loginResponse
	decode(t, w, &resp)
	return resp.Token
}

func TestSignupLoginFlow(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/signup", models.SignupRequest{Username: "ada", Email: "ada@example.com", Password: "pw"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, w.Body.String(), "password")

	var signup signupResponse
	decode(t, w, &signup)
	assert.True(t, signup.Success)
	assert.Equal(t, "User registered successfully", signup.Message)
	assert.Equal(t, "ada@example.com", signup.User.Email)
	assert.NotEmpty(t, signup.User.ID)

	w = s.do(t, http.MethodPost, "/api/login", models.LoginRequest{Email: "ada@example.com", Password: "pw"})
	require.Equal(t, http.StatusOK, w.Code)
	var login loginResponse
	decode(t, w, &login)
	assert.Equal(t, "Login successful", login.Message)
	assert.Equal(t, signup.User.ID, login.User.ID)

	token, err := auth.ParseToken(login.Token, s.tokens)
	require.NoError(t, err)
	assert.Equal(t, signup.User.ID, token.UserID)
	assert.False(t, token.IsAdmin)

	w = s.do(t, http.MethodGet, "/api/me", nil, "Authorization", "Bearer "+login.Token)
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		Data models.PublicUser `json:"data"`
	}
	decode(t, w, &me)
	assert.Equal(t, "ada", me.Data.Username)
}

func TestSignup_Errors(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, "ada", "ada@example.com", "pw")

	w := s.do(t, http.MethodPost, "/api/signup", models.SignupRequest{Username: "ada2", Email: "ADA@example.com", Password: "pw"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var dup APIResponse
	decode(t, w, &dup)
	assert.Equal(t, "User already exists", dup.Message)

	w = s.do(t, http.MethodPost, "/api/signup", map[string]string{"username": "x", "email": "not-an-email", "password": "pw"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/signup", map[string]string{"email": "b@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, "ada", "ada@example.com", "pw")

	for _, req := range []models.LoginRequest{
		{Email: "ada@example.com", Password: "wrong"},
		{Email: "ghost@example.com", Password: "pw"},
	} {
		w := s.do(t, http.MethodPost, "/api/login", req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		var resp APIResponse
		decode(t, w, &resp)
		assert.Equal(t, "Invalid credentials", resp.Message)
	}
}

func TestMe_RequiresToken(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/me", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/me", nil, "Authorization", "Bearer garbage").Code)
}

func TestListAndDeleteUsers(t *testing.T) {
	s := newTestServer(t)
	ada := s.signup(t, "ada", "ada@example.com", "pw")
	s.signup(t, "bob", "bob@example.com", "pw")

	w := s.do(t, http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
	var users []models.PublicUser
	decode(t, w, &users)
	require.Len(t, users, 2)
	assert.Equal(t, "ada", users[0].Username)

	w = s.do(t, http.MethodDelete, "/api/users/"+ada.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var deleted map[string]interface{}
	decode(t, w, &deleted)
	assert.Equal(t, "User deleted successfully", deleted["message"])

	w = s.do(t, http.MethodDelete, "/api/users/"+ada.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	var missing APIResponse
	decode(t, w, &missing)
	assert.Equal(t, "User not found", missing.Message)
}

func TestDeleteUser_AdminOnly(t *testing.T) {
	s := newTestServer(t, func(cfg *RouterConfig) { cfg.AdminOnly = true })
	s.signup(t, "root", "admin@example.com", "pw")
	bob := s.signup(t, "bob", "bob@example.com", "pw")

	adminToken := s.login(t, "admin@example.com", "pw")
	bobToken := s.login(t, "bob@example.com", "pw")

	w := s.do(t, http.MethodDelete, "/api/users/"+bob.ID, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodDelete, "/api/users/"+bob.ID, nil, "Authorization", "Bearer "+bobToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodDelete, "/api/users/"+bob.ID, nil, "Authorization", "Bearer "+adminToken)
	assert.Equal(t, http.StatusOK, w.Code)
}
