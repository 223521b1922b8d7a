package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/videotube/backend/internal/middleware"
	"github.com/videotube/backend/internal/models"
)

func registerForm(overrides map[string]string) map[string]string {
	fields := map[string]string{
		"fullname": "Alice Example",
		"email":    "alice@example.com",
		"username": "Alice",
		"password": "correct horse",
	}
	for k, v := range overrides {
		fields[k] = v
	}
	return fields
}

func seedUser(t *testing.T, store *fakeStore, username, email, password string) models.User {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := models.User{
		ID:       "user-" + username,
		Username: username,
		Email:    email,
		FullName: username + " example",
		Password: string(hashed),
		Avatar:   "https://media.test/avatars/" + username,
	}
	if err := store.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return user
}

func TestRegisterCreatesSanitizedUser(t *testing.T) {
	store := newFakeStore()
	media := newFakeMedia()
	handler := AuthHandler{Users: store, Media: media}

	body, contentType := multipartBody(t, registerForm(nil), map[string]string{
		"avatar":     "avatar.png",
		"coverImage": "cover.jpg",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	env := decodeEnvelope(t, rec.Body)
	if !env.Success || env.Message != "user registered successfully" {
		t.Fatalf("unexpected envelope: %+v", env)
	}

	var created models.User
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if created.Username != "alice" {
		t.Fatalf("expected lowercased username, got %q", created.Username)
	}
	if created.Avatar == "" || created.CoverImage == "" {
		t.Fatalf("expected uploaded image URLs, got %+v", created)
	}

	var raw map[string]any
	if err := json.Unmarshal(env.Data, &raw); err != nil {
		t.Fatalf("decode raw user: %v", err)
	}
	for _, field := range []string{"password", "refreshToken", "watchHistory"} {
		if _, ok := raw[field]; ok {
			t.Fatalf("field %q must not be serialized", field)
		}
	}

	stored, err := store.FindByIdentifier(context.Background(), "alice")
	if err != nil {
		t.Fatalf("stored user missing: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("correct horse")); err != nil {
		t.Fatalf("stored password is not a valid hash of the input: %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	cases := []struct {
		name      string
		overrides map[string]string
		files     map[string]string
		status    int
	}{
		{"missing fullname", map[string]string{"fullname": " "}, map[string]string{"avatar": "a.png"}, http.StatusBadRequest},
		{"missing password", map[string]string{"password": ""}, map[string]string{"avatar": "a.png"}, http.StatusBadRequest},
		{"invalid email", map[string]string{"email": "not-an-email"}, map[string]string{"avatar": "a.png"}, http.StatusBadRequest},
		{"missing avatar", nil, nil, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := AuthHandler{Users: newFakeStore(), Media: newFakeMedia()}

			body, contentType := multipartBody(t, registerForm(tc.overrides), tc.files)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()

			handler.Register(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	store := newFakeStore()
	seedUser(t, store, "alice", "alice@example.com", "pw")
	handler := AuthHandler{Users: store, Media: newFakeMedia()}

	for _, overrides := range []map[string]string{
		{"username": "newname"},                 // duplicate email
		{"email": "different@example.com"},      // duplicate username
		{"username": "ALICE", "email": "x@y.z"}, // duplicate username, different case
	} {
		body, contentType := multipartBody(t, registerForm(overrides), map[string]string{"avatar": "a.png"})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		handler.Register(rec, req)

		if rec.Code != http.StatusConflict {
			t.Fatalf("overrides %v: expected 409, got %d: %s", overrides, rec.Code, rec.Body.String())
		}
	}
}

func TestRegisterAvatarUploadFailure(t *testing.T) {
	media := newFakeMedia()
	media.fail["avatars"] = true
	handler := AuthHandler{Users: newFakeStore(), Media: media}

	body, contentType := multipartBody(t, registerForm(nil), map[string]string{"avatar": "a.png"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on avatar upload failure, got %d", rec.Code)
	}
}

func TestRegisterToleratesCoverUploadFailure(t *testing.T) {
	store := newFakeStore()
	media := newFakeMedia()
	media.fail["covers"] = true
	handler := AuthHandler{Users: store, Media: media}

	body, contentType := multipartBody(t, registerForm(nil), map[string]string{
		"avatar":     "a.png",
		"coverImage": "c.png",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 despite cover failure, got %d: %s", rec.Code, rec.Body.String())
	}

	user, err := store.FindByIdentifier(context.Background(), "alice")
	if err != nil {
		t.Fatalf("created user missing: %v", err)
	}
	if user.CoverImage != "" {
		t.Fatalf("expected empty cover image, got %q", user.CoverImage)
	}
}

func TestLoginIssuesTokensAndCookies(t *testing.T) {
	store := newFakeStore()
	user := seedUser(t, store, "alice", "alice@example.com", "secret123")
	handler := AuthHandler{Users: store, Sessions: newSessionManager(store)}

	for _, payload := range []string{
		`{"username":"alice","password":"secret123"}`,
		`{"email":"alice@example.com","password":"secret123"}`,
		`{"identifier":"alice","password":"secret123"}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(payload))
		rec := httptest.NewRecorder()

		handler.Login(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("payload %s: expected 200, got %d: %s", payload, rec.Code, rec.Body.String())
		}

		env := decodeEnvelope(t, rec.Body)
		var session struct {
			User         *models.User `json:"user"`
			AccessToken  string       `json:"accessToken"`
			RefreshToken string       `json:"refreshToken"`
		}
		if err := json.Unmarshal(env.Data, &session); err != nil {
			t.Fatalf("decode session: %v", err)
		}
		if session.AccessToken == "" || session.RefreshToken == "" {
			t.Fatal("expected both tokens in the response body")
		}
		if session.User == nil || session.User.ID != user.ID {
			t.Fatalf("expected logged-in user in response, got %+v", session.User)
		}

		cookies := map[string]*http.Cookie{}
		for _, c := range rec.Result().Cookies() {
			cookies[c.Name] = c
		}
		for _, name := range []string{middleware.AccessTokenCookie, RefreshTokenCookie} {
			cookie, ok := cookies[name]
			if !ok || cookie.Value == "" {
				t.Fatalf("expected %s cookie to be set", name)
			}
			if !cookie.HttpOnly || !cookie.Secure {
				t.Fatalf("cookie %s must be HttpOnly and Secure", name)
			}
		}

		if strings.Contains(rec.Body.String(), user.Password) {
			t.Fatal("password hash leaked in login response")
		}
	}
}

func TestLoginFailures(t *testing.T) {
	store := newFakeStore()
	seedUser(t, store, "alice", "alice@example.com", "secret123")
	handler := AuthHandler{Users: store, Sessions: newSessionManager(store)}

	cases := []struct {
		name    string
		payload string
		status  int
	}{
		{"unknown user", `{"username":"ghost","password":"secret123"}`, http.StatusNotFound},
		{"wrong password", `{"username":"alice","password":"nope"}`, http.StatusUnauthorized},
		{"missing password", `{"username":"alice"}`, http.StatusBadRequest},
		{"missing identifier", `{"password":"secret123"}`, http.StatusBadRequest},
		{"malformed body", `{`, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(tc.payload))
			rec := httptest.NewRecorder()

			handler.Login(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func loginFor(t *testing.T, handler AuthHandler, username, password string) (models.TokenPair, models.User) {
	t.Helper()

	payload := `{"username":"` + username + `","password":"` + password + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}

	env := decodeEnvelope(t, rec.Body)
	var session struct {
		User *models.User `json:"user"`
		models.TokenPair
	}
	if err := json.Unmarshal(env.Data, &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return session.TokenPair, *session.User
}

func TestRefreshRotatesExactlyOnce(t *testing.T) {
	store := newFakeStore()
	seedUser(t, store, "alice", "alice@example.com", "secret123")
	handler := AuthHandler{Users: store, Sessions: newSessionManager(store)}

	pair, _ := loginFor(t, handler, "alice", "secret123")

	refresh := func(token string) *httptest.ResponseRecorder {
		body := bytes.NewBufferString(`{"refreshToken":"` + token + `"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", body)
		rec := httptest.NewRecorder()
		handler.Refresh(rec, req)
		return rec
	}

	first := refresh(pair.RefreshToken)
	if first.Code != http.StatusOK {
		t.Fatalf("first refresh should succeed, got %d: %s", first.Code, first.Body.String())
	}

	env := decodeEnvelope(t, first.Body)
	var rotated models.TokenPair
	if err := json.Unmarshal(env.Data, &rotated); err != nil {
		t.Fatalf("decode rotated pair: %v", err)
	}
	if rotated.RefreshToken == "" || rotated.AccessToken == "" {
		t.Fatal("expected a fresh token pair")
	}

	replay := refresh(pair.RefreshToken)
	if replay.Code != http.StatusUnauthorized {
		t.Fatalf("replaying a rotated token should fail 401, got %d", replay.Code)
	}
	replayEnv := decodeEnvelope(t, replay.Body)
	if replayEnv.Message != "session expired" {
		t.Fatalf("expected session expired message, got %q", replayEnv.Message)
	}

	second := refresh(rotated.RefreshToken)
	if second.Code != http.StatusOK {
		t.Fatalf("the rotated token should still work, got %d", second.Code)
	}
}

func TestRefreshReadsCookieFirst(t *testing.T) {
	store := newFakeStore()
	seedUser(t, store, "alice", "alice@example.com", "secret123")
	handler := AuthHandler{Users: store, Sessions: newSessionManager(store)}

	pair, _ := loginFor(t, handler, "alice", "secret123")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: pair.RefreshToken})
	rec := httptest.NewRecorder()

	handler.Refresh(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for cookie refresh, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRefreshRejectsMissingAndInvalidTokens(t *testing.T) {
	store := newFakeStore()
	seedUser(t, store, "alice", "alice@example.com", "secret123")
	handler := AuthHandler{Users: store, Sessions: newSessionManager(store)}

	cases := []struct {
		name    string
		body    string
		message string
	}{
		{"missing token", `{}`, "refresh token is required"},
		{"garbage token", `{"refreshToken":"not-a-jwt"}`, "invalid refresh token"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()

			handler.Refresh(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
			}
			env := decodeEnvelope(t, rec.Body)
			if env.Message != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, env.Message)
			}
		})
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	store := newFakeStore()
	user := seedUser(t, store, "alice", "alice@example.com", "secret123")
	handler := AuthHandler{Users: store, Sessions: newSessionManager(store)}

	pair, _ := loginFor(t, handler, "alice", "secret123")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req = req.WithContext(middleware.WithUser(req.Context(), user))
	rec := httptest.NewRecorder()

	handler.Logout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	for _, cookie := range rec.Result().Cookies() {
		if cookie.Value != "" || cookie.MaxAge >= 0 {
			t.Fatalf("cookie %s should be cleared, got %+v", cookie.Name, cookie)
		}
	}

	// The refresh token held before logout must be dead.
	body := strings.NewReader(`{"refreshToken":"` + pair.RefreshToken + `"}`)
	refreshReq := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", body)
	refreshRec := httptest.NewRecorder()
	handler.Refresh(refreshRec, refreshReq)
	if refreshRec.Code != http.StatusUnauthorized {
		t.Fatalf("pre-logout refresh token should be rejected, got %d", refreshRec.Code)
	}
}

func TestChangePassword(t *testing.T) {
	store := newFakeStore()
	user := seedUser(t, store, "alice", "alice@example.com", "oldpass")
	handler := AuthHandler{Users: store, Sessions: newSessionManager(store)}

	change := func(body string) *httptest.ResponseRecorder {
		current, err := store.FindByID(context.Background(), user.ID)
		if err != nil {
			t.Fatalf("reload user: %v", err)
		}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/change-password", strings.NewReader(body))
		req = req.WithContext(middleware.WithUser(req.Context(), current))
		rec := httptest.NewRecorder()
		handler.ChangePassword(rec, req)
		return rec
	}

	if rec := change(`{"oldPassword":"wrong","newPassword":"newpass"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("wrong old password should fail 400, got %d", rec.Code)
	}
	if rec := change(`{"oldPassword":"oldpass"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing new password should fail 400, got %d", rec.Code)
	}

	if rec := change(`{"oldPassword":"oldpass","newPassword":"newpass"}`); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	stored, err := store.FindByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("newpass")); err != nil {
		t.Fatalf("new password not stored: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("oldpass")); err == nil {
		t.Fatal("old password should no longer match")
	}
}

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(string) bool { return false }

func TestAuthEndpointsAreRateLimited(t *testing.T) {
	handler := AuthHandler{Users: newFakeStore(), Limiter: denyAllLimiter{}}

	endpoints := []func(http.ResponseWriter, *http.Request){handler.Register, handler.Login, handler.Refresh}
	for i, endpoint := range endpoints {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/any", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		endpoint(rec, req)
		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("endpoint %d: expected 429, got %d", i, rec.Code)
		}
	}
}
