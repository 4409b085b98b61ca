package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/racanlabs/go-auth-service/auth/selfhosted"
	"github.com/racanlabs/go-auth-service/internal/config"
	"github.com/racanlabs/go-auth-service/internal/email"
	"github.com/racanlabs/go-auth-service/internal/metrics"
	resetfakes "github.com/racanlabs/go-auth-service/resettokens/repofakes"
	"github.com/racanlabs/go-auth-service/server"
	sessionfakes "github.com/racanlabs/go-auth-service/sessions/repofakes"
	"github.com/racanlabs/go-auth-service/token"
	"github.com/racanlabs/go-auth-service/tokenstore"
	userfakes "github.com/racanlabs/go-auth-service/users/repofakes"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	testEmail    = "user@example.com"
	testPassword = "Abcdef1"
)

// envelope mirrors the wire shape: exactly one of data and error is set.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func setupTestServer(t *testing.T) *server.Server {
	t.Helper()

	manager := token.New(token.NewHMACSigner(testSecret), token.WithSessionTTL(time.Hour))
	backend, err := selfhosted.New(
		selfhosted.Repos{
			Users:       userfakes.NewFakeUserRepo(),
			Sessions:    sessionfakes.NewFakeSessionRepo(),
			ResetTokens: resetfakes.NewFakeResetTokenRepo(),
		},
		manager,
		tokenstore.NewMemoryStore(),
		&email.LogSender{},
	)
	require.NoError(t, err)

	srv, err := server.New(&config.Config{Env: "test", AllowedOrigins: "*"}, backend)
	require.NoError(t, err)
	return srv
}

func doJSON(t *testing.T, srv *server.Server, method, path, bearer, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	return rec, env
}

func signUp(t *testing.T, srv *server.Server) string {
	t.Helper()

	rec, env := doJSON(t, srv, http.MethodPost, "/api/auth/signup", "",
		`{"email":"`+testEmail+`","password":"`+testPassword+`","name":"Test User"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Nil(t, env.Error)

	var data struct {
		Session struct {
			Token string `json:"token"`
		} `json:"session"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Session.Token)
	return data.Session.Token
}

func TestSignUpHandler(t *testing.T) {
	t.Run("creates the account", func(t *testing.T) {
		srv := setupTestServer(t)
		signUp(t, srv)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		srv := setupTestServer(t)
		signUp(t, srv)

		rec, env := doJSON(t, srv, http.MethodPost, "/api/auth/signup", "",
			`{"email":"`+testEmail+`","password":"`+testPassword+`"}`)
		require.Equal(t, http.StatusConflict, rec.Code)
		require.Nil(t, env.Data)
		require.NotNil(t, env.Error)
		require.Equal(t, "duplicate_account", env.Error.Kind)
		require.NotEmpty(t, env.Error.Message)
	})

	t.Run("weak password is a bad request", func(t *testing.T) {
		srv := setupTestServer(t)

		rec, env := doJSON(t, srv, http.MethodPost, "/api/auth/signup", "",
			`{"email":"`+testEmail+`","password":"short"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "invalid_input", env.Error.Kind)
	})

	t.Run("malformed body is a bad request", func(t *testing.T) {
		srv := setupTestServer(t)

		rec, env := doJSON(t, srv, http.MethodPost, "/api/auth/signup", "", `{not json`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "invalid_input", env.Error.Kind)
	})
}

func TestSignInHandler(t *testing.T) {
	t.Run("round trips", func(t *testing.T) {
		srv := setupTestServer(t)
		signUp(t, srv)

		rec, env := doJSON(t, srv, http.MethodPost, "/api/auth/signin", "",
			`{"email":"`+testEmail+`","password":"`+testPassword+`"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Nil(t, env.Error)
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		srv := setupTestServer(t)
		signUp(t, srv)

		rec, env := doJSON(t, srv, http.MethodPost, "/api/auth/signin", "",
			`{"email":"`+testEmail+`","password":"wrongpass"}`)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "invalid_credentials", env.Error.Kind)
		require.Equal(t, "Invalid email or password.", env.Error.Message)
	})
}

func TestCurrentUserHandler(t *testing.T) {
	t.Run("returns the session user", func(t *testing.T) {
		srv := setupTestServer(t)
		bearer := signUp(t, srv)

		rec, env := doJSON(t, srv, http.MethodGet, "/api/auth/user", bearer, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var data struct {
			User *struct {
				Email string `json:"email"`
			} `json:"user"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &data))
		require.NotNil(t, data.User)
		require.Equal(t, testEmail, data.User.Email)
	})

	t.Run("signed out is a normal null user, not an error", func(t *testing.T) {
		srv := setupTestServer(t)
		bearer := signUp(t, srv)

		rec, _ := doJSON(t, srv, http.MethodPost, "/api/auth/signout", bearer, "")
		require.Equal(t, http.StatusOK, rec.Code)

		rec, env := doJSON(t, srv, http.MethodGet, "/api/auth/user", bearer, "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Nil(t, env.Error)
		require.JSONEq(t, `{"user":null}`, string(env.Data))
	})
}

func TestUpdateProfileHandler(t *testing.T) {
	t.Run("patches the profile", func(t *testing.T) {
		srv := setupTestServer(t)
		bearer := signUp(t, srv)

		rec, env := doJSON(t, srv, http.MethodPatch, "/api/auth/user", bearer, `{"name":"New Name"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var data struct {
			User struct {
				Name string `json:"name"`
			} `json:"user"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &data))
		require.Equal(t, "New Name", data.User.Name)
	})

	t.Run("dead session is unauthorized", func(t *testing.T) {
		srv := setupTestServer(t)

		rec, env := doJSON(t, srv, http.MethodPatch, "/api/auth/user", "not-a-token", `{"name":"X"}`)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "invalid_credentials", env.Error.Kind)
	})
}

func TestSignOutHandler_Idempotent(t *testing.T) {
	srv := setupTestServer(t)
	bearer := signUp(t, srv)

	for i := 0; i < 2; i++ {
		rec, env := doJSON(t, srv, http.MethodPost, "/api/auth/signout", bearer, "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Nil(t, env.Error)
	}
}

func TestPasswordResetHandlers(t *testing.T) {
	t.Run("request answers uniformly", func(t *testing.T) {
		srv := setupTestServer(t)
		signUp(t, srv)

		for _, addr := range []string{testEmail, "nobody@example.com"} {
			rec, env := doJSON(t, srv, http.MethodPost, "/api/auth/reset", "", `{"email":"`+addr+`"}`)
			require.Equal(t, http.StatusOK, rec.Code)
			require.Nil(t, env.Error)
		}
	})

	t.Run("bogus completion token is rejected", func(t *testing.T) {
		srv := setupTestServer(t)

		rec, env := doJSON(t, srv, http.MethodPost, "/api/auth/reset/complete", "",
			`{"token":"deadbeef","password":"Newpass1"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "invalid_input", env.Error.Kind)
	})
}

func TestOAuthRedirectHandler_NotSupported(t *testing.T) {
	srv := setupTestServer(t)

	rec, env := doJSON(t, srv, http.MethodGet, "/api/auth/oauth/google", "", "")
	require.Equal(t, http.StatusNotImplemented, rec.Code)
	require.Equal(t, "not_implemented", env.Error.Kind)
}

func TestHealthHandler(t *testing.T) {
	srv := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsLabelByRoutePattern(t *testing.T) {
	srv := setupTestServer(t)

	pattern := metrics.HTTPRequests.WithLabelValues("GET /api/auth/oauth/{provider}", "501")
	before := testutil.ToFloat64(pattern)

	// Different path values must land on the one wildcard series.
	for _, provider := range []string{"google", "github"} {
		rec, _ := doJSON(t, srv, http.MethodGet, "/api/auth/oauth/"+provider, "", "")
		require.Equal(t, http.StatusNotImplemented, rec.Code)
	}

	require.Equal(t, before+2, testutil.ToFloat64(pattern))
}

func TestCorsPreflight(t *testing.T) {
	srv := setupTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/signin", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
