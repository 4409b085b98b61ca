package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/racanlabs/go-auth-service/auth"
	"github.com/racanlabs/go-auth-service/internal/metrics"
)

// apiResponse is the uniform envelope: exactly one of Data and Error is set.
// Clients branch on the presence of "error" only.
type apiResponse struct {
	Data  any       `json:"data"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{Data: data})
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{Error: &apiError{Kind: kind, Message: message}})
}

func writeAuthError(w http.ResponseWriter, err error) {
	ae := auth.AsError(err)
	if ae.Kind == auth.KindRateLimited && ae.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(ae.RetryAfter.Seconds())))
	}
	writeError(w, statusForKind(ae.Kind), string(ae.Kind), ae.Message)
}

func statusForKind(kind auth.Kind) int {
	switch kind {
	case auth.KindInvalidInput:
		return http.StatusBadRequest
	case auth.KindDuplicateAccount:
		return http.StatusConflict
	case auth.KindNotFound:
		return http.StatusNotFound
	case auth.KindInvalidCredentials, auth.KindUnconfirmed:
		return http.StatusUnauthorized
	case auth.KindRateLimited:
		return http.StatusTooManyRequests
	case auth.KindNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusServiceUnavailable
	}
}

// record feeds the per-operation counter; result is "ok" or the error kind.
func record(operation string, err error) {
	result := "ok"
	if err != nil {
		result = string(auth.KindOf(err))
	}
	metrics.AuthOperations.WithLabelValues(operation, result).Inc()
}

func decode[T any](r *http.Request, into *T) bool {
	return json.NewDecoder(r.Body).Decode(into) == nil
}

// bearerToken pulls the session token from the Authorization header.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

func (s *Server) SignUpHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if !decode(r, &req) {
			writeError(w, http.StatusBadRequest, string(auth.KindInvalidInput), "Invalid request body.")
			return
		}
		result, err := s.backend.SignUp(r.Context(), req.Email, req.Password, req.Name)
		record("signup", err)
		if err != nil {
			writeAuthError(w, err)
			return
		}
		writeData(w, http.StatusCreated, result)
	}
}

func (s *Server) SignInHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if !decode(r, &req) {
			writeError(w, http.StatusBadRequest, string(auth.KindInvalidInput), "Invalid request body.")
			return
		}
		result, err := s.backend.SignIn(r.Context(), req.Email, req.Password)
		record("signin", err)
		if err != nil {
			writeAuthError(w, err)
			return
		}
		writeData(w, http.StatusOK, result)
	}
}

func (s *Server) SignOutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := s.backend.SignOut(r.Context(), bearerToken(r))
		record("signout", err)
		if err != nil {
			writeAuthError(w, err)
			return
		}
		writeData(w, http.StatusOK, map[string]bool{"signed_out": true})
	}
}

func (s *Server) CurrentUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.backend.CurrentUser(r.Context(), bearerToken(r))
		record("current_user", err)
		if err != nil {
			writeAuthError(w, err)
			return
		}
		// user == nil is the normal signed-out state, not an error.
		writeData(w, http.StatusOK, map[string]any{"user": user})
	}
}

func (s *Server) UpdateProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.ProfileUpdate
		if !decode(r, &req) {
			writeError(w, http.StatusBadRequest, string(auth.KindInvalidInput), "Invalid request body.")
			return
		}
		user, err := s.backend.UpdateProfile(r.Context(), bearerToken(r), req)
		record("update_profile", err)
		if err != nil {
			writeAuthError(w, err)
			return
		}
		writeData(w, http.StatusOK, map[string]any{"user": user})
	}
}

type emailOnlyRequest struct {
	Email string `json:"email"`
}

func (s *Server) PasswordResetRequestHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req emailOnlyRequest
		if !decode(r, &req) {
			writeError(w, http.StatusBadRequest, string(auth.KindInvalidInput), "Invalid request body.")
			return
		}
		err := s.backend.RequestPasswordReset(r.Context(), req.Email)
		record("reset_request", err)
		if err != nil {
			writeAuthError(w, err)
			return
		}
		writeData(w, http.StatusOK, map[string]string{"message": auth.MsgResetRequested})
	}
}

type resetCompleteRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (s *Server) PasswordResetCompleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resetCompleteRequest
		if !decode(r, &req) {
			writeError(w, http.StatusBadRequest, string(auth.KindInvalidInput), "Invalid request body.")
			return
		}
		err := s.backend.CompletePasswordReset(r.Context(), req.Token, req.Password)
		record("reset_complete", err)
		if err != nil {
			writeAuthError(w, err)
			return
		}
		writeData(w, http.StatusOK, map[string]string{"message": "Your password has been updated. Please sign in."})
	}
}

func (s *Server) ResendVerificationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req emailOnlyRequest
		if !decode(r, &req) {
			writeError(w, http.StatusBadRequest, string(auth.KindInvalidInput), "Invalid request body.")
			return
		}
		err := s.backend.ResendVerification(r.Context(), req.Email)
		record("resend_verification", err)
		if err != nil {
			writeAuthError(w, err)
			return
		}
		writeData(w, http.StatusOK, map[string]string{"message": "Verification email sent."})
	}
}

func (s *Server) OAuthRedirectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider := r.PathValue("provider")
		url, err := s.backend.OAuthSignInURL(r.Context(), provider)
		record("oauth_redirect", err)
		if err != nil {
			writeAuthError(w, err)
			return
		}
		http.Redirect(w, r, url, http.StatusFound)
	}
}

func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := s.backend.OAuthCallback(r.Context(), r.FormValue("code"), r.FormValue("state"))
		record("oauth_callback", err)
		if err != nil {
			writeAuthError(w, err)
			return
		}
		writeData(w, http.StatusOK, result)
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeData(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
