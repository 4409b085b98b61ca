package hosted

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/racanlabs/go-auth-service/auth"
)

// providerError is the provider's error envelope. Older endpoints use
// msg/code, the OAuth-shaped ones use error/error_description.
type providerError struct {
	Code             int    `json:"code"`
	Msg              string `json:"msg"`
	ErrorCode        string `json:"error_code"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e *providerError) message() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.ErrorDescription != "" {
		return e.ErrorDescription
	}
	return e.Error
}

// classifyResponse maps a provider failure onto the shared taxonomy so both
// backends speak the same message vocabulary.
func classifyResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var pe providerError
	_ = json.Unmarshal(body, &pe)
	msg := strings.ToLower(pe.message())

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || pe.ErrorCode == "over_request_rate_limit":
		return auth.NewRateLimited(retryAfter(resp))
	case strings.Contains(msg, "already registered") || strings.Contains(msg, "already exists") || pe.ErrorCode == "user_already_exists":
		return auth.NewError(auth.KindDuplicateAccount, auth.MsgDuplicateAccount)
	case strings.Contains(msg, "invalid login credentials") || pe.ErrorCode == "invalid_credentials":
		return auth.NewError(auth.KindInvalidCredentials, auth.MsgInvalidCredentials)
	case strings.Contains(msg, "not confirmed") || pe.ErrorCode == "email_not_confirmed":
		return auth.NewError(auth.KindUnconfirmed, auth.MsgUnconfirmed)
	case strings.Contains(msg, "user not found") || pe.ErrorCode == "user_not_found":
		return auth.NewError(auth.KindNotFound, auth.MsgInvalidCredentials)
	case resp.StatusCode >= 500:
		return auth.NewError(auth.KindServiceUnavailable, auth.MsgServiceUnavailable)
	case pe.message() != "":
		return auth.NewError(auth.KindInvalidInput, pe.message())
	default:
		return auth.NewError(auth.KindServiceUnavailable, auth.MsgServiceUnavailable)
	}
}

func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Minute
}
