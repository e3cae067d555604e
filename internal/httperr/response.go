package httperr

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ResponseError is a non-2xx answer from the control server or a daemon.
type ResponseError struct {
	StatusCode int
	Message    string
}

func (e *ResponseError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server error: %s (HTTP %d)", e.Message, e.StatusCode)
	}
	if hint := StatusHint(e.StatusCode); hint != "" {
		return fmt.Sprintf("server returned HTTP %d: %s", e.StatusCode, hint)
	}
	return fmt.Sprintf("server returned HTTP %d", e.StatusCode)
}

func FromResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var apiErr struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := ""
	if json.Unmarshal(body, &apiErr) == nil {
		msg = apiErr.Error
		if msg == "" {
			msg = apiErr.Message
		}
	} else {
		msg = strings.TrimSpace(string(body))
	}

	return &ResponseError{StatusCode: resp.StatusCode, Message: msg}
}

func StatusHint(code int) string {
	switch code {
	case 400:
		return "the request was malformed"
	case 404:
		return "no such pro instance, check 'podsup list'"
	case 500:
		return "podsup failed to handle the request, see its log"
	case 502:
		return "the daemon did not answer, it may still be starting"
	case 504:
		return "the daemon took too long to respond"
	default:
		if code >= 500 {
			return "server error, please try again later"
		}
		return ""
	}
}
