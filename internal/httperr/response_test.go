package httperr

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestFromResponse_JSONErrorField(t *testing.T) {
	resp := &http.Response{
		StatusCode: 404,
		Body:       io.NopCloser(strings.NewReader(`{"error":"no daemon for pro.example.com"}`)),
	}
	err := FromResponse(resp)
	if err.Error() != "server error: no daemon for pro.example.com (HTTP 404)" {
		t.Fatalf("got %q", err)
	}

	var respErr *ResponseError
	if !errors.As(err, &respErr) || respErr.StatusCode != 404 {
		t.Fatalf("expected ResponseError with code 404, got %#v", err)
	}
}

func TestFromResponse_JSONMessageField(t *testing.T) {
	resp := &http.Response{
		StatusCode: 422,
		Body:       io.NopCloser(strings.NewReader(`{"message":"host is required"}`)),
	}
	err := FromResponse(resp)
	if err.Error() != "server error: host is required (HTTP 422)" {
		t.Fatalf("got %q", err)
	}
}

func TestFromResponse_PlainTextBody(t *testing.T) {
	resp := &http.Response{
		StatusCode: 503,
		Body:       io.NopCloser(strings.NewReader("daemon busy\n")),
	}
	err := FromResponse(resp)
	if err.Error() != "server error: daemon busy (HTTP 503)" {
		t.Fatalf("got %q", err)
	}
}

func TestFromResponse_StatusHint(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{502, "server returned HTTP 502: the daemon did not answer, it may still be starting"},
		{500, "server returned HTTP 500: podsup failed to handle the request, see its log"},
		{404, "server returned HTTP 404: no such pro instance, check 'podsup list'"},
		{418, "server returned HTTP 418"},
	}

	for _, tt := range tests {
		resp := &http.Response{
			StatusCode: tt.code,
			Body:       io.NopCloser(strings.NewReader("")),
		}
		err := FromResponse(resp)
		if err.Error() != tt.want {
			t.Errorf("code %d: got %q, want %q", tt.code, err, tt.want)
		}
	}
}

func TestStatusHint_5xxFallback(t *testing.T) {
	hint := StatusHint(599)
	if hint != "server error, please try again later" {
		t.Fatalf("got %q", hint)
	}
}

func TestStatusHint_4xxNoHint(t *testing.T) {
	hint := StatusHint(418)
	if hint != "" {
		t.Fatalf("expected empty, got %q", hint)
	}
}
