package middleware

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"
)

// TokenSource yields the bearer token current at dispatch time, or "".
type TokenSource interface {
	Token() string
}

// UnauthorizedHandler is told when a request carrying token came back 401.
type UnauthorizedHandler interface {
	HandleUnauthorized(ctx context.Context, token string)
}

// BearerTransport attaches the current token to every outgoing request and
// reports authorization failures of authenticated requests.
type BearerTransport struct {
	Next         http.RoundTripper
	Tokens       TokenSource
	Unauthorized UnauthorizedHandler
	Log          *logrus.Logger
}

func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token := ""
	if t.Tokens != nil {
		token = t.Tokens.Token()
	}

	// RoundTrippers must not mutate the caller's request.
	out := req.Clone(req.Context())
	out.Header.Del("Authorization")
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
		t.Log.Debugf("Middleware: Attached bearer token %s... to %s %s", token[:min(10, len(token))], req.Method, req.URL.Path)
	} else {
		t.Log.Debugf("Middleware: Sending %s %s without credentials", req.Method, req.URL.Path)
	}

	resp, err := t.next().RoundTrip(out)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && token != "" && t.Unauthorized != nil {
		t.Log.Warnf("Middleware: %s %s returned 401, dropping session", req.Method, req.URL.Path)
		t.Unauthorized.HandleUnauthorized(req.Context(), token)
	}
	return resp, nil
}

func (t *BearerTransport) next() http.RoundTripper {
	if t.Next != nil {
		return t.Next
	}
	return http.DefaultTransport
}
