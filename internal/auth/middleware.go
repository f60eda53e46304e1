package auth

import (
	"fmt"
	"net/http"
)

// Transport adds a freshly issued bearer token to every outgoing request.
type Transport struct {
	Tokens *Service
	Scope  string
	Base   http.RoundTripper
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	tok, err := t.Tokens.IssueToken(t.Scope)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	// RoundTrippers must not modify the caller's request.
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "Bearer "+tok)
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(r)
}

// Header returns request headers carrying a bearer token, for dialers that
// do not go through an http.Client.
func (s *Service) Header(scope string) (http.Header, error) {
	tok, err := s.IssueToken(scope)
	if err != nil {
		return nil, err
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+tok)
	return h, nil
}
