package transport

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/agentstation/sevexport/pkg/constants"
	"github.com/agentstation/sevexport/pkg/errors"
)

// Authenticator applies authentication to HTTP requests.
type Authenticator interface {
	Apply(req *http.Request, token string)
}

// AuthScheme names how the API token is attached to a request.
type AuthScheme string

// Supported authentication schemes.
const (
	// AuthSchemeHeader sends the raw token in the Authorization header, as sevDesk expects.
	AuthSchemeHeader AuthScheme = "header"
	AuthSchemeBearer AuthScheme = "bearer"
	// AuthSchemeQuery sends the token as the "token" query parameter.
	AuthSchemeQuery AuthScheme = "query"
	AuthSchemeNone  AuthScheme = "none"
)

// NewAuthenticator returns the Authenticator for a scheme. An empty scheme
// selects AuthSchemeHeader.
func NewAuthenticator(scheme AuthScheme) (Authenticator, error) {
	switch AuthScheme(strings.ToLower(string(scheme))) {
	case "", AuthSchemeHeader:
		return &HeaderAuth{Header: "Authorization"}, nil
	case AuthSchemeBearer:
		return &BearerAuth{}, nil
	case AuthSchemeQuery:
		return &QueryAuth{Param: constants.TokenQueryParam}, nil
	case AuthSchemeNone:
		return &NoAuth{}, nil
	default:
		return nil, errors.NewConfigError("transport", fmt.Sprintf("unknown auth scheme %q", scheme), nil)
	}
}

// NoAuth implements no authentication.
type NoAuth struct{}

// Apply implements the Authenticator interface for NoAuth.
func (a *NoAuth) Apply(_ *http.Request, _ string) {}

// BearerAuth implements Bearer token authentication.
type BearerAuth struct{}

// Apply implements the Authenticator interface for BearerAuth.
func (a *BearerAuth) Apply(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
}

// HeaderAuth sends the token verbatim in a header.
type HeaderAuth struct {
	Header string
}

// Apply implements the Authenticator interface for HeaderAuth.
func (a *HeaderAuth) Apply(req *http.Request, token string) {
	req.Header.Set(a.Header, token)
}

// QueryAuth implements token as query parameter authentication.
type QueryAuth struct {
	Param string
}

// Apply implements the Authenticator interface for QueryAuth.
func (a *QueryAuth) Apply(req *http.Request, token string) {
	if req.URL == nil {
		return
	}

	query := req.URL.Query()
	query.Set(a.Param, token)
	req.URL.RawQuery = query.Encode()
}
