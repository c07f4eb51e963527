package git

import (
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// BasicAuth creates HTTP basic authentication.
// This is commonly used with personal access tokens for HTTPS remotes.
//
// Example:
//
//	auth := git.BasicAuth("myuser", "ghp_mytoken")
func BasicAuth(username, password string) Auth {
	return &http.BasicAuth{
		Username: username,
		Password: password,
	}
}

// EmptyAuth returns nil authentication for public repositories.
// go-git interprets nil Auth as "no authentication needed".
func EmptyAuth() Auth {
	return nil
}

// basicCredentials extracts the username and password of a BasicAuth value.
func basicCredentials(auth Auth) (user, pass string, ok bool) {
	b, ok := auth.(*http.BasicAuth)
	if !ok || b == nil {
		return "", "", false
	}
	return b.Username, b.Password, true
}

// toAuthMethod converts our Auth to the go-git transport type.
func toAuthMethod(auth Auth) (transport.AuthMethod, bool) {
	if auth == nil {
		return nil, true
	}
	m, ok := auth.(transport.AuthMethod)
	return m, ok
}

// Ensure our Auth interface is satisfied by go-git's transport.AuthMethod.
// This is a compile-time check.
var _ Auth = (transport.AuthMethod)(nil)
