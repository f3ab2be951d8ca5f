package app

import (
	"net/url"
	"strings"
)

// HandshakeOutcome is derived once from the OAuth redirect fragment at
// session start and is immutable for the session's lifetime. Fields are
// nil when the corresponding key was absent from the fragment; an empty
// string means the key was present with no value.
type HandshakeOutcome struct {
	Status           *string
	AuthError        *string
	ErrorDescription *string
}

// Succeeded reports a completed handshake.
func (h HandshakeOutcome) Succeeded() bool {
	return h.Status != nil && *h.Status == "success"
}

// Failed reports a handshake the authorization server rejected.
func (h HandshakeOutcome) Failed() bool {
	return h.Status != nil && *h.Status == "error"
}

// ParseHandshakeFragment extracts the handshake outcome from a redirect
// fragment such as "#status=error&error=access_denied&error_description=...".
// A leading "#" and a leading "?" are stripped, pairs are decoded in order
// with the first occurrence of a key winning, and pairs that fail to
// percent-decode are skipped. Pure: the one input string is all it reads.
func ParseHandshakeFragment(fragment string) HandshakeOutcome {
	fragment = strings.TrimPrefix(fragment, "#")
	fragment = strings.TrimPrefix(fragment, "?")

	var out HandshakeOutcome
	for _, pair := range strings.Split(fragment, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawVal, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			continue
		}
		val, err := url.QueryUnescape(rawVal)
		if err != nil {
			continue
		}
		switch key {
		case "status":
			if out.Status == nil {
				out.Status = &val
			}
		case "error":
			if out.AuthError == nil {
				out.AuthError = &val
			}
		case "error_description":
			if out.ErrorDescription == nil {
				out.ErrorDescription = &val
			}
		}
	}
	return out
}
