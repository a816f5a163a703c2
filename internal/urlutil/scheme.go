// Package urlutil holds the handful of URL-construction rules shared by the
// discovery publisher and the transfer engine so the scheme-derivation logic
// (§4.1 "URL derivation") lives in exactly one place.
package urlutil

import "strings"

// SchemeFor returns "http" for local-development hostnames and "https"
// otherwise, per §4.1: hostnames beginning "localhost" or "127.0.0.1" are
// unsecured.
func SchemeFor(domain string) string {
	host := domain
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	if strings.HasPrefix(host, "localhost") || strings.HasPrefix(host, "127.0.0.1") {
		return "http"
	}
	return "https"
}

// Endpoint joins a domain and path into "<scheme>://<domain><path>" using
// SchemeFor's rule.
func Endpoint(domain, path string) string {
	return SchemeFor(domain) + "://" + domain + path
}
