// Package guard decides, before a page is served, whether the visitor is sent elsewhere.
package guard

import (
	"regexp"
	"strings"
)

// DefaultExclude matches paths the guard never looks at: API routes and static assets.
const DefaultExclude = `^/(api|static|assets|metrics|health|favicon\.ico)(/|$)`

// Action is what to do with a navigation
type Action int

const (
	Pass Action = iota
	Redirect
)

// Decision is the outcome for one path
type Decision struct {
	Action   Action
	Location string // set when Action == Redirect
}

// Rules classifies paths into auth pages and protected pages
type Rules struct {
	AuthPrefixes      []string
	ProtectedPrefixes []string
	HomePath          string
	LoginPath         string
	Exclude           *regexp.Regexp
}

// DefaultRules returns the site's routing rules
func DefaultRules() Rules {
	return Rules{
		AuthPrefixes:      []string{"/login", "/signup"},
		ProtectedPrefixes: []string{"/dashboard", "/match"},
		HomePath:          "/",
		LoginPath:         "/login",
		Exclude:           regexp.MustCompile(DefaultExclude),
	}
}

// Applies reports whether the guard runs for path at all
func (r Rules) Applies(path string) bool {
	return r.Exclude == nil || !r.Exclude.MatchString(path)
}

// Evaluate is a pure function of the path and whether the visitor is authenticated
func (r Rules) Evaluate(path string, authenticated bool) Decision {
	if !r.Applies(path) {
		return Decision{Action: Pass}
	}
	if authenticated && hasAnyPrefix(path, r.AuthPrefixes) {
		return Decision{Action: Redirect, Location: r.HomePath}
	}
	if !authenticated && hasAnyPrefix(path, r.ProtectedPrefixes) {
		return Decision{Action: Redirect, Location: r.LoginPath}
	}
	return Decision{Action: Pass}
}

// hasAnyPrefix matches whole path segments, so "/dashboards" is not under "/dashboard"
func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
