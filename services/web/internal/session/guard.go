package session

import "strings"

const (
	LoginPath   = "/login"
	ReportsPath = "/reports"
)

var protectedPrefixes = []string{ReportsPath}

// Decision is the outcome of a route check. Loading is set when the session
// is not known yet and the caller should render a loading surface.
type Decision struct {
	Allow    bool
	Redirect string
	Loading  bool
}

// RequiresAuth reports whether path is a protected prefix or lies below one.
func RequiresAuth(path string) bool {
	for _, prefix := range protectedPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// Decide is a pure function of the session snapshot and the path.
func Decide(state State, path string) Decision {
	if !state.IsInitialized || state.IsLoading {
		return Decision{Allow: true, Loading: true}
	}
	if RequiresAuth(path) && state.User == nil {
		return Decision{Redirect: LoginPath}
	}
	return Decision{Allow: true}
}
