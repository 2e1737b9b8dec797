package session

import (
	"net/url"

	"customer-insights/internal/domain"
)

// Keys of the persisted representation.
const (
	KeyAuthenticated = "authenticated"
	KeyCurrentUser   = "current_user"
	KeyPage          = "page"
	KeyToken         = "token"
)

// State is the authentication and navigation context of one interaction stream.
// Handlers receive it by value and return the next state; nothing keeps it
// between requests except its persisted representation.
type State struct {
	Authenticated bool
	CurrentUser   string
	Page          domain.PageID
}

// Params is the flat, shareable encoding of a State.
type Params map[string]string

// LoggedIn is the state right after a successful login.
func LoggedIn(username string) State {
	return State{
		Authenticated: true,
		CurrentUser:   username,
		Page:          domain.PageDashboard,
	}
}

// LoggedOut is the state of a fresh or logged out session.
func LoggedOut() State {
	return State{Page: domain.PageLogin}
}

// Phase reports the navigation phase implied by the authentication flag.
func (s State) Phase() domain.Phase {
	if s.Authenticated {
		return domain.PhaseAuthenticated
	}
	return domain.PhaseUnauthenticated
}

// WithPage returns a copy of s on the given page.
func (s State) WithPage(page domain.PageID) State {
	s.Page = page
	return s
}

// Restore reads a state from its persisted form. Missing keys take the logged
// out defaults. The page is not checked against the phase here; the router does that.
func Restore(p Params) State {
	st := LoggedOut()
	if v, ok := p[KeyAuthenticated]; ok {
		st.Authenticated = v == "true"
	}
	if v, ok := p[KeyCurrentUser]; ok {
		st.CurrentUser = v
	}
	if v, ok := p[KeyPage]; ok {
		st.Page = domain.PageID(v)
	}
	return st
}

// Mirror writes every field of s to its persisted form.
func Mirror(s State) Params {
	auth := "false"
	if s.Authenticated {
		auth = "true"
	}
	return Params{
		KeyAuthenticated: auth,
		KeyCurrentUser:   s.CurrentUser,
		KeyPage:          string(s.Page),
	}
}

// ParamsFromValues picks the session keys out of URL query values.
func ParamsFromValues(v url.Values) Params {
	p := Params{}
	for _, key := range []string{KeyAuthenticated, KeyCurrentUser, KeyPage, KeyToken} {
		if vals, ok := v[key]; ok && len(vals) > 0 {
			p[key] = vals[0]
		}
	}
	return p
}

// Values converts p into URL query values.
func (p Params) Values() url.Values {
	v := url.Values{}
	for key, val := range p {
		v.Set(key, val)
	}
	return v
}
