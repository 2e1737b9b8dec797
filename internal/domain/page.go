package domain

// PageID names one of the fixed dashboard pages. The string values are the
// ones carried in the persisted "page" parameter.
type PageID string

const (
	PageLogin     PageID = "Log-in"
	PageSignUp    PageID = "Sign-Up"
	PageDashboard PageID = "Dashboard"
	PageProjects  PageID = "Projects"
	PageDataset   PageID = "Dataset"
	PageAnalytics PageID = "Analytics"
	PageChatbot   PageID = "Chatbot"
	PageLogout    PageID = "Logout"
)

// Phase partitions pages into those reachable before and after login.
type Phase int

const (
	PhaseUnknown Phase = iota
	PhaseUnauthenticated
	PhaseAuthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

var (
	authMenu       = []PageID{PageLogin, PageSignUp}
	navigationMenu = []PageID{PageDashboard, PageProjects, PageDataset, PageAnalytics, PageChatbot, PageLogout}
)

// Phase reports which phase the page belongs to.
func (p PageID) Phase() Phase {
	switch p {
	case PageLogin, PageSignUp:
		return PhaseUnauthenticated
	case PageDashboard, PageProjects, PageDataset, PageAnalytics, PageChatbot, PageLogout:
		return PhaseAuthenticated
	default:
		return PhaseUnknown
	}
}

// Valid reports whether p is one of the known pages.
func (p PageID) Valid() bool {
	return p.Phase() != PhaseUnknown
}

// Menu returns the pages selectable in the given phase, in menu order.
func Menu(phase Phase) []PageID {
	var src []PageID
	switch phase {
	case PhaseUnauthenticated:
		src = authMenu
	case PhaseAuthenticated:
		src = navigationMenu
	default:
		return nil
	}
	out := make([]PageID, len(src))
	copy(out, src)
	return out
}

// EntryPage is the page a phase resolves to when the requested page is not part of it.
func EntryPage(phase Phase) PageID {
	if phase == PhaseAuthenticated {
		return PageDashboard
	}
	return PageLogin
}
