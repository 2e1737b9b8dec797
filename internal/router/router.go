package router

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/sirupsen/logrus"

	"customer-insights/internal/domain"
	"customer-insights/internal/session"
)

// ErrNoHandler is returned when a reachable page has no registered handler.
var ErrNoHandler = errors.New("no handler for page")

// Input carries the form and query values of one request.
type Input struct {
	Values    url.Values
	Submitted bool
}

func (in Input) Get(key string) string {
	if in.Values == nil {
		return ""
	}
	return in.Values.Get(key)
}

// Level is the severity of a user visible message.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

type Message struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

// Attachment is a binary response such as an export or a rendered chart.
type Attachment struct {
	Filename    string
	ContentType string
	Body        []byte
}

// View is what a page hands back to the transport.
type View struct {
	Page         domain.PageID
	Title        string
	Messages     []Message
	Data         any
	Menu         []domain.PageID
	Attachment   *Attachment
	DiscardCache bool
}

func (v *View) Add(level Level, text string) {
	v.Messages = append(v.Messages, Message{Level: level, Text: text})
}

// Handler renders one page. It trusts the router for authorization and
// returns the next session state.
type Handler interface {
	Render(ctx context.Context, st session.State, in Input) (session.State, View, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, st session.State, in Input) (session.State, View, error)

func (f HandlerFunc) Render(ctx context.Context, st session.State, in Input) (session.State, View, error) {
	return f(ctx, st, in)
}

// Router maps the session's page to a handler and is the only place that
// enforces which pages each phase may reach.
type Router struct {
	handlers map[domain.PageID]Handler
	logger   *logrus.Logger
}

func New(handlers map[domain.PageID]Handler, logger *logrus.Logger) *Router {
	if logger == nil {
		logger = logrus.New()
	}
	table := make(map[domain.PageID]Handler, len(handlers))
	for page, h := range handlers {
		table[page] = h
	}
	return &Router{handlers: table, logger: logger}
}

// Resolve returns the page st may show. A page outside the current phase
// resolves to that phase's entry page; phases only change inside handlers
// (login and logout).
func Resolve(st session.State) domain.PageID {
	phase := st.Phase()
	if st.Page.Phase() == phase {
		return st.Page
	}
	return domain.EntryPage(phase)
}

// Dispatch renders the page selected in st.
func (r *Router) Dispatch(ctx context.Context, st session.State, in Input) (session.State, View, error) {
	page := Resolve(st)
	if page != st.Page {
		r.logger.WithFields(logrus.Fields{
			"requested": st.Page,
			"resolved":  page,
			"phase":     st.Phase(),
		}).Debug("page not reachable in phase")
		st = st.WithPage(page)
	}

	h, ok := r.handlers[page]
	if !ok {
		return st, View{}, fmt.Errorf("%w: %s", ErrNoHandler, page)
	}

	next, view, err := h.Render(ctx, st, in)
	if err != nil {
		return st, View{}, fmt.Errorf("render %s: %w", page, err)
	}

	view.Page = next.Page
	view.Menu = domain.Menu(next.Phase())
	if view.Title == "" {
		view.Title = string(next.Page)
	}
	return next, view, nil
}
