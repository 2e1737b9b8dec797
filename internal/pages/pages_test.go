package pages

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"customer-insights/internal/assistant"
	"customer-insights/internal/dataset"
	"customer-insights/internal/domain"
	"customer-insights/internal/repository/csvfile"
	"customer-insights/internal/router"
	"customer-insights/internal/service"
	"customer-insights/internal/session"
	"customer-insights/internal/storage"
)

type fakeAssistant struct {
	answer   string
	err      error
	question string
	records  int
}

func (f *fakeAssistant) Ask(_ context.Context, question string, records []map[string]any) (string, error) {
	f.question = question
	f.records = len(records)
	if _, err := assistant.BuildPrompt(question, records); err != nil {
		return "", err
	}
	return f.answer, f.err
}

type fakeArchive struct {
	mu      sync.Mutex
	puts    []storage.PutOptions
	objects []storage.ObjectInfo
	err     error
}

func (f *fakeArchive) Put(_ context.Context, body []byte, opts storage.PutOptions) (storage.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return storage.ObjectInfo{}, f.err
	}
	f.puts = append(f.puts, opts)
	return storage.ObjectInfo{Key: opts.Owner + "/" + opts.Filename, Name: opts.Filename, Size: int64(len(body))}, nil
}

func (f *fakeArchive) List(context.Context, string) ([]storage.ObjectInfo, error) {
	return f.objects, f.err
}

type fixture struct {
	router    *router.Router
	auth      service.AuthService
	assistant *fakeAssistant
	archive   *fakeArchive
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := csvfile.NewCredentialStore(filepath.Join(t.TempDir(), "users.csv"))
	auth := service.NewAuthService(store, service.NewBcryptHasher(bcrypt.MinCost, false), logger)
	f := &fixture{auth: auth, assistant: &fakeAssistant{answer: "42"}, archive: &fakeArchive{}}
	f.router = router.New(Table(Deps{
		Auth: auth,
		Datasets: dataset.NewCatalog(
			dataset.Source{Name: dataset.Customers, Title: "Customers Dataset", Path: "testdata/customers.csv"},
			dataset.Source{Name: dataset.Mall, Title: "Mall Customers Dataset", Path: "testdata/mall.csv"},
		),
		Assistant: f.assistant,
		Archive:   f.archive,
		Logger:    logger,
	}), logger)
	return f
}

func (f *fixture) submit(t *testing.T, st session.State, kv ...string) (session.State, router.View) {
	t.Helper()
	next, view, err := f.router.Dispatch(context.Background(), st, router.Input{Values: values(kv...), Submitted: true})
	require.NoError(t, err)
	return next, view
}

func (f *fixture) show(t *testing.T, st session.State, kv ...string) (session.State, router.View) {
	t.Helper()
	next, view, err := f.router.Dispatch(context.Background(), st, router.Input{Values: values(kv...)})
	require.NoError(t, err)
	return next, view
}

func values(kv ...string) url.Values {
	v := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		v.Set(kv[i], kv[i+1])
	}
	return v
}

func texts(v router.View) []string {
	out := make([]string, len(v.Messages))
	for i, m := range v.Messages {
		out[i] = m.Text
	}
	return out
}

func bob() session.State {
	return session.LoggedIn("bob")
}

func TestEveryPageHasHandler(t *testing.T) {
	table := Table(Deps{})
	for _, phase := range []domain.Phase{domain.PhaseUnauthenticated, domain.PhaseAuthenticated} {
		for _, p := range domain.Menu(phase) {
			assert.Contains(t, table, p)
		}
	}
}

func TestSignUpThenLogin(t *testing.T) {
	f := newFixture(t)
	start := session.LoggedOut().WithPage(domain.PageSignUp)

	next, view := f.submit(t, start, "username", " Bob ", "password", "pw")
	assert.Equal(t, start, next)
	assert.Equal(t, []string{"Registration successful! Please log in."}, texts(view))

	_, view = f.submit(t, start, "username", "bob", "password", "other")
	assert.Equal(t, []string{"Username already exists! Choose a different username."}, texts(view))

	_, view = f.submit(t, start, "username", "carol", "password", "  ")
	assert.Equal(t, []string{"All fields are required!"}, texts(view))

	next, view = f.submit(t, session.LoggedOut(), "username", "BOB", "password", "pw")
	assert.Equal(t, session.LoggedIn("bob"), next)
	assert.Equal(t, []string{"Login successful! Welcome, Bob!"}, texts(view))
	assert.Equal(t, domain.PageDashboard, view.Page)
	assert.Equal(t, domain.Menu(domain.PhaseAuthenticated), view.Menu)
}

func TestLoginFailureKeepsState(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.auth.Register(context.Background(), "bob", "pw"))

	for _, creds := range [][2]string{{"bob", "wrong"}, {"nobody", "pw"}} {
		next, view := f.submit(t, session.LoggedOut(), "username", creds[0], "password", creds[1])
		assert.Equal(t, session.LoggedOut(), next)
		require.Len(t, view.Messages, 1)
		assert.Equal(t, router.LevelError, view.Messages[0].Level)
		assert.Equal(t, "Invalid username or password", view.Messages[0].Text)
	}
}

func TestLoginWithoutSubmitShowsForm(t *testing.T) {
	f := newFixture(t)
	next, view := f.show(t, session.LoggedOut(), "username", "bob", "password", "pw")
	assert.Equal(t, session.LoggedOut(), next)
	assert.Empty(t, view.Messages)
	assert.Equal(t, "Log In", view.Title)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	_, view := f.show(t, bob())
	assert.Equal(t, "Welcome, Bob!", view.Title)
	assert.Equal(t, DashboardData{Headline: headline}, view.Data)
}

func TestProjectsListsArchive(t *testing.T) {
	f := newFixture(t)
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	f.archive.objects = []storage.ObjectInfo{{Key: "k", Name: "mall.pdf", Size: 10, LastModified: &ts, URL: "https://x"}}

	_, view := f.show(t, bob().WithPage(domain.PageProjects))
	assert.Equal(t, []string{"Here are your projects."}, texts(view))
	data, ok := view.Data.(ProjectsData)
	require.True(t, ok)
	require.Len(t, data.Exports, 1)
	assert.Equal(t, "mall.pdf", data.Exports[0].Name)
	assert.Equal(t, "2024-05-01T10:00:00Z", *data.Exports[0].LastModified)

	f.archive.err = errors.New("boom")
	_, view = f.show(t, bob().WithPage(domain.PageProjects))
	require.Len(t, view.Messages, 2)
	assert.Equal(t, router.LevelWarning, view.Messages[1].Level)
}

func TestDatasetListsBothTables(t *testing.T) {
	f := newFixture(t)
	_, view := f.show(t, bob().WithPage(domain.PageDataset))

	data, ok := view.Data.(DatasetData)
	require.True(t, ok)
	require.Len(t, data.Datasets, 2)
	assert.Equal(t, dataset.Mall, data.Datasets[0].Name)
	assert.Equal(t, dataset.Customers, data.Datasets[1].Name)
	assert.Nil(t, view.Attachment)
}

func TestDatasetExport(t *testing.T) {
	f := newFixture(t)

	_, view := f.show(t, bob().WithPage(domain.PageDataset), "export", "pdf", "dataset", "mall")
	require.NotNil(t, view.Attachment)
	assert.Equal(t, "mall.pdf", view.Attachment.Filename)
	assert.Equal(t, "application/pdf", view.Attachment.ContentType)
	assert.True(t, bytes.HasPrefix(view.Attachment.Body, []byte("%PDF-")))

	_, view = f.show(t, bob().WithPage(domain.PageDataset), "export", "excel", "dataset", "customers")
	require.NotNil(t, view.Attachment)
	assert.Equal(t, "customers.xlsx", view.Attachment.Filename)

	require.Len(t, f.archive.puts, 2)
	assert.Equal(t, "bob", f.archive.puts[0].Owner)
	assert.Equal(t, "mall.pdf", f.archive.puts[0].Filename)
}

func TestDatasetExportSurvivesArchiveFailure(t *testing.T) {
	f := newFixture(t)
	f.archive.err = errors.New("bucket gone")

	_, view := f.show(t, bob().WithPage(domain.PageDataset), "export", "xlsx", "dataset", "mall")
	require.NotNil(t, view.Attachment)
	assert.Empty(t, view.Messages)
}

func TestDatasetExportBadInput(t *testing.T) {
	f := newFixture(t)

	_, view := f.show(t, bob().WithPage(domain.PageDataset), "export", "docx", "dataset", "mall")
	assert.Nil(t, view.Attachment)
	require.Len(t, view.Messages, 1)
	assert.Equal(t, router.LevelWarning, view.Messages[0].Level)

	_, view = f.show(t, bob().WithPage(domain.PageDataset), "export", "pdf", "dataset", "nope")
	assert.Nil(t, view.Attachment)
	require.Len(t, view.Messages, 1)
}

func TestAnalytics(t *testing.T) {
	f := newFixture(t)

	_, view := f.show(t, bob().WithPage(domain.PageAnalytics))
	data, ok := view.Data.(AnalyticsData)
	require.True(t, ok)
	assert.Len(t, data.Charts, 4)

	_, view = f.show(t, bob().WithPage(domain.PageAnalytics), "chart", "age-histogram")
	require.NotNil(t, view.Attachment)
	assert.Equal(t, "image/png", view.Attachment.ContentType)
	assert.True(t, bytes.HasPrefix(view.Attachment.Body, []byte("\x89PNG")))

	_, view = f.show(t, bob().WithPage(domain.PageAnalytics), "chart", "pie")
	assert.Nil(t, view.Attachment)
	require.Len(t, view.Messages, 1)
}

func TestChatbot(t *testing.T) {
	f := newFixture(t)
	chat := bob().WithPage(domain.PageChatbot)

	_, view := f.show(t, chat)
	data := view.Data.(*ChatbotData)
	assert.Equal(t, dataset.Customers, data.Selected)
	assert.Equal(t, []string{dataset.Customers, dataset.Mall}, data.Datasets)

	_, view = f.submit(t, chat, "question", "   ")
	assert.Equal(t, []string{"Please enter a question!"}, texts(view))

	next, view := f.submit(t, chat, "question", "how many?", "dataset", "mall")
	assert.Equal(t, chat, next)
	assert.Equal(t, "42", view.Data.(*ChatbotData).Answer)
	assert.Equal(t, "how many?", f.assistant.question)
	assert.Equal(t, 10, f.assistant.records)
}

func TestChatbotAcceptsNonFiniteCells(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	path := filepath.Join(t.TempDir(), "customers.csv")
	require.NoError(t, os.WriteFile(path, []byte("CUST_ID,BALANCE\nC1,NaN\nC2,12.5\n"), 0o600))

	ask := &fakeAssistant{answer: "one balance is missing"}
	r := router.New(Table(Deps{
		Datasets:  dataset.NewCatalog(dataset.Source{Name: dataset.Customers, Path: path}),
		Assistant: ask,
		Logger:    logger,
	}), logger)

	_, view, err := r.Dispatch(context.Background(), bob().WithPage(domain.PageChatbot), router.Input{
		Values:    values("question", "q"),
		Submitted: true,
	})
	require.NoError(t, err)
	assert.Empty(t, view.Messages)
	assert.Equal(t, "one balance is missing", view.Data.(*ChatbotData).Answer)
	assert.Equal(t, 2, ask.records)
}

func TestChatbotRemoteFailure(t *testing.T) {
	f := newFixture(t)
	f.assistant.err = fmt.Errorf("%w: status 503", domain.ErrRemoteCall)
	chat := bob().WithPage(domain.PageChatbot)

	next, view := f.submit(t, chat, "question", "why?")
	assert.Equal(t, chat, next)
	require.Len(t, view.Messages, 1)
	assert.Equal(t, router.LevelError, view.Messages[0].Level)
	assert.Contains(t, view.Messages[0].Text, "status 503")
	assert.Empty(t, view.Data.(*ChatbotData).Answer)
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	next, view := f.show(t, bob().WithPage(domain.PageLogout))
	assert.Equal(t, session.LoggedOut(), next)
	assert.True(t, view.DiscardCache)
	assert.Equal(t, []string{"Logged out successfully!"}, texts(view))
	assert.Equal(t, domain.Menu(domain.PhaseUnauthenticated), view.Menu)
	assert.Equal(t, domain.PageLogin, view.Page)
}
