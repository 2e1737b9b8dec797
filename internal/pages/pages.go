// Package pages implements the dashboard pages behind the router.
package pages

import (
	"context"

	"github.com/sirupsen/logrus"

	"customer-insights/internal/dataset"
	"customer-insights/internal/domain"
	"customer-insights/internal/router"
	"customer-insights/internal/service"
	"customer-insights/internal/storage"
)

// Assistant answers questions about dataset records.
type Assistant interface {
	Ask(ctx context.Context, question string, records []map[string]any) (string, error)
}

// Deps are the collaborators shared by the pages. Archive may be nil.
type Deps struct {
	Auth      service.AuthService
	Datasets  *dataset.Catalog
	Assistant Assistant
	Archive   storage.Archive
	Logger    *logrus.Logger
}

// Table returns the handler for every page, ready for router.New.
func Table(d Deps) map[domain.PageID]router.Handler {
	if d.Logger == nil {
		d.Logger = logrus.New()
	}
	return map[domain.PageID]router.Handler{
		domain.PageLogin:     &loginPage{auth: d.Auth},
		domain.PageSignUp:    &signUpPage{auth: d.Auth},
		domain.PageDashboard: router.HandlerFunc(dashboard),
		domain.PageProjects:  &projectsPage{archive: d.Archive, logger: d.Logger},
		domain.PageDataset:   &datasetPage{datasets: d.Datasets, archive: d.Archive, logger: d.Logger},
		domain.PageAnalytics: &analyticsPage{datasets: d.Datasets},
		domain.PageChatbot:   &chatbotPage{datasets: d.Datasets, assistant: d.Assistant, logger: d.Logger},
		domain.PageLogout:    router.HandlerFunc(logout),
	}
}
