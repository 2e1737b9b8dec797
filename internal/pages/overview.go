package pages

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"customer-insights/internal/domain"
	"customer-insights/internal/router"
	"customer-insights/internal/session"
	"customer-insights/internal/storage"
)

const headline = "Intelligent Customer Segmentation and Predictive Insights for B2C Growth"

type DashboardData struct {
	Headline string `json:"headline"`
}

func dashboard(_ context.Context, st session.State, _ router.Input) (session.State, router.View, error) {
	return st, router.View{
		Title: fmt.Sprintf("Welcome, %s!", domain.DisplayName(st.CurrentUser)),
		Data:  DashboardData{Headline: headline},
	}, nil
}

type ExportEntry struct {
	Name         string  `json:"name"`
	Size         int64   `json:"size"`
	LastModified *string `json:"last_modified,omitempty"`
	URL          string  `json:"url,omitempty"`
}

type ProjectsData struct {
	Exports []ExportEntry `json:"exports"`
}

type projectsPage struct {
	archive storage.Archive
	logger  *logrus.Logger
}

func (p *projectsPage) Render(ctx context.Context, st session.State, _ router.Input) (session.State, router.View, error) {
	view := router.View{Title: "Projects"}
	view.Add(router.LevelInfo, "Here are your projects.")
	if p.archive == nil {
		return st, view, nil
	}

	objects, err := p.archive.List(ctx, st.CurrentUser)
	if err != nil {
		p.logger.WithField("user", st.CurrentUser).Warnf("list archived exports: %v", err)
		view.Add(router.LevelWarning, "Archived exports are unavailable right now.")
		return st, view, nil
	}

	data := ProjectsData{Exports: make([]ExportEntry, len(objects))}
	for i, obj := range objects {
		data.Exports[i] = ExportEntry{Name: obj.Name, Size: obj.Size, URL: obj.URL}
		if obj.LastModified != nil && !obj.LastModified.IsZero() {
			v := obj.LastModified.Format(time.RFC3339)
			data.Exports[i].LastModified = &v
		}
	}
	view.Data = data
	return st, view, nil
}
