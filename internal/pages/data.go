package pages

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"customer-insights/internal/chart"
	"customer-insights/internal/dataset"
	"customer-insights/internal/export"
	"customer-insights/internal/router"
	"customer-insights/internal/session"
	"customer-insights/internal/storage"
)

type DatasetData struct {
	Datasets []dataset.Table `json:"datasets"`
	Formats  []export.Format `json:"formats"`
}

type datasetPage struct {
	datasets *dataset.Catalog
	archive  storage.Archive
	logger   *logrus.Logger
}

// Render lists the mall dataset first, then customers. With an export
// parameter it returns the chosen dataset as a file instead.
func (p *datasetPage) Render(ctx context.Context, st session.State, in router.Input) (session.State, router.View, error) {
	view := router.View{Title: "Dataset"}

	if f := in.Get("export"); f != "" {
		format, err := export.ParseFormat(f)
		if err != nil {
			view.Add(router.LevelWarning, fmt.Sprintf("Unsupported export format %q.", f))
			return st, view, nil
		}
		name := in.Get("dataset")
		t, err := p.datasets.Load(name)
		if errors.Is(err, dataset.ErrUnknownDataset) {
			view.Add(router.LevelWarning, fmt.Sprintf("Unknown dataset %q.", name))
			return st, view, nil
		}
		if err != nil {
			return st, router.View{}, err
		}

		body, err := export.Write(format, t)
		if err != nil {
			return st, router.View{}, err
		}
		view.Attachment = &router.Attachment{
			Filename:    format.Filename(t.Name),
			ContentType: format.ContentType(),
			Body:        body,
		}
		p.archiveExport(ctx, st.CurrentUser, view.Attachment)
		return st, view, nil
	}

	data := DatasetData{Formats: []export.Format{export.FormatXLSX, export.FormatPDF}}
	for _, name := range []string{dataset.Mall, dataset.Customers} {
		t, err := p.datasets.Load(name)
		if err != nil {
			return st, router.View{}, err
		}
		data.Datasets = append(data.Datasets, t)
	}
	view.Data = data
	return st, view, nil
}

// archiveExport keeps a copy of the export when an archive is configured.
// Failures are logged and do not affect the download.
func (p *datasetPage) archiveExport(ctx context.Context, owner string, a *router.Attachment) {
	if p.archive == nil {
		return
	}
	info, err := p.archive.Put(ctx, a.Body, storage.PutOptions{
		Owner:       owner,
		Filename:    a.Filename,
		ContentType: a.ContentType,
	})
	logger := p.logger.WithFields(logrus.Fields{"user": owner, "file": a.Filename})
	if err != nil {
		logger.Warnf("archive export: %v", err)
		return
	}
	logger.WithField("key", info.Key).Debug("export archived")
}

type AnalyticsData struct {
	Charts []chart.Spec `json:"charts"`
}

type analyticsPage struct {
	datasets *dataset.Catalog
}

// Render lists the charts, or draws one when the chart parameter is set.
// Charts are drawn from the mall dataset.
func (p *analyticsPage) Render(_ context.Context, st session.State, in router.Input) (session.State, router.View, error) {
	view := router.View{Title: "Customer Analytics"}

	id := in.Get("chart")
	if id == "" {
		view.Data = AnalyticsData{Charts: chart.Catalog()}
		return st, view, nil
	}

	t, err := p.datasets.Load(dataset.Mall)
	if err != nil {
		return st, router.View{}, err
	}
	img, err := chart.Render(id, t)
	if errors.Is(err, chart.ErrUnknownChart) {
		view.Add(router.LevelWarning, fmt.Sprintf("Unknown chart %q.", id))
		view.Data = AnalyticsData{Charts: chart.Catalog()}
		return st, view, nil
	}
	if err != nil {
		return st, router.View{}, err
	}
	view.Attachment = &router.Attachment{
		Filename:    id + ".png",
		ContentType: "image/png",
		Body:        img,
	}
	return st, view, nil
}
