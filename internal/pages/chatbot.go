package pages

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"customer-insights/internal/dataset"
	"customer-insights/internal/domain"
	"customer-insights/internal/router"
	"customer-insights/internal/session"
)

type ChatbotData struct {
	Datasets []string `json:"datasets"`
	Selected string   `json:"selected"`
	Question string   `json:"question,omitempty"`
	Answer   string   `json:"answer,omitempty"`
}

type chatbotPage struct {
	datasets  *dataset.Catalog
	assistant Assistant
	logger    *logrus.Logger
}

func (p *chatbotPage) Render(ctx context.Context, st session.State, in router.Input) (session.State, router.View, error) {
	data := ChatbotData{
		Datasets: p.datasets.Names(),
		Selected: in.Get("dataset"),
		Question: strings.TrimSpace(in.Get("question")),
	}
	if data.Selected == "" {
		data.Selected = dataset.Customers
	}
	view := router.View{Title: "AI Chatbot (Ask about customer data)", Data: &data}
	if !in.Submitted {
		return st, view, nil
	}

	if data.Question == "" {
		view.Add(router.LevelWarning, "Please enter a question!")
		return st, view, nil
	}
	if p.assistant == nil {
		view.Add(router.LevelError, "The assistant is not configured.")
		return st, view, nil
	}

	t, err := p.datasets.Load(data.Selected)
	if errors.Is(err, dataset.ErrUnknownDataset) {
		view.Add(router.LevelWarning, fmt.Sprintf("Unknown dataset %q.", data.Selected))
		return st, view, nil
	}
	if err != nil {
		return st, router.View{}, err
	}

	answer, err := p.assistant.Ask(ctx, data.Question, t.Records())
	if errors.Is(err, domain.ErrRemoteCall) {
		view.Add(router.LevelError, fmt.Sprintf("Error: %v", err))
		return st, view, nil
	}
	if err != nil {
		return st, router.View{}, err
	}
	data.Answer = answer
	return st, view, nil
}
