package pages

import (
	"context"
	"errors"
	"fmt"

	"customer-insights/internal/domain"
	"customer-insights/internal/router"
	"customer-insights/internal/service"
	"customer-insights/internal/session"
)

type loginPage struct {
	auth service.AuthService
}

func (p *loginPage) Render(ctx context.Context, st session.State, in router.Input) (session.State, router.View, error) {
	view := router.View{Title: "Log In"}
	if !in.Submitted {
		return st, view, nil
	}

	next, err := p.auth.Login(ctx, in.Get("username"), in.Get("password"))
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		view.Add(router.LevelError, "Invalid username or password")
		return st, view, nil
	case err != nil:
		return st, router.View{}, err
	}

	view.Add(router.LevelSuccess, fmt.Sprintf("Login successful! Welcome, %s!", domain.DisplayName(next.CurrentUser)))
	return next, view, nil
}

type signUpPage struct {
	auth service.AuthService
}

func (p *signUpPage) Render(ctx context.Context, st session.State, in router.Input) (session.State, router.View, error) {
	view := router.View{Title: "Sign-Up"}
	if !in.Submitted {
		return st, view, nil
	}

	err := p.auth.Register(ctx, in.Get("username"), in.Get("password"))
	switch {
	case errors.Is(err, domain.ErrUsernameTaken):
		view.Add(router.LevelError, "Username already exists! Choose a different username.")
	case errors.Is(err, domain.ErrMissingField):
		view.Add(router.LevelError, "All fields are required!")
	case err != nil:
		return st, router.View{}, err
	default:
		view.Add(router.LevelSuccess, "Registration successful! Please log in.")
	}
	return st, view, nil
}

func logout(_ context.Context, st session.State, _ router.Input) (session.State, router.View, error) {
	view := router.View{Title: "Logout", DiscardCache: true}
	view.Add(router.LevelSuccess, "Logged out successfully!")
	return session.LoggedOut(), view, nil
}
