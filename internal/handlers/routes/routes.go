// Package routes registers every request handler against the shared app.
package routes

import (
	"context"
	"fmt"
	"net/http"

	"session-handlers/internal/app"
	userlogin "session-handlers/internal/handlers/auth/user-login"
	userlogout "session-handlers/internal/handlers/auth/user-logout"
	userregister "session-handlers/internal/handlers/auth/user-register"
	analyticsdata "session-handlers/internal/handlers/dashboard/analytics-data"
	dashboarddata "session-handlers/internal/handlers/dashboard/dashboard-data"
	dashboardhybrid "session-handlers/internal/handlers/dashboard/dashboard-hybrid"
	userslist "session-handlers/internal/handlers/dashboard/users-list"
	filesrecord "session-handlers/internal/handlers/files/files-record"
	datasync "session-handlers/internal/handlers/sessions/data-sync"
	sessionsdailyreset "session-handlers/internal/handlers/sessions/sessions-daily-reset"
	setuppostgresql "session-handlers/internal/handlers/setup/setup-postgresql"
	"session-handlers/pkg/registry"

	"github.com/aws/aws-lambda-go/events"
)

type requestHandler interface {
	Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)
}

type scheduledHandler interface {
	requestHandler
	Job(ctx context.Context) (interface{}, error)
}

// builder stops at the first failed constructor or registration.
type builder struct {
	reg *registry.Registry
	err error
}

func (b *builder) add(name, method, path, description string, h requestHandler, err error) {
	if b.err != nil {
		return
	}
	if err != nil {
		b.err = err
		return
	}
	b.register(registry.Entry{Name: name, Method: method, Path: path, Description: description, Handler: h.Handle})
}

func (b *builder) addScheduled(name, method, path, description string, h scheduledHandler, err error) {
	if b.err != nil {
		return
	}
	if err != nil {
		b.err = err
		return
	}
	b.register(registry.Entry{Name: name, Method: method, Path: path, Description: description, Handler: h.Handle, Job: h.Job})
}

func (b *builder) register(e registry.Entry) {
	if err := b.reg.Register(e); err != nil {
		b.err = fmt.Errorf("register %s: %w", e.Name, err)
	}
}

// Build constructs every handler. Handlers that need the relational store
// are left out when the app has none.
func Build(a *app.App) (*registry.Registry, error) {
	b := &builder{reg: registry.New()}
	cfg, log := a.Config, a.Logger

	register, err := userregister.NewHandler(userregister.ConfigFromApp(cfg), a.Engine, log)
	b.add(userregister.HandlerName, http.MethodPost, "/register", "Create a user account", register, err)

	login, err := userlogin.NewHandler(userlogin.ConfigFromApp(cfg), a.Engine, log)
	b.add(userlogin.HandlerName, http.MethodPost, "/login", "Check credentials and open a session", login, err)

	logout, err := userlogout.NewHandler(userlogout.ConfigFromApp(cfg), a.Engine, log)
	b.add(userlogout.HandlerName, http.MethodPost, "/logout", "Close one session", logout, err)

	reset, err := sessionsdailyreset.NewHandler(sessionsdailyreset.ConfigFromApp(cfg), a.Engine, log)
	b.addScheduled(sessionsdailyreset.HandlerName, http.MethodPost, "/sessions/reset", "Deactivate every session in both stores", reset, err)

	dash, err := dashboarddata.NewHandler(dashboarddata.ConfigFromApp(cfg), a.Dashboard, log)
	b.add(dashboarddata.HandlerName, http.MethodGet, "/dashboard", "User and session counts from the KV store", dash, err)

	hybrid, err := dashboardhybrid.NewHandler(dashboardhybrid.ConfigFromApp(cfg), a.Dashboard, log)
	b.add(dashboardhybrid.HandlerName, http.MethodGet, "/dashboard/hybrid", "Counts summed over both stores", hybrid, err)

	users, err := userslist.NewHandler(userslist.ConfigFromApp(cfg), a.Dashboard, log)
	b.add(userslist.HandlerName, http.MethodGet, "/users", "List users without password hashes", users, err)

	files, err := filesrecord.NewHandler(filesrecord.ConfigFromApp(cfg), a.KV, log)
	b.add(filesrecord.HandlerName, http.MethodPost, "/files", "Record a processed file", files, err)

	if a.Relational != nil {
		sync, err := datasync.NewHandler(datasync.ConfigFromApp(cfg), a.Reconciler, log)
		b.addScheduled(datasync.HandlerName, http.MethodPost, "/sync", "Copy KV users, sessions and files into PostgreSQL", sync, err)

		analytics, err := analyticsdata.NewHandler(analyticsdata.ConfigFromApp(cfg), a.Relational, log)
		b.add(analyticsdata.HandlerName, http.MethodGet, "/analytics", "Engagement and processing analytics from PostgreSQL", analytics, err)

		setup, err := setuppostgresql.NewHandler(setuppostgresql.ConfigFromApp(cfg), a.Relational, log)
		b.add(setuppostgresql.HandlerName, http.MethodPost, "/setup/postgresql", "Create the PostgreSQL tables", setup, err)
	}

	if b.err != nil {
		return nil, b.err
	}
	return b.reg, nil
}
