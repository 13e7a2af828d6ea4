package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ValdemirJunior2020/churchApp-Saas/engine"
	"github.com/ValdemirJunior2020/churchApp-Saas/internal/config"
	"github.com/ValdemirJunior2020/churchApp-Saas/internal/stubbackend"
	"github.com/ValdemirJunior2020/churchApp-Saas/mutations"
	"github.com/ValdemirJunior2020/churchApp-Saas/remote"
	"github.com/ValdemirJunior2020/churchApp-Saas/sessions"
	"github.com/ValdemirJunior2020/churchApp-Saas/tenants"
	"github.com/kr/pretty"
	"github.com/rs/zerolog"
)

type app struct {
	cfg    config.Config
	logger zerolog.Logger
}

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"login":   loginCmd,
	"join":    joinCmd,
	"create":  createCmd,
	"logout":  logoutCmd,
	"status":  statusCmd,
	"refresh": refreshCmd,
	"show":    showCmd,
	"mutate":  mutateCmd,
	"stub":    stubCmd,
}

// open builds the engine and restores the stored session.
func (a *app) open(ctx context.Context) (*engine.Engine, error) {
	e, err := engine.New(ctx, a.cfg, engine.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	if _, _, err := e.Start(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("could not restore session")
	}
	return e, nil
}

func loginCmd(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	code := fs.String("code", "", "church code")
	id := fs.String("id", "", "email or phone")
	secret := fs.String("secret", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	s, err := e.Login(ctx, remote.Credentials{TenantCode: *code, Identifier: *id, Secret: *secret})
	if err != nil {
		return err
	}
	printSession(s)
	return nil
}

func joinCmd(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("join", flag.ContinueOnError)
	code := fs.String("code", "", "church code")
	p := profileFlags(fs)
	secret := fs.String("secret", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	s, err := e.JoinTenant(ctx, *code, *p, *secret)
	if err != nil {
		return err
	}
	printSession(s)
	return nil
}

func createCmd(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	church := fs.String("church", "", "church name")
	p := profileFlags(fs)
	secret := fs.String("secret", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	s, err := e.CreateTenant(ctx, *church, *p, *secret)
	if err != nil {
		return err
	}
	printSession(s)
	if s.CheckoutURL != "" {
		fmt.Printf("complete payment at %s\n", s.CheckoutURL)
	}
	return nil
}

func logoutCmd(ctx context.Context, a *app, _ []string) error {
	e, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer e.Close()
	e.Logout(ctx)
	fmt.Println("signed out")
	return nil
}

func statusCmd(ctx context.Context, a *app, _ []string) error {
	e, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	s, ok := e.Sessions.Current()
	if !ok {
		fmt.Println(e.Sessions.State())
		return nil
	}
	displayAppname(s.ChurchName)
	printSession(s)
	return nil
}

func refreshCmd(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("refresh", flag.ContinueOnError)
	name := fs.String("collection", "events", "config, donations, events or members")
	if err := fs.Parse(args); err != nil {
		return err
	}
	col, ok := tenants.ParseCollection(*name)
	if !ok {
		return fmt.Errorf("unknown collection %q", *name)
	}
	e, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	if _, err := e.Refresh(ctx, col); err != nil {
		return err
	}
	return show(e, col)
}

func showCmd(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	name := fs.String("collection", "", "one collection, or all when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	if *name == "" {
		view, err := e.View()
		if err != nil {
			return err
		}
		_, err = pretty.Println(e.Data.Snapshot(view))
		return err
	}
	col, ok := tenants.ParseCollection(*name)
	if !ok {
		return fmt.Errorf("unknown collection %q", *name)
	}
	return show(e, col)
}

func show(e *engine.Engine, col tenants.Collection) error {
	view, err := e.View()
	if err != nil {
		return err
	}
	var v any
	switch col {
	case tenants.Config:
		v, _ = e.Data.Config()
	case tenants.DonationLinks:
		v = e.Data.DonationLinks(view)
	case tenants.Events:
		v = e.Data.Events(view)
	case tenants.Members:
		v = e.Data.Members(view)
	}
	_, err = pretty.Println(v)
	return err
}

func mutateCmd(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("mutate", flag.ContinueOnError)
	name := fs.String("collection", "", "config, donations, events or members")
	opName := fs.String("op", "create", "create, update or delete")
	raw := fs.String("record", "{}", "record as a JSON object")
	if err := fs.Parse(args); err != nil {
		return err
	}
	col, ok := tenants.ParseCollection(*name)
	if !ok {
		return fmt.Errorf("unknown collection %q", *name)
	}
	op, ok := mutations.ParseOperation(*opName)
	if !ok {
		return fmt.Errorf("unknown operation %q", *opName)
	}
	record := map[string]any{}
	if err := json.Unmarshal([]byte(*raw), &record); err != nil {
		return fmt.Errorf("record is not a JSON object: %w", err)
	}

	e, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	res, err := e.Mutate(ctx, col, op, record)
	if res.Applied {
		fmt.Printf("%s %s applied (id %s)\n", strings.ToLower(string(op)), col, res.ID)
	}
	if err != nil {
		return err
	}
	return show(e, col)
}

// stubCmd serves the in-memory backend until interrupted.
func stubCmd(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("stub", flag.ContinueOnError)
	addr := fs.String("addr", ":8787", "listen address")
	apiKey := fs.String("key", a.cfg.GetGatewayAPIKey(), "API key the stub requires")
	seed := fs.Bool("seed", true, "seed a DEMO01 church with admin admin@demo.church / demo1234")
	if err := fs.Parse(args); err != nil {
		return err
	}

	backend := stubbackend.New(stubbackend.WithAPIKey(*apiKey))
	if *seed {
		backend.SeedTenant(stubbackend.Tenant{Code: "DEMO01", Name: "Demo Church", PlanStatus: "ACTIVE"})
		backend.AddMember("DEMO01", map[string]any{"id": "demo-admin", "role": "ADMIN", "name": "Demo Admin", "email": "admin@demo.church", "password": "demo1234"})
	}

	displayAppname(a.cfg.GetAppName())
	server := &http.Server{Addr: *addr, Handler: backend.Handler(), ReadHeaderTimeout: 10 * time.Second}

	errs := make(chan error, 1)
	go func() { errs <- listenAndServe(server, a.logger) }()
	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}
	return shutdown(server)
}

func listenAndServe(server *http.Server, logger zerolog.Logger) error {
	logger.Info().Str("addr", server.Addr).Str("path", stubbackend.Path).Msg("stub backend listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func profileFlags(fs *flag.FlagSet) *remote.Profile {
	p := &remote.Profile{}
	fs.StringVar(&p.Name, "name", "", "your name")
	fs.StringVar(&p.Email, "email", "", "email")
	fs.StringVar(&p.Phone, "phone", "", "phone")
	return p
}

func printSession(s sessions.Session) {
	now := time.Now()
	fmt.Printf("%s (%s) as %s [%s]\n", s.ChurchName, s.TenantCode, firstNonEmpty(s.DisplayName, s.Email, s.Phone), s.Role)
	fmt.Printf("plan %s, can use app: %t\n", s.PlanStatus, s.CanUseApp(now))
	if left := sessions.TrialEndsIn(s, now); left > 0 {
		fmt.Printf("trial ends in %s\n", left.Round(time.Hour))
	}
	if s.RequiresPayment(now) {
		fmt.Println("payment required")
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
