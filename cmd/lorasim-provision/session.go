package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/lorasim/internal/config"
	"github.com/muurk/lorasim/internal/events"
	"github.com/muurk/lorasim/internal/logging"
	"github.com/muurk/lorasim/internal/provision"
	"github.com/muurk/lorasim/internal/registry"
)

// session bundles what every registry command needs for one org
type session struct {
	cfg      *config.Config
	org      string
	registry provision.RegistryConfig
	client   *registry.Client
	baseURL  string
	entities []provision.Entity
}

// loadSession reads the config file and resolves the org and registry
// client from flags and preferences.
func loadSession() (*session, error) {
	cfg, err := config.LoadGlobal()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	org, err := cfg.ResolveOrg(orgFlag)
	if err != nil {
		return nil, err
	}
	regCfg, err := cfg.RegistryConfig(org)
	if err != nil {
		return nil, err
	}

	url := baseURL
	if url == "" {
		url = cfg.Orgs[org].BaseURL
	}
	client := registry.NewClientWithURL(url)
	client.SetTimeout(callTimeout(cfg))

	s := &session{
		cfg:      cfg,
		org:      org,
		registry: regCfg,
		client:   client,
		baseURL:  url,
		entities: cfg.Entities(org),
	}
	logging.Debug("Session loaded",
		zap.String("org", org),
		zap.String("cluster", regCfg.Cluster),
		zap.Int("entities", len(s.entities)),
		zap.String("base_url", url))
	return s, nil
}

func callTimeout(cfg *config.Config) time.Duration {
	if timeoutSec > 0 {
		return time.Duration(timeoutSec) * time.Second
	}
	return cfg.CallTimeoutDuration()
}

// configProblems lists static problems with the org settings, found
// without contacting the registry.
func (s *session) configProblems() []error {
	return registry.ValidateConfig(s.registry, s.baseURL != "")
}

// newWizard starts a provisioning session reporting to observer
func (s *session) newWizard(observer provision.Observer) *provision.Wizard {
	n := workers
	if n <= 0 {
		n = s.cfg.Workers()
	}
	return provision.NewWizard(s.client, s.registry, s.entities, provision.Options{
		Workers:     n,
		CallTimeout: callTimeout(s.cfg),
		Observer:    observer,
	})
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// startEventFeed serves the event hub when --events-addr is set and
// returns its observer; nil otherwise. The feed stops with ctx.
func startEventFeed(ctx context.Context, announce func(string)) provision.Observer {
	if eventsAddr == "" {
		return nil
	}
	hub := events.NewHub()
	go func() {
		err := events.Serve(ctx, eventsAddr, hub, func(addr net.Addr) {
			if announce != nil {
				announce(fmt.Sprintf("ws://%s/events", addr))
			}
		})
		if err != nil {
			logging.Error("Event feed stopped", zap.String("addr", eventsAddr), zap.Error(err))
		}
	}()
	return hub.Observer()
}
