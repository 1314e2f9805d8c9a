package main

import (
	"fmt"

	"mortgage-funnel/internal/common/config"
	"mortgage-funnel/internal/common/database"
	"mortgage-funnel/internal/common/logger"
	"mortgage-funnel/internal/wizard"
	"mortgage-funnel/internal/wizard/gateway"
	"mortgage-funnel/internal/wizard/store"
)

// app is everything one command invocation works with.
type app struct {
	store   wizard.SessionStore
	wizard  *wizard.Wizard
	gateway *gateway.Gateway
	close   func() error
}

type options struct {
	backend   string
	path      string
	namespace string
	apiURL    string
	policy    string
	verbose   bool
}

// newApp opens the configured session store and wires the wizard and
// gateway on top of it.
func newApp(opts options) (*app, error) {
	cfg, err := config.LoadClient()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.backend != "" {
		cfg.Wizard.StoreBackend = opts.backend
	}
	if opts.path != "" {
		cfg.Wizard.StorePath = opts.path
	}
	if opts.apiURL != "" {
		cfg.Wizard.APIBaseURL = opts.apiURL
	}
	if opts.policy != "" {
		cfg.Wizard.FailurePolicy = opts.policy
	}

	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	log := logger.NewStructured(level, "console")

	var (
		s      wizard.SessionStore
		ledger gateway.PendingLedger
		closer = func() error { return nil }
	)
	switch cfg.Wizard.StoreBackend {
	case "redis":
		// One command per process.
		cfg.Database.Redis.PoolSize = 2
		rdb, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return nil, err
		}
		s = store.NewRedis(rdb.GetClient(), opts.namespace, config.GetDuration(cfg.Wizard.SessionTTL*60*1000))
		ledger = gateway.NewRedisLedger(rdb.GetClient(), log)
		closer = rdb.Close
	case "file":
		s = store.NewFile(cfg.Wizard.StorePath)
		ledger = gateway.NewStoreLedger(s)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Wizard.StoreBackend)
	}

	return buildApp(cfg.Wizard, s, ledger, log, closer)
}

func buildApp(cfg config.WizardConfig, s wizard.SessionStore, ledger gateway.PendingLedger, log logger.Logger, closer func() error) (*app, error) {
	policy, err := gateway.ParsePolicy(cfg.FailurePolicy)
	if err != nil {
		return nil, err
	}

	var trackerOpts []wizard.TrackerOption
	if cfg.SessionTTL > 0 {
		trackerOpts = append(trackerOpts, wizard.WithTTL(config.GetDuration(cfg.SessionTTL*60*1000)))
	}
	w := wizard.New(s, log, trackerOpts...)

	gw := gateway.New(gateway.Config{
		BaseURL: cfg.APIBaseURL,
		Policy:  policy,
		Timeout: config.GetDuration(cfg.RequestTimeout),
	}, w.Tracker(), ledger, log)

	return &app{store: s, wizard: w, gateway: gw, close: closer}, nil
}
