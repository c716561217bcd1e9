package cli

import (
	"fmt"
	"time"

	"github.com/mcpgate/mcpgate/internal/config"
	"github.com/mcpgate/mcpgate/internal/logger"
	"github.com/mcpgate/mcpgate/pkg/audit"
	"github.com/mcpgate/mcpgate/pkg/client"
	"github.com/mcpgate/mcpgate/pkg/conversation"
	"github.com/mcpgate/mcpgate/pkg/domains/devops"
	"github.com/mcpgate/mcpgate/pkg/domains/erp"
	"github.com/mcpgate/mcpgate/pkg/domains/hr"
	"github.com/mcpgate/mcpgate/pkg/gateway"
	"github.com/mcpgate/mcpgate/pkg/router"
	"github.com/mcpgate/mcpgate/pkg/tool"
)

// domainAdapter is what every built-in domain package provides: the
// router execution surface plus its tool definitions.
type domainAdapter interface {
	router.Adapter
	Tools() []tool.Definition
}

// platform holds the wired execution stack shared by the CLI commands.
// The gateway is only populated by buildGateway; commands that never
// talk to a model run on the core alone.
type platform struct {
	cfg       *config.Config
	logger    *logger.Logger
	registry  *tool.Registry
	auditor   *audit.Logger
	router    *router.Router
	store     *conversation.Store
	client    client.Client
	discovery *client.Discovery
	gateway   *gateway.Gateway
}

func builtinAdapters() []domainAdapter {
	return []domainAdapter{hr.New(), devops.New(), erp.New()}
}

// buildCore assembles registry, authorizer, audit trail, router, and
// conversation store from the resolved config. No provider credentials
// are required at this stage.
func buildCore() (*platform, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// The flag only overrides when set; the configured level is the
	// default.
	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	if level == "" {
		level = "info"
	}
	lg, err := logger.New(logger.Config{
		Level:     level,
		File:      cfg.Logging.File,
		Console:   cfg.Logging.Console,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	zl := lg.GetZerolog()

	registry := tool.NewRegistry()
	auditor, err := audit.NewLogger(cfg.Audit.File, cfg.Audit.BufferSize, zl)
	if err != nil {
		lg.Close()
		return nil, fmt.Errorf("failed to open audit trail: %w", err)
	}

	rt := router.New(registry, tool.NewAuthorizer(), auditor, zl)
	rt.SetDefaultTimeout(time.Duration(cfg.Router.DefaultTimeoutSeconds) * time.Second)
	for domain, seconds := range cfg.Router.DomainTimeoutSeconds {
		rt.SetTimeout(domain, time.Duration(seconds)*time.Second)
	}

	for _, adapter := range builtinAdapters() {
		if err := registry.RegisterAll(adapter.Tools()); err != nil {
			auditor.Close()
			lg.Close()
			return nil, fmt.Errorf("failed to register %s tools: %w", adapter.Domain(), err)
		}
		rt.RegisterAdapter(adapter)
	}

	store := conversation.NewStore(
		cfg.Conversations.MaxLength,
		time.Duration(cfg.Conversations.TTLMinutes)*time.Minute,
		zl,
	)

	execClient := client.NewLocal(rt, registry, zl)

	return &platform{
		cfg:       cfg,
		logger:    lg,
		registry:  registry,
		auditor:   auditor,
		router:    rt,
		store:     store,
		client:    execClient,
		discovery: client.NewDiscovery(execClient, 5*time.Minute),
	}, nil
}

// buildGateway extends the core with an AI provider and the agent
// loop. It validates the config first since a model key is mandatory
// from here on.
func buildGateway() (*platform, error) {
	p, err := buildCore()
	if err != nil {
		return nil, err
	}

	if err := p.cfg.Validate(); err != nil {
		p.Close()
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	provider, err := gateway.NewProvider(p.cfg.AI.Provider, p.cfg.AI.APIKey)
	if err != nil {
		p.Close()
		return nil, err
	}

	if err := p.store.StartSweeper(p.cfg.Conversations.SweepSchedule); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to start conversation sweeper: %w", err)
	}

	p.gateway = gateway.New(provider, p.client, p.store, gateway.Config{
		Model:         p.cfg.AI.Model,
		Temperature:   p.cfg.AI.Temperature,
		MaxTokens:     p.cfg.AI.MaxTokens,
		SystemPrompt:  p.cfg.Gateway.SystemPrompt,
		MaxIterations: p.cfg.Gateway.MaxIterations,
	}, p.logger.GetZerolog())

	return p, nil
}

// Close flushes the audit trail and stops background work. Safe to
// call on a partially built platform.
func (p *platform) Close() {
	if p.store != nil {
		p.store.StopSweeper()
	}
	if p.auditor != nil {
		if err := p.auditor.Close(); err != nil {
			fmt.Printf("warning: audit flush failed: %v\n", err)
		}
	}
	if p.logger != nil {
		p.logger.Close()
	}
}
