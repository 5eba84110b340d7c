package main

import (
	"fmt"
	"log/slog"

	"case-coach/server/internal/casestore"
	"case-coach/server/internal/collab"
	"case-coach/server/internal/config"
	"case-coach/server/internal/llm"
	"case-coach/server/internal/metrics"
	"case-coach/server/internal/notify"
	"case-coach/server/internal/orchestrator"
	"case-coach/server/internal/report"
	"case-coach/server/internal/stage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// app 进程内共享的组件。
type app struct {
	cfg       *config.Config
	ctrl      *orchestrator.Controller
	publisher notify.Publisher
	registry  *prometheus.Registry
	logger    *slog.Logger
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	catalog := stage.Default()
	if cfg.Paths.Stages != "" {
		c, err := stage.Load(cfg.Paths.Stages)
		if err != nil {
			return nil, err
		}
		catalog = c
	}

	client, err := llm.NewClient(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("init llm client: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.New(registry)

	ctrl, err := orchestrator.New(orchestrator.Deps{
		Catalog:       catalog,
		Cases:         casestore.NewInMemoryStore(),
		CaseGenerator: collab.NewCaseGenerator(client, cfg.Interview.CaseAttempts, logger),
		Turns:         collab.NewTurnGenerator(client, logger),
		Evaluator:     collab.NewEvaluator(client, logger),
		Reports:       report.NewCompiler(collab.NewNarrator(client), catalog, rec, logger),
		Metrics:       rec,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}

	var publisher notify.Publisher = notify.Nop{}
	if cfg.NATS.URL != "" {
		p, err := notify.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.Subject, logger)
		if err != nil {
			return nil, err
		}
		publisher = p
	}

	logger.Info("components ready", "stages", catalog.Len(), "provider", cfg.LLM.Provider)
	return &app{cfg: cfg, ctrl: ctrl, publisher: publisher, registry: registry, logger: logger}, nil
}

func (a *app) close() {
	if err := a.publisher.Close(); err != nil {
		a.logger.Warn("close publisher", "err", err)
	}
}
