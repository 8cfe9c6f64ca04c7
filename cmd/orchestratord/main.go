// Command orchestratord runs the turn state machine as a long-lived
// service: one HTTP front door (agent/stream over SSE) driving
// agent/workflow through a pluggable agent/engine backend, with every
// outbound call bound in agent/activities.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	mongooptions "go.mongodb.org/mongo-driver/v2/mongo/options"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	temporalclient "go.temporal.io/sdk/client"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/anushka192001/Sales-dev-assistant/agent/activities"
	"github.com/anushka192001/Sales-dev-assistant/agent/argvalidate"
	"github.com/anushka192001/Sales-dev-assistant/agent/convstore"
	convmongo "github.com/anushka192001/Sales-dev-assistant/agent/convstore/mongo"
	convsql "github.com/anushka192001/Sales-dev-assistant/agent/convstore/sql"
	"github.com/anushka192001/Sales-dev-assistant/agent/crmclient"
	"github.com/anushka192001/Sales-dev-assistant/agent/depgraph"
	"github.com/anushka192001/Sales-dev-assistant/agent/engine"
	"github.com/anushka192001/Sales-dev-assistant/agent/engine/inmem"
	temporalengine "github.com/anushka192001/Sales-dev-assistant/agent/engine/temporal"
	"github.com/anushka192001/Sales-dev-assistant/agent/enummap"
	"github.com/anushka192001/Sales-dev-assistant/agent/executor"
	"github.com/anushka192001/Sales-dev-assistant/agent/hooks"
	"github.com/anushka192001/Sales-dev-assistant/agent/missingtool"
	"github.com/anushka192001/Sales-dev-assistant/agent/model"
	"github.com/anushka192001/Sales-dev-assistant/agent/telemetry"
	"github.com/anushka192001/Sales-dev-assistant/agent/titlegen"
	"github.com/anushka192001/Sales-dev-assistant/agent/tools"
	"github.com/anushka192001/Sales-dev-assistant/agent/workflow"
)

func main() {
	root := &cobra.Command{
		Use:   "orchestratord",
		Short: "Runs the CRM/prospecting turn orchestrator as a service.",
	}
	root.AddCommand(serveCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP front door and the workflow worker.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return run(cmd.Context(), cfg)
		},
	}
}

func run(ctx context.Context, cfg config) error {
	zapLogger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer zapLogger.Sync()
	log := telemetry.NewZapLogger(zapLogger)

	promReg := prometheus.NewRegistry()
	metrics := telemetry.NewPromMetrics(promReg)

	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(ctx)
	tracer := telemetry.NewOtelTracer(tp.Tracer("orchestratord"))

	modelClient, err := buildModelClient(cfg)
	if err != nil {
		return err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("building conversation store: %w", err)
	}

	registry := tools.NewRegistry()
	crm := crmclient.New(cfg.CRMBaseURL, crmclient.WithHeader("Authorization", "Bearer "+cfg.CRMAPIKey))
	for _, spec := range tools.DefaultSpecs(crm.Tools()) {
		if err := registry.Register(spec); err != nil {
			return fmt.Errorf("registering tool %s: %w", spec.Name, err)
		}
	}

	acts := &activities.Activities{
		Client:       modelClient,
		ModelName:    cfg.ModelName,
		SystemPrompt: "",
		Registry:     registry,
		Validator:    argvalidate.New(nil),
		EnumMapper:   enummap.New(modelClient, cfg.ModelName, log),
		Missing:      missingtool.New(modelClient, cfg.ModelName, log),
		DepAnalyzer:  depgraph.New(modelClient, cfg.ModelName, log),
		Executor:     executor.New(registry, argvalidate.New(nil), log),
		TitleGen:     titlegen.New(modelClient, cfg.ModelName, log),
		Store:        store,
		Log:          log,
	}

	eng, err := buildEngine(cfg, log, metrics, tracer)
	if err != nil {
		return fmt.Errorf("building workflow engine: %w", err)
	}

	bus := hooks.NewBus()
	if err := eng.RegisterWorkflow(ctx, engine.WorkflowDefinition{
		Name:      "orchestrator.turn",
		TaskQueue: cfg.TaskQueue,
		Handler:   workflow.NewWorkflow(bus),
	}); err != nil {
		return fmt.Errorf("registering workflow: %w", err)
	}
	for name, handler := range acts.Names() {
		if err := eng.RegisterActivity(ctx, engine.ActivityDefinition{Name: name, Handler: handler}); err != nil {
			return fmt.Errorf("registering activity %s: %w", name, err)
		}
	}

	srv := newServer(eng, bus, log, cfg.TaskQueue)
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: withMetrics(srv.routes(), promReg),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "orchestratord: listening", "addr", cfg.ListenAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-sigCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info(ctx, "orchestratord: shutting down")
		return httpServer.Shutdown(shutdownCtx)
	}
	return nil
}

func withMetrics(next http.Handler, reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/", next)
	return mux
}

func buildModelClient(cfg config) (model.Client, error) {
	var backends []model.Client
	if cfg.AnthropicAPIKey != "" {
		backends = append(backends, model.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.ModelName))
	}
	if cfg.OpenAIAPIKey != "" {
		backends = append(backends, model.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.ModelName))
	}
	if len(backends) == 0 {
		return nil, fmt.Errorf("no model backend configured: set ORCHESTRATORD_ANTHROPIC_API_KEY or ORCHESTRATORD_OPENAI_API_KEY")
	}
	fallback := model.NewFallbackClient("primary", backends...)
	return model.NewRateLimitedClient(fallback, cfg.ModelRPS, cfg.ModelBurst), nil
}

func buildStore(ctx context.Context, cfg config) (convstore.Store, error) {
	var inner convstore.Store
	switch cfg.Store {
	case "sql":
		db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
		if err != nil {
			return nil, err
		}
		inner, err = convsql.NewStore(db)
		if err != nil {
			return nil, err
		}
	default:
		client, err := mongodriver.Connect(mongooptions.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, err
		}
		// v2 driver: Connect no longer takes a context; Ping still does.
		if err := client.Ping(ctx, nil); err != nil {
			return nil, fmt.Errorf("pinging mongo: %w", err)
		}
		inner, err = convmongo.NewStore(convmongo.Options{
			Client:     client,
			Database:   cfg.MongoDB,
			Collection: cfg.MongoColl,
		})
		if err != nil {
			return nil, err
		}
	}

	if cfg.RedisAddr == "" {
		return inner, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	return convstore.NewCachedStore(inner, rdb, time.Duration(cfg.CacheTTLSeconds)*time.Second), nil
}

func buildEngine(cfg config, log telemetry.Logger, metrics telemetry.Metrics, tracer telemetry.Tracer) (engine.Engine, error) {
	if cfg.Engine != "temporal" {
		return inmem.New(), nil
	}
	return temporalengine.New(temporalengine.Options{
		ClientOptions: &temporalclient.Options{
			HostPort:  cfg.TemporalHostPort,
			Namespace: cfg.TemporalNamespace,
		},
		WorkerOptions: temporalengine.WorkerOptions{TaskQueue: cfg.TaskQueue},
		Logger:        log,
		Metrics:       metrics,
		Tracer:        tracer,
	})
}
