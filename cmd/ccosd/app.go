package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mandubian/ccos-sub008/capability"
	"github.com/mandubian/ccos-sub008/capability/providers"
	"github.com/mandubian/ccos-sub008/causalchain"
	"github.com/mandubian/ccos-sub008/config"
	"github.com/mandubian/ccos-sub008/discovery"
	"github.com/mandubian/ccos-sub008/intentgraph"
	"github.com/mandubian/ccos-sub008/introspection"
	"github.com/mandubian/ccos-sub008/llm"
	llmproviders "github.com/mandubian/ccos-sub008/llm/providers"
	"github.com/mandubian/ccos-sub008/microvm"
	"github.com/mandubian/ccos-sub008/pl"
	"github.com/mandubian/ccos-sub008/planner"
	"github.com/mandubian/ccos-sub008/runtime"
	"github.com/mandubian/ccos-sub008/synthesis"
	"github.com/mandubian/ccos-sub008/value"
)

// App wires together every SPEC_FULL.md component into one running
// process, mirroring the teacher's cmd/semspec App: a plain struct of
// collaborators built up in Start, torn down in Shutdown.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	embeddedServer *server.Server
	natsConn       *nats.Conn
	js             jetstream.JetStream

	promRegistry *prometheus.Registry
	monitor      *capability.ResourceMonitor

	Marketplace *capability.Marketplace
	localReg    *capability.LocalRegistry
	watcher     *capability.ManifestWatcher

	Chain    *causalchain.Chain
	Graph    *intentgraph.Graph
	Pipeline *planner.Pipeline
	Service  *runtime.Service

	discoveryPipeline *discovery.Pipeline
	llmClient         *llm.Client

	metricsServer *http.Server
}

// NewApp constructs an App around cfg without starting anything external
// (no network connections, no goroutines) — mirrors the teacher's
// two-phase NewApp/Start split.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{cfg: cfg, logger: logger}, nil
}

// Start brings up NATS/JetStream, the Causal Chain store, the Capability
// Marketplace (with every provider executor and the core/introspection
// builtins registered), the MicroVM-backed sandbox, the LLM client, the
// Server Discovery pipeline, the Modular Planner pipeline, and finally the
// Runtime Service.
func (a *App) Start(ctx context.Context) error {
	if err := a.startNATS(ctx); err != nil {
		return fmt.Errorf("start NATS: %w", err)
	}

	chainStore, err := causalchain.NewJetStreamStore(ctx, a.js)
	if err != nil {
		return fmt.Errorf("initialize causal chain store: %w", err)
	}
	a.Chain = causalchain.NewChain(chainStore)

	a.promRegistry = prometheus.NewRegistry()
	enforcement := capability.Enforcement(a.cfg.Marketplace.ResourceEnforcement)
	if enforcement == "" {
		enforcement = capability.EnforcementHard
	}
	a.monitor = capability.NewResourceMonitor(a.promRegistry, enforcement)

	a.Marketplace = capability.NewMarketplace(a.monitor, a.cfg.Marketplace.RequireAttestation)

	if err := a.registerProviders(); err != nil {
		return fmt.Errorf("register capability providers: %w", err)
	}

	if err := a.startManifestWatcher(ctx); err != nil {
		return fmt.Errorf("start capability manifest watcher: %w", err)
	}

	a.llmClient = a.buildLLMClient()
	a.discoveryPipeline, err = a.buildDiscoveryPipeline()
	if err != nil {
		return fmt.Errorf("build discovery pipeline: %w", err)
	}

	a.Graph = intentgraph.NewGraph()
	a.Pipeline = planner.NewPipeline(a.Graph, a.Chain)
	a.Pipeline.Catalogue = capabilityCatalogue{mp: a.Marketplace}
	a.Pipeline.MaxDiscoveryRounds = a.cfg.Discovery.MaxDiscoveryRounds
	if a.discoveryPipeline != nil {
		a.Pipeline.DiscoveryRetry = a.discoveryRetry
	}

	if err := introspection.Register(a.Marketplace, a.localReg, a.Chain, a.Pipeline.Archive); err != nil {
		return fmt.Errorf("register introspection capabilities: %w", err)
	}

	a.Pipeline.Synthesize = a.synthesize

	a.Service = runtime.NewService(a.Marketplace, a.Chain, a.Graph, a.Pipeline).WithLogger(a.logger)
	if a.cfg.Runtime.EventBufferSize > 0 {
		a.Service.Events = runtime.NewBroadcaster(a.cfg.Runtime.EventBufferSize)
	}
	if err := a.Service.Start(a.cfg.Runtime.HeartbeatCron); err != nil {
		return fmt.Errorf("start runtime service heartbeat: %w", err)
	}

	a.logger.Info("ccosd started",
		"microvm_provider", a.cfg.MicroVM.Provider,
		"llm_provider", a.cfg.LLM.Provider,
		"nats_embedded", a.embeddedServer != nil)
	return nil
}

// capabilityCatalogue adapts the Marketplace's registered manifests onto
// planner.ToolCatalogue so discover_tools (spec §4.G step 1) sees every
// capability the Marketplace currently knows about.
type capabilityCatalogue struct {
	mp *capability.Marketplace
}

func (c capabilityCatalogue) Tools() []planner.ToolDescriptor {
	manifests := c.mp.List()
	tools := make([]planner.ToolDescriptor, 0, len(manifests))
	for _, m := range manifests {
		tools = append(tools, planner.ToolDescriptor{
			ID:          m.ID,
			Description: m.Description,
			ActionClass: planner.ActionClassQuery,
		})
	}
	return tools
}

// discoveryRetry adapts discovery.Pipeline.Run onto
// planner.Pipeline.DiscoveryRetry (spec §4.G step 6): it runs the Server
// Discovery Pipeline for each unresolved sub-intent description and
// returns freshly-staged candidates as ToolDescriptors so the resolver gets
// a second pass before falling back to synthesis.
func (a *App) discoveryRetry(ctx context.Context, unresolved []string) ([]planner.ToolDescriptor, error) {
	var tools []planner.ToolDescriptor
	for _, need := range unresolved {
		discovered, err := a.discoveryPipeline.Run(ctx, need)
		if err != nil {
			a.logger.Warn("discovery retry failed", "need", need, "error", err)
			continue
		}
		for _, d := range discovered {
			tools = append(tools, planner.ToolDescriptor{
				ID:          d.Candidate.ID,
				Description: d.Candidate.Description,
				ActionClass: planner.ActionClassQuery,
			})
		}
	}
	return tools, nil
}

// synthEventSink logs the synthesis Harness's start/completion events the
// same way the rest of the composition root logs lifecycle events, rather
// than threading them onto the Causal Chain.
type synthEventSink struct {
	logger *slog.Logger
}

func (s synthEventSink) RecordSynthesisStarted(_ context.Context, req synthesis.Request) {
	s.logger.Info("synthesis started", "capability_id", req.CapabilityID)
}

func (s synthEventSink) RecordSynthesisCompleted(_ context.Context, req synthesis.Request, strategy string, ok bool, reason string) {
	s.logger.Info("synthesis completed", "capability_id", req.CapabilityID, "strategy", strategy, "ok", ok, "reason", reason)
}

// synthesize adapts synthesis.Harness onto planner.Pipeline.Synthesize
// (spec §4.H): it tries rewrite-to-existing, then (if an LLM client is
// configured) LLM synthesis, validating and attesting whatever a strategy
// proposes before registering it, and finally defers to the user. A
// newly-registered capability resolves as ResolutionLocal so the plan that
// triggered synthesis can call it immediately.
func (a *App) synthesize(ctx context.Context, sub planner.SubIntent) (planner.ResolvedCapability, error) {
	capID := synthesizedCapabilityID(sub.Description)

	strategies := []synthesis.Strategy{synthesis.NewRewriteToExisting(a.Marketplace)}
	if a.llmClient != nil {
		strategies = append(strategies, synthesis.NewLLMSynthesis(a.llmClient))
	}
	strategies = append(strategies, synthesis.NewUserDeferral())

	harness := synthesis.NewHarness(synthEventSink{logger: a.logger}, strategies...)
	result, err := harness.Resolve(ctx, synthesis.Request{
		CapabilityID: capID,
		Context:      map[string]string{"description": sub.Description},
		AttemptCount: 1,
	})
	if err != nil {
		return planner.ResolvedCapability{}, err
	}

	// RewriteToExisting hands back an already-registered manifest; nothing
	// further to validate, attest, or register.
	if _, ok := a.Marketplace.Lookup(result.Manifest.ID); ok && result.PLSource == "" {
		return planner.Local(result.Manifest.ID, value.Nil, 0.5), nil
	}

	if err := a.registerSynthesizedCapability(result); err != nil {
		return planner.ResolvedCapability{}, err
	}
	return planner.Local(result.Manifest.ID, value.Nil, 0.5), nil
}

// registerSynthesizedCapability validates and attests a freshly-synthesized
// (manifest, PL source) pair, wires a LocalFunc that interprets the PL body
// against a fresh runtime.Host per call (reading its arguments via
// `(get :input)`, the same Host-scoped-context convention every other PL
// form uses), and registers the result on the Marketplace.
func (a *App) registerSynthesizedCapability(result *synthesis.Result) error {
	forms, err := pl.Parse(result.PLSource)
	if err != nil {
		return fmt.Errorf("parse synthesized PL source for %q: %w", result.Manifest.ID, err)
	}

	validation := synthesis.DefaultValidator().Validate(result.Manifest, result.PLSource)
	attestation, provenance, err := synthesis.NewAttestationAuthority("ccosd", 0, nil).
		Attest(result.Manifest, result.PLSource, validation, "synthesis:llm_synthesis")
	if err != nil {
		return fmt.Errorf("attest synthesized capability %q: %w", result.Manifest.ID, err)
	}
	result.Manifest.Attestation = attestation
	result.Manifest.Provenance = provenance

	a.localReg.Register(result.Manifest.ID, func(ctx context.Context, inputs value.Value) (value.Value, error) {
		host := runtime.NewHost(a.Marketplace, a.Chain, "", "", "", "")
		host.SetContext("input", inputs)
		return pl.NewInterpreter().Run(forms, pl.NewEnv(), host)
	})
	return a.Marketplace.Register(result.Manifest)
}

func synthesizedCapabilityID(description string) string {
	var sb strings.Builder
	sb.WriteString("synth")
	lastDot := false
	for _, r := range strings.ToLower(description) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastDot = false
		default:
			if !lastDot {
				sb.WriteByte('.')
				lastDot = true
			}
		}
	}
	return strings.TrimRight(sb.String(), ".")
}

func (a *App) registerProviders() error {
	a.localReg = capability.NewLocalRegistry()
	a.Marketplace.RegisterExecutor(capability.ProviderLocal, a.localReg.Executor())
	a.Marketplace.RegisterExecutor(capability.ProviderHTTP, providers.NewHTTP())
	a.Marketplace.RegisterExecutor(capability.ProviderOpenAPI, providers.NewOpenAPI())
	a.Marketplace.RegisterExecutor(capability.ProviderA2A, providers.NewA2A())
	a.Marketplace.RegisterExecutor(capability.ProviderStream, providers.NewStream())
	a.Marketplace.RegisterExecutor(capability.ProviderRegistry, providers.NewRegistry())

	if pool := a.buildMCPSessionPool(); pool != nil {
		a.Marketplace.RegisterExecutor(capability.ProviderMCP, providers.NewMCP(pool))
	}

	sandboxProvider, err := a.buildMicroVMProvider()
	if err != nil {
		return err
	}
	a.Marketplace.RegisterExecutor(capability.ProviderSandbox, providers.NewSandbox(sandboxProvider))

	ask := func(ctx context.Context, inputs value.Value) (value.Value, error) {
		a.Service.Events.Publish(runtime.Event{Type: runtime.EventStatus, Status: "AwaitingUserInput"})
		return inputs, nil
	}
	emit := func(ctx context.Context, inputs value.Value) error {
		a.logger.Info("plan output emitted", "output", inputs.String())
		return nil
	}
	if err := capability.RegisterCoreBuiltins(a.Marketplace, a.localReg, ask, emit); err != nil {
		return err
	}
	return nil
}

func (a *App) buildMicroVMProvider() (microvm.Provider, error) {
	switch a.cfg.MicroVM.Provider {
	case "mock":
		return microvm.NewMock(), nil
	case "process":
		return microvm.NewProcess(pl.NewNoopHost()), nil
	case "gvisor":
		return microvm.NewGVisor(), nil
	case "firecracker":
		return microvm.NewFirecracker(), nil
	default:
		return nil, fmt.Errorf("unknown microvm provider %q", a.cfg.MicroVM.Provider)
	}
}

func (a *App) buildMCPSessionPool() providers.SessionPool {
	if a.cfg.Discovery.RankCacheRedisURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(a.cfg.Discovery.RankCacheRedisURL)
	if err != nil {
		a.logger.Warn("invalid rank cache redis url; MCP session pool disabled", "error", err)
		return nil
	}
	return providers.NewRedisSessionPool(redis.NewClient(opts))
}

func (a *App) buildLLMClient() *llm.Client {
	switch a.cfg.LLM.Provider {
	case "anthropic":
		llm.RegisterProvider(llmproviders.NewAnthropic(a.cfg.LLM.APIKey))
	case "openai":
		llm.RegisterProvider(llmproviders.NewOpenAI(a.cfg.LLM.APIKey))
	default:
		a.logger.Warn("unknown llm provider; LLM-backed strategies disabled", "provider", a.cfg.LLM.Provider)
		return nil
	}
	provider, ok := llm.GetProvider(a.cfg.LLM.Provider)
	if !ok {
		return nil
	}
	return llm.NewClient(provider).WithLogger(a.logger)
}

func (a *App) buildDiscoveryPipeline() (*discovery.Pipeline, error) {
	var sources []discovery.Source
	if a.cfg.Discovery.MCPRegistryURL != "" {
		sources = append(sources, discovery.NewMCPRegistrySource(a.cfg.Discovery.MCPRegistryURL, http.DefaultClient))
	}
	if a.cfg.Discovery.EnableNPM {
		sources = append(sources, discovery.NewNPMSource(http.DefaultClient))
	}
	if a.cfg.Discovery.EnableAPIsGuru {
		sources = append(sources, discovery.NewAPIsGuruSource(http.DefaultClient))
	}
	if len(sources) == 0 {
		return nil, nil
	}

	p := discovery.NewPipeline(discovery.NewMultiSource(sources...))
	if a.llmClient != nil {
		p.Ranker = discovery.NewLLMRanker(a.llmClient)
	}
	return p, nil
}

func (a *App) startManifestWatcher(ctx context.Context) error {
	w, err := capability.NewManifestWatcher(a.Marketplace, nil, a.logger)
	if err != nil {
		return err
	}
	a.watcher = w
	if len(a.cfg.Marketplace.WatchPaths) == 0 {
		return nil
	}
	w.LoadAll(a.cfg.Marketplace.WatchPaths)
	go func() {
		if err := w.Watch(ctx, a.cfg.Marketplace.WatchPaths); err != nil {
			a.logger.Warn("capability manifest watcher stopped", "error", err)
		}
	}()
	return nil
}

func (a *App) startNATS(ctx context.Context) error {
	if a.cfg.NATS.URL != "" && !a.cfg.NATS.Embedded {
		a.logger.Info("connecting to external NATS", "url", a.cfg.NATS.URL)
		conn, err := nats.Connect(a.cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		a.natsConn = conn
	} else {
		a.logger.Info("starting embedded NATS server")
		opts := &server.Options{
			Port:      -1,
			JetStream: true,
			NoLog:     true,
			NoSigs:    true,
		}
		ns, err := server.NewServer(opts)
		if err != nil {
			return fmt.Errorf("create embedded NATS server: %w", err)
		}
		go ns.Start()
		if !ns.ReadyForConnections(5 * time.Second) {
			ns.Shutdown()
			return fmt.Errorf("embedded NATS server failed to start")
		}
		a.embeddedServer = ns

		conn, err := nats.Connect(ns.ClientURL())
		if err != nil {
			ns.Shutdown()
			return fmt.Errorf("connect to embedded NATS: %w", err)
		}
		a.natsConn = conn
	}

	js, err := jetstream.New(a.natsConn)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}
	a.js = js
	return nil
}

// ServeMetrics starts a background HTTP server exposing the Marketplace's
// Prometheus gauges/counters at /metrics.
func (a *App) ServeMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.promRegistry, promhttp.HandlerOpts{}))
	a.metricsServer = &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Warn("metrics server stopped", "error", err)
		}
	}()
	a.logger.Info("metrics server listening", "addr", addr)
}

// Shutdown gracefully tears down every started component.
func (a *App) Shutdown(timeout time.Duration) {
	if a.Service != nil {
		a.Service.Shutdown()
	}
	if a.metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		_ = a.metricsServer.Shutdown(shutdownCtx)
		cancel()
	}
	if a.natsConn != nil {
		_ = a.natsConn.Drain()
		a.natsConn.Close()
	}
	if a.embeddedServer != nil {
		a.embeddedServer.Shutdown()
		a.embeddedServer.WaitForShutdown()
	}
}

// RunOneShot submits a single goal, streams its events to stdout, and
// blocks until the session completes.
func (a *App) RunOneShot(ctx context.Context, goal string) error {
	sub, err := a.Service.Events.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to runtime events: %w", err)
	}
	defer sub.Close()

	a.Service.Dispatch(ctx, runtime.Command{Kind: runtime.CmdStart, Goal: goal})
	return a.streamUntilDone(sub)
}

// RunREPL runs an interactive prompt, submitting each non-empty line as a
// goal and printing its events as they arrive (mirrors the teacher's
// cmd/semspec App.RunREPL loop shape).
func (a *App) RunREPL(ctx context.Context) error {
	fmt.Println("ccosd - Cognitive Computing Orchestration Substrate")
	fmt.Printf("MicroVM provider: %s | LLM provider: %s\n", a.cfg.MicroVM.Provider, a.cfg.LLM.Provider)
	fmt.Println("Type a goal, '/status', '/config', or 'quit'/'exit' to leave.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("ccos> ")
		if !scanner.Scan() {
			return nil
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "quit" || input == "exit" {
			return nil
		}
		if strings.HasPrefix(input, "/") {
			a.handleCommand(input)
			continue
		}

		if err := a.RunOneShot(ctx, input); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		fmt.Println()
	}
}

func (a *App) handleCommand(input string) {
	switch strings.Fields(input)[0] {
	case "/help":
		fmt.Println("Available commands:")
		fmt.Println("  /help    - show this help")
		fmt.Println("  /status  - show runtime status")
		fmt.Println("  /config  - show current configuration")
		fmt.Println("  quit/exit - exit")
	case "/status":
		fmt.Printf("Capabilities registered: %d\n", len(a.Marketplace.List()))
		if a.embeddedServer != nil {
			fmt.Println("NATS: embedded")
		} else {
			fmt.Printf("NATS: %s\n", a.cfg.NATS.URL)
		}
	case "/config":
		fmt.Printf("MicroVM provider: %s\n", a.cfg.MicroVM.Provider)
		fmt.Printf("LLM provider: %s (model %s)\n", a.cfg.LLM.Provider, a.cfg.LLM.Model)
		fmt.Printf("Resource enforcement: %s\n", a.cfg.Marketplace.ResourceEnforcement)
	default:
		fmt.Printf("Unknown command: %s\n", input)
	}
}

func (a *App) streamUntilDone(sub runtime.Subscription) error {
	for ev := range sub.C() {
		switch ev.Type {
		case runtime.EventStarted:
			fmt.Printf("→ started: %s\n", ev.Goal)
		case runtime.EventStatus:
			fmt.Printf("… %s\n", ev.Status)
		case runtime.EventResult:
			fmt.Println(ev.Result)
		case runtime.EventError:
			fmt.Fprintf(os.Stderr, "✗ %s\n", ev.Message)
		case runtime.EventStopped:
			return nil
		}
		if ev.Type == runtime.EventResult || ev.Type == runtime.EventError {
			return nil
		}
	}
	return nil
}
