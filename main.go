package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"persona_studio/config"
	"persona_studio/generator"
	"persona_studio/logger"
	"persona_studio/orchestrator"
	"persona_studio/persona"
	"persona_studio/publisher"
	"persona_studio/server"
	"persona_studio/termview"
)

func main() {
	configPath := flag.String("config", "config/config.json", "path to config.json")
	serve := flag.Bool("serve", false, "start web server")
	addr := flag.String("addr", "", "http listen address when --serve (overrides config.server_addr)")
	draft := flag.String("draft", "", "draft text to rewrite (one-shot mode)")
	personaIDs := flag.String("personas", "", "comma separated persona ids; empty means all")
	listPersonas := flag.Bool("list", false, "print the configured personas and exit")
	verbose := flag.Bool("v", false, "enable debug logs")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogMode, *verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	store, err := loadPersonas(cfg.PersonasFile)
	if err != nil {
		log.Error("load personas failed", "file", cfg.PersonasFile, "error", err)
		os.Exit(1)
	}
	if *listPersonas {
		for _, p := range store.List() {
			fmt.Println(termview.RenderPersona(p))
		}
		return
	}

	llm, err := buildLLM(cfg)
	if err != nil {
		log.Error("build llm failed", "error", err)
		os.Exit(1)
	}
	agent, err := generator.NewAgent(llm,
		generator.WithTimeout(time.Duration(cfg.LLM.TimeoutSeconds)*time.Second),
		generator.WithLogger(log),
	)
	if err != nil {
		log.Error("build agent failed", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := orchestrator.NewMetrics(reg)
	if err != nil {
		log.Error("register metrics failed", "error", err)
		os.Exit(1)
	}
	orch, err := orchestrator.New(agent, store,
		orchestrator.WithLogger(log),
		orchestrator.WithMetrics(metrics),
	)
	if err != nil {
		log.Error("build orchestrator failed", "error", err)
		os.Exit(1)
	}

	// Web server mode
	if *serve {
		listen := cfg.ServerAddr
		if *addr != "" {
			listen = *addr
		}
		if err := runServer(cfg, listen, store, orch, reg, log); err != nil {
			log.Error("server stopped", "error", err)
			os.Exit(1)
		}
		return
	}

	if strings.TrimSpace(*draft) == "" {
		fmt.Fprintln(os.Stderr, "--draft is required (or use --serve / --list)")
		os.Exit(1)
	}
	if err := runOnce(orch, store, *draft, splitIDs(*personaIDs, store), log); err != nil {
		log.Error("generation failed", "error", err)
		os.Exit(1)
	}
}

func loadPersonas(path string) (*persona.Store, error) {
	seed, err := persona.LoadSeed(path)
	if err != nil {
		return nil, err
	}
	store := persona.NewStore()
	if err := store.Seed(seed); err != nil {
		return nil, err
	}
	return store, nil
}

func buildLLM(cfg config.Config) (generator.LLMClient, error) {
	if cfg.LLM == nil {
		return nil, fmt.Errorf("llm config missing; please set llm.provider/model/api_key_env in config")
	}
	return generator.NewLLM(&generator.LLMSettings{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
	})
}

func buildPublisher(cfg config.Config, log *logger.Logger) (server.DraftPublisher, error) {
	if !cfg.WeChat.Enabled() {
		return nil, nil
	}
	pub, err := publisher.New(publisher.Credentials{
		AppID:     cfg.WeChat.AppID,
		AppSecret: cfg.WeChat.AppSecret,
		CoverPath: cfg.WeChat.CoverPath,
		Author:    cfg.WeChat.Author,
	}, publisher.WithLogger(log))
	if err != nil {
		return nil, err
	}
	return pub, nil
}

func runServer(cfg config.Config, listen string, store *persona.Store, orch *orchestrator.Orchestrator, reg *prometheus.Registry, log *logger.Logger) error {
	pub, err := buildPublisher(cfg, log)
	if err != nil {
		return err
	}
	if pub == nil {
		log.Info("wechat publishing disabled")
	}
	srv, err := server.New(server.Deps{
		Personas:     store,
		Orchestrator: orch,
		Publisher:    pub,
		Gatherer:     reg,
		Logger:       log,
		CORSOrigins:  cfg.CORSOrigins,
	})
	if err != nil {
		return err
	}

	httpSrv := &http.Server{Addr: listen, Handler: srv.Routes()}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting web server", "addr", listen, "provider", cfg.LLM.Provider, "personas", store.Len())
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}

// runOnce dispatches a single batch and prints one card per result.
func runOnce(orch *orchestrator.Orchestrator, store *persona.Store, draft string, ids []string, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	batch, err := orch.RunBatch(ctx, draft, ids)
	if err != nil {
		return err
	}
	log.Info("batch dispatched", "timestamp", batch.Timestamp, "personas", len(ids))
	if err := batch.Wait(ctx); err != nil {
		return err
	}
	for _, res := range orch.Snapshot().Results {
		p, _ := store.Get(res.PersonaID)
		fmt.Println(termview.RenderResult(res, p))
	}
	return nil
}

func splitIDs(raw string, store *persona.Store) []string {
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) > 0 {
		return ids
	}
	for _, p := range store.List() {
		ids = append(ids, p.ID)
	}
	return ids
}
