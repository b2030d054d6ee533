package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/marcofaedo/leadflow/internal/agent"
	"github.com/marcofaedo/leadflow/internal/brain"
	"github.com/marcofaedo/leadflow/internal/config"
	"github.com/marcofaedo/leadflow/internal/history"
	"github.com/marcofaedo/leadflow/internal/httpapi"
	"github.com/marcofaedo/leadflow/internal/notify"
	"github.com/marcofaedo/leadflow/internal/observability"
	"github.com/marcofaedo/leadflow/internal/retrieval"
	"github.com/marcofaedo/leadflow/internal/scheduling"
	"github.com/marcofaedo/leadflow/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	store, err := history.NewStore(ctx, cfg.DatabaseURL, cfg.HistoryMaxMessages)
	if err != nil {
		log.Fatalf("history store init failed: %v", err)
	}
	defer store.Close()
	storeMode := "in-memory"
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		storeMode = "postgres"
	}
	log.Printf("history store: %s", storeMode)

	retriever, retrievalMode, err := retrieval.NewRetriever(ctx, cfg.RetrievalProvider, cfg.DatabaseURL, cfg.KnowledgeDir)
	if err != nil {
		log.Fatalf("retriever init failed: %v", err)
	}
	log.Printf("retrieval provider: %s", retrievalMode)

	decider, err := brain.NewAdapter(brain.Config{
		Mode:    cfg.BrainAdapterMode,
		HTTPURL: cfg.BrainHTTPURL,
		Timeout: cfg.DecisionTimeout,
	})
	if err != nil {
		log.Fatalf("brain adapter init failed: %v", err)
	}
	brainMode := "mock"
	if _, ok := decider.(*brain.HTTPAdapter); ok {
		brainMode = "http"
	}
	log.Printf("brain adapter: %s", brainMode)

	notifier := notify.NewNotifier(cfg.DiscordWebhookURL)
	if _, ok := notifier.(notify.Noop); ok {
		log.Printf("notifier: disabled (DISCORD_WEBHOOK_URL not set)")
	} else {
		log.Printf("notifier: discord webhook")
	}

	scheduler := scheduling.NewCalendlyService(cfg.CalendlyAPIToken, cfg.CalendlyUserURI, cfg.FallbackMeetingLink)

	sessions := session.NewTracker(cfg.SessionInactivityTimeout)
	sessions.SetExpireHook(func(s *session.Session) {
		metrics.SessionEvents.WithLabelValues("expired").Inc()
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
		// Idle sessions release their conversation history when the store
		// supports it; postgres keeps turns for lead follow-up.
		if f, ok := store.(history.Forgetter); ok {
			f.Forget(s.ID)
		}
	})

	engine := agent.New(store, retriever, decider, notifier, scheduler, metrics, cfg.RetrievalTopK, cfg.HistoryPromptWindow)

	api := httpapi.New(cfg, engine, sessions, metrics, httpapi.Modes{
		History:   storeMode,
		Retrieval: retrievalMode,
		Brain:     brainMode,
	})
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	sessions.StartJanitor(runCtx, 30*time.Second)

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
