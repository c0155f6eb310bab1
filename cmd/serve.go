package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/Yoga07/stagehand/cache"
	"github.com/Yoga07/stagehand/engine"
	"github.com/Yoga07/stagehand/executor"
	"github.com/Yoga07/stagehand/provision"
	"github.com/Yoga07/stagehand/trigger"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a webhook endpoint that runs the pipeline per received event",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", ":8420", "listen address")
	serveCmd.Flags().StringVarP(&workDir, "workdir", "w", ".", "workspace directory")
}

// webhookEvent is the JSON body accepted on /events.
type webhookEvent struct {
	Kind string `json:"kind"`
	Ref  string `json:"ref,omitempty"`
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	absWork, err := filepath.Abs(workDir)
	if err != nil {
		return &exitError{code: exitGeneric, err: err}
	}
	cacheRoot := cache.DefaultRoot()

	workFS := osfs.New(absWork)
	runner := executor.NewShellRunner()
	prov := provision.New(workFS, runner,
		provision.WithWorkDir(absWork),
		provision.WithDepFetcher(provision.NewGitFetcher(filepath.Dir(absWork))),
		provision.WithLogger(logger),
	)
	eng := engine.New(
		cache.NewResolver(workFS),
		cache.NewDirStore(workFS, osfs.New(cacheRoot)),
		prov,
		engine.WithLogger(logger),
		engine.WithMetrics(engine.NewMetrics(prometheus.DefaultRegisterer)),
		engine.WithBaseEnv(map[string]string{cache.EnvCacheDir: cacheRoot}),
	)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	router.Handle("/metrics", promhttp.Handler())

	router.Post("/events", func(w http.ResponseWriter, r *http.Request) {
		var hook webhookEvent
		if err := json.NewDecoder(r.Body).Decode(&hook); err != nil || hook.Kind == "" {
			http.Error(w, "invalid event payload", http.StatusBadRequest)
			return
		}

		// The definition is re-read per event so a pushed definition change
		// takes effect without restarting the server.
		def, err := loadDefinition()
		if err != nil {
			logger.Error("definition rejected", "error", err)
			http.Error(w, fmt.Sprintf("definition rejected: %v", err), http.StatusUnprocessableEntity)
			return
		}

		event := trigger.Event{Kind: trigger.Kind(hook.Kind), Ref: hook.Ref}
		go func() {
			report, err := eng.Run(cmd.Context(), def, event)
			if err != nil {
				logger.Error("pipeline run aborted", "event", event.Kind, "error", err)
				return
			}
			logger.Info("pipeline run finished",
				"event", event.Kind,
				"ref", event.Ref,
				"succeeded", report.Succeeded(),
				"jobs", len(report.Results),
			)
		}()

		w.WriteHeader(http.StatusAccepted)
		fmt.Fprintln(w, "accepted")
	})

	server := &http.Server{
		Addr:              listenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("listening", "addr", listenAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return &exitError{code: exitGeneric, err: err}
	}
	return nil
}
