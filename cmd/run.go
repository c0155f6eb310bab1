package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Yoga07/stagehand/cache"
	"github.com/Yoga07/stagehand/engine"
	"github.com/Yoga07/stagehand/executor"
	"github.com/Yoga07/stagehand/pipeline"
	"github.com/Yoga07/stagehand/provision"
	"github.com/Yoga07/stagehand/trigger"
)

var (
	eventKind string
	eventRef  string
	workDir   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline for one repository event",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVarP(&eventKind, "event", "e", "push", "event kind (merge_request, push, tag, schedule, manual)")
	runCmd.Flags().StringVar(&eventRef, "ref", "", "event ref (branch or tag name)")
	runCmd.Flags().StringVarP(&workDir, "workdir", "w", ".", "workspace directory")
}

func runRun(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	def, err := loadDefinition()
	if err != nil {
		return &exitError{code: exitLoad, err: err}
	}

	absWork, err := filepath.Abs(workDir)
	if err != nil {
		return &exitError{code: exitGeneric, err: err}
	}

	cacheRoot := cache.DefaultRoot()
	if err := os.MkdirAll(cacheRoot, 0o755); err != nil {
		return &exitError{code: exitGeneric, err: fmt.Errorf("creating cache root: %w", err)}
	}

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

	event := trigger.Event{Kind: trigger.Kind(eventKind), Ref: eventRef}
	report, err := eng.Run(cmd.Context(), def, event)
	if err != nil {
		return &exitError{code: exitGeneric, err: err}
	}

	printReport(report)
	return reportError(report)
}

func loadDefinition() (*pipeline.Definition, error) {
	data, err := os.ReadFile(defFile)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", defFile, err)
	}
	def, err := pipeline.Load(data)
	if err != nil {
		return nil, err
	}
	if err := def.CheckRequires(appVersion); err != nil {
		return nil, err
	}
	return def, nil
}

func printReport(report *engine.Report) {
	for i := range report.Results {
		res := &report.Results[i]
		line := fmt.Sprintf("%-8s %s/%s", res.Status, res.Stage, res.Job)
		switch {
		case res.Status == engine.StatusSkipped:
			line += fmt.Sprintf(" (%s)", res.SkipReason)
		case res.Status == engine.StatusFailed:
			line += fmt.Sprintf(" (%s: %v)", res.Failure, res.Err)
			if res.AllowedFailure {
				line += " [allowed]"
			}
		case res.CacheHit:
			line += " (cache hit)"
		}
		fmt.Println(line)
	}
}

func reportError(report *engine.Report) error {
	switch report.WorstFailure() {
	case engine.FailureNone:
		return nil
	case engine.FailureScript:
		return &exitError{code: exitScript, err: fmt.Errorf("pipeline failed: job script error")}
	default:
		return &exitError{code: exitSetup, err: fmt.Errorf("pipeline failed: job setup or environment error")}
	}
}
