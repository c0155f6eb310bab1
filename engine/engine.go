package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Yoga07/stagehand/cache"
	"github.com/Yoga07/stagehand/pipeline"
	"github.com/Yoga07/stagehand/provision"
	"github.com/Yoga07/stagehand/trigger"
)

// Environment variables exported into every job execution context.
const (
	// EnvEventKind carries the kind of the triggering event.
	EnvEventKind = "STAGEHAND_EVENT"

	// EnvEventRef carries the ref of the triggering event, when present.
	EnvEventRef = "STAGEHAND_REF"
)

// Engine executes a loaded pipeline definition for one event.
type Engine struct {
	resolver *cache.Resolver
	store    cache.Store
	prov     *provision.Provisioner
	baseEnv  map[string]string
	logger   *slog.Logger
	metrics  *Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics sets the metrics collectors, typically bound to the process
// registry by the caller.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithBaseEnv sets the environment every job starts from, before pipeline
// and job variables are merged over it.
func WithBaseEnv(env map[string]string) Option {
	return func(e *Engine) {
		e.baseEnv = env
	}
}

// New creates an Engine from its collaborators: the cache key resolver, the
// cache store and the environment provisioner.
func New(resolver *cache.Resolver, store cache.Store, prov *provision.Provisioner, opts ...Option) *Engine {
	e := &Engine{
		resolver: resolver,
		store:    store,
		prov:     prov,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = NewMetrics(prometheus.NewRegistry())
	}
	return e
}

// Run evaluates the definition against the event, stage by stage. Jobs
// inside a stage run in parallel; the next stage starts only once every job
// of the current one reached a terminal state. A counting failure in a stage
// marks every later stage's job skipped.
//
// Run returns a Report with one result per job; job-level failures are
// recorded there, not returned as an error. The error return covers engine
// level problems only, such as a cancelled context.
func (e *Engine) Run(ctx context.Context, def *pipeline.Definition, event trigger.Event) (*Report, error) {
	report := &Report{Event: event}

	eventEnv := map[string]string{EnvEventKind: event.Kind.String()}
	if event.Ref != "" {
		eventEnv[EnvEventRef] = event.Ref
	}
	baseEnv := provision.MergeEnv(e.baseEnv, eventEnv, def.Variables)

	ordered := def.JobsInOrder()
	blocked := false

	for _, stageName := range def.Stages {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		var jobs []*pipeline.Job
		for _, job := range ordered {
			if job.Stage == stageName {
				jobs = append(jobs, job)
			}
		}
		if len(jobs) == 0 {
			continue
		}

		stageStart := time.Now()
		results := make([]JobResult, len(jobs))

		if blocked {
			for i, job := range jobs {
				results[i] = JobResult{
					Job:        job.Name,
					Stage:      job.Stage,
					Status:     StatusSkipped,
					SkipReason: "stage-blocked",
				}
			}
		} else {
			var wg sync.WaitGroup
			for i, job := range jobs {
				wg.Add(1)
				go func(i int, job *pipeline.Job) {
					defer wg.Done()
					results[i] = e.runJob(ctx, job, event, baseEnv)
				}(i, job)
			}
			// Stage barrier: nothing of the next stage starts before this
			// returns.
			wg.Wait()
		}

		for i := range results {
			e.metrics.JobsTotal.WithLabelValues(results[i].Status.String()).Inc()
			if results[i].Failed() {
				blocked = true
			}
			report.Results = append(report.Results, results[i])
		}
		e.metrics.StageDuration.WithLabelValues(stageName).Observe(time.Since(stageStart).Seconds())

		e.logger.Info("stage finished",
			"stage", stageName,
			"jobs", len(jobs),
			"blocked", blocked,
			"duration", time.Since(stageStart),
		)
	}

	return report, nil
}

func (e *Engine) runJob(ctx context.Context, job *pipeline.Job, event trigger.Event, baseEnv map[string]string) (result JobResult) {
	start := time.Now()
	result = JobResult{Job: job.Name, Stage: job.Stage}
	defer func() {
		result.Duration = time.Since(start)
	}()

	if !trigger.Eligible(job, event) {
		e.logger.Info("job skipped by trigger", "job", job.Name, "event", event.Kind)
		result.Status = StatusSkipped
		result.SkipReason = "event"
		return result
	}

	var key cache.Key
	if job.Cache != nil {
		resolved, err := e.resolver.Resolve(job.Cache)
		if err != nil {
			e.logger.Error("cache key resolution failed", "job", job.Name, "error", err)
			return e.fail(result, job, FailureCache, err)
		}
		key = resolved
		result.CacheKey = key

		hit, err := e.store.Restore(key, job.Cache.Paths)
		switch {
		case err != nil:
			// A broken store entry degrades to a cold run; the job itself
			// can still succeed.
			e.logger.Warn("cache restore failed, running cold", "job", job.Name, "key", key, "error", err)
			e.metrics.CacheRestoreTotal.WithLabelValues("error").Inc()
		case hit:
			result.CacheHit = true
			e.metrics.CacheRestoreTotal.WithLabelValues("hit").Inc()
		default:
			e.metrics.CacheRestoreTotal.WithLabelValues("miss").Inc()
		}
	}

	ectx, err := e.prov.Prepare(ctx, job, baseEnv)
	if err != nil {
		class := FailureProvisioning
		var setupErr *provision.SetupError
		if errors.As(err, &setupErr) {
			class = FailureSetup
		}
		e.logger.Error("job setup failed", "job", job.Name, "class", class, "error", err)
		return e.fail(result, job, class, err)
	}

	scriptErr := e.prov.RunScript(ctx, job, ectx)
	succeeded := scriptErr == nil

	if job.Cache != nil && key != "" && job.Cache.When.ShouldSave(succeeded) {
		if saveErr := e.store.Save(key, job.Cache.Paths); saveErr != nil {
			e.logger.Warn("cache save failed", "job", job.Name, "key", key, "error", saveErr)
		} else {
			e.metrics.CacheSaveTotal.Inc()
		}
	}

	if !succeeded {
		e.logger.Error("job script failed", "job", job.Name, "error", scriptErr)
		return e.fail(result, job, FailureScript, scriptErr)
	}

	e.logger.Info("job succeeded", "job", job.Name, "stage", job.Stage, "cache_hit", result.CacheHit)
	result.Status = StatusSuccess
	return result
}

func (e *Engine) fail(result JobResult, job *pipeline.Job, class FailureClass, err error) JobResult {
	result.Status = StatusFailed
	result.Failure = class
	result.Err = err
	result.AllowedFailure = job.AllowFailure
	return result
}
