package provision

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"

	"github.com/Yoga07/stagehand/executor"
	"github.com/Yoga07/stagehand/pipeline"
)

// ExecutionContext is a prepared job environment: the merged variables and
// the directory commands run in.
type ExecutionContext struct {
	Env     map[string]string
	WorkDir string
}

// Provisioner prepares execution contexts. All collaborators are injected;
// tests run it with an in-memory filesystem, a fake runner and fake
// installers.
type Provisioner struct {
	fs       billy.Filesystem
	runner   executor.Runner
	packages PackageInstaller
	deps     DepFetcher
	workDir  string
	logger   *slog.Logger
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithPackageInstaller overrides the system package installer.
func WithPackageInstaller(installer PackageInstaller) Option {
	return func(p *Provisioner) {
		p.packages = installer
	}
}

// WithDepFetcher overrides the source dependency fetcher.
func WithDepFetcher(fetcher DepFetcher) Option {
	return func(p *Provisioner) {
		p.deps = fetcher
	}
}

// WithWorkDir sets the directory job commands run in. Defaults to ".".
func WithWorkDir(dir string) Option {
	return func(p *Provisioner) {
		p.workDir = dir
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provisioner) {
		p.logger = logger
	}
}

// New creates a Provisioner operating on the given workspace filesystem and
// command runner.
func New(fs billy.Filesystem, runner executor.Runner, opts ...Option) *Provisioner {
	p := &Provisioner{
		fs:      fs,
		runner:  runner,
		workDir: ".",
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.packages == nil {
		p.packages = NewAptInstaller(runner)
	}
	if p.deps == nil {
		// Dependencies land next to the workspace, not inside it.
		p.deps = NewGitFetcher(filepath.Join(p.workDir, ".."))
	}
	return p
}

// Prepare provisions the job's execution context. Steps run in order, each
// completing before the next begins:
//
//  1. merge the job's variables over baseEnv (job keys win),
//  2. ensure the job's cache path directories exist (idempotent),
//  3. install the job's system packages,
//  4. fetch the job's external source dependencies,
//  5. run before_script commands in declared order.
//
// A non-zero setup command aborts with a SetupError; everything else that
// fails wraps ErrProvisioning.
func (p *Provisioner) Prepare(ctx context.Context, job *pipeline.Job, baseEnv map[string]string) (*ExecutionContext, error) {
	env := MergeEnv(baseEnv, job.Variables)
	ectx := &ExecutionContext{Env: env, WorkDir: p.workDir}

	if err := p.ensureDirs(job); err != nil {
		return nil, err
	}

	if len(job.Packages) > 0 {
		p.logger.Debug("installing packages", "job", job.Name, "packages", job.Packages)
		if err := p.packages.Install(ctx, job.Packages); err != nil {
			return nil, WrapErrorf(ErrProvisioning, "job %q packages: %v", job.Name, err)
		}
	}

	for _, dep := range job.Deps {
		p.logger.Debug("fetching source dependency", "job", job.Name, "repo", dep.Repo, "path", dep.Path)
		if err := p.deps.Fetch(ctx, dep); err != nil {
			return nil, WrapErrorf(ErrProvisioning, "job %q dependency %q: %v", job.Name, dep.Repo, err)
		}
	}

	for _, command := range job.BeforeScript {
		p.logger.Debug("running setup command", "job", job.Name, "command", command)
		result, err := p.runner.Run(ctx, command,
			executor.WithEnv(env),
			executor.WithWorkingDir(p.workDir),
		)
		if err != nil || result.ExitCode != 0 {
			setupErr := &SetupError{Command: command, ExitCode: -1}
			if result != nil {
				setupErr.ExitCode = result.ExitCode
				setupErr.Stderr = result.Stderr
			}
			return nil, setupErr
		}
	}

	return ectx, nil
}

// ensureDirs creates the job's declared cache path directories. Creation is
// idempotent: an already-existing path, whatever its kind, is left alone. A
// real filesystem error aborts with ErrProvisioning.
func (p *Provisioner) ensureDirs(job *pipeline.Job) error {
	if job.Cache == nil {
		return nil
	}
	for _, path := range job.Cache.Paths {
		if _, err := p.fs.Stat(path); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return WrapErrorf(ErrProvisioning, "stat %q: %v", path, err)
		}
		if err := p.fs.MkdirAll(path, 0o755); err != nil {
			return WrapErrorf(ErrProvisioning, "creating %q: %v", path, err)
		}
	}
	return nil
}

// RunScript executes the job's main script against a prepared context,
// fail-fast: the first non-zero command aborts with a ScriptError and no
// later command runs.
func (p *Provisioner) RunScript(ctx context.Context, job *pipeline.Job, ectx *ExecutionContext) error {
	for _, command := range job.Script {
		p.logger.Debug("running script command", "job", job.Name, "command", command)
		result, err := p.runner.Run(ctx, command,
			executor.WithEnv(ectx.Env),
			executor.WithWorkingDir(ectx.WorkDir),
		)
		if err != nil || result.ExitCode != 0 {
			scriptErr := &ScriptError{Command: command, ExitCode: -1}
			if result != nil {
				scriptErr.ExitCode = result.ExitCode
				scriptErr.Stderr = result.Stderr
			}
			return scriptErr
		}
	}
	return nil
}

// MergeEnv merges environment mappings left to right: a later mapping
// overrides earlier ones key by key. The inputs are never mutated.
func MergeEnv(envs ...map[string]string) map[string]string {
	merged := make(map[string]string)
	for _, env := range envs {
		for k, v := range env {
			merged[k] = v
		}
	}
	return merged
}
