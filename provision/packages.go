package provision

import (
	"context"
	"strings"
	"sync"

	"github.com/Yoga07/stagehand/executor"
)

// PackageInstaller installs system-level packages required by a job.
// Implementations must be idempotent: installing an already-present package
// is a no-op, and a failed installation is safe to retry.
type PackageInstaller interface {
	Install(ctx context.Context, packages []string) error
}

// AptInstaller installs packages through apt-get. Updating the package index
// happens once per process, not per job. Installs are serialized: jobs of one
// stage run in parallel, but concurrent apt-get invocations contend on the
// dpkg lock.
type AptInstaller struct {
	runner executor.Runner

	mu      sync.Mutex
	updated bool
}

// NewAptInstaller creates an AptInstaller using the given runner.
func NewAptInstaller(runner executor.Runner) *AptInstaller {
	return &AptInstaller{runner: runner}
}

// Install implements PackageInstaller.
func (a *AptInstaller) Install(ctx context.Context, packages []string) error {
	if len(packages) == 0 {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.updated {
		if err := a.run(ctx, "apt-get update -qq"); err != nil {
			return err
		}
		a.updated = true
	}

	command := "apt-get install -y --no-install-recommends " + strings.Join(packages, " ")
	return a.run(ctx, command)
}

func (a *AptInstaller) run(ctx context.Context, command string) error {
	result, err := a.runner.Run(ctx, command)
	if err != nil {
		return WrapErrorf(err, "running %q", command)
	}
	if result.ExitCode != 0 {
		return WrapErrorf(ErrProvisioning, "%q exited with %d: %s", command, result.ExitCode, result.Stderr)
	}
	return nil
}
