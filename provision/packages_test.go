package provision

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAptInstaller_ConcurrentInstallsUpdateIndexOnce(t *testing.T) {
	rec := &recorder{}
	runner := newFakeRunner(rec)
	installer := NewAptInstaller(runner)

	const workers = 8
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- installer.Install(context.Background(), []string{"build-essential"})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var updates, installs int
	for _, step := range rec.steps {
		switch {
		case step == "run:apt-get update -qq":
			updates++
		case strings.HasPrefix(step, "run:apt-get install"):
			installs++
		}
	}
	assert.Equal(t, 1, updates, "the index update runs once per process")
	assert.Equal(t, workers, installs)
}

func TestAptInstaller_EmptyPackageListIsNoop(t *testing.T) {
	rec := &recorder{}
	installer := NewAptInstaller(newFakeRunner(rec))

	require.NoError(t, installer.Install(context.Background(), nil))
	assert.Empty(t, rec.steps)
}

func TestAptInstaller_FailedInstall(t *testing.T) {
	rec := &recorder{}
	runner := newFakeRunner(rec)
	runner.failOn["apt-get install -y --no-install-recommends gcc"] = 100
	installer := NewAptInstaller(runner)

	err := installer.Install(context.Background(), []string{"gcc"})
	assert.Error(t, err)
}
