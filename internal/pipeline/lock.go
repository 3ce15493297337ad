package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"podtenuki/internal/episode"
	"podtenuki/internal/services"
)

// LockFileName is created in the output directory for the duration of a run.
const LockFileName = ".podtenuki.lock"

type runLock struct {
	lock *flock.Flock
}

func lockDir(ep *episode.Episode) string {
	if ep.OutputDir != "" {
		return ep.OutputDir
	}
	return filepath.Dir(ep.Original)
}

// acquireLock takes the output directory lock without waiting.
func acquireLock(dir string) (*runLock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "output dir", "create output directory", err)
	}
	path := filepath.Join(dir, LockFileName)
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "lock", fmt.Sprintf("acquire %s", path), err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "lock",
			fmt.Sprintf("another podtenuki run is writing to %s", dir), nil)
	}
	return &runLock{lock: lock}, nil
}

func (l *runLock) release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return err
	}
	_ = os.Remove(l.lock.Path())
	return nil
}
