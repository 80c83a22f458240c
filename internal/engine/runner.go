package engine

import (
	"context"
	"os/exec"
)

// CommandRunner abstracts execution of the encoder binary so tests can
// substitute a fake encoder.
type CommandRunner interface {
	// Run executes the binary and returns its combined output.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)

	// LookPath resolves the binary on the host.
	LookPath(name string) (string, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

func (execRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
