package loader

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/danieljhkim/trialgate/internal/fsops"
)

// ProcessExecutor runs payloads with an interpreter in a child process.
// The payload is staged in a private temp file and the interpreter is
// started on it with no further arguments and a minimal environment.
type ProcessExecutor struct {
	fs          fsops.FS
	dir         string
	interpreter string
}

// NewProcessExecutor creates an executor staging payloads under dir.
func NewProcessExecutor(fs fsops.FS, dir, interpreter string) *ProcessExecutor {
	return &ProcessExecutor{fs: fs, dir: dir, interpreter: interpreter}
}

// Execute stages code and starts it. It returns once the process has
// started; the process is reaped in the background and its exit status
// is ignored.
func (e *ProcessExecutor) Execute(ctx context.Context, code []byte) error {
	path, err := e.fs.WriteTemp(e.dir, "payload-*", code)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExecute, err)
	}

	// Not CommandContext: the payload outlives the caller's context.
	cmd := exec.Command(e.interpreter, path)
	cmd.Dir = e.dir
	cmd.Env = isolatedEnv()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		_ = e.fs.Remove(path)
		return fmt.Errorf("%w: %v", ErrExecute, err)
	}

	go func() {
		_ = cmd.Wait()
		_ = e.fs.Remove(path)
	}()

	return nil
}

func isolatedEnv() []string {
	env := []string{}
	for _, key := range []string{"PATH", "HOME", "LANG", "TERM"} {
		if v, ok := os.LookupEnv(key); ok {
			env = append(env, key+"="+v)
		}
	}
	return env
}

// FakeExecutor records payloads instead of running them.
type FakeExecutor struct {
	Err   error
	Calls [][]byte
}

// Execute records code.
func (e *FakeExecutor) Execute(ctx context.Context, code []byte) error {
	e.Calls = append(e.Calls, code)
	return e.Err
}
