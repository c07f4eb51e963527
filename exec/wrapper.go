package exec

import "context"

// CommandWrapper prepends a fixed command name to every Run, so a git
// backend can call Run("fetch", ...) instead of Run("git", "fetch", ...).
type CommandWrapper struct {
	executor Executor
	cmd      string
}

// NewWrapper wraps executor so that every Run is prefixed with cmd.
func NewWrapper(executor Executor, cmd string) *CommandWrapper {
	return &CommandWrapper{
		executor: executor,
		cmd:      cmd,
	}
}

func (w *CommandWrapper) WithEnv(env map[string]string) Executor {
	w.executor = w.executor.WithEnv(env)
	return w
}

func (w *CommandWrapper) WithDir(dir string) Executor {
	w.executor = w.executor.WithDir(dir)
	return w
}

func (w *CommandWrapper) WithContext(ctx context.Context) Executor {
	w.executor = w.executor.WithContext(ctx)
	return w
}

func (w *CommandWrapper) WithInheritEnv() Executor {
	w.executor = w.executor.WithInheritEnv()
	return w
}

func (w *CommandWrapper) WithRedact(secrets ...string) Executor {
	w.executor = w.executor.WithRedact(secrets...)
	return w
}

// Run executes the wrapped command with args appended.
func (w *CommandWrapper) Run(args ...string) (*Result, error) {
	return w.executor.Run(append([]string{w.cmd}, args...)...)
}

func (w *CommandWrapper) Clone() Executor {
	return &CommandWrapper{
		executor: w.executor.Clone(),
		cmd:      w.cmd,
	}
}
