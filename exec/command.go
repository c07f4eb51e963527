package exec

import (
	"context"
	"os"
	osexec "os/exec"
)

// Command is the os/exec backed Executor.
type Command struct {
	config *config
	ctx    context.Context
	runCtx context.Context
}

// New creates a Command with the given global options.
func New(opts ...Option) *Command {
	cmd := &Command{
		config: newConfig(),
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(cmd)
	}
	return cmd
}

func (c *Command) WithEnv(env map[string]string) Executor {
	for k, v := range env {
		c.config.localEnv[k] = v
	}
	return c
}

func (c *Command) WithDir(dir string) Executor {
	c.config.localDir = dir
	return c
}

func (c *Command) WithContext(ctx context.Context) Executor {
	c.runCtx = ctx
	return c
}

func (c *Command) WithInheritEnv() Executor {
	val := true
	c.config.localInheritEnv = &val
	return c
}

func (c *Command) WithRedact(secrets ...string) Executor {
	c.config.localRedact = append(c.config.localRedact, secrets...)
	return c
}

// Run executes args[0] with the remaining arguments. Local settings are
// reset afterwards whether or not the command succeeded.
func (c *Command) Run(args ...string) (*Result, error) {
	ctx := c.ctx
	if c.runCtx != nil {
		ctx = c.runCtx
	}
	defer func() {
		c.config.resetLocal()
		c.runCtx = nil
	}()
	redact := c.config.redactor()

	if len(args) == 0 {
		return nil, &ExecError{ExitCode: -1, Err: osexec.ErrNotFound}
	}

	cmd := osexec.CommandContext(ctx, args[0], args[1:]...)
	if dir := c.config.effectiveDir(); dir != "" {
		cmd.Dir = dir
	}
	if c.config.effectiveInheritEnv() {
		cmd.Env = os.Environ()
	}
	for k, v := range c.config.effectiveEnv() {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	var stdout, stderr, combined lockedBuffer
	cmd.Stdout = teeWriter{own: &stdout, combined: &combined}
	cmd.Stderr = teeWriter{own: &stderr, combined: &combined}

	err := cmd.Run()

	result := &Result{
		Stdout:   redact(stdout.String()),
		Stderr:   redact(stderr.String()),
		Combined: redact(combined.String()),
		ExitCode: -1,
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err != nil {
		masked := make([]string, len(args))
		for i, a := range args {
			masked[i] = redact(a)
		}
		return result, &ExecError{
			Command:  masked,
			ExitCode: result.ExitCode,
			Stdout:   result.Stdout,
			Stderr:   result.Stderr,
			Err:      err,
		}
	}
	return result, nil
}

// Clone returns a Command sharing the global configuration and default context.
func (c *Command) Clone() Executor {
	return &Command{
		config: c.config.clone(),
		ctx:    c.ctx,
	}
}
