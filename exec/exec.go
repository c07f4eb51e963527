package exec

import "context"

// Executor runs commands with a fluent configuration API.
type Executor interface {
	// WithEnv sets environment variables for the next Run.
	WithEnv(env map[string]string) Executor

	// WithDir sets the working directory for the next Run.
	WithDir(dir string) Executor

	// WithContext sets the context for the next Run.
	// The process is killed when the context is canceled.
	WithContext(ctx context.Context) Executor

	// WithInheritEnv makes the next Run inherit the parent environment.
	WithInheritEnv() Executor

	// WithRedact masks the given values in output and errors of the next Run.
	WithRedact(secrets ...string) Executor

	// Run executes the command and captures its output.
	Run(args ...string) (*Result, error)

	// Clone returns an executor with the same global configuration.
	Clone() Executor
}

// Result holds the captured output of a command.
type Result struct {
	Stdout   string
	Stderr   string
	Combined string
	ExitCode int
}

// Option configures global settings of a Command.
type Option func(*Command)

// WithEnv returns an Option that sets global environment variables.
func WithEnv(env map[string]string) Option {
	return func(c *Command) {
		for k, v := range env {
			c.config.globalEnv[k] = v
		}
	}
}

// WithDir returns an Option that sets the global working directory.
func WithDir(dir string) Option {
	return func(c *Command) {
		c.config.globalDir = dir
	}
}

// WithContext returns an Option that sets the default context.
func WithContext(ctx context.Context) Option {
	return func(c *Command) {
		c.ctx = ctx
	}
}

// WithInheritEnv returns an Option that enables environment inheritance for every Run.
func WithInheritEnv() Option {
	return func(c *Command) {
		c.config.globalInheritEnv = true
	}
}

// WithRedact returns an Option that masks the given values for every Run.
func WithRedact(secrets ...string) Option {
	return func(c *Command) {
		c.config.globalRedact = append(c.config.globalRedact, secrets...)
	}
}
