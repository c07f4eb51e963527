package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	"github.com/jmgilman/gitfs"
	"github.com/jmgilman/gitfs/errors"
	"github.com/jmgilman/gitfs/fuse"
	"github.com/jmgilman/gitfs/httpfs"
)

// exactArgs fails unless args has n entries.
func exactArgs(usage string, args []string, n int) error {
	if len(args) != n {
		return errors.Newf(errors.CodeInvalidInput, "usage: gitfs %s", usage)
	}
	return nil
}

// withFS runs fn with a new FS and closes it afterwards.
func withFS(ctx context.Context, env *environment, fn func(*gitfs.FS) error, opts ...gitfs.Option) (err error) {
	gfs, err := gitfs.New(ctx, env.settings, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := gfs.Close(ctx); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(gfs)
}

func catCommand() *command {
	const usage = "cat <name>"
	return &command{
		name:    "cat",
		usage:   usage,
		summary: "print a file",
		run: func(ctx context.Context, env *environment, args []string) error {
			if err := exactArgs(usage, args, 1); err != nil {
				return err
			}
			return withFS(ctx, env, func(gfs *gitfs.FS) error {
				f, err := gfs.Open(args[0])
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				if _, err := io.Copy(env.stdout, f); err != nil {
					return errors.Wrap(err, errors.CodeIO, "failed to write output")
				}
				return nil
			})
		},
	}
}

func lsCommand() *command {
	const usage = "ls [--json] <name>"
	var asJSON bool
	return &command{
		name:    "ls",
		usage:   usage,
		summary: "list a directory",
		flags: func(fs *pflag.FlagSet) {
			fs.BoolVar(&asJSON, "json", false, "print JSON")
		},
		run: func(ctx context.Context, env *environment, args []string) error {
			if err := exactArgs(usage, args, 1); err != nil {
				return err
			}
			return withFS(ctx, env, func(gfs *gitfs.FS) error {
				statuses, err := gfs.ListStatus(args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(env.stdout, statuses)
				}

				w := tabwriter.NewWriter(env.stdout, 0, 4, 2, ' ', 0)
				for _, st := range statuses {
					line := fmt.Sprintf("%s\t%d\t%s", st.Mode, st.Size, st.Path)
					if st.Symlink != "" {
						line += " -> " + st.Symlink
					}
					fmt.Fprintln(w, line)
				}
				return w.Flush()
			})
		},
	}
}

func statCommand() *command {
	const usage = "stat <name>"
	return &command{
		name:    "stat",
		usage:   usage,
		summary: "print the status of one entry as JSON",
		run: func(ctx context.Context, env *environment, args []string) error {
			if err := exactArgs(usage, args, 1); err != nil {
				return err
			}
			return withFS(ctx, env, func(gfs *gitfs.FS) error {
				st, err := gfs.FileStatus(args[0])
				if err != nil {
					return err
				}
				return writeJSON(env.stdout, st)
			})
		},
	}
}

func mountCommand() *command {
	const usage = "mount [--allow-other] <mountpoint>"
	var allowOther bool
	return &command{
		name:    "mount",
		usage:   usage,
		summary: "serve a read-only FUSE filesystem until interrupted",
		flags: func(fs *pflag.FlagSet) {
			fs.BoolVar(&allowOther, "allow-other", false, "allow other users to access the mount")
		},
		run: func(ctx context.Context, env *environment, args []string) error {
			if err := exactArgs(usage, args, 1); err != nil {
				return err
			}
			return withFS(ctx, env, func(gfs *gitfs.FS) error {
				server, err := fuse.Mount(fuse.Options{
					Mountpoint: args[0],
					FS:         gfs,
					AllowOther: allowOther,
					Logger:     env.logger,
				})
				if err != nil {
					return err
				}

				go func() {
					<-ctx.Done()
					if err := server.Unmount(); err != nil {
						env.logger.Error("unmount failed", "error", err)
					}
				}()
				server.Wait()
				return nil
			})
		},
	}
}

func serveCommand() *command {
	const usage = "serve [--addr :8080]"
	var addr string
	return &command{
		name:    "serve",
		usage:   usage,
		summary: "serve the filesystem over HTTP until interrupted",
		flags: func(fs *pflag.FlagSet) {
			fs.StringVar(&addr, "addr", ":8080", "listen address")
		},
		run: func(ctx context.Context, env *environment, args []string) error {
			if err := exactArgs(usage, args, 0); err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			return withFS(ctx, env, func(gfs *gitfs.FS) error {
				return httpfs.New(ctx, gfs, reg).ListenAndServe(ctx, addr)
			}, gitfs.WithRegisterer(reg))
		},
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, errors.CodeIO, "failed to write output")
	}
	return nil
}
