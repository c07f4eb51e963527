// Package exec runs external commands for the git CLI backend.
//
// The package wraps os/exec behind the Executor interface so the backend can
// be driven by a fake in tests. Settings passed to New are global; the
// fluent With* methods set local settings that apply to the next Run only.
//
//	git := exec.NewWrapper(exec.New(exec.WithInheritEnv()), "git")
//	res, err := git.WithDir(dir).WithContext(ctx).Run("rev-parse", "HEAD")
//	if err != nil {
//		var execErr *exec.ExecError
//		if errors.As(err, &execErr) {
//			fmt.Println(execErr.ExitCode, execErr.Stderr)
//		}
//	}
//
// Values registered with WithRedact (typically credentials embedded in a
// remote URL) are replaced with "***" in captured output and in ExecError
// messages, so errors can be logged without leaking secrets.
package exec
