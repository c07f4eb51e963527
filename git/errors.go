package git

import (
	"errors"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	platformerrors "github.com/jmgilman/gitfs/errors"
	"github.com/jmgilman/gitfs/exec"
)

// wrapError wraps err with a message and the platform code it classifies
// to. The go-git error stays in the chain for errors.Is. When err does not
// classify, fallback is used. If err is nil, returns nil.
func wrapError(err error, fallback platformerrors.ErrorCode, message string) error {
	if err == nil {
		return nil
	}
	code, ok := classifyError(err)
	if !ok {
		code = fallback
	}
	return platformerrors.Wrap(err, code, message)
}

// classifyError maps go-git errors to platform error codes. It reports
// false for errors it does not recognize.
//
//nolint:gocyclo,cyclop // each case is a simple mapping
func classifyError(err error) (platformerrors.ErrorCode, bool) {
	switch {
	case err == nil:
		return "", false

	// Already classified
	case platformerrors.GetCode(err) != platformerrors.CodeUnknown:
		return platformerrors.GetCode(err), true

	// Not found
	case errors.Is(err, gogit.ErrRepositoryNotExists),
		errors.Is(err, transport.ErrRepositoryNotFound),
		errors.Is(err, plumbing.ErrReferenceNotFound),
		errors.Is(err, plumbing.ErrObjectNotFound),
		errors.Is(err, gogit.ErrRemoteNotFound):
		return platformerrors.CodeNotFound, true

	// Authentication/Authorization
	case errors.Is(err, transport.ErrAuthenticationRequired),
		errors.Is(err, transport.ErrAuthorizationFailed),
		errors.Is(err, transport.ErrInvalidAuthMethod):
		return platformerrors.CodeUnauthorized, true

	// Dirty worktree
	case errors.Is(err, gogit.ErrWorktreeNotClean),
		errors.Is(err, gogit.ErrUnstagedChanges):
		return platformerrors.CodeConflict, true

	// Invalid input
	case errors.Is(err, gogit.ErrMissingURL),
		errors.Is(err, gogit.ErrInvalidReference):
		return platformerrors.CodeInvalidInput, true

	case errors.Is(err, gogit.ErrRepositoryAlreadyExists),
		errors.Is(err, gogit.ErrRemoteExists):
		return platformerrors.CodeAlreadyExists, true
	}

	var execErr *exec.ExecError
	if errors.As(err, &execErr) {
		return classifyStderr(execErr.Stderr)
	}
	return "", false
}

// classifyStderr maps the stderr of a failed git command to a platform code.
func classifyStderr(stderr string) (platformerrors.ErrorCode, bool) {
	s := strings.ToLower(stderr)
	switch {
	case strings.Contains(s, "would be overwritten by checkout"),
		strings.Contains(s, "untracked working tree files"),
		strings.Contains(s, "please commit your changes or stash them"):
		return platformerrors.CodeConflict, true
	case strings.Contains(s, "authentication failed"),
		strings.Contains(s, "could not read username"),
		strings.Contains(s, "permission denied (publickey)"):
		return platformerrors.CodeUnauthorized, true
	case strings.Contains(s, "repository not found"),
		strings.Contains(s, "does not appear to be a git repository"),
		strings.Contains(s, "couldn't find remote ref"):
		return platformerrors.CodeNotFound, true
	case strings.Contains(s, "could not resolve host"),
		strings.Contains(s, "connection refused"),
		strings.Contains(s, "connection timed out"),
		strings.Contains(s, "unable to access"):
		return platformerrors.CodeNetwork, true
	case strings.Contains(s, "permission denied"):
		return platformerrors.CodeIO, true
	}
	return "", false
}
