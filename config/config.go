package config

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/sethvargo/go-envconfig"

	"github.com/jmgilman/gitfs/errors"
	"github.com/jmgilman/gitfs/mount"
)

// EnvPrefix is prepended to the environment name of every key.
const EnvPrefix = "GITFS_"

// Backends accepted by the backend key.
const (
	BackendNative = "native"
	BackendCLI    = "cli"
)

// Keys are the property names Load accepts, in dotted form.
var Keys = []string{
	"auth.pass",
	"auth.user",
	"backend",
	"datadir",
	"dismount.delete",
	"dismount.seconds",
	"pull.eager",
	"pull.lazy",
	"refresh.interval",
	"scheme",
}

// Settings is the resolved configuration of a gitfs instance.
type Settings struct {
	// LazyPull is the staleness after which an access pulls first.
	LazyPull Duration `env:"PULL_LAZY,default=5s"`
	// EagerPull is the staleness after which the refresher pulls.
	EagerPull Duration `env:"PULL_EAGER,default=5s"`
	// Dismount is the idle time after which a mount is evicted.
	Dismount Duration `env:"DISMOUNT_SECONDS,default=60s"`
	// DismountDelete deletes working copies on eviction.
	DismountDelete bool `env:"DISMOUNT_DELETE,default=false"`
	// DataDir holds the working copies. Default: <tmp>/git.
	DataDir string `env:"DATADIR"`

	AuthUser string `env:"AUTH_USER"`
	AuthPass string `env:"AUTH_PASS"`

	// RefreshInterval is the refresher tick.
	RefreshInterval Duration `env:"REFRESH_INTERVAL,default=1s"`
	// Backend selects the git implementation: native or cli.
	Backend string `env:"BACKEND,default=native"`
	// Scheme is used for names without one and for remote URLs built from them.
	Scheme string `env:"SCHEME,default=https"`
}

// EnvName returns the environment variable a dotted key is read from:
// "pull.lazy" is GITFS_PULL_LAZY.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Load resolves Settings from the environment and from process-level
// properties given as dotted keys. A key set in both places to different
// values is a CodeConfigConflict error. A nil env reads the process
// environment.
//
// Example:
//
//	props, err := config.ParseSet([]string{"pull.lazy=10s"})
//	settings, err := config.Load(ctx, nil, props)
func Load(ctx context.Context, env envconfig.Lookuper, props map[string]string) (Settings, error) {
	if env == nil {
		env = envconfig.OsLookuper()
	}

	known := make(map[string]bool, len(Keys))
	for _, k := range Keys {
		known[k] = true
	}

	translated := make(map[string]string, len(props))
	for _, key := range sortedKeys(props) {
		val := strings.TrimSpace(props[key])
		if !known[key] {
			return Settings{}, errors.WithContext(
				errors.Newf(errors.CodeInvalidConfig, "unknown property %q", key),
				"valid", strings.Join(Keys, ", "),
			)
		}

		name := EnvName(key)
		if envVal, ok := env.Lookup(name); ok && !equivalent(key, envVal, val) {
			return Settings{}, errors.WithContextMap(
				errors.Newf(errors.CodeConfigConflict, "%s is set to different values in the environment and in the process properties", key),
				map[string]interface{}{"key": key, "env": name},
			)
		}
		translated[name] = val
	}

	var s Settings
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target: &s,
		Lookuper: envconfig.PrefixLookuper(EnvPrefix,
			envconfig.MultiLookuper(envconfig.MapLookuper(translated), env)),
	}); err != nil {
		return Settings{}, errors.Wrap(err, errors.CodeInvalidConfig, "failed to decode configuration")
	}

	if s.DataDir == "" {
		s.DataDir = filepath.Join(os.TempDir(), "git")
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// ParseSet parses repeated key=value flags into a property map.
func ParseSet(values []string) (map[string]string, error) {
	props := make(map[string]string, len(values))
	for _, v := range values {
		key, val, ok := strings.Cut(v, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, errors.Newf(errors.CodeInvalidConfig, "malformed property %q: expected key=value", v)
		}
		if prev, dup := props[key]; dup && !equivalent(key, prev, val) {
			return nil, errors.Newf(errors.CodeConfigConflict, "property %q set twice with different values", key)
		}
		props[key] = val
	}
	return props, nil
}

var schemePattern = regexp.MustCompile(`^[a-z][a-z0-9+.-]*$`)

// Validate rejects settings no mount could run with.
func (s Settings) Validate() error {
	durations := []struct {
		key string
		d   Duration
	}{
		{"pull.lazy", s.LazyPull},
		{"pull.eager", s.EagerPull},
		{"dismount.seconds", s.Dismount},
	}
	for _, d := range durations {
		if d.d < 0 {
			return errors.Newf(errors.CodeInvalidConfig, "%s must not be negative, got %s", d.key, d.d)
		}
	}
	if s.RefreshInterval <= 0 {
		return errors.Newf(errors.CodeInvalidConfig, "refresh.interval must be positive, got %s", s.RefreshInterval)
	}

	switch s.Backend {
	case BackendNative, BackendCLI:
	default:
		return errors.Newf(errors.CodeInvalidConfig, "unknown backend %q: expected %s or %s", s.Backend, BackendNative, BackendCLI)
	}

	if !schemePattern.MatchString(s.Scheme) {
		return errors.Newf(errors.CodeInvalidConfig, "invalid scheme %q", s.Scheme)
	}
	if s.AuthPass != "" && s.AuthUser == "" {
		return errors.New(errors.CodeInvalidConfig, "auth.pass is set without auth.user")
	}
	return nil
}

// Policy returns the mount thresholds of s.
func (s Settings) Policy() mount.Policy {
	return mount.Policy{
		LazyPullPeriod:  s.LazyPull.Duration(),
		EagerPullPeriod: s.EagerPull.Duration(),
		DismountPeriod:  s.Dismount.Duration(),
		DismountDelete:  s.DismountDelete,
	}
}

// Redacted returns a copy of s that is safe to log.
func (s Settings) Redacted() Settings {
	if s.AuthPass != "" {
		s.AuthPass = "****"
	}
	return s
}

// equivalent reports whether a and b decode to the same value of key, so
// "60" and "60s" or "true" and "1" do not conflict. Values that do not
// decode are compared as written.
func equivalent(key, a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == b {
		return true
	}
	switch key {
	case "pull.lazy", "pull.eager", "dismount.seconds", "refresh.interval":
		da, errA := ParseDuration(a)
		db, errB := ParseDuration(b)
		return errA == nil && errB == nil && da == db
	case "dismount.delete":
		ba, errA := strconv.ParseBool(a)
		bb, errB := strconv.ParseBool(b)
		return errA == nil && errB == nil && ba == bb
	default:
		return false
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
