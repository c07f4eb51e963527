package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/jmgilman/gitfs/errors"
)

// Duration is a time.Duration that also accepts a bare integer, read as
// seconds: "60" and "60s" are the same value.
type Duration time.Duration

// EnvDecode implements envconfig.Decoder.
func (d *Duration) EnvDecode(val string) error {
	parsed, err := ParseDuration(val)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns d as a time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// String implements fmt.Stringer.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// ParseDuration parses Go duration syntax or a bare number of seconds.
func ParseDuration(val string) (time.Duration, error) {
	val = strings.TrimSpace(val)
	if n, err := strconv.ParseInt(val, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, errors.Wrapf(err, errors.CodeInvalidConfig, "invalid duration %q", val)
	}
	return d, nil
}
