package exec

import "strings"

const redacted = "***"

// config separates global settings (set by New) from local settings (set
// per Run and reset afterwards).
type config struct {
	globalEnv        map[string]string
	globalDir        string
	globalInheritEnv bool
	globalRedact     []string

	localEnv        map[string]string
	localDir        string
	localInheritEnv *bool
	localRedact     []string
}

func newConfig() *config {
	return &config{
		globalEnv: make(map[string]string),
		localEnv:  make(map[string]string),
	}
}

// clone copies the global settings only.
func (c *config) clone() *config {
	clone := newConfig()
	for k, v := range c.globalEnv {
		clone.globalEnv[k] = v
	}
	clone.globalDir = c.globalDir
	clone.globalInheritEnv = c.globalInheritEnv
	clone.globalRedact = append([]string(nil), c.globalRedact...)
	return clone
}

func (c *config) effectiveEnv() map[string]string {
	env := make(map[string]string, len(c.globalEnv)+len(c.localEnv))
	for k, v := range c.globalEnv {
		env[k] = v
	}
	for k, v := range c.localEnv {
		env[k] = v
	}
	return env
}

func (c *config) effectiveDir() string {
	if c.localDir != "" {
		return c.localDir
	}
	return c.globalDir
}

func (c *config) effectiveInheritEnv() bool {
	if c.localInheritEnv != nil {
		return *c.localInheritEnv
	}
	return c.globalInheritEnv
}

// redactor returns a function masking every non-empty registered secret.
func (c *config) redactor() func(string) string {
	var pairs []string
	for _, s := range append(append([]string(nil), c.globalRedact...), c.localRedact...) {
		if s != "" {
			pairs = append(pairs, s, redacted)
		}
	}
	if len(pairs) == 0 {
		return func(s string) string { return s }
	}
	return strings.NewReplacer(pairs...).Replace
}

func (c *config) resetLocal() {
	c.localEnv = make(map[string]string)
	c.localDir = ""
	c.localInheritEnv = nil
	c.localRedact = nil
}
