package process

import (
	"os"
	"sort"
	"strings"
)

// Env is a mutable child process environment. Variables are only ever added:
// AddPath prepends to an existing value instead of replacing it.
type Env struct {
	vars map[string]string
}

// NewEnv creates an Env from a list of "KEY=value" entries, typically
// os.Environ().
func NewEnv(base []string) *Env {
	e := &Env{vars: make(map[string]string, len(base))}
	for _, kv := range base {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		e.vars[k] = v
	}
	return e
}

// Get returns the value of name, or "" if unset.
func (e *Env) Get(name string) string {
	return e.vars[name]
}

// Set assigns name unconditionally.
func (e *Env) Set(name, value string) {
	e.vars[name] = value
}

// AddPath prepends value to the path list held in name, using the platform
// list separator. An unset variable is simply assigned.
func (e *Env) AddPath(name, value string) {
	if cur, ok := e.vars[name]; ok && cur != "" {
		e.vars[name] = value + string(os.PathListSeparator) + cur
		return
	}
	e.vars[name] = value
}

// Add applies AddPath for every entry in vars, in key order.
func (e *Env) Add(vars map[string]string) {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		e.AddPath(k, vars[k])
	}
}

// Environ returns the environment as sorted "KEY=value" entries.
func (e *Env) Environ() []string {
	out := make([]string, 0, len(e.vars))
	for k, v := range e.vars {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
