package pty

import (
	"os"
	"strings"
)

// FallbackTerm is advertised to the child when neither a configured nor an
// inherited TERM is available.
const FallbackTerm = "xterm-256color"

// DefaultShell returns $SHELL, or /bin/sh when unset.
func DefaultShell() string {
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell
	}
	return "/bin/sh"
}

// BuildEnv returns base with extra appended and exactly one TERM entry.
// A non-empty term wins; otherwise the last TERM in base is kept.
func BuildEnv(base []string, term string, extra []string) []string {
	inherited := ""
	env := make([]string, 0, len(base)+len(extra)+1)
	for _, kv := range base {
		if v, ok := strings.CutPrefix(kv, "TERM="); ok {
			inherited = v
			continue
		}
		env = append(env, kv)
	}
	for _, kv := range extra {
		if v, ok := strings.CutPrefix(kv, "TERM="); ok {
			inherited = v
			continue
		}
		env = append(env, kv)
	}
	switch {
	case term != "":
	case inherited != "":
		term = inherited
	default:
		term = FallbackTerm
	}
	return append(env, "TERM="+term)
}
