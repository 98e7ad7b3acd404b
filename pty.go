package termemu

import (
	"errors"
	"os"
	"os/user"
	"strings"
)

// Errors surfaced by the PTY layer.
var (
	// ErrPtyClosed is returned by operations on a closed PTY.
	ErrPtyClosed = errors.New("termemu: pty closed")
	// ErrPtyEOF is returned by Read once the child side is gone.
	// It is latched: subsequent reads keep returning it.
	ErrPtyEOF = errors.New("termemu: pty eof")
	// ErrPtyUnsupported is returned on platforms without PTY support.
	ErrPtyUnsupported = errors.New("termemu: pty unsupported on this platform")
)

// PtyConfig describes how to spawn the child shell.
type PtyConfig struct {
	// Shell is the binary to execute. Empty means discover the user's
	// login shell and fall back to /bin/sh.
	Shell string
	// Cols and Rows set the initial window size.
	Cols, Rows int
	// Term overrides the TERM value; defaults to xterm-256color.
	Term string
	// TermProgram is the host-advertised program name (TERM_PROGRAM).
	TermProgram string
	// Dir is the working directory; empty means the user's home.
	Dir string
	// Env holds extra KEY=VALUE entries appended to the child environment.
	Env []string
}

// buildEnv assembles the child environment: the parent environment minus
// TERM/COLORTERM/TERM_PROGRAM, then the configured values. LANG and LC_*
// are inherited untouched.
func buildEnv(cfg PtyConfig, shell string) []string {
	term := cfg.Term
	if term == "" {
		term = "xterm-256color"
	}

	env := make([]string, 0, len(os.Environ())+8)
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		switch key {
		case "TERM", "COLORTERM", "TERM_PROGRAM", "TERM_PROGRAM_VERSION":
			continue
		}
		env = append(env, kv)
	}

	env = append(env,
		"TERM="+term,
		"COLORTERM=truecolor",
		"SHELL="+shell,
	)
	if cfg.TermProgram != "" {
		env = append(env, "TERM_PROGRAM="+cfg.TermProgram)
	}
	env = append(env, cfg.Env...)
	return env
}

// findShell resolves the shell binary: the configured path if it exists,
// otherwise $SHELL if it exists, otherwise the user's login shell from
// /etc/passwd, otherwise common fallbacks ending at /bin/sh.
func findShell(configured string) string {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured
		}
	}

	if shell := os.Getenv("SHELL"); shell != "" {
		if _, err := os.Stat(shell); err == nil {
			return shell
		}
	}

	if current, err := user.Current(); err == nil {
		if shell := passwdShell(current.Username); shell != "" {
			if _, err := os.Stat(shell); err == nil {
				return shell
			}
		}
	}

	for _, shell := range []string{"/bin/bash", "/usr/bin/bash", "/bin/zsh", "/usr/bin/zsh", "/bin/sh"} {
		if _, err := os.Stat(shell); err == nil {
			return shell
		}
	}
	return "/bin/sh"
}

// passwdShell reads the user's shell from /etc/passwd.
func passwdShell(username string) string {
	data, err := os.ReadFile("/etc/passwd")
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Split(line, ":")
		if len(fields) >= 7 && fields[0] == username {
			return fields[6]
		}
	}
	return ""
}
