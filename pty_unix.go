//go:build !windows

package termemu

import (
	"errors"
	"os"
	"os/exec"
	"os/user"
	"sync"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// Pty wraps a pseudo-terminal connected to a child shell. Reads are
// non-blocking; writes retry EAGAIN a bounded number of times and report
// partial counts. The fd is exclusively owned by the wrapper.
type Pty struct {
	mu   sync.Mutex
	cmd  *exec.Cmd
	file *os.File

	closed     bool
	eof        bool
	exitStatus int
	reaped     bool
}

// writeRetries bounds EAGAIN retries before a short write is reported.
const writeRetries = 16

// SpawnPty starts the configured shell on a new pseudo-terminal sized to
// (cfg.Cols, cfg.Rows). The PTY fd is switched to non-blocking mode so the
// host event loop can poll it.
func SpawnPty(cfg PtyConfig) (*Pty, error) {
	shell := findShell(cfg.Shell)

	cmd := exec.Command(shell, "-i")
	cmd.Env = buildEnv(cfg, shell)

	dir := cfg.Dir
	if dir == "" {
		if current, err := user.Current(); err == nil {
			dir = current.HomeDir
		}
	}
	cmd.Dir = dir

	cols, rows := cfg.Cols, cfg.Rows
	if cols <= 0 {
		cols = DEFAULT_COLS
	}
	if rows <= 0 {
		rows = DEFAULT_ROWS
	}

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Cols: uint16(cols),
		Rows: uint16(rows),
	})
	if err != nil {
		return nil, err
	}

	if err := unix.SetNonblock(int(ptmx.Fd()), true); err != nil {
		ptmx.Close()
		cmd.Process.Kill()
		cmd.Wait()
		return nil, err
	}

	return &Pty{cmd: cmd, file: ptmx, exitStatus: -1}, nil
}

// Fd returns the master-side file descriptor for event loop integration.
// Returns -1 when closed.
func (p *Pty) Fd() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return -1
	}
	return int(p.file.Fd())
}

// Read drains available bytes into buf without blocking.
// Returns (0, nil) when no data is pending, and ErrPtyEOF — latched — once
// the child side is gone (EOF or EIO on a closed slave).
func (p *Pty) Read(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, ErrPtyClosed
	}
	if p.eof {
		return 0, ErrPtyEOF
	}

	// os.File.Read parks on the runtime poller until data arrives, and
	// File.Fd clears O_NONBLOCK; read the raw descriptor with O_NONBLOCK
	// set so an empty PTY yields EAGAIN.
	fd := int(p.file.Fd())
	if err := unix.SetNonblock(fd, true); err != nil {
		return 0, err
	}
	n, err := unix.Read(fd, buf)
	if n < 0 {
		n = 0
	}
	if err == nil && n == 0 && len(buf) > 0 {
		p.eof = true
		return 0, ErrPtyEOF
	}
	if err != nil {
		if errors.Is(err, unix.EAGAIN) {
			return n, nil
		}
		// EIO on the master means the slave side is closed: treat as EOF.
		p.eof = true
		if n > 0 {
			return n, nil
		}
		return 0, ErrPtyEOF
	}
	return n, nil
}

// Write sends bytes to the child, retrying EAGAIN up to a short bound.
// Returns the number of bytes actually written; a short count with a nil
// error means the pty buffer stayed full.
func (p *Pty) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, ErrPtyClosed
	}

	written := 0
	for written < len(data) {
		n, err := p.file.Write(data[written:])
		written += n
		if err == nil {
			continue
		}
		if errors.Is(err, unix.EAGAIN) {
			retries := 0
			for errors.Is(err, unix.EAGAIN) && retries < writeRetries {
				var m int
				m, err = p.file.Write(data[written:])
				written += m
				retries++
			}
			if errors.Is(err, unix.EAGAIN) {
				return written, nil
			}
			if err != nil {
				return written, err
			}
			continue
		}
		return written, err
	}
	return written, nil
}

// Resize applies TIOCSWINSZ with both character and pixel dimensions.
func (p *Pty) Resize(cols, rows, pixelWidth, pixelHeight int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPtyClosed
	}
	return pty.Setsize(p.file, &pty.Winsize{
		Cols: uint16(cols),
		Rows: uint16(rows),
		X:    uint16(pixelWidth),
		Y:    uint16(pixelHeight),
	})
}

// Eof reports whether the child side is gone.
func (p *Pty) Eof() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.eof
}

// ExitStatus returns the child exit status, or -1 if the child has not
// been reaped yet.
func (p *Pty) ExitStatus() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitStatus
}

// Reap waits for the child if it has exited and records its status.
// Safe to call more than once.
func (p *Pty) Reap() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reapLocked()
	return p.exitStatus
}

func (p *Pty) reapLocked() {
	if p.reaped || p.cmd == nil {
		return
	}
	err := p.cmd.Wait()
	p.reaped = true
	if err == nil {
		p.exitStatus = 0
		return
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		p.exitStatus = exitErr.ExitCode()
	}
}

// Close terminates the child if still running, reaps it, and closes the
// master fd. Safe to call more than once.
func (p *Pty) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if p.cmd != nil && p.cmd.Process != nil && !p.reaped {
		p.cmd.Process.Kill()
	}
	p.reapLocked()
	return p.file.Close()
}
