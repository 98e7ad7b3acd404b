// Package termemu provides a headless xterm-compatible terminal emulator
// with an optional PTY session wrapper.
//
// The engine mediates between a pseudo-terminal connected to an
// interactive shell and a display surface rendered by a host. Bytes from
// the PTY are interpreted as ECMA-48/xterm control sequences and applied
// to a cell grid the host can sample and paint. There is no rendering,
// font handling, or window management here: those belong to the host.
//
// # Quick Start
//
// Create a terminal and write ANSI sequences to it:
//
//	term := termemu.New()
//	term.WriteString("\x1b[31mHello \x1b[32mWorld\x1b[0m!")
//	fmt.Println(term.String()) // "Hello World!"
//
// # Architecture
//
// The package is organized around these core types:
//
//   - [Parser]: byte-at-a-time VT state machine producing events
//   - [Terminal]: the emulator state the events mutate
//   - [Buffer]: a 2D grid of cells with scrollback support
//   - [Cell]: a single character with colors and attributes
//   - [Session]: a Terminal wired to a [Pty] behind one lock
//
// Terminal implements [io.Writer], so any byte source works:
//
//	cmd := exec.Command("ls", "--color")
//	cmd.Stdout = term
//	cmd.Run()
//
// # Dual Buffers
//
// Terminal maintains two buffers:
//
//   - Primary buffer: normal mode, backed by a scrollback ring
//   - Alternate buffer: used by full-screen apps (vim, less), no scrollback
//
// Applications switch buffers via CSI ?1049h/l. Check which is active
// with [Terminal.IsAlternateScreen].
//
// # Driving a Shell
//
// A Session owns the PTY and serializes PTY reads, writes and resizes
// behind one lock:
//
//	sess := termemu.NewSession(80, 24)
//	if err := sess.SpawnShell(""); err != nil {
//	    log.Fatal(err)
//	}
//	defer sess.Close()
//
//	// Integrate sess.PtyFd() into an event loop, then on readability:
//	sess.ReadPty()
//	// ...sample the grid and paint.
//
// Replies the emulator owes the child (cursor position reports, device
// attributes, color queries) are written back to the PTY automatically.
//
// # Host Hooks
//
// Observable events that are not grid mutations are surfaced through
// provider interfaces: [BellProvider], [TitleProvider],
// [ClipboardProvider], and [ScrollbackProvider]. Bell, title and clipboard
// default to no-ops, and the primary buffer's scrollback defaults to a
// bounded in-memory ring; OSC 52 clipboard reads are denied unless the host installs a provider
// that answers them.
//
// # Shell Integration
//
// OSC 133 marks partition output into prompt, command, and output
// regions. The engine keeps one [CommandRecord] per command with the
// prompt row, exit code, and wall-clock duration, for decorations like
// success badges and timings.
package termemu
