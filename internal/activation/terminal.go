package activation

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/danieljhkim/trialgate/internal/license"
)

var (
	panelTitle  = color.New(color.FgRed, color.Bold)
	panelLabel  = color.New(color.FgWhite, color.Bold)
	panelLink   = color.New(color.FgCyan, color.Underline)
	panelPrompt = color.New(color.FgYellow)
	panelOK     = color.New(color.FgGreen, color.Bold)
)

// TerminalPanel renders the notice on a terminal and reads tokens line
// by line. An empty line is rejected locally. End of input dismisses
// the panel.
type TerminalPanel struct {
	session
	in  io.Reader
	out io.Writer

	startOnce sync.Once
	lines     chan string
}

// NewTerminalPanel creates a panel reading from in and writing to out.
func NewTerminalPanel(in io.Reader, out io.Writer) *TerminalPanel {
	return &TerminalPanel{in: in, out: out}
}

// Show renders n and blocks until a token is accepted, the input ends or
// ctx is cancelled.
func (p *TerminalPanel) Show(ctx context.Context, n Notice, submit SubmitFunc) error {
	return p.attach(ctx, func() error {
		return p.run(ctx, n, submit)
	})
}

// readLines feeds input lines to p.lines. The reader outlives a single
// Show so that no input is lost between panels.
func (p *TerminalPanel) readLines() {
	p.lines = make(chan string)
	go func() {
		defer close(p.lines)
		scanner := bufio.NewScanner(p.in)
		for scanner.Scan() {
			p.lines <- scanner.Text()
		}
	}()
}

func (p *TerminalPanel) run(ctx context.Context, n Notice, submit SubmitFunc) error {
	p.startOnce.Do(p.readLines)
	p.render(n)

	for {
		_, _ = panelPrompt.Fprint(p.out, "License token: ")

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			_, _ = fmt.Fprintln(p.out)
			return ctx.Err()
		case line, ok = <-p.lines:
		}
		if !ok {
			_, _ = fmt.Fprintln(p.out)
			return ErrDismissed
		}

		token := strings.TrimSuffix(line, "\r")
		err := submit(token)
		switch {
		case err == nil:
			_, _ = panelOK.Fprintln(p.out, "✓ License saved. Reloading...")
			return nil
		case errors.Is(err, license.ErrEmptyToken):
			_, _ = panelPrompt.Fprintln(p.out, "Please enter your license token.")
		case errors.Is(err, license.ErrRejected):
			_, _ = panelPrompt.Fprintf(p.out, "Token not accepted: %v\n", err)
		default:
			return err
		}
	}
}

func (p *TerminalPanel) render(n Notice) {
	_, _ = fmt.Fprintln(p.out)
	_, _ = panelTitle.Fprintf(p.out, "✗ %s\n", n.Message())
	_, _ = fmt.Fprintln(p.out)
	if n.PaymentURL != "" {
		_, _ = panelLabel.Fprint(p.out, "  Purchase: ")
		_, _ = panelLink.Fprintln(p.out, n.PaymentURL)
	}
	_, _ = panelLabel.Fprint(p.out, "  Device:   ")
	_, _ = fmt.Fprintln(p.out, n.Fingerprint)
	_, _ = fmt.Fprintln(p.out)
}
