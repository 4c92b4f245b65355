package cli

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// terminalDisplay keeps a single countdown line updated in place.
type terminalDisplay struct {
	mu      sync.Mutex
	out     io.Writer
	visible bool
}

func newTerminalDisplay(out io.Writer) *terminalDisplay {
	return &terminalDisplay{out: out}
}

func (d *terminalDisplay) Show(remaining time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, _ = fmt.Fprint(d.out, "\r\033[K")
	_, _ = infoColor.Fprintf(d.out, "⏳ Trial: %s remaining", formatRemaining(remaining))
	d.visible = true
}

func (d *terminalDisplay) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.visible {
		return
	}
	_, _ = fmt.Fprint(d.out, "\r\033[K")
	d.visible = false
}

// formatRemaining renders d as mm:ss, or h:mm:ss above an hour.
func formatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Round(time.Second) / time.Second)
	h, m, s := total/3600, (total/60)%60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
