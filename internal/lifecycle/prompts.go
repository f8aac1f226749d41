package lifecycle

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// StdinIsTTY reports whether stdin is attached to a terminal, gating the
// interactive prompts below.
func StdinIsTTY() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// ConfirmPull asks whether the listed missing models should be downloaded.
// Empty input means yes.
func ConfirmPull(w io.Writer, r io.Reader, missing []string) (bool, error) {
	fmt.Fprintf(w, "\nMissing models: %s\n", strings.Join(missing, ", "))
	fmt.Fprint(w, "Pull them now? [Y/n]: ")

	input, err := bufio.NewReader(r).ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("read input: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "", "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// PullBar renders an in-place progress line for a streaming model pull.
type PullBar struct {
	w          io.Writer
	width      int
	lastStatus string
}

// NewPullBar creates a PullBar of the given bar width (default 40).
func NewPullBar(w io.Writer, width int) *PullBar {
	if width <= 0 {
		width = 40
	}
	return &PullBar{w: w, width: width}
}

// Update redraws the bar for one progress record. Records without a byte
// total (manifest fetches, verification) print their status once instead.
func (b *PullBar) Update(p PullProgress) {
	if p.Total <= 0 {
		if p.Status != b.lastStatus {
			b.lastStatus = p.Status
			fmt.Fprintf(b.w, "\r%s...", p.Status)
		}
		return
	}
	filled := int(p.Percent / 100 * float64(b.width))
	if filled > b.width {
		filled = b.width
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", b.width-filled)
	fmt.Fprintf(b.w, "\r[%s] %3.0f%% %s/%s", bar, p.Percent, FormatBytes(p.Completed), FormatBytes(p.Total))
}

// Finish terminates the progress line.
func (b *PullBar) Finish() {
	fmt.Fprintln(b.w)
}

// FormatBytes renders a byte count with a binary unit suffix.
func FormatBytes(n int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)
	switch {
	case n >= gb:
		return fmt.Sprintf("%.1f GB", float64(n)/float64(gb))
	case n >= mb:
		return fmt.Sprintf("%.1f MB", float64(n)/float64(mb))
	case n >= kb:
		return fmt.Sprintf("%.1f KB", float64(n)/float64(kb))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
