// Package output renders run progress and result summaries on the console.
package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/ahmed-madyan/surge/internal/engine"
	"github.com/ahmed-madyan/surge/internal/metrics"
)

const (
	clearLine = "\r\033[K"

	progressFilled = "█"
	progressEmpty  = "░"

	ruleWidth = 56
)

// Scheme holds the colors used across console output.
type Scheme struct {
	Title  *color.Color
	Accent *color.Color
	Muted  *color.Color
	Good   *color.Color
	Warn   *color.Color
	Bad    *color.Color
}

// DefaultScheme returns the standard color scheme.
func DefaultScheme() *Scheme {
	return &Scheme{
		Title:  color.New(color.Bold),
		Accent: color.New(color.FgCyan),
		Muted:  color.New(color.Faint),
		Good:   color.New(color.FgGreen),
		Warn:   color.New(color.FgYellow),
		Bad:    color.New(color.FgRed),
	}
}

// NoColorScheme returns a scheme with every color disabled.
func NoColorScheme() *Scheme {
	s := DefaultScheme()
	s.Title.DisableColor()
	s.Accent.DisableColor()
	s.Muted.DisableColor()
	s.Good.DisableColor()
	s.Warn.DisableColor()
	s.Bad.DisableColor()
	return s
}

// Stats is one sample of a running load test, rendered by Update and
// PrintPlainUpdate.
type Stats struct {
	Progress  float64
	Elapsed   time.Duration
	ActiveVUs int
	TargetVUs int
	RPS       float64
	Requests  int64
	Failures  int64
	ErrorRate float64
	P95       time.Duration
}

// StatsFromSnapshot assembles live stats from a metrics snapshot.
func StatsFromSnapshot(snap *metrics.Snapshot, progress float64, targetVUs int) Stats {
	if snap == nil {
		return Stats{Progress: progress, TargetVUs: targetVUs}
	}

	return Stats{
		Progress:  progress,
		Elapsed:   snap.Elapsed,
		ActiveVUs: snap.ActiveVUs,
		TargetVUs: targetVUs,
		RPS:       snap.RPS,
		Requests:  snap.TotalRequests,
		Failures:  snap.FailedRequests,
		ErrorRate: snap.ErrorRate,
		P95:       snap.Latency.P95,
	}
}

// Console writes live progress and the final summary of a run.
//
// On a terminal the progress is a single line redrawn in place. When output
// is piped the caller should use PrintPlainUpdate instead, which appends one
// line per interval.
type Console struct {
	writer io.Writer
	scheme *Scheme
	isTTY  bool
	quiet  bool

	mu       sync.Mutex
	liveLine bool
}

// Config controls how console output is rendered.
type Config struct {
	Writer   io.Writer // defaults to os.Stdout
	Quiet    bool      // suppress everything except the final verdict line
	NoColor  bool
	ForceTTY bool // treat the writer as a terminal (for tests)
}

// NewConsole creates a console bound to the configured writer.
func NewConsole(cfg Config) *Console {
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}

	tty := cfg.ForceTTY || writerIsTerminal(cfg.Writer)
	scheme := DefaultScheme()
	if cfg.NoColor || !tty {
		scheme = NoColorScheme()
	}

	return &Console{
		writer: cfg.Writer,
		scheme: scheme,
		isTTY:  tty,
		quiet:  cfg.Quiet,
	}
}

func writerIsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// IsTTY reports whether the output is a terminal.
func (c *Console) IsTTY() bool {
	return c.isTTY
}

// PrintHeader prints the run banner.
func (c *Console) PrintHeader(name, runner string, phases, peakUsers int, total time.Duration) {
	if c.quiet {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	rule := strings.Repeat("─", ruleWidth)
	c.writeln(c.scheme.Accent.Sprint(rule))
	c.writeln(fmt.Sprintf("%s %s", c.scheme.Title.Sprint(name), c.scheme.Muted.Sprintf("[%s runner]", runner)))
	c.writeln(fmt.Sprintf("%d phases, peak %d users, %s", phases, peakUsers, formatDuration(total)))
	c.writeln(c.scheme.Accent.Sprint(rule))
}

// Update redraws the live progress line. It does nothing when output is not
// a terminal or quiet mode is on.
func (c *Console) Update(stats Stats) {
	if c.quiet || !c.isTTY {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprint(c.writer, clearLine+c.renderProgress(stats))
	c.liveLine = true
}

// PrintPlainUpdate appends a one-line status, for piped output and CI logs.
func (c *Console) PrintPlainUpdate(stats Stats) {
	if c.quiet {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.writeln(fmt.Sprintf("[%s] %3.0f%% | VUs %d/%d | %s reqs | %.1f rps | errs %d (%.1f%%) | p95 %s",
		formatDuration(stats.Elapsed),
		stats.Progress*100,
		stats.ActiveVUs,
		stats.TargetVUs,
		formatNumber(stats.Requests),
		stats.RPS,
		stats.Failures,
		stats.ErrorRate*100,
		formatDurationShort(stats.P95)))
}

func (c *Console) renderProgress(stats Stats) string {
	bar := renderProgressBar(stats.Progress, 24)

	errPart := fmt.Sprintf("%d (%.1f%%)", stats.Failures, stats.ErrorRate*100)
	switch {
	case stats.ErrorRate > 0.05:
		errPart = c.scheme.Bad.Sprint(errPart)
	case stats.ErrorRate > 0.01:
		errPart = c.scheme.Warn.Sprint(errPart)
	default:
		errPart = c.scheme.Good.Sprint(errPart)
	}

	return fmt.Sprintf("%s %3.0f%% %s | VUs %d/%d | %s reqs | %.1f rps | errs %s | p95 %s",
		c.scheme.Good.Sprint(bar),
		stats.Progress*100,
		c.scheme.Muted.Sprint(formatDuration(stats.Elapsed)),
		stats.ActiveVUs,
		stats.TargetVUs,
		formatNumber(stats.Requests),
		stats.RPS,
		errPart,
		formatDurationShort(stats.P95))
}

// PrintSummary prints the final report. In quiet mode it prints a single
// verdict line and nothing else.
func (c *Console) PrintSummary(result *engine.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clearLive()

	if c.quiet {
		c.writeln(c.renderVerdict(result))
		return
	}

	status := c.scheme.Good.Sprint("completed ✓")
	if result.Interrupted {
		status = c.scheme.Warn.Sprint("interrupted ⚠")
	}

	rule := strings.Repeat("─", ruleWidth)
	c.writeln("")
	c.writeln(c.scheme.Accent.Sprint(rule))
	c.writeln(fmt.Sprintf("%s - %s %s", c.scheme.Title.Sprint(result.Name), status, c.scheme.Muted.Sprint(result.RunID)))
	c.writeln(c.scheme.Accent.Sprint(rule))
	c.writeln("")

	c.writeln(fmt.Sprintf("Duration:      %s", formatDuration(result.Duration)))
	c.writeln(fmt.Sprintf("Iterations:    %s", formatNumber(result.Iterations)))

	if m := result.Metrics; m != nil {
		c.writeln(fmt.Sprintf("Requests:      %s (%.1f/s)", formatNumber(m.TotalRequests), m.RPS))
		c.writeln(fmt.Sprintf("Data received: %s", formatBytes(m.TotalBytes)))

		successRate := 1.0 - m.ErrorRate
		rateColor := c.scheme.Good
		if successRate < 0.99 {
			rateColor = c.scheme.Warn
		}
		if successRate < 0.95 {
			rateColor = c.scheme.Bad
		}
		c.writeln(fmt.Sprintf("Success rate:  %s", rateColor.Sprintf("%.1f%%", successRate*100)))
		if m.ValidationFailures > 0 {
			c.writeln(fmt.Sprintf("Validation:    %s failed", c.scheme.Bad.Sprint(formatNumber(m.ValidationFailures))))
		}
		c.writeln("")

		c.writeln(c.scheme.Title.Sprint("Latency distribution:"))
		c.writeln(fmt.Sprintf("  Min:       %s", formatDurationShort(m.Latency.Min)))
		c.writeln(fmt.Sprintf("  P50:       %s", formatDurationShort(m.Latency.P50)))
		c.writeln(fmt.Sprintf("  P90:       %s", formatDurationShort(m.Latency.P90)))
		c.writeln(fmt.Sprintf("  P95:       %s", formatDurationShort(m.Latency.P95)))
		c.writeln(fmt.Sprintf("  P99:       %s", formatDurationShort(m.Latency.P99)))
		c.writeln(fmt.Sprintf("  Max:       %s", formatDurationShort(m.Latency.Max)))
		c.writeln("")
	}

	if len(result.RequestStats) > 0 {
		c.writeln(c.scheme.Title.Sprint("Per request:"))
		c.writeln(c.scheme.Muted.Sprintf("  %-24s %10s %10s %10s %10s", "NAME", "COUNT", "MEAN", "P95", "MAX"))

		names := make([]string, 0, len(result.RequestStats))
		for name := range result.RequestStats {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			rs := result.RequestStats[name]
			c.writeln(fmt.Sprintf("  %-24s %10s %10s %10s %10s",
				name,
				formatNumber(rs.Count),
				formatDurationShort(rs.Mean),
				formatDurationShort(rs.P95),
				formatDurationShort(rs.Max)))
		}
		c.writeln("")
	}
}

// PrintReportLocation notes where the JSON report was written.
func (c *Console) PrintReportLocation(path string) {
	if c.quiet {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.clearLive()
	c.writeln(fmt.Sprintf("Report written to %s", c.scheme.Accent.Sprint(path)))
}

// renderVerdict compresses a result into the single line quiet mode emits.
func (c *Console) renderVerdict(result *engine.Result) string {
	verdict := c.scheme.Good.Sprint("ok")
	if result.Interrupted {
		verdict = c.scheme.Warn.Sprint("interrupted")
	}

	if m := result.Metrics; m != nil {
		return fmt.Sprintf("%s: %s reqs, %.1f%% errors, p95 %s, %.1f rps in %s",
			verdict,
			formatNumber(m.TotalRequests),
			m.ErrorRate*100,
			formatDurationShort(m.Latency.P95),
			m.RPS,
			formatDuration(result.Duration))
	}
	return verdict
}

func (c *Console) clearLive() {
	if c.liveLine {
		fmt.Fprint(c.writer, clearLine)
		c.liveLine = false
	}
}

func (c *Console) writeln(s string) {
	fmt.Fprintln(c.writer, s)
}

// renderProgressBar renders a fixed-width progress bar.
func renderProgressBar(progress float64, width int) string {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}

	filled := int(progress * float64(width))
	return "[" + strings.Repeat(progressFilled, filled) + strings.Repeat(progressEmpty, width-filled) + "]"
}

// formatDuration formats a wall-clock duration in a human-readable format.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %02ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
}

// formatDurationShort formats a latency in a short format.
func formatDurationShort(d time.Duration) string {
	if d < time.Microsecond {
		return "0ms"
	}
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	return fmt.Sprintf("%.1fm", d.Minutes())
}

// formatNumber formats a number with thousands separators.
func formatNumber(n int64) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}

	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}

	var result strings.Builder
	offset := len(str) % 3
	if offset > 0 {
		result.WriteString(str[:offset])
	}
	for i := offset; i < len(str); i += 3 {
		if result.Len() > 0 {
			result.WriteString(",")
		}
		result.WriteString(str[i : i+3])
	}
	return result.String()
}

// formatBytes formats a byte count in a human-readable unit.
func formatBytes(bytes int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
		tb = gb * 1024
	)

	switch {
	case bytes >= tb:
		return fmt.Sprintf("%.2f TB", float64(bytes)/tb)
	case bytes >= gb:
		return fmt.Sprintf("%.2f GB", float64(bytes)/gb)
	case bytes >= mb:
		return fmt.Sprintf("%.2f MB", float64(bytes)/mb)
	case bytes >= kb:
		return fmt.Sprintf("%.2f KB", float64(bytes)/kb)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
