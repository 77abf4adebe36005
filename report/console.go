// Package report prints experiment output to a text console: data previews,
// the per-trial progress table, evaluation metrics and predictions.
package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// DefaultWidth is the console table width.
const DefaultWidth = 114

// Align is the horizontal alignment of a cell.
type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

// Column is one cell of a fixed-width row.
//
// Value may be a string, an int, a float64 or a time.Duration (rendered in
// seconds). Floats use Precision decimals; NaN renders as "NaN".
type Column struct {
	Label     string
	Value     any
	Width     int
	Precision int
	Align     Align
}

// FormatCell renders c padded to its width. Longer values are not cut.
func FormatCell(c Column) string {
	s := formatValue(c.Value, c.Precision)
	if c.Align == AlignRight {
		return fmt.Sprintf("%*s", c.Width, s)
	}
	return fmt.Sprintf("%-*s", c.Width, s)
}

// FormatRow joins cells with single spaces and pads the result to width,
// framed as "|...|". The same input always yields the same bytes.
func FormatRow(cols []Column, width int) string {
	cells := make([]string, len(cols))
	for i, c := range cols {
		cells[i] = FormatCell(c)
	}
	return frame(strings.Join(cells, " "), width)
}

// FormatHeader renders the column labels with the widths and alignment of a
// data row.
func FormatHeader(cols []Column, width int) string {
	hdr := make([]Column, len(cols))
	for i, c := range cols {
		hdr[i] = Column{Value: c.Label, Width: c.Width, Align: c.Align}
	}
	return FormatRow(hdr, width)
}

func frame(body string, width int) string {
	inner := width - 2
	if n := len([]rune(body)); n < inner {
		body += strings.Repeat(" ", inner-n)
	}
	return "|" + body + "|"
}

func formatValue(v any, precision int) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return formatFloat(x, precision)
	case time.Duration:
		return formatFloat(x.Seconds(), precision)
	case bool:
		return strconv.FormatBool(x)
	}
	return fmt.Sprint(v)
}

func formatFloat(f float64, precision int) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	return strconv.FormatFloat(f, 'f', precision, 64)
}

func percent(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	return strconv.FormatFloat(f*100, 'f', 2, 64) + "%"
}

// ANSI color sequences.
const (
	colorReset  = "\x1b[0m"
	colorYellow = "\x1b[33m"
	colorRed    = "\x1b[31m"
	colorGreen  = "\x1b[32m"
)

// Reporter writes formatted output to a console. It is not safe for
// concurrent use.
type Reporter struct {
	w     io.Writer
	width int
	color bool
	// current is the active color sequence, "" when none.
	current string
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithWidth sets the table width. Default DefaultWidth.
func WithWidth(n int) Option {
	return func(r *Reporter) { r.width = n }
}

// WithColor forces color on or off.
func WithColor(on bool) Option {
	return func(r *Reporter) { r.color = on }
}

// New creates a Reporter. Color is enabled only when w is a terminal; writes
// to a terminal go through go-colorable so escape sequences work on Windows.
func New(w io.Writer, opts ...Option) *Reporter {
	r := &Reporter{w: w, width: DefaultWidth}
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		r.w = colorable.NewColorable(f)
		r.color = true
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Width returns the table width.
func (r *Reporter) Width() int {
	return r.width
}

// withColor switches to color c for the duration of fn and then restores the
// previous color, whether or not fn or the switch itself failed.
func (r *Reporter) withColor(c string, fn func() error) (err error) {
	if !r.color {
		return fn()
	}
	prev := r.current
	defer func() {
		r.current = prev
		restore := prev
		if restore == "" {
			restore = colorReset
		}
		if _, rerr := io.WriteString(r.w, restore); rerr != nil && err == nil {
			err = rerr
		}
	}()
	r.current = c
	if _, err := io.WriteString(r.w, c); err != nil {
		return err
	}
	return fn()
}

func (r *Reporter) println(s string) error {
	_, err := io.WriteString(r.w, s+"\n")
	return err
}

func (r *Reporter) printf(format string, args ...any) error {
	_, err := fmt.Fprintf(r.w, format, args...)
	return err
}

// Banner prints lines in color followed by a rule of '#' as long as the
// longest line.
func (r *Reporter) Banner(lines ...string) error {
	longest := 0
	for _, l := range lines {
		if n := len([]rune(l)); n > longest {
			longest = n
		}
	}
	return r.withColor(colorYellow, func() error {
		if err := r.println(""); err != nil {
			return err
		}
		for _, l := range lines {
			if err := r.println(l); err != nil {
				return err
			}
		}
		return r.println(strings.Repeat("#", longest))
	})
}

// Row prints one fixed-width row.
func (r *Reporter) Row(cols []Column) error {
	return r.println(FormatRow(cols, r.width))
}

// Header prints the labels of cols as a fixed-width row.
func (r *Reporter) Header(cols []Column) error {
	return r.println(FormatHeader(cols, r.width))
}

// Error prints a line in red.
func (r *Reporter) Error(line string) error {
	return r.withColor(colorRed, func() error {
		return r.println(line)
	})
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	if n <= 3 {
		return string(rs[:n])
	}
	return string(rs[:n-3]) + "..."
}
