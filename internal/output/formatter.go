package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/bscott/mailsync/internal/mailerr"
)

// ANSI color codes
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
	Gray   = "\033[90m"
)

type Formatter struct {
	JSON    bool
	Quiet   bool
	NoColor bool
	Writer  io.Writer
	Errors  io.Writer
}

func New(jsonOutput, quiet, noColor bool) *Formatter {
	return &Formatter{
		JSON:    jsonOutput,
		Quiet:   quiet,
		NoColor: noColor,
		Writer:  os.Stdout,
		Errors:  os.Stderr,
	}
}

// Color wraps text in ANSI color codes if colors are enabled
func (f *Formatter) Color(color, text string) string {
	if f.NoColor || f.JSON {
		return text
	}
	return color + text + Reset
}

func (f *Formatter) Bold(text string) string {
	return f.Color(Bold, text)
}

func (f *Formatter) MutedText(text string) string {
	return f.Color(Gray, text)
}

func (f *Formatter) Printf(format string, args ...interface{}) {
	fmt.Fprintf(f.Writer, format, args...)
}

func (f *Formatter) PrintJSON(v interface{}) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type JSONResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Kind    string      `json:"kind,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Success wraps data in the JSON envelope. In text mode it prints nothing.
func (f *Formatter) Success(data interface{}) error {
	if f.JSON {
		return f.PrintJSON(JSONResponse{
			Success: true,
			Data:    data,
		})
	}
	return nil
}

func (f *Formatter) PrintSuccess(message string) {
	if f.Quiet && !f.JSON {
		return
	}
	if f.JSON {
		f.PrintJSON(JSONResponse{Success: true, Message: message})
		return
	}
	fmt.Fprintln(f.Writer, f.Color(Green, "✓")+" "+message)
}

// PrintError reports err in the selected format. JSON errors carry the
// error kind so scripts can tell authentication failures from the rest.
func (f *Formatter) PrintError(err error) {
	if f.JSON {
		resp := JSONResponse{Error: err.Error()}
		if kind := mailerr.KindOf(err); kind != mailerr.Unknown {
			resp.Kind = kind.String()
		}
		f.PrintJSON(resp)
		return
	}
	fmt.Fprintf(f.Errors, "%s %s\n", f.Color(Red, "Error:"), err)
}

type TableWriter struct {
	w *tabwriter.Writer
}

func (f *Formatter) NewTable(headers ...string) *TableWriter {
	tw := &TableWriter{
		w: tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0),
	}
	if len(headers) > 0 {
		bold := make([]string, len(headers))
		for i, h := range headers {
			bold[i] = f.Bold(h)
		}
		fmt.Fprintln(tw.w, strings.Join(bold, "\t"))
	}
	return tw
}

func (t *TableWriter) AddRow(values ...string) {
	fmt.Fprintln(t.w, strings.Join(values, "\t"))
}

func (t *TableWriter) Flush() {
	t.w.Flush()
}

// FormatSize returns a human-readable size string
func FormatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// Truncate shortens s to max runes, marking the cut with "...".
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
