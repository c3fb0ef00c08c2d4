// Package report is the checking engine's downstream consumer: it
// writes the output.txt/output.json artifacts and the colorized console
// summary, and tracks whether the run's exit code should be non-zero.
// It never feeds back into checking decisions — internal/checker and
// internal/worker have no import of this package.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/term"

	"github.com/rohmanhakim/linkcheck/internal/checkresult"
)

// redirectText maps an HTTP redirect status code to the phrase the
// original linkcheck builder uses in both its console message and its
// output.txt entry.
func redirectText(code int) string {
	switch code {
	case 301:
		return "permanently"
	case 302:
		return "with Found"
	case 303:
		return "with See Other"
	case 307:
		return "temporarily"
	case 308:
		return "permanently"
	default:
		return "with unknown code"
	}
}

type linkstat struct {
	Filename string `json:"filename"`
	Lineno   int    `json:"lineno"`
	Status   string `json:"status"`
	Code     int    `json:"code"`
	URI      string `json:"uri"`
	Info     string `json:"info"`
	Text     string `json:"text,omitempty"`
}

// Writer owns the two output files for one run. It is not safe for
// concurrent use; the single goroutine draining internal/checker.Check's
// result channel (internal/cli's run) is its only expected caller.
type Writer struct {
	txt           *os.File
	jsonFile      *os.File
	color         bool
	brokenCount   int
	timedOutCount int
}

// New creates outputDir if needed and opens output.txt/output.json
// inside it, truncating any prior run's files.
func New(outputDir string) (*Writer, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("report: creating output dir: %w", err)
	}
	txt, err := os.Create(filepath.Join(outputDir, "output.txt"))
	if err != nil {
		return nil, fmt.Errorf("report: creating output.txt: %w", err)
	}
	jsonFile, err := os.Create(filepath.Join(outputDir, "output.json"))
	if err != nil {
		txt.Close()
		return nil, fmt.Errorf("report: creating output.json: %w", err)
	}
	return &Writer{
		txt:      txt,
		jsonFile: jsonFile,
		color:    term.IsTerminal(int(os.Stdout.Fd())),
	}, nil
}

// Write processes one terminal CheckResult: output.json always gets a
// line, output.txt gets one only for BROKEN, TIMEOUT and REDIRECTED, and
// a colorized one-line summary goes to stdout for everything except
// RATE_LIMITED/UNCHECKED, matching the original builder's console
// verbosity.
func (w *Writer) Write(result checkresult.CheckResult) error {
	stat := linkstat{
		Filename: result.Docname,
		Lineno:   result.Lineno,
		Status:   string(result.Status),
		Code:     result.Code,
		URI:      result.URI,
		Info:     result.Message,
	}
	if result.Status == checkresult.Redirected {
		stat.Text = redirectText(result.Code)
	}

	encoded, err := json.Marshal(stat)
	if err != nil {
		return fmt.Errorf("report: encoding linkstat: %w", err)
	}
	if _, err := fmt.Fprintf(w.jsonFile, "%s\n", encoded); err != nil {
		return fmt.Errorf("report: writing output.json: %w", err)
	}

	switch result.Status {
	case checkresult.Timeout:
		w.timedOutCount++
		if err := w.writeEntry("timeout", result); err != nil {
			return err
		}
		w.printf(colorRed, "timeout   %s - %s\n", result.URI, result.Message)
	case checkresult.Broken:
		w.brokenCount++
		if err := w.writeEntry("broken", result); err != nil {
			return err
		}
		w.printf(colorRed, "broken    %s - %s\n", result.URI, result.Message)
	case checkresult.Redirected:
		text := redirectText(result.Code)
		what := "redirected " + text
		if _, err := fmt.Fprintf(w.txt, "%s:%d: [%s] %s to %s\n", result.Docname, result.Lineno, what, result.URI, result.Message); err != nil {
			return fmt.Errorf("report: writing output.txt: %w", err)
		}
		color := colorPurple
		if result.Code == 307 {
			color = colorTurquoise
		}
		w.printf(color, "redirect  %s - %s to %s\n", result.URI, text, result.Message)
	case checkresult.Working:
		w.printf(colorGreen, "ok        %s%s\n", result.URI, result.Message)
	case checkresult.Ignored:
		msg := result.URI
		if result.Message != "" {
			msg = result.URI + ": " + result.Message
		}
		w.printf(colorGray, "-ignored- %s\n", msg)
	case checkresult.RateLimited, checkresult.Unchecked:
		// Not logged to the console or output.txt, matching the
		// original builder.
	}

	return nil
}

func (w *Writer) writeEntry(what string, result checkresult.CheckResult) error {
	_, err := fmt.Fprintf(w.txt, "%s:%d: [%s] %s: %s\n", result.Docname, result.Lineno, what, result.URI, result.Message)
	if err != nil {
		return fmt.Errorf("report: writing output.txt: %w", err)
	}
	return nil
}

// ExitCode reports the process exit code this run should use: non-zero
// when any BROKEN or TIMEOUT result was seen.
func (w *Writer) ExitCode() int {
	if w.brokenCount > 0 || w.timedOutCount > 0 {
		return 1
	}
	return 0
}

// Close flushes and closes both output files.
func (w *Writer) Close() error {
	jsonErr := w.jsonFile.Close()
	txtErr := w.txt.Close()
	if jsonErr != nil {
		return jsonErr
	}
	return txtErr
}

const (
	colorRed       = "31"
	colorGreen     = "32"
	colorPurple    = "35"
	colorTurquoise = "36"
	colorGray      = "90"
)

func (w *Writer) printf(color, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if !w.color {
		fmt.Print(msg)
		return
	}
	fmt.Printf("\x1b[%sm%s\x1b[0m", color, msg)
}
