package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/muurk/lorasim/internal/provision"
)

// Runner prints a non-interactive wizard run: header, live step and outcome
// lines, then a result box.
type Runner struct {
	mu       sync.Mutex // Serializes observer output
	printer  *Printer
	header   *Header
	progress *Progress
	start    time.Time

	// Verbose also prints each entity as discovery resolves it
	Verbose bool
}

// NewRunner creates a runner writing to w
func NewRunner(w io.Writer, title, command string, params ...Detail) *Runner {
	p := NewPrinter(w)
	return &Runner{
		printer:  p,
		header:   NewHeader(title, command, params...).SetWidth(p.Width()),
		progress: NewWizardProgress().SetWidth(p.Width()),
	}
}

// Start prints the header and starts the clock
func (r *Runner) Start() {
	r.start = time.Now()
	r.printer.Println(r.header.Render())
	r.printer.Newline()
}

// Printer returns the runner's printer
func (r *Runner) Printer() *Printer {
	return r.printer
}

// Observer returns a provision.Observer that prints events as they happen.
func (r *Runner) Observer() provision.Observer {
	return func(ev provision.Event) {
		r.mu.Lock()
		defer r.mu.Unlock()

		switch ev.Type {
		case provision.EventStep:
			n := int(ev.Step) + 1
			r.progress.UpdateStep(n, FromWizard(ev.Status), "")
			if ev.Status == provision.StepPassed || ev.Status == provision.StepFailed {
				r.printer.Println(r.progress.RenderStepLine(r.progress.Steps[n-1]))
			}

		case provision.EventValidation:
			if ev.Validation != nil && !ev.Validation.Success() {
				r.printer.Println(RenderValidation(*ev.Validation))
			}

		case provision.EventEntity:
			if r.Verbose && ev.Resolution != nil {
				marker, style := EntityStatusStyle(ev.Resolution.Status)
				r.printer.Println(fmt.Sprintf("      %s %s %s", style.Render(marker), ev.Resolution.LocalID, StepNoteStyle.Render(ev.Resolution.Status.String())))
			}

		case provision.EventOutcome:
			if ev.Outcome != nil {
				r.printer.Println("    " + RenderOutcome(*ev.Outcome))
			}
		}
	}
}

// Finish prints the final result box. err is a run-level failure (for
// example validation); per-entity failures come from the summary.
func (r *Runner) Finish(sum *provision.Summary, err error, troubleshooting []string) {
	elapsed := time.Since(r.start).Round(time.Millisecond).String()

	var res *Result
	switch {
	case err != nil:
		res = NewFailureResult(r.header.Title+" failed", err, troubleshooting)
	case sum == nil:
		res = NewWarningResult("Nothing was registered")
	default:
		res = SummaryResult(sum)
	}
	res.AddDetail("Duration", elapsed)
	r.printer.PrintResult(res)
}
