package ui

import (
	"fmt"
	"io"
	"os"
	"time"
)

// RunnerConfig holds configuration for a multi-step command
type RunnerConfig struct {
	Title     string   // Command title (e.g., "Environment Check")
	Command   string   // Full command (e.g., "ceph-env check")
	Params    []Detail // Parameters to display in header
	StepNames []string // Names for each step
	Output    io.Writer
	Quiet     bool // Skip header and step lines, print only the result
}

// Runner orchestrates the header, step progress and result output of a
// command.
type Runner struct {
	config    RunnerConfig
	progress  *Progress
	output    io.Writer
	startTime time.Time
	width     int
}

// Operation is the work a Runner executes. It reports progress through
// onStep and returns the details shown in the success box.
type Operation func(onStep StepCallback) ([]Detail, error)

// FailureHints maps an operation error to troubleshooting tips.
type FailureHints func(err error) []string

// NewRunner creates a new runner
func NewRunner(config RunnerConfig) *Runner {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	return &Runner{
		config:   config,
		progress: NewProgress(config.StepNames...),
		output:   config.Output,
		width:    GetTerminalWidth(),
	}
}

// SetWidth overrides the detected terminal width
func (r *Runner) SetWidth(width int) *Runner {
	r.width = width
	return r
}

// Progress returns the step tracker
func (r *Runner) Progress() *Progress {
	return r.progress
}

// Run executes the operation, printing each finished step and then a success
// or failure box.
func (r *Runner) Run(operation Operation, hints FailureHints) error {
	r.startTime = time.Now()

	if !r.config.Quiet {
		header := NewHeader(r.config.Title, r.config.Command, r.config.Params).SetWidth(r.width)
		r.println(header.Render())
		r.println("")
	}

	details, err := operation(r.onStep)
	duration := time.Since(r.startTime).Round(time.Millisecond)

	r.println("")
	if err != nil {
		var tips []string
		if hints != nil {
			tips = hints(err)
		}
		r.println(NewFailureResult(r.config.Title+" failed", err, tips).SetWidth(r.width).Render())
		return err
	}

	details = append(details, Detail{Key: "Duration", Value: duration.String()})
	r.println(NewSuccessResult(r.config.Title+" complete", details).SetWidth(r.width).Render())
	return nil
}

func (r *Runner) onStep(stepNumber int, status StepStatus, message string) {
	r.progress.UpdateStep(stepNumber, status, message)
	if r.config.Quiet || stepNumber < 1 || stepNumber > r.progress.Total() {
		return
	}
	// Running steps are overwritten when they finish
	line := r.progress.RenderStepLine(r.progress.Steps[stepNumber-1])
	if status == StepRunning {
		_, _ = fmt.Fprint(r.output, line+"\r")
		return
	}
	r.println(line)
}

func (r *Runner) println(s string) {
	_, _ = fmt.Fprintln(r.output, s)
}
