package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestProgress_UpdateStep(t *testing.T) {
	p := NewProgress("List images", "Validate", "Finish")

	p.UpdateStep(1, StepRunning, "")
	if p.Current != 1 {
		t.Errorf("Current = %d, want 1", p.Current)
	}
	if p.Percent != 0 {
		t.Errorf("Percent = %v, want 0 while running", p.Percent)
	}

	p.UpdateStep(1, StepComplete, "2 images")
	p.UpdateStep(2, StepSkipped, "")
	if got, want := p.Percent, 2.0/3.0; got != want {
		t.Errorf("Percent = %v, want %v", got, want)
	}

	// Out of range steps are ignored
	p.UpdateStep(0, StepFailed, "")
	p.UpdateStep(4, StepFailed, "")
	for _, s := range p.Steps {
		if s.Status == StepFailed {
			t.Errorf("step %d marked failed by out of range update", s.Number)
		}
	}
}

func TestProgress_RenderStepLine(t *testing.T) {
	p := NewProgress("List images", "Validate")
	p.UpdateStep(1, StepComplete, "2 images")

	line := p.RenderStepLine(p.Steps[0])
	for _, want := range []string{"[1/2]", "List images", StepMarkerComplete, "(2 images)"} {
		if !strings.Contains(line, want) {
			t.Errorf("step line %q missing %q", line, want)
		}
	}

	line = p.RenderStepLine(p.Steps[1])
	if !strings.Contains(line, StepMarkerPending) {
		t.Errorf("pending step line %q missing marker", line)
	}
}

func TestResult_Render(t *testing.T) {
	success := NewSuccessResult("Check complete", []Detail{{"Ceph", "14"}}).SetWidth(80).Render()
	for _, want := range []string{"SUCCESS", "Check complete", "Ceph:", "14"} {
		if !strings.Contains(success, want) {
			t.Errorf("success box missing %q:\n%s", want, success)
		}
	}

	failure := NewFailureResult("Check failed", errors.New("no images"), []string{"Copy an ISO"}).
		SetWidth(80).Render()
	for _, want := range []string{"FAILED", "no images", "Troubleshooting:", "Copy an ISO"} {
		if !strings.Contains(failure, want) {
			t.Errorf("failure box missing %q:\n%s", want, failure)
		}
	}

	warning := NewWarningResult("Partial", nil).AddDetail("Images", "0").SetWidth(80).Render()
	if !strings.Contains(warning, "WARNING") || !strings.Contains(warning, "Images:") {
		t.Errorf("warning box incomplete:\n%s", warning)
	}
}

func TestHeader_Render(t *testing.T) {
	h := NewHeader("Environment check", "ceph-env check", []Detail{{"Source", "ISO"}}).SetWidth(80)
	out := h.String()
	for _, want := range []string{"ENVIRONMENT CHECK", "ceph-env check", "Source:", "ISO"} {
		if !strings.Contains(out, want) {
			t.Errorf("header missing %q:\n%s", want, out)
		}
	}
}

func TestRunner_Run(t *testing.T) {
	var buf bytes.Buffer
	r := NewRunner(RunnerConfig{
		Title:     "Environment check",
		Command:   "ceph-env check",
		StepNames: []string{"List images", "Validate"},
		Output:    &buf,
	}).SetWidth(80)

	err := r.Run(func(onStep StepCallback) ([]Detail, error) {
		onStep(1, StepRunning, "")
		onStep(1, StepComplete, "1 image")
		onStep(2, StepComplete, "")
		return []Detail{{"Ceph", "14"}}, nil
	}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"ENVIRONMENT CHECK", "(1 image)", "SUCCESS", "Ceph:", "Duration:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if r.Progress().Percent != 1 {
		t.Errorf("Percent = %v, want 1", r.Progress().Percent)
	}
}

func TestRunner_RunFailure(t *testing.T) {
	var buf bytes.Buffer
	r := NewRunner(RunnerConfig{
		Title:     "Environment check",
		StepNames: []string{"Validate"},
		Output:    &buf,
		Quiet:     true,
	}).SetWidth(80)

	wantErr := errors.New("credentials missing")
	err := r.Run(func(onStep StepCallback) ([]Detail, error) {
		onStep(1, StepFailed, "")
		return nil, wantErr
	}, func(err error) []string { return []string{"Enter credentials"} })
	if !errors.Is(err, wantErr) {
		t.Fatalf("Run() error = %v, want %v", err, wantErr)
	}

	out := buf.String()
	if strings.Contains(out, "ENVIRONMENT CHECK") {
		t.Error("quiet runner printed the header")
	}
	for _, want := range []string{"FAILED", "credentials missing", "Enter credentials"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	p.PrintLines("one", "two")
	p.PrintSuccess("Done", []Detail{{"Images", "2"}})

	out := buf.String()
	if !strings.HasPrefix(out, "one\ntwo\n") {
		t.Errorf("PrintLines output = %q", out)
	}
	if !strings.Contains(out, "Images:") {
		t.Errorf("success box missing detail:\n%s", out)
	}
}

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "admin", false},
		{"empty", "", true},
		{"blank", "   ", true},
		{"max length", strings.Repeat("a", 20), false},
		{"too long", strings.Repeat("a", 21), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateUsername(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateUsername(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestClampWidth(t *testing.T) {
	if got := clampWidth(10, nil); got != MinTerminalWidth {
		t.Errorf("clampWidth(10) = %d", got)
	}
	if got := clampWidth(500, nil); got != MaxContentWidth {
		t.Errorf("clampWidth(500) = %d", got)
	}
	if got := clampWidth(80, errors.New("not a tty")); got != MinTerminalWidth {
		t.Errorf("clampWidth on error = %d", got)
	}
	if got := clampWidth(80, nil); got != 80 {
		t.Errorf("clampWidth(80) = %d", got)
	}
}
