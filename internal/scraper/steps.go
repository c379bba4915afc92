package scraper

import (
	"context"
	"fmt"
	"time"
)

// Step is one named page interaction. Errors returned by Run are wrapped
// with the step name so a failure points at the exact interaction.
type Step struct {
	Name string
	Run  func(ctx context.Context, d Driver) error
}

// StepTimeouts bounds each phase of a ClickStep.
type StepTimeouts struct {
	Click   time.Duration // wait for the target to become clickable
	Settle  time.Duration // pause after the click
	Visible time.Duration // wait for the confirm selector
}

// ClickStep clicks selector, lets the page settle, then waits for confirm
// (when set) to become visible.
func ClickStep(name, selector, confirm string, t StepTimeouts) Step {
	return Step{
		Name: name,
		Run: func(ctx context.Context, d Driver) error {
			if err := d.Click(ctx, selector, t.Click); err != nil {
				return fmt.Errorf("click %s: %w", selector, err)
			}
			if err := Pause(ctx, t.Settle); err != nil {
				return err
			}
			if confirm == "" {
				return nil
			}
			if err := d.WaitVisible(ctx, confirm, t.Visible); err != nil {
				return fmt.Errorf("confirm %s: %w", confirm, err)
			}
			return nil
		},
	}
}

// RunSteps executes steps in order and stops at the first failure.
func RunSteps(ctx context.Context, d Driver, steps []Step) error {
	for _, s := range steps {
		if err := s.Run(ctx, d); err != nil {
			return fmt.Errorf("step %q: %w", s.Name, err)
		}
	}
	return nil
}

// Pause sleeps for d or until ctx is done.
func Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
