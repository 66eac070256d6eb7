package common

import (
	"context"
	"fmt"
	"time"

	"github.com/cucumber/godog"
)

// TestContext is the part of the scenario context the generic steps need.
type TestContext interface {
	StatusCode() int
	ResponseField(field string) (any, error)
	Advance(d time.Duration)
}

// RegisterSteps registers response assertions and clock control.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.responseFieldShouldBe)
	ctx.Step(`^the error should be "([^"]*)" with description "([^"]*)"$`, steps.errorShouldBe)
	ctx.Step(`^(\d+) days pass$`, steps.daysPass)
	ctx.Step(`^(\d+) seconds? pass(?:es)?$`, steps.secondsPass)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) responseStatusShouldBe(_ context.Context, want int) error {
	if got := s.tc.StatusCode(); got != want {
		return fmt.Errorf("expected status %d, got %d", want, got)
	}
	return nil
}

func (s *commonSteps) responseFieldShouldBe(_ context.Context, field, want string) error {
	v, err := s.tc.ResponseField(field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != want {
		return fmt.Errorf("expected %s=%q, got %q", field, want, got)
	}
	return nil
}

func (s *commonSteps) errorShouldBe(ctx context.Context, code, description string) error {
	if err := s.responseFieldShouldBe(ctx, "error", code); err != nil {
		return err
	}
	return s.responseFieldShouldBe(ctx, "error_description", description)
}

func (s *commonSteps) daysPass(_ context.Context, days int) error {
	s.tc.Advance(time.Duration(days) * 24 * time.Hour)
	return nil
}

func (s *commonSteps) secondsPass(_ context.Context, seconds int) error {
	s.tc.Advance(time.Duration(seconds) * time.Second)
	return nil
}
