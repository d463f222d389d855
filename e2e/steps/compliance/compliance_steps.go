package compliance

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string) error
	GetLastStatus() int
	GetResponseField(field string) (any, error)
}

// RegisterSteps registers compliance-report step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &complianceSteps{tc: tc}

	ctx.Step(`^sample events have been generated$`, steps.generateSamples)
	ctx.Step(`^every item in "([^"]*)" should have "([^"]*)" equal to "([^"]*)"$`, steps.everyItemShouldHave)
	ctx.Step(`^"([^"]*)" should contain at most (\d+) items$`, steps.atMostItems)
}

type complianceSteps struct {
	tc TestContext
}

func (s *complianceSteps) generateSamples(ctx context.Context) error {
	if err := s.tc.POST("/compliance/demo/generate-sample-events"); err != nil {
		return err
	}
	if status := s.tc.GetLastStatus(); status != 200 {
		return fmt.Errorf("generate sample events: status %d", status)
	}
	return nil
}

func (s *complianceSteps) items(field string) ([]any, error) {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return nil, err
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s is not a list", field)
	}
	return items, nil
}

func (s *complianceSteps) everyItemShouldHave(ctx context.Context, field, key, expected string) error {
	items, err := s.items(field)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return fmt.Errorf("%s is empty", field)
	}
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return fmt.Errorf("%s[%d] is not an object", field, i)
		}
		if got := fmt.Sprint(obj[key]); got != expected {
			return fmt.Errorf("%s[%d].%s = %q, want %q", field, i, key, got, expected)
		}
	}
	return nil
}

func (s *complianceSteps) atMostItems(ctx context.Context, field string, max int) error {
	items, err := s.items(field)
	if err != nil {
		return err
	}
	if len(items) > max {
		return fmt.Errorf("%s has %d items, want at most %d", field, len(items), max)
	}
	return nil
}
