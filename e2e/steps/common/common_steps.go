package common

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string, headers map[string]string) error
	POST(path string) error
	GetLastStatus() int
	GetResponseField(field string) (any, error)
	GetOwnerToken() string
	SetAccessToken(token string)
}

// RegisterSteps registers authentication, request and assertion steps
// shared by every feature.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^I am authenticated as the owner$`, steps.authenticateAsOwner)
	ctx.Step(`^I am not authenticated$`, steps.notAuthenticated)
	ctx.Step(`^I use the token "([^"]*)"$`, steps.useToken)

	ctx.Step(`^I GET "([^"]*)"$`, steps.get)
	ctx.Step(`^I POST to "([^"]*)"$`, steps.post)

	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, steps.fieldShouldEqual)
	ctx.Step(`^the response field "([^"]*)" should be at least (\d+)$`, steps.fieldShouldBeAtLeast)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) authenticateAsOwner(ctx context.Context) error {
	s.tc.SetAccessToken(s.tc.GetOwnerToken())
	return nil
}

func (s *commonSteps) notAuthenticated(ctx context.Context) error {
	s.tc.SetAccessToken("")
	return nil
}

func (s *commonSteps) useToken(ctx context.Context, token string) error {
	s.tc.SetAccessToken(token)
	return nil
}

func (s *commonSteps) get(ctx context.Context, path string) error {
	return s.tc.GET(path, nil)
}

func (s *commonSteps) post(ctx context.Context, path string) error {
	return s.tc.POST(path)
}

func (s *commonSteps) statusShouldBe(ctx context.Context, expected int) error {
	if got := s.tc.GetLastStatus(); got != expected {
		return fmt.Errorf("expected status %d, got %d", expected, got)
	}
	return nil
}

func (s *commonSteps) fieldShouldEqual(ctx context.Context, field, expected string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != expected {
		return fmt.Errorf("expected %s to be %q, got %q", field, expected, got)
	}
	return nil
}

func (s *commonSteps) fieldShouldBeAtLeast(ctx context.Context, field string, min int) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	n, ok := v.(float64)
	if !ok {
		return fmt.Errorf("%s is not a number: %v", field, v)
	}
	if int(n) < min {
		return fmt.Errorf("expected %s >= %s, got %v", field, strconv.Itoa(min), n)
	}
	return nil
}
