package e2e

import (
	"github.com/cucumber/godog"

	"pedcare/e2e/steps/common"
	"pedcare/e2e/steps/compliance"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (authentication, generic requests, assertions)
	common.RegisterSteps(ctx, tc)

	// Register compliance report steps
	compliance.RegisterSteps(ctx, tc)
}
