package e2e

import (
	"github.com/cucumber/godog"

	"warranty/e2e/steps/certificates"
	"warranty/e2e/steps/common"
)

// RegisterSteps wires every step package into a scenario.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	certificates.RegisterSteps(ctx, tc)
}
