package workflow

import (
	"time"

	"go.temporal.io/sdk/testsuite"

	"github.com/yukyudata/deployops/internal/activity"
)

// registerActivities registers activity structs with the test workflow
// environment so parameter and return types deserialize correctly. All
// activities are mocked via OnActivity in the tests themselves; the
// registration only provides type information.
func registerActivities(env *testsuite.TestWorkflowEnvironment) {
	env.RegisterActivity(&activity.Record{})
	env.RegisterActivity(&activity.Preflight{})
	env.RegisterActivity(&activity.Backup{})
	env.RegisterActivity(&activity.Deploy{})
	env.RegisterActivity(&activity.Health{})
	env.RegisterActivity(&activity.Smoke{})
	env.RegisterActivity(&activity.Slot{})
	env.RegisterActivity(&activity.Traffic{})
	env.RegisterActivity(&activity.Migrate{})
	env.RegisterActivity(&activity.Notify{})
}

// deployTestParams returns a baseline blue-green parameter set. Tests
// override the flags they exercise.
func deployTestParams() DeployParams {
	return DeployParams{
		DeploymentID:        "deploy-20250101-120000",
		Version:             "1.4.2",
		Image:               "yukyudata/app:1.4.2",
		Environment:         "production",
		Strategy:            "blue-green",
		AppHost:             "127.0.0.1",
		MigrateCommand:      []string{"python", "manage_db.py", "migrate"},
		HealthCheckRetries:  10,
		HealthCheckInterval: 5 * time.Second,
		DecommissionDelay:   5 * time.Minute,
	}
}

func canaryTestParams() CanaryDeployParams {
	return CanaryDeployParams{
		DeploymentID:        "deploy-20250101-130000",
		Version:             "1.4.3",
		Image:               "yukyudata/app:1.4.3",
		Environment:         "production",
		AppHost:             "127.0.0.1",
		HealthCheckRetries:  10,
		HealthCheckInterval: 5 * time.Second,
		DecommissionDelay:   5 * time.Minute,
	}
}
