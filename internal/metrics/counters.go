package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DeploymentResults counts terminal deployment outcomes by result.
	DeploymentResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deployops_deployment_results_total",
		Help: "Terminal deployment results by outcome (success, rollback, failed)",
	}, []string{"result"})

	// CanaryReverts counts canary rollouts aborted by a weight revert.
	CanaryReverts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deployops_canary_reverts_total",
		Help: "Canary rollouts reverted to 0% after a metrics breach",
	})
)
