package platform

import "time"

// DeploymentID builds a timestamped deployment identifier like
// deploy-20260827-154530. The timestamp keeps IDs sortable and lines up with
// backup artifact suffixes and log file names.
func DeploymentID(now time.Time) string {
	return "deploy-" + now.UTC().Format("20060102-150405")
}
