// Package handler contains the HTTP handlers for the deployment API.
package handler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/yukyudata/deployops/internal/api/request"
	"github.com/yukyudata/deployops/internal/api/response"
	"github.com/yukyudata/deployops/internal/config"
	"github.com/yukyudata/deployops/internal/model"
	"github.com/yukyudata/deployops/internal/platform"
	"github.com/yukyudata/deployops/internal/store"
	"github.com/yukyudata/deployops/internal/workflow"
)

// TaskQueue is the Temporal task queue shared by the API and the worker.
const TaskQueue = "deployops-tasks"

// Deployment handles deployment CRUD and the workflows behind it.
type Deployment struct {
	store *store.DeploymentStore
	tc    temporalclient.Client
	cfg   *config.Config
}

func NewDeployment(s *store.DeploymentStore, tc temporalclient.Client, cfg *config.Config) *Deployment {
	return &Deployment{store: s, tc: tc, cfg: cfg}
}

// imageRef builds the image reference for a version, honoring an explicit
// override from the request.
func (h *Deployment) imageRef(override, version string) string {
	if override != "" {
		return override
	}
	image := fmt.Sprintf("%s:%s", h.cfg.AppImage, version)
	if h.cfg.RegistryURL != "" {
		image = h.cfg.RegistryURL + "/" + image
	}
	return image
}

func (h *Deployment) environment(override string) string {
	if override != "" {
		return override
	}
	return h.cfg.DeployEnv
}

func (h *Deployment) slotVolumes() []string {
	return []string{filepath.Dir(h.cfg.AppDatabasePath) + ":/app/data"}
}

// deployTimeout bounds a whole blue-green run. The decommission delay is
// deliberate sleep after the release is already live, so it sits on top of
// the configured deploy timeout.
func (h *Deployment) deployTimeout() time.Duration {
	return h.cfg.DeployTimeout + h.cfg.DecommissionDelay
}

// canaryTimeout additionally allows for the rollout's fixed observation
// windows, which a canary legitimately spends sleeping.
func (h *Deployment) canaryTimeout() time.Duration {
	t := h.deployTimeout()
	for _, phase := range model.CanaryPhases {
		t += phase.Wait
	}
	return t
}

// Create starts a blue-green deployment workflow and returns 202 with the
// deployment ID.
func (h *Deployment) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateDeployment
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	deploymentID := platform.DeploymentID(time.Now())
	params := workflow.DeployParams{
		DeploymentID:        deploymentID,
		Version:             req.Version,
		Image:               h.imageRef(req.Image, req.Version),
		Environment:         h.environment(req.Environment),
		Strategy:            model.StrategyBlueGreen,
		SkipBackup:          req.SkipBackup,
		DryRun:              req.DryRun,
		AppHost:             h.cfg.AppHost,
		DockerNetwork:       h.cfg.DockerNetwork,
		Volumes:             h.slotVolumes(),
		MigrateCommand:      h.cfg.MigrateCommand,
		HealthCheckRetries:  h.cfg.HealthCheckRetries,
		HealthCheckInterval: h.cfg.HealthCheckInterval,
		DecommissionDelay:   h.cfg.DecommissionDelay,
	}

	_, err := h.tc.ExecuteWorkflow(r.Context(), temporalclient.StartWorkflowOptions{
		ID:                       deploymentID,
		TaskQueue:                TaskQueue,
		WorkflowExecutionTimeout: h.deployTimeout(),
	}, "DeployWorkflow", params)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, fmt.Sprintf("start deployment: %v", err))
		return
	}

	response.WriteJSON(w, http.StatusAccepted, map[string]string{
		"deployment_id": deploymentID,
		"strategy":      model.StrategyBlueGreen,
		"version":       req.Version,
	})
}

// CreateCanary starts a canary rollout workflow.
func (h *Deployment) CreateCanary(w http.ResponseWriter, r *http.Request) {
	var req request.CreateCanary
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	deploymentID := platform.DeploymentID(time.Now())
	params := workflow.CanaryDeployParams{
		DeploymentID:        deploymentID,
		Version:             req.Version,
		Image:               h.imageRef(req.Image, req.Version),
		Environment:         h.environment(req.Environment),
		AppHost:             h.cfg.AppHost,
		DockerNetwork:       h.cfg.DockerNetwork,
		Volumes:             h.slotVolumes(),
		HealthCheckRetries:  h.cfg.HealthCheckRetries,
		HealthCheckInterval: h.cfg.HealthCheckInterval,
		DecommissionDelay:   h.cfg.DecommissionDelay,
	}

	_, err := h.tc.ExecuteWorkflow(r.Context(), temporalclient.StartWorkflowOptions{
		ID:                       deploymentID,
		TaskQueue:                TaskQueue,
		WorkflowExecutionTimeout: h.canaryTimeout(),
	}, "CanaryDeployWorkflow", params)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, fmt.Sprintf("start canary: %v", err))
		return
	}

	response.WriteJSON(w, http.StatusAccepted, map[string]string{
		"deployment_id": deploymentID,
		"strategy":      model.StrategyCanary,
		"version":       req.Version,
	})
}

// List returns deployments newest-first with cursor pagination.
func (h *Deployment) List(w http.ResponseWriter, r *http.Request) {
	p := request.ParsePagination(r)

	deployments, hasMore, err := h.store.List(r.Context(), p.Limit, p.Cursor)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(deployments) > 0 {
		nextCursor = deployments[len(deployments)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, deployments, nextCursor, hasMore)
}

// Get returns one deployment by ID.
func (h *Deployment) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "deploymentID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, fmt.Sprintf("deployment %s not found", id))
		return
	}
	response.WriteJSON(w, http.StatusOK, d)
}

// Rollback starts a manual rollback workflow. With an explicit deployment ID
// it restores that run's backup; otherwise the most recent artifact.
func (h *Deployment) Rollback(w http.ResponseWriter, r *http.Request) {
	var req request.CreateRollback
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	backupPath := req.BackupPath
	if req.DeploymentID != "" && backupPath == "" {
		d, err := h.store.GetByID(r.Context(), req.DeploymentID)
		if err != nil {
			response.WriteError(w, http.StatusNotFound, fmt.Sprintf("deployment %s not found", req.DeploymentID))
			return
		}
		if d.BackupPath == "" {
			response.WriteError(w, http.StatusConflict,
				fmt.Sprintf("deployment %s has no backup artifact", req.DeploymentID))
			return
		}
		backupPath = d.BackupPath
	}

	rollbackID := platform.DeploymentID(time.Now()) + "-rollback"
	params := workflow.RollbackParams{
		DeploymentID:        rollbackID,
		BackupPath:          backupPath,
		AppHost:             h.cfg.AppHost,
		HealthCheckRetries:  h.cfg.HealthCheckRetries,
		HealthCheckInterval: h.cfg.HealthCheckInterval,
	}

	_, err := h.tc.ExecuteWorkflow(r.Context(), temporalclient.StartWorkflowOptions{
		ID:        rollbackID,
		TaskQueue: TaskQueue,
	}, "RollbackWorkflow", params)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, fmt.Sprintf("start rollback: %v", err))
		return
	}

	response.WriteJSON(w, http.StatusAccepted, map[string]string{
		"rollback_id": rollbackID,
		"backup_path": backupPath,
	})
}
