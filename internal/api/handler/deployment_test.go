package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	temporalclient "go.temporal.io/sdk/client"
	temporalmocks "go.temporal.io/sdk/mocks"

	"github.com/yukyudata/deployops/internal/config"
	"github.com/yukyudata/deployops/internal/model"
	"github.com/yukyudata/deployops/internal/store"
	"github.com/yukyudata/deployops/internal/workflow"
)

func testConfig() *config.Config {
	return &config.Config{
		DeployEnv:           "production",
		AppImage:            "yukyudata/app",
		AppHost:             "127.0.0.1",
		AppDatabasePath:     "/var/lib/yukyudata/yukyu.db",
		HealthCheckRetries:  10,
		HealthCheckInterval: 5 * time.Second,
		DeployTimeout:       30 * time.Minute,
		DecommissionDelay:   5 * time.Minute,
	}
}

func newDeploymentHandler(db store.DB, tc temporalclient.Client) *Deployment {
	return NewDeployment(store.NewDeploymentStore(db), tc, testConfig())
}

// scanDeployment writes d into the 15 scan destinations of a deployment row.
func scanDeployment(d model.Deployment) func(dest ...any) error {
	return func(dest ...any) error {
		*(dest[0].(*string)) = d.ID
		*(dest[1].(*string)) = d.Version
		*(dest[2].(*string)) = d.Environment
		*(dest[3].(*string)) = d.Strategy
		*(dest[4].(*string)) = d.TargetSlot
		*(dest[5].(*string)) = d.Phase
		if d.Result != "" {
			result := d.Result
			*(dest[6].(**string)) = &result
		}
		*(dest[7].(**string)) = d.ResultNote
		*(dest[8].(*string)) = d.BackupPath
		*(dest[9].(*bool)) = d.SkipBackup
		*(dest[10].(*bool)) = d.DryRun
		*(dest[11].(*time.Time)) = d.StartedAt
		*(dest[12].(**time.Time)) = d.CompletedAt
		*(dest[13].(*time.Time)) = d.CreatedAt
		*(dest[14].(*time.Time)) = d.UpdatedAt
		return nil
	}
}

// --- Create ---

func TestDeploymentCreate_InvalidJSON(t *testing.T) {
	h := newDeploymentHandler(&handlerMockDB{}, &temporalmocks.Client{})
	rec := httptest.NewRecorder()
	r := newRequestRaw(http.MethodPost, "/deployments", "{bad json")

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "invalid JSON")
}

func TestDeploymentCreate_MissingVersion(t *testing.T) {
	h := newDeploymentHandler(&handlerMockDB{}, &temporalmocks.Client{})
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/deployments", map[string]any{})

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "validation error")
}

func TestDeploymentCreate_InvalidVersion(t *testing.T) {
	h := newDeploymentHandler(&handlerMockDB{}, &temporalmocks.Client{})
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/deployments", map[string]any{
		"version": "has spaces",
	})

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeploymentCreate_InvalidEnvironment(t *testing.T) {
	h := newDeploymentHandler(&handlerMockDB{}, &temporalmocks.Client{})
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/deployments", map[string]any{
		"version":     "1.4.2",
		"environment": "sandbox",
	})

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeploymentCreate_StartsWorkflow(t *testing.T) {
	tc := &temporalmocks.Client{}
	h := newDeploymentHandler(&handlerMockDB{}, tc)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/deployments", map[string]any{
		"version": "1.4.2",
	})

	wfRun := &temporalmocks.WorkflowRun{}
	tc.On("ExecuteWorkflow", mock.Anything,
		mock.MatchedBy(func(opts temporalclient.StartWorkflowOptions) bool {
			return opts.TaskQueue == TaskQueue && opts.ID != "" &&
				opts.WorkflowExecutionTimeout == 35*time.Minute
		}),
		"DeployWorkflow",
		mock.MatchedBy(func(p workflow.DeployParams) bool {
			return p.Version == "1.4.2" &&
				p.Image == "yukyudata/app:1.4.2" &&
				p.Environment == "production" &&
				p.Strategy == model.StrategyBlueGreen &&
				!p.SkipBackup && !p.DryRun
		}),
	).Return(wfRun, nil)

	h.Create(rec, r)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["deployment_id"])
	assert.Equal(t, model.StrategyBlueGreen, body["strategy"])
	assert.Equal(t, "1.4.2", body["version"])
	tc.AssertExpectations(t)
}

func TestDeploymentCreate_ImageOverride(t *testing.T) {
	tc := &temporalmocks.Client{}
	h := newDeploymentHandler(&handlerMockDB{}, tc)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/deployments", map[string]any{
		"version":     "1.4.2",
		"image":       "registry.internal/yukyudata/app:1.4.2-hotfix",
		"skip_backup": true,
	})

	wfRun := &temporalmocks.WorkflowRun{}
	tc.On("ExecuteWorkflow", mock.Anything, mock.Anything, "DeployWorkflow",
		mock.MatchedBy(func(p workflow.DeployParams) bool {
			return p.Image == "registry.internal/yukyudata/app:1.4.2-hotfix" && p.SkipBackup
		}),
	).Return(wfRun, nil)

	h.Create(rec, r)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	tc.AssertExpectations(t)
}

func TestDeploymentCreate_TemporalDown(t *testing.T) {
	tc := &temporalmocks.Client{}
	h := newDeploymentHandler(&handlerMockDB{}, tc)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/deployments", map[string]any{
		"version": "1.4.2",
	})

	tc.On("ExecuteWorkflow", mock.Anything, mock.Anything, "DeployWorkflow", mock.Anything).
		Return(nil, errors.New("temporal down"))

	h.Create(rec, r)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "start deployment")
}

// --- CreateCanary ---

func TestDeploymentCreateCanary_StartsWorkflow(t *testing.T) {
	tc := &temporalmocks.Client{}
	h := newDeploymentHandler(&handlerMockDB{}, tc)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/deployments/canary", map[string]any{
		"version": "1.5.0",
	})

	wfRun := &temporalmocks.WorkflowRun{}
	// 30m deploy timeout + 5m decommission delay + 45m of observation windows.
	tc.On("ExecuteWorkflow", mock.Anything,
		mock.MatchedBy(func(opts temporalclient.StartWorkflowOptions) bool {
			return opts.WorkflowExecutionTimeout == 80*time.Minute
		}),
		"CanaryDeployWorkflow",
		mock.MatchedBy(func(p workflow.CanaryDeployParams) bool {
			return p.Version == "1.5.0" && p.Image == "yukyudata/app:1.5.0"
		}),
	).Return(wfRun, nil)

	h.CreateCanary(rec, r)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, model.StrategyCanary, body["strategy"])
	tc.AssertExpectations(t)
}

func TestDeploymentCreateCanary_MissingVersion(t *testing.T) {
	h := newDeploymentHandler(&handlerMockDB{}, &temporalmocks.Client{})
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/deployments/canary", map[string]any{})

	h.CreateCanary(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- Get ---

func TestDeploymentGet_EmptyID(t *testing.T) {
	h := newDeploymentHandler(&handlerMockDB{}, &temporalmocks.Client{})
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodGet, "/deployments/", nil)
	r = withChiURLParam(r, "deploymentID", "")

	h.Get(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "missing required ID")
}

func TestDeploymentGet_NotFound(t *testing.T) {
	db := &handlerMockDB{}
	h := newDeploymentHandler(db, &temporalmocks.Client{})
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodGet, "/deployments/deploy-missing", nil)
	r = withChiURLParam(r, "deploymentID", "deploy-missing")

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanFunc: func(dest ...any) error { return errors.New("no rows in result set") }})

	h.Get(rec, r)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "deploy-missing")
}

func TestDeploymentGet_Found(t *testing.T) {
	db := &handlerMockDB{}
	h := newDeploymentHandler(db, &temporalmocks.Client{})
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodGet, "/deployments/deploy-20250101-120000", nil)
	r = withChiURLParam(r, "deploymentID", "deploy-20250101-120000")

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanFunc: scanDeployment(model.Deployment{
			ID:       "deploy-20250101-120000",
			Version:  "1.4.2",
			Strategy: model.StrategyBlueGreen,
			Phase:    model.PhaseDone,
			Result:   model.ResultSuccess,
		})})

	h.Get(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	var d model.Deployment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, "deploy-20250101-120000", d.ID)
	assert.Equal(t, model.ResultSuccess, d.Result)
}

// --- List ---

func TestDeploymentList_Empty(t *testing.T) {
	db := &handlerMockDB{}
	h := newDeploymentHandler(db, &temporalmocks.Client{})
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodGet, "/deployments", nil)

	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRows{}, nil)

	h.List(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["has_more"])
}

func TestDeploymentList_ReturnsItems(t *testing.T) {
	db := &handlerMockDB{}
	h := newDeploymentHandler(db, &temporalmocks.Client{})
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodGet, "/deployments?limit=10", nil)

	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRows{scanFuncs: []func(dest ...any) error{
			scanDeployment(model.Deployment{ID: "deploy-2", Version: "1.4.2"}),
			scanDeployment(model.Deployment{ID: "deploy-1", Version: "1.4.1"}),
		}}, nil)

	h.List(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Items   []model.Deployment `json:"items"`
		HasMore bool               `json:"has_more"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Items, 2)
	assert.Equal(t, "deploy-2", body.Items[0].ID)
	assert.False(t, body.HasMore)
}

// --- Rollback ---

func TestDeploymentRollback_LatestBackup(t *testing.T) {
	tc := &temporalmocks.Client{}
	h := newDeploymentHandler(&handlerMockDB{}, tc)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/rollbacks", map[string]any{})

	wfRun := &temporalmocks.WorkflowRun{}
	tc.On("ExecuteWorkflow", mock.Anything,
		mock.MatchedBy(func(opts temporalclient.StartWorkflowOptions) bool {
			return strings.HasSuffix(opts.ID, "-rollback")
		}),
		"RollbackWorkflow",
		mock.MatchedBy(func(p workflow.RollbackParams) bool {
			return p.BackupPath == ""
		}),
	).Return(wfRun, nil)

	h.Rollback(rec, r)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["rollback_id"], "-rollback")
	tc.AssertExpectations(t)
}

func TestDeploymentRollback_FromDeploymentRecord(t *testing.T) {
	db := &handlerMockDB{}
	tc := &temporalmocks.Client{}
	h := newDeploymentHandler(db, tc)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/rollbacks", map[string]any{
		"deployment_id": "deploy-20250101-120000",
	})

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanFunc: scanDeployment(model.Deployment{
			ID:         "deploy-20250101-120000",
			BackupPath: "/var/backups/yukyudata/yukyu-deploy-20250101-120000.db",
		})})

	wfRun := &temporalmocks.WorkflowRun{}
	tc.On("ExecuteWorkflow", mock.Anything, mock.Anything, "RollbackWorkflow",
		mock.MatchedBy(func(p workflow.RollbackParams) bool {
			return p.BackupPath == "/var/backups/yukyudata/yukyu-deploy-20250101-120000.db"
		}),
	).Return(wfRun, nil)

	h.Rollback(rec, r)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	tc.AssertExpectations(t)
}

func TestDeploymentRollback_NoBackupArtifact(t *testing.T) {
	db := &handlerMockDB{}
	h := newDeploymentHandler(db, &temporalmocks.Client{})
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/rollbacks", map[string]any{
		"deployment_id": "deploy-20250101-120000",
	})

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanFunc: scanDeployment(model.Deployment{
			ID:         "deploy-20250101-120000",
			SkipBackup: true,
		})})

	h.Rollback(rec, r)

	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "no backup artifact")
}
