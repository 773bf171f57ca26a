package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imyashkale/sitebuilder/internal/llm"
	"github.com/imyashkale/sitebuilder/internal/models"
	"github.com/imyashkale/sitebuilder/internal/queue"
	"github.com/imyashkale/sitebuilder/internal/repository"
)

const testOwnerID = "Prospect-1234-abcd"

func newTestPipeline(client llm.Client, deployer Deployer, costs CostRecorder, sites *memorySites, archive *memoryArchive) *PipelineService {
	var (
		siteRepo    repository.SiteRepository
		archiveImpl FileArchive
	)
	if sites != nil {
		siteRepo = sites
	}
	if archive != nil {
		archiveImpl = archive
	}
	return NewPipelineService(
		NewBrandExtractor(client, "claude-sonnet-4-5", 4096),
		NewSiteGenerator(client, "claude-opus-4-1", 32000, 0),
		deployer,
		NewProjectNamer("site"),
		costs,
		siteRepo,
		archiveImpl,
	)
}

func queuedDeployer() *MockDeployer {
	return &MockDeployer{
		createRecord: &models.DeploymentRecord{
			ID:         "dpl_1",
			URL:        "site-mias-cocinita-prospect.vercel.app",
			ReadyState: models.ReadyStateQueued,
			ProjectID:  "prj_1",
		},
	}
}

func TestRunPipeline_WithoutWait(t *testing.T) {
	costs := &recordingCosts{}
	deployer := queuedDeployer()
	ps := newTestPipeline(newPipelineLLM(testFiles()), deployer, costs, nil, nil)

	result, err := ps.RunPipeline(context.Background(), "Mia sells tamales in Austin.", RunOptions{OwnerID: testOwnerID})
	require.NoError(t, err)

	assert.Equal(t, "https://site-mias-cocinita-prospect.vercel.app", result.URL)
	assert.Equal(t, "dpl_1", result.DeploymentId)
	assert.Equal(t, "prj_1", result.ProjectId)
	assert.Equal(t, models.ReadyStateQueued, result.Status)
	assert.Empty(t, deployer.waits)

	require.Len(t, deployer.creates, 1)
	create := deployer.creates[0]
	assert.Equal(t, "site-mias-cocinita-prospect", create.name)
	assert.Empty(t, create.projectID)

	app, ok := create.files.Get(AppShellPath)
	require.True(t, ok)
	assert.Contains(t, app.Content, analyticsImport)
	assert.Contains(t, app.Content, analyticsMount)

	entry, ok := create.files.Get(EntryPagePath)
	require.True(t, ok)
	assert.Contains(t, entry.Content, structuredDataMarker)
	assert.Contains(t, entry.Content, badgeID)

	manifest, ok := create.files.Get(ManifestPath)
	require.True(t, ok)
	assert.Contains(t, manifest.Content, analyticsPackage)

	require.Len(t, costs.records, 2)
	assert.Equal(t, models.OperationExtractBrand, costs.records[0].Operation)
	assert.Equal(t, models.OperationGenerateSite, costs.records[1].Operation)
	for _, r := range costs.records {
		assert.Equal(t, models.EntityProspect, r.EntityType)
		assert.Equal(t, testOwnerID, r.EntityId)
	}
}

func TestRunPipeline_Anonymous(t *testing.T) {
	costs := &recordingCosts{}
	deployer := queuedDeployer()
	ps := newTestPipeline(newPipelineLLM(testFiles()), deployer, costs, nil, nil)

	_, err := ps.RunPipeline(context.Background(), "Mia sells tamales in Austin.", RunOptions{})
	require.NoError(t, err)

	require.Len(t, deployer.creates, 1)
	assert.True(t, strings.HasPrefix(deployer.creates[0].name, "site-mias-cocinita-"))
	for _, r := range costs.records {
		assert.Empty(t, r.EntityType)
		assert.Empty(t, r.EntityId)
	}
}

func TestRunPipeline_ExistingProject(t *testing.T) {
	deployer := queuedDeployer()
	deployer.createRecord.ProjectID = ""
	ps := newTestPipeline(newPipelineLLM(testFiles()), deployer, &recordingCosts{}, nil, nil)

	result, err := ps.RunPipeline(context.Background(), "Mia sells tamales in Austin.", RunOptions{
		OwnerID:           testOwnerID,
		ExistingProjectID: "prj_existing",
	})
	require.NoError(t, err)

	require.Len(t, deployer.creates, 1)
	assert.Equal(t, "site-mias-cocinita", deployer.creates[0].name)
	assert.Equal(t, "prj_existing", deployer.creates[0].projectID)
	assert.Equal(t, "prj_existing", result.ProjectId)
}

func TestRunPipeline_WaitReady(t *testing.T) {
	deployer := queuedDeployer()
	deployer.waitRecord = &models.DeploymentRecord{
		ID:         "dpl_1",
		URL:        "site-mias-cocinita-prospect.vercel.app",
		ReadyState: models.ReadyStateReady,
		ProjectID:  "prj_1",
	}
	ps := newTestPipeline(newPipelineLLM(testFiles()), deployer, &recordingCosts{}, nil, nil)

	result, err := ps.RunPipeline(context.Background(), "doc", RunOptions{WaitForReady: true, OwnerID: testOwnerID})
	require.NoError(t, err)

	assert.Equal(t, []string{"dpl_1"}, deployer.waits)
	assert.Equal(t, models.ReadyStateReady, result.Status)
}

func TestRunPipeline_WaitEndsInError(t *testing.T) {
	deployer := queuedDeployer()
	deployer.waitRecord = &models.DeploymentRecord{ID: "dpl_1", ReadyState: models.ReadyStateError}
	ps := newTestPipeline(newPipelineLLM(testFiles()), deployer, &recordingCosts{}, nil, nil)

	result, err := ps.RunPipeline(context.Background(), "doc", RunOptions{WaitForReady: true})
	require.NoError(t, err)
	assert.Equal(t, models.ReadyStateError, result.Status)
}

func TestRunPipeline_Timeout(t *testing.T) {
	deployer := queuedDeployer()
	deployer.waitRecord = &models.DeploymentRecord{ID: "dpl_1", ReadyState: models.ReadyStateBuilding}
	deployer.waitErr = &DeploymentTimeoutError{DeploymentID: "dpl_1", Attempts: 60, LastState: "BUILDING"}
	ps := newTestPipeline(newPipelineLLM(testFiles()), deployer, &recordingCosts{}, nil, nil)

	result, err := ps.RunPipeline(context.Background(), "doc", RunOptions{WaitForReady: true})

	var timeoutErr *DeploymentTimeoutError
	require.True(t, errors.As(err, &timeoutErr))
	require.NotNil(t, result)
	assert.Equal(t, "dpl_1", result.DeploymentId)
	assert.Equal(t, "prj_1", result.ProjectId)
	assert.Equal(t, models.ReadyStateBuilding, result.Status)
}

func TestRunPipeline_WaitTransportError(t *testing.T) {
	deployer := queuedDeployer()
	deployer.waitErr = &DeployError{StatusCode: 500, Body: "boom"}
	ps := newTestPipeline(newPipelineLLM(testFiles()), deployer, &recordingCosts{}, nil, nil)

	result, err := ps.RunPipeline(context.Background(), "doc", RunOptions{WaitForReady: true})
	assert.Nil(t, result)
	assert.Equal(t, KindTransport, KindOf(err))
}

func TestRunPipeline_ExtractionFailureStopsBeforeDeploy(t *testing.T) {
	costs := &recordingCosts{}
	deployer := queuedDeployer()
	client := newPipelineLLM(testFiles())
	client.callToolFunc = func(_ context.Context, req llm.ToolRequest) (*llm.ToolResult, error) {
		return &llm.ToolResult{Model: req.Model, Usage: llm.Usage{InputTokens: 800}}, nil
	}
	ps := newTestPipeline(client, deployer, costs, nil, nil)

	result, err := ps.RunPipeline(context.Background(), "doc", RunOptions{OwnerID: testOwnerID})
	assert.Nil(t, result)
	assert.Equal(t, KindContract, KindOf(err))

	assert.Empty(t, client.textRequests)
	assert.Empty(t, deployer.creates)
	require.Len(t, costs.records, 1)
	assert.Equal(t, models.OperationExtractBrand, costs.records[0].Operation)
}

func TestRunPipeline_DeployFailure(t *testing.T) {
	deployer := &MockDeployer{createErr: &DeployError{StatusCode: 400, Body: "bad request"}}
	ps := newTestPipeline(newPipelineLLM(testFiles()), deployer, &recordingCosts{}, nil, nil)

	_, err := ps.RunPipeline(context.Background(), "doc", RunOptions{})
	assert.Equal(t, KindTransport, KindOf(err))
	assert.Len(t, deployer.creates, 1)
}

func queuedSite(id string) *models.SiteBuild {
	return &models.SiteBuild{
		SiteId:  id,
		OwnerId: testOwnerID,
		Status:  models.SiteStatusQueued,
	}
}

func TestExecute_Completed(t *testing.T) {
	sites := newMemorySites(queuedSite("site-1"))
	archive := newMemoryArchive()
	deployer := queuedDeployer()
	deployer.waitRecord = &models.DeploymentRecord{ID: "dpl_1", URL: "site-mias-cocinita-prospect.vercel.app", ReadyState: models.ReadyStateReady}
	ps := newTestPipeline(newPipelineLLM(testFiles()), deployer, &recordingCosts{}, sites, archive)

	err := ps.Execute(context.Background(), &queue.PipelineJob{
		SiteID:       "site-1",
		Document:     "Mia sells tamales in Austin.",
		OwnerID:      testOwnerID,
		WaitForReady: true,
	})
	require.NoError(t, err)

	site, err := sites.Get(context.Background(), "site-1")
	require.NoError(t, err)

	assert.Equal(t, models.SiteStatusCompleted, site.Status)
	assert.Equal(t, "Mia's Cocinita", site.BusinessName)
	assert.Equal(t, "site-mias-cocinita-prospect", site.ProjectName)
	assert.Equal(t, "prj_1", site.ProjectId)
	assert.Equal(t, "dpl_1", site.DeploymentId)
	assert.Equal(t, "https://site-mias-cocinita-prospect.vercel.app", site.URL)
	assert.Equal(t, models.ReadyStateReady, site.ReadyState)
	assert.Equal(t, 1, site.Revision)
	assert.Empty(t, site.Error)
	assert.NotEmpty(t, site.BuildLogs)
	assert.Greater(t, sites.updates, 5)

	for _, stage := range []string{StageExtracting, StageGenerating, StagePostProcessing, StageDeploying, StageWaiting} {
		require.Contains(t, site.Stages, stage)
		assert.Equal(t, models.StageCompleted, site.Stages[stage].Status, stage)
		assert.NotNil(t, site.Stages[stage].StartedAt, stage)
		assert.NotNil(t, site.Stages[stage].CompletedAt, stage)
	}

	assert.Equal(t, "sites/site-1/dpl_1.json", site.ArchiveKey)
	snapshot, err := archive.Load(context.Background(), site.ArchiveKey)
	require.NoError(t, err)
	assert.Equal(t, "Mia's Cocinita", snapshot.Profile.Business.Name)
	app, ok := snapshot.Files.Get(AppShellPath)
	require.True(t, ok)
	assert.Contains(t, app.Content, analyticsMount)
}

func TestExecute_ExtractionFailure(t *testing.T) {
	sites := newMemorySites(queuedSite("site-1"))
	archive := newMemoryArchive()
	client := newPipelineLLM(testFiles())
	client.callToolFunc = func(_ context.Context, req llm.ToolRequest) (*llm.ToolResult, error) {
		return &llm.ToolResult{Model: req.Model}, nil
	}
	ps := newTestPipeline(client, queuedDeployer(), &recordingCosts{}, sites, archive)

	err := ps.Execute(context.Background(), &queue.PipelineJob{SiteID: "site-1", Document: "doc"})
	require.Error(t, err)

	site, getErr := sites.Get(context.Background(), "site-1")
	require.NoError(t, getErr)

	assert.Equal(t, models.SiteStatusFailed, site.Status)
	assert.Equal(t, string(KindContract), site.ErrorKind)
	assert.NotEmpty(t, site.Error)
	assert.Equal(t, models.StageFailed, site.Stages[StageExtracting].Status)
	assert.Equal(t, models.StagePending, site.Stages[StageGenerating].Status)
	assert.NotContains(t, site.Stages, StageWaiting)
	assert.Empty(t, site.ArchiveKey)
	assert.Empty(t, archive.snapshots)
}

func TestExecute_TimedOutKeepsDeployment(t *testing.T) {
	sites := newMemorySites(queuedSite("site-1"))
	archive := newMemoryArchive()
	deployer := queuedDeployer()
	deployer.waitRecord = &models.DeploymentRecord{ID: "dpl_1", ReadyState: models.ReadyStateBuilding}
	deployer.waitErr = &DeploymentTimeoutError{DeploymentID: "dpl_1", Attempts: 60, LastState: "BUILDING"}
	ps := newTestPipeline(newPipelineLLM(testFiles()), deployer, &recordingCosts{}, sites, archive)

	err := ps.Execute(context.Background(), &queue.PipelineJob{SiteID: "site-1", Document: "doc", WaitForReady: true})
	assert.Equal(t, KindTimeout, KindOf(err))

	site, getErr := sites.Get(context.Background(), "site-1")
	require.NoError(t, getErr)

	assert.Equal(t, models.SiteStatusTimedOut, site.Status)
	assert.Equal(t, string(KindTimeout), site.ErrorKind)
	assert.Equal(t, "dpl_1", site.DeploymentId)
	assert.Equal(t, models.StageFailed, site.Stages[StageWaiting].Status)
	assert.Equal(t, "sites/site-1/dpl_1.json", site.ArchiveKey)
}

func TestExecute_ArchiveFailureDoesNotFailRun(t *testing.T) {
	sites := newMemorySites(queuedSite("site-1"))
	archive := newMemoryArchive()
	archive.saveErr = errors.New("bucket missing")
	ps := newTestPipeline(newPipelineLLM(testFiles()), queuedDeployer(), &recordingCosts{}, sites, archive)

	err := ps.Execute(context.Background(), &queue.PipelineJob{SiteID: "site-1", Document: "doc"})
	require.NoError(t, err)

	site, getErr := sites.Get(context.Background(), "site-1")
	require.NoError(t, getErr)
	assert.Equal(t, models.SiteStatusCompleted, site.Status)
	assert.Empty(t, site.ArchiveKey)
}

func TestExecute_UnknownSite(t *testing.T) {
	ps := newTestPipeline(newPipelineLLM(testFiles()), queuedDeployer(), &recordingCosts{}, newMemorySites(), newMemoryArchive())

	err := ps.Execute(context.Background(), &queue.PipelineJob{SiteID: "missing"})
	require.Error(t, err)
}
