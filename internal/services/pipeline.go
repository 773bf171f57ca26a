package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/imyashkale/sitebuilder/internal/logger"
	"github.com/imyashkale/sitebuilder/internal/metrics"
	"github.com/imyashkale/sitebuilder/internal/models"
	"github.com/imyashkale/sitebuilder/internal/queue"
	"github.com/imyashkale/sitebuilder/internal/repository"
)

// Pipeline stages in execution order
const (
	StageExtracting     = "extracting"
	StageGenerating     = "generating"
	StagePostProcessing = "post_processing"
	StageDeploying      = "deploying"
	StageWaiting        = "waiting"
)

// FileArchive keeps the deployed state of a site so later edits start from it
type FileArchive interface {
	Save(ctx context.Context, siteID, deploymentID string, snapshot models.SiteSnapshot) (string, error)
	Load(ctx context.Context, key string) (models.SiteSnapshot, error)
}

// RunOptions controls a single pipeline run
type RunOptions struct {
	WaitForReady      bool
	OwnerID           string
	ExistingProjectID string
}

// PipelineService orchestrates extract -> generate -> post-process -> deploy -> wait
type PipelineService struct {
	extractor *BrandExtractor
	generator *SiteGenerator
	deployer  Deployer
	namer     *ProjectNamer
	costs     CostRecorder
	sites     repository.SiteRepository
	archive   FileArchive
}

// NewPipelineService creates a new pipeline service. sites and archive are
// only needed for queued runs and may be nil for synchronous use.
func NewPipelineService(
	extractor *BrandExtractor,
	generator *SiteGenerator,
	deployer Deployer,
	namer *ProjectNamer,
	costs CostRecorder,
	sites repository.SiteRepository,
	archive FileArchive,
) *PipelineService {
	return &PipelineService{
		extractor: extractor,
		generator: generator,
		deployer:  deployer,
		namer:     namer,
		costs:     costs,
		sites:     sites,
		archive:   archive,
	}
}

// pipelineOutput is everything a run produced up to the point it stopped
type pipelineOutput struct {
	result      *models.PipelineResult
	profile     models.BrandProfile
	files       models.FileSet
	projectName string
}

// RunPipeline runs the whole pipeline for document and returns the deployment outcome.
// On a DeploymentTimeoutError the partial result is returned alongside the error so
// the caller can re-poll with its DeploymentId.
func (ps *PipelineService) RunPipeline(ctx context.Context, document string, opts RunOptions) (*models.PipelineResult, error) {
	tracker := newRunTracker(nil, nil)

	out, err := ps.run(ctx, document, opts, tracker)
	if err != nil {
		outcome := models.SiteStatusFailed
		if KindOf(err) == KindTimeout {
			outcome = models.SiteStatusTimedOut
		}
		metrics.PipelineRuns.WithLabelValues(outcome).Inc()

		if out != nil && KindOf(err) == KindTimeout {
			return out.result, err
		}
		return nil, err
	}

	metrics.PipelineRuns.WithLabelValues(models.SiteStatusCompleted).Inc()
	return out.result, nil
}

// Execute runs a queued pipeline job against its site record
func (ps *PipelineService) Execute(ctx context.Context, job *queue.PipelineJob) error {
	site, err := ps.sites.Get(ctx, job.SiteID)
	if err != nil {
		logger.ForSite(job.SiteID).WithError(err).Error("Failed to fetch site record")
		return fmt.Errorf("failed to load site %s: %w", job.SiteID, err)
	}

	site.Status = models.SiteStatusInProgress
	site.Stages = initialStages(job.WaitForReady)
	site.Error = ""
	site.ErrorKind = ""

	tracker := newRunTracker(ps.sites, site)
	tracker.persist(ctx)

	out, runErr := ps.run(ctx, job.Document, RunOptions{
		WaitForReady:      job.WaitForReady,
		OwnerID:           job.OwnerID,
		ExistingProjectID: job.ExistingProjectID,
	}, tracker)

	if out != nil && out.result != nil {
		site.ProjectName = out.projectName
		site.ProjectId = out.result.ProjectId
		site.DeploymentId = out.result.DeploymentId
		site.URL = out.result.URL
		site.ReadyState = out.result.Status
		site.Revision = 1
		ps.archiveSnapshot(ctx, site, out, tracker)
	}

	switch {
	case runErr != nil && KindOf(runErr) == KindTimeout:
		site.Status = models.SiteStatusTimedOut
	case runErr != nil:
		site.Status = models.SiteStatusFailed
	case site.ReadyState == models.ReadyStateError || site.ReadyState == models.ReadyStateCanceled:
		site.Status = models.SiteStatusFailed
		site.Error = fmt.Sprintf("deployment finished in state %s", site.ReadyState)
	default:
		site.Status = models.SiteStatusCompleted
	}
	if runErr != nil {
		site.ErrorKind = string(KindOf(runErr))
		site.Error = runErr.Error()
	}

	metrics.PipelineRuns.WithLabelValues(site.Status).Inc()
	tracker.logs.LogInfo("finalize", fmt.Sprintf("Pipeline finished with status %s", site.Status))
	tracker.persist(ctx)

	return runErr
}

// run executes the stages in order and stops at the first failure
func (ps *PipelineService) run(ctx context.Context, document string, opts RunOptions, t *runTracker) (*pipelineOutput, error) {
	// Stage 1: Extract brand profile
	t.start(ctx, StageExtracting, "Extracting brand profile")
	profile, usage, err := ps.extractor.Extract(ctx, document)
	ps.recordUsage(ctx, usage, opts.OwnerID)
	if err != nil {
		t.fail(ctx, StageExtracting, err)
		return nil, err
	}
	t.setBusinessName(profile.Business.Name)
	t.complete(ctx, StageExtracting, fmt.Sprintf("Extracted brand profile for %s (%s)", profile.Business.Name, profile.Business.VendorType))

	// Stage 2: Generate site files
	t.start(ctx, StageGenerating, "Generating site files")
	files, usage, err := ps.generator.Generate(ctx, profile)
	ps.recordUsage(ctx, usage, opts.OwnerID)
	if err != nil {
		t.fail(ctx, StageGenerating, err)
		return nil, err
	}
	t.complete(ctx, StageGenerating, fmt.Sprintf("Generated %d files", len(files)))

	// Stage 3: Post-process
	t.start(ctx, StagePostProcessing, "Injecting metadata, badge and analytics")
	files = PostProcess(files, profile)
	t.complete(ctx, StagePostProcessing, "Post-processing completed")

	// Stage 4: Deploy
	name := ps.namer.Name(profile.Business.Name, opts.OwnerID, opts.ExistingProjectID)
	t.start(ctx, StageDeploying, fmt.Sprintf("Creating deployment for project %s", name))
	record, err := ps.deployer.Create(ctx, name, files, opts.ExistingProjectID)
	if err != nil {
		t.fail(ctx, StageDeploying, err)
		return nil, err
	}
	t.complete(ctx, StageDeploying, fmt.Sprintf("Deployment %s created in state %s", record.ID, record.ReadyState))

	out := &pipelineOutput{
		result:      resultFrom(record, opts.ExistingProjectID),
		profile:     profile,
		files:       files,
		projectName: name,
	}

	if !opts.WaitForReady {
		return out, nil
	}

	// Stage 5: Wait for a terminal state
	t.start(ctx, StageWaiting, fmt.Sprintf("Waiting for deployment %s", record.ID))
	final, err := ps.deployer.WaitUntilTerminal(ctx, record.ID)
	if final != nil {
		out.result = resultFrom(final, out.result.ProjectId)
		if out.result.DeploymentId == "" {
			out.result.DeploymentId = record.ID
		}
	}
	if err != nil {
		t.fail(ctx, StageWaiting, err)
		return out, err
	}
	t.complete(ctx, StageWaiting, fmt.Sprintf("Deployment %s is %s", out.result.DeploymentId, out.result.Status))

	return out, nil
}

// recordUsage attributes pipeline usage to the owning record when there is one
func (ps *PipelineService) recordUsage(ctx context.Context, usage models.UsageRecord, ownerID string) {
	if ps.costs == nil || usage.Operation == "" {
		return
	}
	if ownerID != "" {
		usage.EntityType = models.EntityProspect
		usage.EntityId = ownerID
	}
	ps.costs.Record(ctx, usage)
}

// archiveSnapshot stores the deployed files; failures only produce a warning
func (ps *PipelineService) archiveSnapshot(ctx context.Context, site *models.SiteBuild, out *pipelineOutput, t *runTracker) {
	if ps.archive == nil || out.result.DeploymentId == "" {
		return
	}

	key, err := ps.archive.Save(ctx, site.SiteId, out.result.DeploymentId, models.SiteSnapshot{
		Profile: out.profile,
		Files:   out.files,
	})
	if err != nil {
		t.logs.LogWarning("finalize", fmt.Sprintf("Failed to archive site files: %v", err))
		logger.ForSite(site.SiteId).WithError(err).Warn("Failed to archive site files")
		return
	}
	site.ArchiveKey = key
}

// resultFrom normalizes a provider record into the pipeline result
func resultFrom(record *models.DeploymentRecord, existingProjectID string) *models.PipelineResult {
	projectID := record.ProjectID
	if projectID == "" {
		projectID = existingProjectID
	}

	return &models.PipelineResult{
		URL:          publicURL(record.URL),
		DeploymentId: record.ID,
		ProjectId:    projectID,
		Status:       record.ReadyState,
	}
}

// publicURL adds the scheme the provider leaves off deployment hosts
func publicURL(host string) string {
	if host == "" || strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return host
	}
	return "https://" + host
}

// initialStages returns every stage of a run in the pending state
func initialStages(waitForReady bool) map[string]*models.BuildStageStatus {
	stages := map[string]*models.BuildStageStatus{
		StageExtracting:     {Status: models.StagePending},
		StageGenerating:     {Status: models.StagePending},
		StagePostProcessing: {Status: models.StagePending},
		StageDeploying:      {Status: models.StagePending},
	}
	if waitForReady {
		stages[StageWaiting] = &models.BuildStageStatus{Status: models.StagePending}
	}
	return stages
}

// runTracker records stage transitions in the per-run log and, for queued
// runs, on the site record
type runTracker struct {
	sites   repository.SiteRepository
	site    *models.SiteBuild
	logs    *BuildLogger
	started map[string]time.Time
}

func newRunTracker(sites repository.SiteRepository, site *models.SiteBuild) *runTracker {
	return &runTracker{
		sites:   sites,
		site:    site,
		logs:    NewBuildLogger(),
		started: make(map[string]time.Time),
	}
}

func (t *runTracker) siteID() string {
	if t.site == nil {
		return ""
	}
	return t.site.SiteId
}

func (t *runTracker) setBusinessName(name string) {
	if t.site != nil {
		t.site.BusinessName = name
	}
}

// start marks a stage as in progress
func (t *runTracker) start(ctx context.Context, stage, message string) {
	now := time.Now()
	t.started[stage] = now

	t.logs.LogInfo(stage, message)
	logger.ForStage(t.siteID(), stage).Info(message)

	if t.site == nil {
		return
	}
	if t.site.Stages == nil {
		t.site.Stages = make(map[string]*models.BuildStageStatus)
	}
	t.site.Stages[stage] = &models.BuildStageStatus{
		Status:    models.StageInProgress,
		StartedAt: &now,
	}
	t.persist(ctx)
}

// complete marks a stage as completed
func (t *runTracker) complete(ctx context.Context, stage, message string) {
	t.finish(stage, models.StageCompleted, "")
	t.logs.LogInfo(stage, message)
	logger.ForStage(t.siteID(), stage).Info(message)
	t.persist(ctx)
}

// fail marks a stage as failed with err
func (t *runTracker) fail(ctx context.Context, stage string, err error) {
	t.finish(stage, models.StageFailed, err.Error())
	t.logs.LogError(stage, err.Error())
	logger.ForStage(t.siteID(), stage).WithFields(map[string]interface{}{
		"error":      err.Error(),
		"error_kind": string(KindOf(err)),
	}).Error("Pipeline stage failed")
	t.persist(ctx)
}

func (t *runTracker) finish(stage, status, errMsg string) {
	now := time.Now()
	startedAt, ok := t.started[stage]
	if ok {
		metrics.StageDuration.WithLabelValues(stage).Observe(now.Sub(startedAt).Seconds())
	}

	if t.site == nil {
		return
	}
	if t.site.Stages == nil {
		t.site.Stages = make(map[string]*models.BuildStageStatus)
	}
	entry := &models.BuildStageStatus{
		Status:      status,
		CompletedAt: &now,
		Error:       errMsg,
	}
	if ok {
		entry.StartedAt = &startedAt
	}
	t.site.Stages[stage] = entry
}

// persist writes the site record; a failed write is logged, not returned
func (t *runTracker) persist(ctx context.Context) {
	if t.site == nil || t.sites == nil {
		return
	}

	t.site.BuildLogs = t.logs.Trail(nil)
	t.site.UpdatedAt = time.Now()
	if err := t.sites.Update(ctx, t.site); err != nil {
		logger.ForSite(t.site.SiteId).WithError(err).Error("Failed to update site record")
	}
}
