package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/imyashkale/sitebuilder/internal/lock"
	"github.com/imyashkale/sitebuilder/internal/logger"
	"github.com/imyashkale/sitebuilder/internal/models"
	"github.com/imyashkale/sitebuilder/internal/queue"
	"github.com/imyashkale/sitebuilder/internal/repository"
)

var (
	// ErrOwnerNotFound is returned when an owner id does not match any owning record
	ErrOwnerNotFound = errors.New("owning record not found")
	// ErrSiteBusy is returned when another edit or redeploy holds the site
	ErrSiteBusy = errors.New("another redeploy is in progress for this site")
	// ErrSiteNotDeployed is returned when a site has no archived deployment to edit
	ErrSiteNotDeployed = errors.New("site has no archived deployment")
)

const stageEditing = "editing"

// SiteService is the host-side entry point for launching, editing and inspecting sites
type SiteService struct {
	pipeline  *PipelineService
	editor    *SiteEditor
	deployer  Deployer
	namer     *ProjectNamer
	sites     repository.SiteRepository
	prospects repository.ProspectRepository
	archive   FileArchive
	locker    lock.Locker
	queue     *queue.JobQueue
	costs     *CostLedger
}

// NewSiteService creates a new site service
func NewSiteService(
	pipeline *PipelineService,
	editor *SiteEditor,
	deployer Deployer,
	namer *ProjectNamer,
	sites repository.SiteRepository,
	prospects repository.ProspectRepository,
	archive FileArchive,
	locker lock.Locker,
	jobQueue *queue.JobQueue,
	costs *CostLedger,
) *SiteService {
	return &SiteService{
		pipeline:  pipeline,
		editor:    editor,
		deployer:  deployer,
		namer:     namer,
		sites:     sites,
		prospects: prospects,
		archive:   archive,
		locker:    locker,
		queue:     jobQueue,
		costs:     costs,
	}
}

// Launch creates a queued site record and hands the pipeline run to the worker pool
func (s *SiteService) Launch(ctx context.Context, req models.CreateSiteRequest) (*models.SiteBuild, error) {
	ownerName, err := s.lookupOwner(ctx, req.OwnerId)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	site := &models.SiteBuild{
		SiteId:       uuid.New().String(),
		OwnerId:      req.OwnerId,
		OwnerName:    ownerName,
		ProjectId:    req.ExistingProjectId,
		Status:       models.SiteStatusQueued,
		WaitForReady: req.WaitForReady,
		Stages:       initialStages(req.WaitForReady),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.sites.Create(ctx, site); err != nil {
		return nil, fmt.Errorf("failed to create site record: %w", err)
	}

	job := &queue.PipelineJob{
		SiteID:            site.SiteId,
		Document:          req.Document,
		OwnerID:           req.OwnerId,
		ExistingProjectID: req.ExistingProjectId,
		WaitForReady:      req.WaitForReady,
	}
	if err := s.queue.Enqueue(job); err != nil {
		site.Status = models.SiteStatusFailed
		site.ErrorKind = string(KindInternal)
		site.Error = err.Error()
		site.UpdatedAt = time.Now()
		if updateErr := s.sites.Update(ctx, site); updateErr != nil {
			logger.ForSite(site.SiteId).WithError(updateErr).Error("Failed to mark unqueued site as failed")
		}
		return nil, fmt.Errorf("failed to enqueue pipeline job: %w", err)
	}

	logger.WithFields(map[string]interface{}{
		"site_id":  site.SiteId,
		"owner_id": site.OwnerId,
	}).Info("Site pipeline queued")

	return site, nil
}

// Run executes the pipeline synchronously for callers that want the result inline
func (s *SiteService) Run(ctx context.Context, req models.CreateSiteRequest) (*models.PipelineResult, error) {
	if _, err := s.lookupOwner(ctx, req.OwnerId); err != nil {
		return nil, err
	}

	return s.pipeline.RunPipeline(ctx, req.Document, RunOptions{
		WaitForReady:      req.WaitForReady,
		OwnerID:           req.OwnerId,
		ExistingProjectID: req.ExistingProjectId,
	})
}

// Get returns a site record
func (s *SiteService) Get(ctx context.Context, siteID string) (*models.SiteBuild, error) {
	return s.sites.Get(ctx, siteID)
}

// ListByOwner returns every site generated for an owning record
func (s *SiteService) ListByOwner(ctx context.Context, ownerID string) ([]*models.SiteBuild, error) {
	return s.sites.GetByOwnerId(ctx, ownerID)
}

// DeploymentStatus fetches the provider's current view of a deployment once
func (s *SiteService) DeploymentStatus(ctx context.Context, deploymentID string) (*models.DeploymentRecord, error) {
	record, err := s.deployer.GetStatus(ctx, deploymentID)
	if err != nil {
		return nil, err
	}
	record.URL = publicURL(record.URL)
	return record, nil
}

// Refresh re-reads the deployment of a site and settles a timed-out or
// fire-and-forget record once the provider reports a terminal state
func (s *SiteService) Refresh(ctx context.Context, siteID string) (*models.SiteBuild, error) {
	site, err := s.sites.Get(ctx, siteID)
	if err != nil {
		return nil, err
	}
	if site.DeploymentId == "" {
		return nil, ErrSiteNotDeployed
	}

	record, err := s.deployer.GetStatus(ctx, site.DeploymentId)
	if err != nil {
		return nil, err
	}

	site.ReadyState = record.ReadyState
	if record.URL != "" {
		site.URL = publicURL(record.URL)
	}

	switch record.ReadyState {
	case models.ReadyStateReady:
		site.Status = models.SiteStatusCompleted
		site.Error = ""
		site.ErrorKind = ""
	case models.ReadyStateError, models.ReadyStateCanceled:
		site.Status = models.SiteStatusFailed
		site.Error = fmt.Sprintf("deployment finished in state %s", record.ReadyState)
	}

	site.UpdatedAt = time.Now()
	if err := s.sites.Update(ctx, site); err != nil {
		return nil, fmt.Errorf("failed to update site record: %w", err)
	}
	return site, nil
}

// EditAndRedeploy applies instruction to the archived files of a site and
// deploys the result into the same project. Only one redeploy per site runs
// at a time; a concurrent call fails with ErrSiteBusy.
func (s *SiteService) EditAndRedeploy(ctx context.Context, siteID, instruction string, waitForReady bool) (*models.PipelineResult, error) {
	release, err := s.locker.Acquire(ctx, "site:"+siteID)
	if errors.Is(err, lock.ErrLocked) {
		return nil, ErrSiteBusy
	}
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := release(context.Background()); err != nil {
			logger.ForSite(siteID).WithError(err).Warn("Failed to release site lock")
		}
	}()

	site, err := s.sites.Get(ctx, siteID)
	if err != nil {
		return nil, err
	}
	if site.ArchiveKey == "" {
		return nil, ErrSiteNotDeployed
	}

	logs := NewBuildLogger()
	logs.LogInfo(stageEditing, fmt.Sprintf("Applying edit to revision %d", site.Revision))

	snapshot, err := s.archive.Load(ctx, site.ArchiveKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load archived files: %w", err)
	}

	edited, err := s.editor.ApplyEdits(ctx, snapshot.Files, instruction, site.SiteId)
	if err != nil {
		return nil, err
	}
	files := PostProcess(edited, snapshot.Profile)

	name := site.ProjectName
	if name == "" {
		name = s.namer.Name(snapshot.Profile.Business.Name, site.OwnerId, site.ProjectId)
	}

	logs.LogInfo(StageDeploying, fmt.Sprintf("Redeploying %d files to project %s", len(files), name))
	record, err := s.deployer.Create(ctx, name, files, site.ProjectId)
	if err != nil {
		logs.LogError(StageDeploying, err.Error())
		return nil, err
	}
	result := resultFrom(record, site.ProjectId)

	var waitErr error
	if waitForReady {
		final, err := s.deployer.WaitUntilTerminal(ctx, record.ID)
		if final != nil {
			result = resultFrom(final, result.ProjectId)
			if result.DeploymentId == "" {
				result.DeploymentId = record.ID
			}
		}
		waitErr = err
	}

	site.Revision++
	site.ProjectName = name
	if result.ProjectId != "" {
		site.ProjectId = result.ProjectId
	}
	site.DeploymentId = result.DeploymentId
	site.URL = result.URL
	site.ReadyState = result.Status
	site.Error = ""
	site.ErrorKind = ""

	switch {
	case waitErr != nil && KindOf(waitErr) == KindTimeout:
		site.Status = models.SiteStatusTimedOut
		site.ErrorKind = string(KindTimeout)
		site.Error = waitErr.Error()
	case waitErr != nil:
		site.Status = models.SiteStatusFailed
		site.ErrorKind = string(KindOf(waitErr))
		site.Error = waitErr.Error()
	case result.Status == models.ReadyStateError || result.Status == models.ReadyStateCanceled:
		site.Status = models.SiteStatusFailed
		site.Error = fmt.Sprintf("deployment finished in state %s", result.Status)
	default:
		site.Status = models.SiteStatusCompleted
	}

	key, err := s.archive.Save(ctx, site.SiteId, result.DeploymentId, models.SiteSnapshot{
		Profile: snapshot.Profile,
		Files:   files,
	})
	if err != nil {
		logs.LogWarning("finalize", fmt.Sprintf("Failed to archive edited files: %v", err))
		logger.ForSite(site.SiteId).WithError(err).Warn("Failed to archive edited files")
	} else {
		site.ArchiveKey = key
	}

	logs.LogInfo("finalize", fmt.Sprintf("Revision %d deployed as %s", site.Revision, result.DeploymentId))
	site.BuildLogs = logs.Trail(site.BuildLogs)
	site.UpdatedAt = time.Now()
	if err := s.sites.Update(ctx, site); err != nil {
		logger.ForSite(site.SiteId).WithError(err).Error("Failed to update site record after redeploy")
	}

	logger.WithFields(map[string]interface{}{
		"site_id":       site.SiteId,
		"deployment_id": result.DeploymentId,
		"revision":      site.Revision,
		"status":        site.Status,
	}).Info("Site redeployed")

	if waitErr != nil && KindOf(waitErr) == KindTimeout {
		return result, waitErr
	}
	if waitErr != nil {
		return nil, waitErr
	}
	return result, nil
}

// lookupOwner resolves the owning record name; an empty id means an anonymous run
func (s *SiteService) lookupOwner(ctx context.Context, ownerID string) (string, error) {
	if ownerID == "" || s.prospects == nil {
		return "", nil
	}

	prospect, err := s.prospects.Get(ctx, ownerID)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrOwnerNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up owning record: %w", err)
	}
	return prospect.Name, nil
}

// Costs reports the model spend on a site's edits and on its owner's generation runs
func (s *SiteService) Costs(ctx context.Context, siteID string) (*models.SiteCostResponse, error) {
	site, err := s.sites.Get(ctx, siteID)
	if err != nil {
		return nil, err
	}

	edits, err := s.costs.Summary(ctx, models.EntitySite, site.SiteId)
	if err != nil {
		return nil, err
	}
	owner, err := s.costs.Summary(ctx, models.EntityProspect, site.OwnerId)
	if err != nil {
		return nil, err
	}

	return &models.SiteCostResponse{
		SiteId:           site.SiteId,
		Edits:            edits,
		Owner:            owner,
		EstimatedCostUSD: edits.EstimatedCostUSD + owner.EstimatedCostUSD,
	}, nil
}
