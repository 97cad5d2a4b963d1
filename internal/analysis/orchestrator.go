package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/metior/internal/common"
	"github.com/ternarybob/metior/internal/interfaces"
	"github.com/ternarybob/metior/internal/models"
	"github.com/ternarybob/metior/internal/services/llm"
)

// jobTimeout bounds a full pipeline run end to end
const jobTimeout = 30 * time.Minute

// ConflictError is returned by Submit when the repository URL already has a
// live or completed job and force was not set.
type ConflictError struct {
	ExistingJobID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("repository already analyzed by job %s", e.ExistingJobID)
}

// Orchestrator owns the analysis pipeline: it accepts submissions, runs each
// job through its stages in a background goroutine, and is the only writer of
// a job's record while the run is in flight.
type Orchestrator struct {
	config      *common.Config
	storage     interfaces.StorageManager
	provider    interfaces.LLMProvider
	repoFactory func(token string) interfaces.RepoProvider
	parseURL    func(repoURL string) (owner, name string, err error)
	similarity  SimilarityFunc
	logger      arbor.ILogger
	wg          sync.WaitGroup
}

// NewOrchestrator wires the pipeline. parseURL and repoFactory are injected
// so the pipeline can run against any content source.
func NewOrchestrator(
	config *common.Config,
	storage interfaces.StorageManager,
	provider interfaces.LLMProvider,
	repoFactory func(token string) interfaces.RepoProvider,
	parseURL func(repoURL string) (owner, name string, err error),
	logger arbor.ILogger,
) *Orchestrator {
	return &Orchestrator{
		config:      config,
		storage:     storage,
		provider:    provider,
		repoFactory: repoFactory,
		parseURL:    parseURL,
		similarity:  DefaultSimilarity,
		logger:      logger,
	}
}

// Submit validates the URL, applies the conflict policy, and starts a run.
// A URL with an existing non-failed job is rejected with *ConflictError
// unless force is set; force repoints the URL index at the new job and the
// superseded run, if still in flight, completes but is no longer referenced.
// token is an optional per-request access token; it is handed to the repo
// factory and never persisted with the job.
func (o *Orchestrator) Submit(ctx context.Context, repoURL, token string, force bool) (*models.Job, error) {
	owner, name, err := o.parseURL(repoURL)
	if err != nil {
		return nil, fmt.Errorf("invalid repository url: %w", err)
	}

	jobStorage := o.storage.JobStorage()

	existingID, err := jobStorage.GetJobIDByURL(ctx, repoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing jobs: %w", err)
	}
	if existingID != "" && !force {
		existing, err := jobStorage.GetJob(ctx, existingID)
		if err == nil && existing.Status != models.JobStatusFailed {
			return nil, &ConflictError{ExistingJobID: existingID}
		}
		// Missing or failed prior job: the index entry is stale, fall through
	}

	job := &models.Job{
		ID:        common.NewJobID(),
		RepoURL:   repoURL,
		RepoOwner: owner,
		RepoName:  name,
		Status:    models.JobStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	job.AppendLog("info", "submit", fmt.Sprintf("analysis queued for %s/%s", owner, name))

	if err := jobStorage.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}
	if err := jobStorage.SetJobIDForURL(ctx, repoURL, job.ID); err != nil {
		return nil, fmt.Errorf("failed to index job: %w", err)
	}

	o.logger.Info().
		Str("job_id", job.ID).
		Str("repo", owner+"/"+name).
		Bool("force", force).
		Msg("Analysis job submitted")

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.run(job, token)
	}()

	return job, nil
}

// Wait blocks until all in-flight runs finish. Used during shutdown.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// jobRun bundles the per-run mutable state. All writes to the job record go
// through its mutex because fetch and discovery report from goroutines.
type jobRun struct {
	job     *models.Job
	storage interfaces.JobStorage
	logger  arbor.ILogger
	mu      sync.Mutex
}

// logf appends to the job log under tag and persists the record. The log is
// append-only: entries are added at the tail and never touched again.
func (r *jobRun) logf(tag string) func(level, format string, args ...any) {
	return func(level, format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		r.mu.Lock()
		r.job.AppendLog(level, tag, msg)
		r.save()
		r.mu.Unlock()

		var event arbor.ILogEvent
		switch level {
		case "warn":
			event = r.logger.Warn()
		case "error":
			event = r.logger.Error()
		default:
			event = r.logger.Info()
		}
		event.Str("job_id", r.job.ID).Str("tag", tag).Msg(msg)
	}
}

// update applies fn to the job and persists it
func (r *jobRun) update(fn func(j *models.Job)) {
	r.mu.Lock()
	fn(r.job)
	r.save()
	r.mu.Unlock()
}

// save persists the job; callers hold the mutex. Persistence failures are
// logged and swallowed so a storage hiccup cannot strand a run mid-stage.
func (r *jobRun) save() {
	if err := r.storage.SaveJob(context.Background(), r.job); err != nil {
		r.logger.Error().Err(err).Str("job_id", r.job.ID).Msg("Failed to persist job state")
	}
}

func (r *jobRun) fail(kind models.ErrorKind, tag string, err error) {
	now := time.Now().UTC()
	r.update(func(j *models.Job) {
		j.Status = models.JobStatusFailed
		j.ErrorKind = kind
		j.ErrorMessage = err.Error()
		j.ProgressMessage = "analysis failed"
		j.CompletedAt = &now
		j.AppendLog("error", tag, err.Error())
	})
}

// run drives a job through all five stages. Provider trouble degrades
// batches and ultimately falls back to signal-derived metrics; only an
// unreachable repository or an internal fault fails the job.
func (o *Orchestrator) run(job *models.Job, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	r := &jobRun{job: job, storage: o.storage.JobStorage(), logger: o.logger}
	cfg := &o.config.Analysis
	repo := o.repoFactory(token)

	// Stage 1: file tree scan
	r.update(func(j *models.Job) {
		j.Status = models.JobStatusFetching
		j.AdvanceStage(models.StageScan)
		j.ProgressMessage = "scanning repository"
	})
	r.logf("stage1")("info", "listing files for %s/%s", job.RepoOwner, job.RepoName)

	files, err := repo.ListFiles(ctx, job.RepoOwner, job.RepoName)
	if err != nil {
		if errors.Is(err, interfaces.ErrRepoNotFound) || errors.Is(err, interfaces.ErrRepoForbidden) || errors.Is(err, interfaces.ErrRateLimited) {
			r.fail(models.ErrorKindSourceUnavailable, "stage1", err)
		} else {
			r.fail(models.ErrorKindInternal, "stage1", err)
		}
		return
	}

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	signals := ScanSignals(paths)

	r.update(func(j *models.Job) {
		j.TotalFiles = len(files)
	})
	r.logf("stage1")("info", "%d files in tree, %d signal hits across tags %v",
		len(files), len(signals), SignalTags(signals))

	// Stage 2: selection and content fetch
	r.update(func(j *models.Job) {
		j.AdvanceStage(models.StageSelect)
		j.ProgressMessage = "fetching file contents"
	})

	selected := SelectFiles(files, signals, cfg)
	r.logf("stage2")("info", "selected %d of %d files under the token budget", len(selected), len(files))

	fetched := FetchContents(ctx, repo, job.RepoOwner, job.RepoName, selected,
		cfg.FetchConcurrency, r.logf("stage2"),
		func(done int) {
			r.update(func(j *models.Job) {
				j.FetchedFiles = done
				j.ProgressMessage = fmt.Sprintf("fetched %d/%d files", done, len(selected))
			})
		})
	r.logf("stage2")("info", "%d files fetched", len(fetched))

	// Stage 3: overview pass, then per-batch discovery
	r.update(func(j *models.Job) {
		j.Status = models.JobStatusAnalyzing
		j.AdvanceStage(models.StageDiscover)
		j.ProgressMessage = "analyzing repository"
	})

	keyFiles := fetched
	if len(keyFiles) > cfg.OverviewFileLimit {
		keyFiles = keyFiles[:cfg.OverviewFileLimit]
	}
	overview := runOverviewPass(ctx, o.provider, llm.NewRetryConfig(&o.config.LLM),
		paths, keyFiles, r.logf("stage3a"))

	batches := BuildBatches(fetched, cfg.BatchTokenCeiling)
	r.logf("stage3b")("info", "discovery across %d batches", len(batches))

	candidates := runDiscovery(ctx, o.provider, llm.NewRetryConfig(&o.config.LLM),
		overview, batches, cfg.DiscoveryConcurrency,
		func(batchIndex int) func(level, format string, args ...any) {
			return r.logf(fmt.Sprintf("stage3b.batch%d", batchIndex))
		})
	r.logf("stage3b")("info", "%d raw candidates discovered", len(candidates))

	// Stage 4: consolidation, with the fallback floor underneath
	r.update(func(j *models.Job) {
		j.AdvanceStage(models.StageConsolidate)
		j.ProgressMessage = "consolidating metrics"
	})

	consolidated := Consolidate(candidates, cfg.MaxMetrics, o.similarity)
	if len(consolidated) == 0 {
		r.logf("stage4")("warn", "consolidation produced no metrics, using signal-derived fallback")
		consolidated = GenerateFallback(signals, cfg.FallbackFloor)
	} else if len(consolidated) < cfg.FallbackFloor {
		consolidated = padWithFallback(consolidated, signals, cfg.FallbackFloor)
		r.logf("stage4")("info", "padded to the %d-metric floor with fallback entries", cfg.FallbackFloor)
	}
	r.logf("stage4")("info", "%d metrics after consolidation", len(consolidated))

	// Stage 5: persistence handoff
	r.update(func(j *models.Job) {
		j.AdvanceStage(models.StageHandoff)
		j.ProgressMessage = "saving results"
	})

	now := time.Now().UTC()
	for _, m := range consolidated {
		m.ID = common.NewMetricID()
		m.JobID = job.ID
		m.CreatedAt = now
	}

	metricStorage := o.storage.MetricStorage()
	if err := metricStorage.DeleteMetricsByJob(ctx, job.ID); err != nil {
		r.fail(models.ErrorKindInternal, "stage5", err)
		return
	}
	if err := metricStorage.SaveMetrics(ctx, consolidated); err != nil {
		r.fail(models.ErrorKindInternal, "stage5", err)
		return
	}

	r.update(func(j *models.Job) {
		j.Status = models.JobStatusCompleted
		j.ResultCount = len(consolidated)
		j.ProgressMessage = fmt.Sprintf("completed with %d metrics", len(consolidated))
		j.CompletedAt = &now
		j.AppendLog("info", "stage5", fmt.Sprintf("%d metrics persisted", len(consolidated)))
	})
	o.logger.Info().
		Str("job_id", job.ID).
		Int("metrics", len(consolidated)).
		Msg("Analysis job completed")
}

// padWithFallback extends a short consolidated list up to the floor with
// fallback metrics whose names do not collide with discovered ones.
func padWithFallback(metrics []*models.ConsolidatedMetric, signals []Signal, floor int) []*models.ConsolidatedMetric {
	seen := make(map[string]bool, len(metrics))
	for _, m := range metrics {
		seen[NormalizeMetricName(m.Name)] = true
	}

	for _, fb := range GenerateFallback(signals, floor) {
		if len(metrics) >= floor {
			break
		}
		if seen[NormalizeMetricName(fb.Name)] {
			continue
		}
		fb.DisplayOrder = len(metrics)
		metrics = append(metrics, fb)
		seen[NormalizeMetricName(fb.Name)] = true
	}
	return metrics
}
