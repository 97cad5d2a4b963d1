package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/metior/internal/common"
	"github.com/ternarybob/metior/internal/interfaces"
	"github.com/ternarybob/metior/internal/models"
)

// memStorage is an in-memory StorageManager for pipeline tests
type memStorage struct {
	mu      sync.Mutex
	jobs    map[string]*models.Job
	urls    map[string]string
	metrics map[string][]*models.ConsolidatedMetric
}

func newMemStorage() *memStorage {
	return &memStorage{
		jobs:    make(map[string]*models.Job),
		urls:    make(map[string]string),
		metrics: make(map[string][]*models.ConsolidatedMetric),
	}
}

func (m *memStorage) JobStorage() interfaces.JobStorage       { return (*memJobStorage)(m) }
func (m *memStorage) MetricStorage() interfaces.MetricStorage { return (*memMetricStorage)(m) }
func (m *memStorage) Close() error                            { return nil }

type memJobStorage memStorage

func (m *memJobStorage) SaveJob(ctx context.Context, job *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *job
	copied.Log = append([]models.JobLogEntry(nil), job.Log...)
	m.jobs[job.ID] = &copied
	return nil
}

func (m *memJobStorage) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	copied := *job
	return &copied, nil
}

func (m *memJobStorage) ListJobs(ctx context.Context, limit int) ([]*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var jobs []*models.Job
	for _, j := range m.jobs {
		copied := *j
		jobs = append(jobs, &copied)
	}
	return jobs, nil
}

func (m *memJobStorage) DeleteJob(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, jobID)
	return nil
}

func (m *memJobStorage) GetJobIDByURL(ctx context.Context, repoURL string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.urls[repoURL], nil
}

func (m *memJobStorage) SetJobIDForURL(ctx context.Context, repoURL, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.urls[repoURL] = jobID
	return nil
}

func (m *memJobStorage) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

type memMetricStorage memStorage

func (m *memMetricStorage) SaveMetrics(ctx context.Context, metrics []*models.ConsolidatedMetric) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, metric := range metrics {
		m.metrics[metric.JobID] = append(m.metrics[metric.JobID], metric)
	}
	return nil
}

func (m *memMetricStorage) GetMetricsByJob(ctx context.Context, jobID string) ([]*models.ConsolidatedMetric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.ConsolidatedMetric(nil), m.metrics[jobID]...), nil
}

func (m *memMetricStorage) DeleteMetricsByJob(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.metrics, jobID)
	return nil
}

// fakeRepo serves a fixed tree with synthetic content
type fakeRepo struct {
	files   []interfaces.RepoFile
	listErr error
}

func (f *fakeRepo) ListFiles(ctx context.Context, owner, name string) ([]interfaces.RepoFile, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.files, nil
}

func (f *fakeRepo) GetFileContent(ctx context.Context, owner, name, path string) (string, error) {
	return "contents of " + path, nil
}

// fakeProvider returns a canned response, or fails every call
type fakeProvider struct {
	response string
	err      error
	mu       sync.Mutex
	calls    int
}

func (f *fakeProvider) Generate(ctx context.Context, req *interfaces.GenerateRequest) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeProvider) ProviderType() string { return "fake" }
func (f *fakeProvider) Close() error         { return nil }

// discoveryJSON satisfies both the overview and discovery response shapes
const discoveryJSON = `{
  "project_name": "shop",
  "description": "an online shop",
  "domain": "e-commerce",
  "tech_stack": ["go"],
  "architecture_type": "monolith",
  "key_entities": ["order"],
  "metrics": [
    {"name": "Checkout Conversion Rate", "description": "share of carts that complete checkout", "category": "business", "data_type": "percentage", "suggested_source": "checkout handler"},
    {"name": "Cart Abandonment Rate", "description": "share of carts abandoned before payment", "category": "business", "data_type": "percentage", "suggested_source": "cart events"},
    {"name": "Order Volume", "description": "orders placed per day", "category": "growth", "data_type": "number", "suggested_source": "orders table"},
    {"name": "Payment Error Rate", "description": "failed payment attempts", "category": "performance", "data_type": "percentage", "suggested_source": "payment logs"},
    {"name": "Session Duration", "description": "average shopping session length", "category": "engagement", "data_type": "number", "suggested_source": "analytics"}
  ]
}`

func parseFakeURL(repoURL string) (string, string, error) {
	trimmed := strings.TrimPrefix(repoURL, "https://example.test/")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.New("malformed url")
	}
	return parts[0], parts[1], nil
}

func newTestOrchestrator(t *testing.T, storage *memStorage, provider interfaces.LLMProvider, repo interfaces.RepoProvider) *Orchestrator {
	t.Helper()
	cfg := common.NewDefaultConfig()
	cfg.LLM.MaxRetries = 1
	cfg.LLM.RetryBackoff = "1ms"
	cfg.Analysis.FetchConcurrency = 2
	cfg.Analysis.DiscoveryConcurrency = 2

	return NewOrchestrator(cfg, storage, provider,
		func(string) interfaces.RepoProvider { return repo },
		parseFakeURL, common.GetLogger())
}

func waitForTerminal(t *testing.T, storage *memStorage, jobID string) *models.Job {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		job, err := storage.JobStorage().GetJob(context.Background(), jobID)
		require.NoError(t, err)
		if job.IsTerminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job never reached a terminal state")
	return nil
}

func TestOrchestrator_CompletesAndPersistsMetrics(t *testing.T) {
	storage := newMemStorage()
	repo := &fakeRepo{files: []interfaces.RepoFile{
		{Path: "main.go", Size: 200},
		{Path: "internal/checkout/handler.go", Size: 400},
		{Path: "internal/cache/store.go", Size: 300},
	}}
	provider := &fakeProvider{response: discoveryJSON}
	o := newTestOrchestrator(t, storage, provider, repo)

	job, err := o.Submit(context.Background(), "https://example.test/acme/shop", "", false)
	require.NoError(t, err)
	assert.Equal(t, "acme", job.RepoOwner)
	assert.Equal(t, "shop", job.RepoName)

	final := waitForTerminal(t, storage, job.ID)
	assert.Equal(t, models.JobStatusCompleted, final.Status)
	assert.Equal(t, models.StageHandoff, final.CurrentStage)
	assert.Equal(t, 3, final.TotalFiles)
	assert.NotNil(t, final.CompletedAt)

	metrics, err := storage.MetricStorage().GetMetricsByJob(context.Background(), job.ID)
	require.NoError(t, err)
	require.NotEmpty(t, metrics)
	assert.Equal(t, final.ResultCount, len(metrics))
	for _, m := range metrics {
		assert.Equal(t, job.ID, m.JobID)
		assert.NotEmpty(t, m.ID)
		assert.False(t, m.CreatedAt.IsZero())
	}
}

func TestOrchestrator_StageNeverRegressesAndLogIsAppendOnly(t *testing.T) {
	storage := newMemStorage()
	repo := &fakeRepo{files: []interfaces.RepoFile{{Path: "main.go", Size: 200}}}
	provider := &fakeProvider{response: discoveryJSON}
	o := newTestOrchestrator(t, storage, provider, repo)

	job, err := o.Submit(context.Background(), "https://example.test/acme/shop", "", false)
	require.NoError(t, err)

	var lastStage, lastLogLen int
	var prefix []models.JobLogEntry
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		snapshot, err := storage.JobStorage().GetJob(context.Background(), job.ID)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, snapshot.CurrentStage, lastStage, "stage regressed")
		lastStage = snapshot.CurrentStage

		require.GreaterOrEqual(t, len(snapshot.Log), lastLogLen, "log shrank")
		for i, entry := range prefix {
			assert.Equal(t, entry, snapshot.Log[i], "log entry %d mutated", i)
		}
		lastLogLen = len(snapshot.Log)
		prefix = snapshot.Log

		if snapshot.IsTerminal() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job never reached a terminal state")
}

func TestOrchestrator_MissingRepoFailsWithoutLaterStages(t *testing.T) {
	storage := newMemStorage()
	repo := &fakeRepo{listErr: fmt.Errorf("GET tree: %w", interfaces.ErrRepoNotFound)}
	provider := &fakeProvider{response: discoveryJSON}
	o := newTestOrchestrator(t, storage, provider, repo)

	job, err := o.Submit(context.Background(), "https://example.test/acme/missing", "", false)
	require.NoError(t, err)

	final := waitForTerminal(t, storage, job.ID)
	assert.Equal(t, models.JobStatusFailed, final.Status)
	assert.Equal(t, models.ErrorKindSourceUnavailable, final.ErrorKind)
	assert.Equal(t, models.StageScan, final.CurrentStage)
	assert.Zero(t, provider.calls, "no analysis passes after an unreachable source")

	metrics, err := storage.MetricStorage().GetMetricsByJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Empty(t, metrics)
}

func TestOrchestrator_ProviderFailureFallsBackToFloor(t *testing.T) {
	storage := newMemStorage()
	repo := &fakeRepo{files: []interfaces.RepoFile{
		{Path: "internal/cache/store.go", Size: 200},
		{Path: "internal/auth/login.go", Size: 200},
	}}
	provider := &fakeProvider{err: errors.New("provider down")}
	o := newTestOrchestrator(t, storage, provider, repo)

	job, err := o.Submit(context.Background(), "https://example.test/acme/degraded", "", false)
	require.NoError(t, err)

	final := waitForTerminal(t, storage, job.ID)
	assert.Equal(t, models.JobStatusCompleted, final.Status)
	require.GreaterOrEqual(t, final.ResultCount, 1)

	metrics, err := storage.MetricStorage().GetMetricsByJob(context.Background(), job.ID)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(metrics), o.config.Analysis.FallbackFloor)
	for _, m := range metrics {
		assert.True(t, m.FallbackSourced, "metric %s", m.Name)
	}
}

func TestOrchestrator_ConflictPolicy(t *testing.T) {
	storage := newMemStorage()
	repo := &fakeRepo{files: []interfaces.RepoFile{{Path: "main.go", Size: 200}}}
	provider := &fakeProvider{response: discoveryJSON}
	o := newTestOrchestrator(t, storage, provider, repo)

	first, err := o.Submit(context.Background(), "https://example.test/acme/shop", "", false)
	require.NoError(t, err)
	waitForTerminal(t, storage, first.ID)

	_, err = o.Submit(context.Background(), "https://example.test/acme/shop", "", false)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, first.ID, conflict.ExistingJobID)

	second, err := o.Submit(context.Background(), "https://example.test/acme/shop", "", true)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	waitForTerminal(t, storage, second.ID)

	indexed, err := storage.JobStorage().GetJobIDByURL(context.Background(), "https://example.test/acme/shop")
	require.NoError(t, err)
	assert.Equal(t, second.ID, indexed)
}

func TestOrchestrator_FailedJobAllowsResubmitWithoutForce(t *testing.T) {
	storage := newMemStorage()
	repo := &fakeRepo{listErr: fmt.Errorf("tree: %w", interfaces.ErrRepoNotFound)}
	provider := &fakeProvider{response: discoveryJSON}
	o := newTestOrchestrator(t, storage, provider, repo)

	first, err := o.Submit(context.Background(), "https://example.test/acme/flaky", "", false)
	require.NoError(t, err)
	waitForTerminal(t, storage, first.ID)

	repo.listErr = nil
	repo.files = []interfaces.RepoFile{{Path: "main.go", Size: 200}}

	second, err := o.Submit(context.Background(), "https://example.test/acme/flaky", "", false)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	waitForTerminal(t, storage, second.ID)
}

func TestOrchestrator_InvalidURLRejected(t *testing.T) {
	o := newTestOrchestrator(t, newMemStorage(), &fakeProvider{}, &fakeRepo{})

	_, err := o.Submit(context.Background(), "not a url", "", false)
	assert.Error(t, err)
}
