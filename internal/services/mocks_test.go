package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/imyashkale/sitebuilder/internal/llm"
	"github.com/imyashkale/sitebuilder/internal/lock"
	"github.com/imyashkale/sitebuilder/internal/models"
	"github.com/imyashkale/sitebuilder/internal/repository"
)

const testProfileJSON = `{
  "business": {"name": "Mia's Cocinita", "vendorType": "home_based", "city": "Austin", "phone": "512-555-0100"},
  "brand": {"primaryColor": "#C2410C", "accentColor": "#FDE68A", "tagline": "Abuela's recipes, made fresh daily", "voice": "warm and familiar"},
  "menu": [{"name": "Tamales", "price": "$3"}],
  "media": {"hero": "https://example.com/hero.jpg"}
}`

const testAppShell = `import React from 'react';

export default function App() {
  return (
    <main>
      <h1>Mia's Cocinita</h1>
    </main>
  );
}
`

const testEntryPage = `<!doctype html>
<html>
<head>
  <title>Mia's Cocinita</title>
</head>
<body>
  <div id="root"></div>
  <footer>Austin, TX</footer>
</body>
</html>
`

const testManifest = `{
  "name": "mias-cocinita",
  "dependencies": {
    "react": "^18.2.0"
  }
}`

func testFiles() models.FileSet {
	return models.FileSet{
		{Path: EntryPagePath, Content: testEntryPage},
		{Path: ManifestPath, Content: testManifest},
		{Path: AppShellPath, Content: testAppShell},
		{Path: "src/main.tsx", Content: "import App from './App';"},
	}
}

func fileSetText(files models.FileSet) string {
	data, _ := json.Marshal(models.FileSetDocument{Files: files})
	return string(data)
}

// MockLLMClient records requests and answers with the configured funcs
type MockLLMClient struct {
	callToolFunc   func(ctx context.Context, req llm.ToolRequest) (*llm.ToolResult, error)
	streamTextFunc func(ctx context.Context, req llm.TextRequest) (*llm.TextResult, error)

	mu           sync.Mutex
	toolRequests []llm.ToolRequest
	textRequests []llm.TextRequest
}

func (m *MockLLMClient) CallTool(ctx context.Context, req llm.ToolRequest) (*llm.ToolResult, error) {
	m.mu.Lock()
	m.toolRequests = append(m.toolRequests, req)
	m.mu.Unlock()
	return m.callToolFunc(ctx, req)
}

func (m *MockLLMClient) StreamText(ctx context.Context, req llm.TextRequest) (*llm.TextResult, error) {
	m.mu.Lock()
	m.textRequests = append(m.textRequests, req)
	m.mu.Unlock()
	return m.streamTextFunc(ctx, req)
}

// newPipelineLLM answers extraction with testProfileJSON and generation with files
func newPipelineLLM(files models.FileSet) *MockLLMClient {
	return &MockLLMClient{
		callToolFunc: func(_ context.Context, req llm.ToolRequest) (*llm.ToolResult, error) {
			return &llm.ToolResult{
				Model: req.Model,
				Input: json.RawMessage(testProfileJSON),
				Usage: llm.Usage{InputTokens: 1200, OutputTokens: 300},
			}, nil
		},
		streamTextFunc: func(_ context.Context, req llm.TextRequest) (*llm.TextResult, error) {
			return &llm.TextResult{
				Model:   req.Model,
				Text:    "Here is the site:\n```json\n" + fileSetText(files) + "\n```",
				HasText: true,
				Usage:   llm.Usage{InputTokens: 2000, OutputTokens: 9000},
			}, nil
		},
	}
}

type createCall struct {
	name      string
	files     models.FileSet
	projectID string
}

// MockDeployer is an in-memory Deployer
type MockDeployer struct {
	createRecord *models.DeploymentRecord
	createErr    error
	waitRecord   *models.DeploymentRecord
	waitErr      error
	statusRecord *models.DeploymentRecord
	statusErr    error

	creates []createCall
	waits   []string
}

func (m *MockDeployer) Create(_ context.Context, name string, files models.FileSet, existingProjectID string) (*models.DeploymentRecord, error) {
	m.creates = append(m.creates, createCall{name: name, files: files, projectID: existingProjectID})
	if m.createErr != nil {
		return nil, m.createErr
	}
	record := *m.createRecord
	return &record, nil
}

func (m *MockDeployer) GetStatus(_ context.Context, _ string) (*models.DeploymentRecord, error) {
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	record := *m.statusRecord
	return &record, nil
}

func (m *MockDeployer) WaitUntilTerminal(_ context.Context, deploymentID string) (*models.DeploymentRecord, error) {
	m.waits = append(m.waits, deploymentID)
	var record *models.DeploymentRecord
	if m.waitRecord != nil {
		copied := *m.waitRecord
		record = &copied
	}
	return record, m.waitErr
}

// recordingCosts keeps every usage row it receives
type recordingCosts struct {
	mu      sync.Mutex
	records []models.UsageRecord
}

func (r *recordingCosts) Record(_ context.Context, usage models.UsageRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, usage)
}

// memorySites is an in-memory SiteRepository
type memorySites struct {
	mu      sync.Mutex
	items   map[string]*models.SiteBuild
	updates int
}

func newMemorySites(sites ...*models.SiteBuild) *memorySites {
	m := &memorySites{items: make(map[string]*models.SiteBuild)}
	for _, s := range sites {
		m.items[s.SiteId] = s
	}
	return m
}

func (m *memorySites) Create(_ context.Context, site *models.SiteBuild) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[site.SiteId]; ok {
		return repository.ErrAlreadyExists
	}
	copied := *site
	m.items[site.SiteId] = &copied
	return nil
}

func (m *memorySites) Get(_ context.Context, siteID string) (*models.SiteBuild, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	site, ok := m.items[siteID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *site
	return &copied, nil
}

func (m *memorySites) Update(_ context.Context, site *models.SiteBuild) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[site.SiteId]; !ok {
		return repository.ErrNotFound
	}
	copied := *site
	m.items[site.SiteId] = &copied
	m.updates++
	return nil
}

func (m *memorySites) GetByOwnerId(_ context.Context, ownerID string) ([]*models.SiteBuild, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.SiteBuild
	for _, s := range m.items {
		if s.OwnerId == ownerID {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, nil
}

// memoryProspects is an in-memory ProspectRepository
type memoryProspects map[string]*models.Prospect

func (m memoryProspects) Get(_ context.Context, id string) (*models.Prospect, error) {
	p, ok := m[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

// memoryArchive is an in-memory FileArchive
type memoryArchive struct {
	snapshots map[string]models.SiteSnapshot
	saveErr   error
}

func newMemoryArchive() *memoryArchive {
	return &memoryArchive{snapshots: make(map[string]models.SiteSnapshot)}
}

func (a *memoryArchive) Save(_ context.Context, siteID, deploymentID string, snapshot models.SiteSnapshot) (string, error) {
	if a.saveErr != nil {
		return "", a.saveErr
	}
	key := "sites/" + siteID + "/" + deploymentID + ".json"
	a.snapshots[key] = snapshot
	return key, nil
}

func (a *memoryArchive) Load(_ context.Context, key string) (models.SiteSnapshot, error) {
	s, ok := a.snapshots[key]
	if !ok {
		return models.SiteSnapshot{}, repository.ErrNotFound
	}
	return s, nil
}

// memoryLocker is an in-process Locker
type memoryLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMemoryLocker() *memoryLocker {
	return &memoryLocker{held: make(map[string]bool)}
}

func (l *memoryLocker) Acquire(_ context.Context, key string) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, lock.ErrLocked
	}
	l.held[key] = true
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
		return nil
	}, nil
}
