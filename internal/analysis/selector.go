package analysis

import (
	"context"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/ternarybob/metior/internal/common"
	"github.com/ternarybob/metior/internal/interfaces"
)

// FileCandidate is a repository file selected for analysis: path, fetched
// content, estimated token cost, and the priority score that selected it.
type FileCandidate struct {
	Path            string
	Content         string
	EstimatedTokens int
	Score           float64
}

var excludedExtensions = map[string]bool{
	".exe": true, ".dll": true, ".so": true, ".dylib": true, ".o": true,
	".a": true, ".lib": true, ".wasm": true, ".pyc": true, ".class": true,
	".jar": true, ".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".ico": true, ".svg": true, ".webp": true, ".woff": true,
	".woff2": true, ".ttf": true, ".otf": true, ".eot": true, ".mp3": true,
	".mp4": true, ".avi": true, ".mov": true, ".wav": true, ".ogg": true,
	".webm": true, ".zip": true, ".tar": true, ".gz": true, ".rar": true,
	".7z": true, ".bz2": true, ".sqlite": true, ".db": true, ".pdf": true,
	".doc": true, ".docx": true, ".xls": true, ".xlsx": true, ".ppt": true,
	".pptx": true, ".map": true,
}

var excludedDirectories = map[string]bool{
	"node_modules": true, ".git": true, "__pycache__": true, ".next": true,
	".nuxt": true, "dist": true, "build": true, "out": true, "target": true,
	"bin": true, "obj": true, ".idea": true, ".vscode": true, "vendor": true,
	"bower_components": true, ".tox": true, ".mypy_cache": true,
	".pytest_cache": true, "coverage": true, ".terraform": true,
	"venv": true, ".venv": true, "env": true,
}

var excludedFilenames = map[string]bool{
	"package-lock.json": true, "yarn.lock": true, "pnpm-lock.yaml": true,
	"Pipfile.lock": true, "poetry.lock": true, "Cargo.lock": true,
	"composer.lock": true, "Gemfile.lock": true, "go.sum": true,
	".DS_Store": true, "Thumbs.db": true, ".gitattributes": true,
}

// High-value filenames: entry points, manifests, infrastructure
var priorityFilenames = []string{
	"readme", "package.json", "requirements.txt", "pyproject.toml",
	"cargo.toml", "go.mod", "build.gradle", "pom.xml", "gemfile",
	"composer.json", "dockerfile", "docker-compose", "main.", "index.",
	"server.", "app.",
}

// ShouldExcludePath reports whether a path is skipped outright: generated
// directories, lockfiles, and binary extensions.
func ShouldExcludePath(p string) bool {
	parts := strings.Split(p, "/")
	for _, part := range parts[:len(parts)-1] {
		if excludedDirectories[part] {
			return true
		}
	}

	filename := parts[len(parts)-1]
	if excludedFilenames[filename] {
		return true
	}

	return excludedExtensions[strings.ToLower(path.Ext(filename))]
}

// scoreFile combines signal strength, path depth (shallower preferred), and
// high-value filename patterns into one priority score
func scoreFile(p string, signalWeight float64) float64 {
	score := signalWeight

	depth := strings.Count(p, "/")
	score += 3.0 / float64(1+depth)

	filename := strings.ToLower(path.Base(p))
	for _, pattern := range priorityFilenames {
		if strings.HasPrefix(filename, pattern) || filename == pattern {
			score += 5.0
			break
		}
	}

	return score
}

// SelectFiles ranks the repository tree and greedily selects files in
// descending score order until the token budget or file cap is exhausted.
// Pure function: content is not fetched here.
func SelectFiles(files []interfaces.RepoFile, signals []Signal, cfg *common.AnalysisConfig) []FileCandidate {
	weightByPath := make(map[string]float64)
	for _, s := range signals {
		weightByPath[s.Path] += s.Weight
	}

	var candidates []FileCandidate
	for _, f := range files {
		if ShouldExcludePath(f.Path) {
			continue
		}
		if cfg.MaxFileSize > 0 && f.Size > cfg.MaxFileSize {
			continue
		}
		candidates = append(candidates, FileCandidate{
			Path:            f.Path,
			EstimatedTokens: estimateTokensForSize(f.Size),
			Score:           scoreFile(f.Path, weightByPath[f.Path]),
		})
	}

	// Stable sort keeps tree order for equal scores
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	var selected []FileCandidate
	budget := cfg.SelectionTokenBudget
	for _, c := range candidates {
		if cfg.MaxFilesToFetch > 0 && len(selected) >= cfg.MaxFilesToFetch {
			break
		}
		if budget > 0 && c.EstimatedTokens > budget {
			continue
		}
		selected = append(selected, c)
		budget -= c.EstimatedTokens
	}

	return selected
}

// FetchContents fetches candidate contents with bounded concurrency. A
// per-file failure is reported through logf and the file is skipped; the
// returned slice keeps priority order and holds only fetched files.
func FetchContents(
	ctx context.Context,
	provider interfaces.RepoProvider,
	owner, name string,
	candidates []FileCandidate,
	concurrency int,
	logf func(level, format string, args ...any),
	onProgress func(done int),
) []FileCandidate {
	if concurrency <= 0 {
		concurrency = 4
	}

	type result struct {
		index   int
		content string
		ok      bool
	}

	sem := make(chan struct{}, concurrency)
	results := make([]result, len(candidates))
	var wg sync.WaitGroup
	var done int
	var mu sync.Mutex

	for i := range candidates {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			content, err := provider.GetFileContent(ctx, owner, name, candidates[i].Path)
			if err != nil {
				logf("warn", "skipping %s: %v", candidates[i].Path, err)
			} else {
				results[i] = result{index: i, content: content, ok: true}
			}

			mu.Lock()
			done++
			current := done
			mu.Unlock()
			if onProgress != nil {
				onProgress(current)
			}
		}(i)
	}
	wg.Wait()

	var fetched []FileCandidate
	for i, r := range results {
		if !r.ok {
			continue
		}
		c := candidates[i]
		c.Content = r.content
		c.EstimatedTokens = EstimateTokens(r.content)
		fetched = append(fetched, c)
	}
	return fetched
}

func estimateTokensForSize(size int) int {
	if size <= 0 {
		return 1
	}
	return size / charsPerToken
}
