package tsengine

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"
	"sync"

	"github.com/simonhull/firebird-suite/flock/pkg/logger"
)

// parseResult holds the result of parsing one file
type parseResult struct {
	info *fileInfo
	path string
	err  error
}

// parseFiles parses paths using a pool of workers, each owning its own
// tree-sitter parsers. Files that fail to read are logged and left out.
func (e *Engine) parseFiles(ctx context.Context, paths []string) ([]*fileInfo, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	numWorkers := e.opts.Workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if numWorkers > len(paths) {
		numWorkers = len(paths)
	}

	jobs := make(chan string, len(paths))
	results := make(chan parseResult, len(paths))
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go e.parseWorker(ctx, jobs, results, &wg)
	}

	// Send jobs
	go func() {
		defer close(jobs)
		for _, p := range paths {
			select {
			case <-ctx.Done():
				return
			case jobs <- p:
			}
		}
	}()

	// Wait for workers to finish
	go func() {
		wg.Wait()
		close(results)
	}()

	infos := make([]*fileInfo, 0, len(paths))
	for result := range results {
		if result.err != nil {
			e.log.Warn("Failed to parse file",
				logger.F("file", result.path),
				logger.F("error", result.err))
			continue
		}
		infos = append(infos, result.info)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].path < infos[j].path })

	e.log.Debug("Parsed files",
		logger.F("files", len(infos)),
		logger.F("workers", numWorkers))

	return infos, nil
}

// parseWorker processes file parsing jobs until jobs is closed
func (e *Engine) parseWorker(ctx context.Context, jobs <-chan string, results chan<- parseResult, wg *sync.WaitGroup) {
	defer wg.Done()

	p, err := newParser()
	if err != nil {
		results <- parseResult{err: fmt.Errorf("creating parser: %w", err)}
		return
	}
	defer p.close()

	for path := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		src, err := os.ReadFile(path)
		if err != nil {
			results <- parseResult{path: path, err: err}
			continue
		}
		results <- parseResult{path: path, info: p.parse(path, src)}
	}
}
