package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Fetcher downloads several objects in parallel into a local cache
// directory. Objects already present in the cache are not downloaded again.
type Fetcher struct {
	storage     ObjectStorage
	concurrency int
	cacheDir    string
}

// FetchResult contains the outcome of a Fetch.
type FetchResult struct {
	LocalPaths map[string]string
	Errors     map[string]error
	CacheHits  int
	Downloads  int
}

// Err returns the first error in object order, or nil.
func (r *FetchResult) Err(objectPaths []string) error {
	for _, p := range objectPaths {
		if err, ok := r.Errors[p]; ok {
			return fmt.Errorf("fetch %s: %w", p, err)
		}
	}
	return nil
}

// NewFetcher creates a Fetcher. A concurrency below one means one.
func NewFetcher(storage ObjectStorage, concurrency int, cacheDir string) *Fetcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Fetcher{
		storage:     storage,
		concurrency: concurrency,
		cacheDir:    cacheDir,
	}
}

// Fetch downloads objectPaths. Per-object failures are reported in the
// result; the returned error is only set when the cache cannot be prepared.
func (f *Fetcher) Fetch(ctx context.Context, objectPaths []string) (*FetchResult, error) {
	result := &FetchResult{
		LocalPaths: make(map[string]string, len(objectPaths)),
		Errors:     make(map[string]error),
	}
	if len(objectPaths) == 0 {
		return result, nil
	}
	if err := os.MkdirAll(f.cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	var queue []string
	for _, p := range objectPaths {
		local := f.LocalPath(p)
		if _, err := os.Stat(local); err == nil {
			result.LocalPaths[p] = local
			result.CacheHits++
			continue
		}
		queue = append(queue, p)
	}

	sem := semaphore.NewWeighted(int64(f.concurrency))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, p := range queue {
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			result.Errors[p] = fmt.Errorf("semaphore acquire failed: %w", err)
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(path string) {
			defer sem.Release(1)
			defer wg.Done()

			local := f.LocalPath(path)
			tmp := local + ".part"
			err := f.storage.Download(ctx, path, tmp)
			if err == nil {
				err = os.Rename(tmp, local)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				os.Remove(tmp)
				result.Errors[path] = err
				return
			}
			result.LocalPaths[path] = local
			result.Downloads++
		}(p)
	}
	wg.Wait()

	return result, nil
}

// cacheNameEscaper flattens an object path into one file name. "_" becomes
// "_u" and "/" becomes "__", so the mapping is reversible.
var cacheNameEscaper = strings.NewReplacer("_", "_u", "/", "__")

// LocalPath returns the cache path for an object: a single file directly
// under the cache directory, distinct for distinct object paths.
func (f *Fetcher) LocalPath(objectPath string) string {
	name := cacheNameEscaper.Replace(strings.Trim(objectPath, "/"))
	switch name {
	case "", ".", "..":
		// "_d" never comes out of the escaper.
		name = "_d" + name
	}
	return filepath.Join(f.cacheDir, name)
}
