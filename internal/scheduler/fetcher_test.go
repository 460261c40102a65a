package scheduler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tanq16/trickle/internal/utils"
)

// memFetcher serves bodies from memory with scripted failures.
type memFetcher struct {
	mu       sync.Mutex
	bodies   map[string][]byte
	failures map[string]int // transient failures before success
	missing  map[string]bool
	broken   map[string]int // attempts that die partway through the body
	gates    map[string]chan struct{}
	attempts map[string]int
}

func newMemFetcher() *memFetcher {
	return &memFetcher{
		bodies:   make(map[string][]byte),
		failures: make(map[string]int),
		missing:  make(map[string]bool),
		broken:   make(map[string]int),
		gates:    make(map[string]chan struct{}),
		attempts: make(map[string]int),
	}
}

func (f *memFetcher) Open(ctx context.Context, uri *url.URL) (io.ReadCloser, error) {
	key := uri.String()
	f.mu.Lock()
	f.attempts[key]++
	gate := f.gates[key]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missing[key] {
		return nil, fmt.Errorf("%s: %w", key, utils.ErrNotFound)
	}
	if f.failures[key] > 0 {
		f.failures[key]--
		return nil, errors.New("connection reset by peer")
	}
	body, ok := f.bodies[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, utils.ErrNotFound)
	}
	if f.broken[key] > 0 {
		f.broken[key]--
		return io.NopCloser(io.MultiReader(strings.NewReader("partial"), failingReader{})), nil
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("unexpected EOF from peer")
}

func (f *memFetcher) attemptsFor(raw string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[raw]
}

func testTasks(t *testing.T, raws ...string) []utils.DownloadTask {
	t.Helper()
	tasks := make([]utils.DownloadTask, 0, len(raws))
	for _, raw := range raws {
		task, err := utils.NewDownloadTask(raw)
		require.NoError(t, err)
		tasks = append(tasks, task)
	}
	return tasks
}

func testOptions() Options {
	return Options{MaxRetries: 3, RetryDelay: 10 * time.Millisecond}
}

func waitDone(t *testing.T, m *Manager) {
	t.Helper()
	select {
	case <-m.Done():
	case <-time.After(15 * time.Second):
		t.Fatal("manager did not complete in time")
	}
}

func tempFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var found []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), utils.TempFilePrefix) {
			found = append(found, e.Name())
		}
	}
	return found
}

func readFile(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(data)
}
