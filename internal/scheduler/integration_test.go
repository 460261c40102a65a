package scheduler_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanq16/trickle/internal/downloaders"
	tricklehttp "github.com/tanq16/trickle/internal/downloaders/http"
	"github.com/tanq16/trickle/internal/scheduler"
	"github.com/tanq16/trickle/internal/utils"
)

func TestDownloadOverHTTP(t *testing.T) {
	var flakyHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/small.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("small"))
	})
	mux.HandleFunc("/big.bin", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("z", 3*utils.MaxBufferSize+17)))
	})
	mux.HandleFunc("/flaky.txt", func(w http.ResponseWriter, r *http.Request) {
		if flakyHits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("third time lucky"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	router := downloaders.NewRouter()
	router.Register(tricklehttp.NewFetcher(utils.HTTPClientConfig{ConnectTimeout: time.Second}), "http", "https")

	var tasks []utils.DownloadTask
	for _, p := range []string{"/small.txt", "/big.bin", "/flaky.txt", "/absent.txt"} {
		task, err := utils.NewDownloadTask(srv.URL + p)
		require.NoError(t, err)
		tasks = append(tasks, task)
	}

	var mu sync.Mutex
	var finished []string
	var summary scheduler.Summary
	m := scheduler.NewManager(router, scheduler.Options{
		MaxRetries: 3,
		RetryDelay: 10 * time.Millisecond,
		OnFileDone: func(s utils.FileStats) {
			mu.Lock()
			finished = append(finished, s.FileName)
			mu.Unlock()
		},
		OnComplete: func(s scheduler.Summary) { summary = s },
	})
	dir := filepath.Join(t.TempDir(), "nested", "downloads")
	require.NoError(t, m.Start(tasks, dir, 2, utils.Unlimited))

	select {
	case <-m.Done():
	case <-time.After(15 * time.Second):
		t.Fatal("downloads did not finish")
	}

	assert.ElementsMatch(t, []string{"small.txt", "big.bin", "flaky.txt"}, finished)
	assert.Equal(t, 3, summary.Completed)
	assert.Equal(t, 1, summary.Abandoned)
	assert.Equal(t, int32(3), flakyHits.Load())

	big, err := os.ReadFile(filepath.Join(dir, "big.bin"))
	require.NoError(t, err)
	assert.Len(t, big, 3*utils.MaxBufferSize+17)
	assert.NoFileExists(t, filepath.Join(dir, "absent.txt"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), utils.TempFilePrefix), e.Name())
	}
}
