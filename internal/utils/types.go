package utils

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"time"
)

// Fetcher opens a readable stream for a remote resource. Implementations
// return an error wrapping ErrNotFound when the resource does not exist.
type Fetcher interface {
	Open(ctx context.Context, uri *url.URL) (io.ReadCloser, error)
}

// DownloadTask is one entry of the backlog. It is never mutated after creation.
type DownloadTask struct {
	URI      *url.URL
	FileName string
}

func NewDownloadTask(raw string) (DownloadTask, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return DownloadTask{}, fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return DownloadTask{}, fmt.Errorf("URL %q is not absolute", raw)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == ".." || name == "" {
		return DownloadTask{}, fmt.Errorf("URL %q has no file name", raw)
	}
	return DownloadTask{URI: u, FileName: name}, nil
}

func (t DownloadTask) String() string {
	if t.URI == nil {
		return ""
	}
	return t.URI.String()
}

// FileStats describes one finished file.
type FileStats struct {
	FileName string
	URL      string
	WorkerID int
	Bytes    int64
	Elapsed  time.Duration
}

// AverageSpeed returns bytes per second over the whole transfer.
func (s FileStats) AverageSpeed() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Bytes) / s.Elapsed.Seconds()
}

type DownloadEntry struct {
	URL string `yaml:"link"`
}
