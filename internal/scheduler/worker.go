package scheduler

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/tanq16/trickle/internal/ratelimit"
	"github.com/tanq16/trickle/internal/utils"
)

// coordinator is the part of the Manager a worker talks to.
type coordinator interface {
	NextTask() (utils.DownloadTask, bool)
	OnWorkerExit(id int)
}

// localError marks filesystem failures on our side. They abandon the task
// without retry.
type localError struct {
	op  string
	err error
}

func (e *localError) Error() string { return fmt.Sprintf("error during %s: %v", e.op, e.err) }
func (e *localError) Unwrap() error { return e.err }

// isTransient reports whether a failed attempt may be retried.
func isTransient(err error) bool {
	var local *localError
	switch {
	case errors.Is(err, utils.ErrNotFound), errors.Is(err, utils.ErrUnsupportedScheme):
		return false
	case errors.As(err, &local):
		return false
	}
	return true
}

type workerConfig struct {
	id        int
	task      utils.DownloadTask
	directory string
	bandwidth int64
	fetcher   utils.Fetcher
	coord     coordinator
	tally     *tally
	opts      Options
}

// Worker downloads tasks one at a time until the coordinator runs dry.
type Worker struct {
	id        int
	task      utils.DownloadTask
	directory string
	bandwidth atomic.Int64
	limiter   *ratelimit.Limiter
	fetcher   utils.Fetcher
	coord     coordinator
	tally     *tally
	opts      Options
	log       zerolog.Logger
}

func newWorker(cfg workerConfig) *Worker {
	w := &Worker{
		id:        cfg.id,
		task:      cfg.task,
		directory: cfg.directory,
		limiter:   ratelimit.New(cfg.bandwidth),
		fetcher:   cfg.fetcher,
		coord:     cfg.coord,
		tally:     cfg.tally,
		opts:      cfg.opts.withDefaults(),
		log:       utils.GetLogger("worker").With().Int("worker", cfg.id).Logger(),
	}
	w.bandwidth.Store(cfg.bandwidth)
	return w
}

func (w *Worker) ID() int { return w.id }

func (w *Worker) Bandwidth() int64 { return w.bandwidth.Load() }

// SetBandwidth applies a new cap from the next acquisition on. An unlimited
// value never replaces a finite cap.
func (w *Worker) SetBandwidth(bps int64) {
	if bps <= utils.Unlimited {
		return
	}
	w.bandwidth.Store(bps)
	w.limiter.SetRate(bps)
	w.log.Debug().Str("bandwidth", utils.FormatBandwidth(bps)).Msg("Bandwidth updated")
}

func (w *Worker) run() {
	defer w.coord.OnWorkerExit(w.id)
	for ok := true; ok; w.task, ok = w.coord.NextTask() {
		w.process(w.task)
	}
	w.log.Debug().Msg("Backlog exhausted, worker exiting")
}

// process drives one task through connect, stream and persist, retrying
// transient failures up to MaxRetries attempts in total.
func (w *Worker) process(task utils.DownloadTask) {
	log := w.log.With().Str("url", task.String()).Logger()
	retries := 0
	for {
		stats, err := w.download(task)
		if err == nil {
			w.tally.recordCompleted(stats.Bytes)
			log.Info().
				Str("file", stats.FileName).
				Str("size", utils.FormatBytes(uint64(stats.Bytes))).
				Dur("elapsed", stats.Elapsed).
				Str("speed", utils.FormatSpeed(stats.Bytes, stats.Elapsed.Seconds())).
				Msg("Download complete")
			if w.opts.OnFileDone != nil {
				w.opts.OnFileDone(stats)
			}
			return
		}
		if !isTransient(err) {
			w.tally.recordAbandoned()
			log.Error().Err(err).Msg("Abandoning task")
			return
		}
		retries++
		if retries >= w.opts.MaxRetries {
			w.tally.recordAbandoned()
			log.Error().Err(err).Int("attempts", retries).Msg("Abandoning task after repeated failures")
			return
		}
		log.Warn().Err(err).Msgf("Retrying download (attempt %d/%d)", retries+1, w.opts.MaxRetries)
		time.Sleep(w.opts.RetryDelay)
	}
}

func (w *Worker) download(task utils.DownloadTask) (utils.FileStats, error) {
	body, err := w.fetcher.Open(context.Background(), task.URI)
	if err != nil {
		return utils.FileStats{}, err
	}
	defer body.Close()

	start := time.Now()
	tempPath := filepath.Join(w.directory, utils.TempFileName(w.id))
	file, err := os.Create(tempPath)
	if err != nil {
		return utils.FileStats{}, &localError{op: "temp file creation", err: err}
	}
	written, err := w.stream(body, file)
	if err == nil {
		if syncErr := file.Sync(); syncErr != nil {
			err = &localError{op: "temp file sync", err: syncErr}
		}
	}
	if closeErr := file.Close(); err == nil && closeErr != nil {
		err = &localError{op: "temp file close", err: closeErr}
	}
	if err != nil {
		os.Remove(tempPath)
		return utils.FileStats{}, err
	}

	finalPath := filepath.Join(w.directory, task.FileName)
	if err := replaceFile(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return utils.FileStats{}, &localError{op: "rename", err: err}
	}
	return utils.FileStats{
		FileName: task.FileName,
		URL:      task.String(),
		WorkerID: w.id,
		Bytes:    written,
		Elapsed:  time.Since(start),
	}, nil
}

// stream copies body into file through the limiter. The first acquisition
// charges a full second of bandwidth since the first chunk size is unknown.
func (w *Worker) stream(body io.Reader, file *os.File) (int64, error) {
	out := bufio.NewWriterSize(file, utils.MaxBufferSize)
	if bw := w.Bandwidth(); bw > utils.Unlimited {
		w.limiter.Acquire(int(min(bw, math.MaxInt32)))
	}
	buf := make([]byte, utils.MaxBufferSize)
	var total int64
	for {
		chunk := buf[:w.chunkSize()]
		n, readErr := body.Read(chunk)
		if n > 0 {
			w.limiter.Acquire(n)
			if _, err := out.Write(chunk[:n]); err != nil {
				return total, &localError{op: "temp file write", err: err}
			}
			total += int64(n)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return total, fmt.Errorf("error reading response body: %w", readErr)
		}
	}
	if err := out.Flush(); err != nil {
		return total, &localError{op: "temp file flush", err: err}
	}
	return total, nil
}

func (w *Worker) chunkSize() int {
	bw := w.Bandwidth()
	if bw <= utils.Unlimited || bw >= utils.MaxBufferSize {
		return utils.MaxBufferSize
	}
	return int(bw)
}

// replaceFile moves src over dst. Rename replaces atomically where the
// platform allows; otherwise dst is removed first.
func replaceFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	info, statErr := os.Stat(dst)
	if statErr != nil || info.IsDir() {
		return err
	}
	if rmErr := os.Remove(dst); rmErr != nil {
		return err
	}
	return os.Rename(src, dst)
}
