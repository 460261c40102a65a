package output

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tanq16/trickle/internal/scheduler"
	"github.com/tanq16/trickle/internal/utils"
)

func TestStartBanner(t *testing.T) {
	banner := StartBanner("run-1234", 5, 8, 2048)
	assert.Contains(t, banner, "Download started")
	assert.Contains(t, banner, "run-1234")
	assert.Contains(t, banner, "2.0 KiB/s")
	assert.Contains(t, StartBanner("run-1234", 3, 1, utils.Unlimited), "unlimited")
}

func TestFileStatsBlock(t *testing.T) {
	block := FileStatsBlock(utils.FileStats{
		FileName: "video.mp4",
		WorkerID: 2,
		Bytes:    4096,
		Elapsed:  2 * time.Second,
	})
	assert.Contains(t, block, "video.mp4")
	assert.Contains(t, block, "worker 2")
	assert.Contains(t, block, "4.0 KiB")
	assert.Contains(t, block, "2.0 KiB/s")
}

func TestCompletionBanner(t *testing.T) {
	clean := CompletionBanner(scheduler.Summary{Completed: 3, Bytes: 1024})
	assert.Contains(t, clean, "All files processed")
	assert.NotContains(t, clean, "abandoned")

	partial := CompletionBanner(scheduler.Summary{Completed: 2, Abandoned: 1})
	assert.Contains(t, partial, "some were abandoned")
}

func TestPrinters(t *testing.T) {
	assert.Contains(t, FSuccess("done"), "done")
	assert.Contains(t, FError("failed"), "failed")
	PrintSuccess("success line")
	PrintWarning("warning line")
	PrintError("error line")
}
