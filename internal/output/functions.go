package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tanq16/trickle/internal/scheduler"
	"github.com/tanq16/trickle/internal/utils"
	"golang.org/x/term"
)

const maxRuleWidth = 60

func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

func rule() string {
	return debugStyle.Render(strings.Repeat(StyleSymbols["hline"], min(getTerminalWidth(), maxRuleWidth)))
}

func field(name, value string) string {
	return fmt.Sprintf("  %s %s %s", debugStyle.Render(StyleSymbols["bullet"]), debugStyle.Render(name+":"), value)
}

func StartBanner(runID string, tasks, workers int, bandwidth int64) string {
	lines := []string{
		rule(),
		headerStyle.Render("Download started"),
		field("Run", runID),
		field("Files", fmt.Sprint(tasks)),
		field("Workers", fmt.Sprint(min(workers, tasks))),
		field("Bandwidth", utils.FormatBandwidth(bandwidth)),
		rule(),
	}
	return strings.Join(lines, "\n")
}

func FileStatsBlock(stats utils.FileStats) string {
	lines := []string{
		successStyle.Render(fmt.Sprintf("%s %s", StyleSymbols["pass"], stats.FileName)) +
			debugStyle.Render(fmt.Sprintf(" (worker %d)", stats.WorkerID)),
		field("Time", stats.Elapsed.Round(10 * time.Millisecond).String()),
		field("Size", utils.FormatBytes(uint64(max(stats.Bytes, 0)))),
		field("Average speed", utils.FormatSpeed(stats.Bytes, stats.Elapsed.Seconds())),
	}
	return strings.Join(lines, "\n")
}

func CompletionBanner(summary scheduler.Summary) string {
	title := FSuccess("All files processed")
	if summary.Abandoned > 0 {
		title = warningStyle.Render("All files processed, some were abandoned")
	}
	lines := []string{
		rule(),
		title,
		field("Completed", FSuccess(fmt.Sprint(summary.Completed))),
		field("Abandoned", abandonedValue(summary.Abandoned)),
		field("Downloaded", utils.FormatBytes(uint64(max(summary.Bytes, 0)))),
		field("Elapsed", summary.Elapsed.Round(10 * time.Millisecond).String()),
		rule(),
	}
	return strings.Join(lines, "\n")
}

func abandonedValue(n int) string {
	if n == 0 {
		return fmt.Sprint(n)
	}
	return FError(fmt.Sprint(n))
}

func PrintStartBanner(runID string, tasks, workers int, bandwidth int64) {
	emit(StartBanner(runID, tasks, workers, bandwidth))
}

func PrintFileStats(stats utils.FileStats) {
	emit(FileStatsBlock(stats))
}

func PrintCompletion(summary scheduler.Summary) {
	emit(CompletionBanner(summary))
}
