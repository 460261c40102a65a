package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
)

func FormatBytes(bytes uint64) string {
	return humanize.IBytes(bytes)
}

func FormatSpeed(bytes int64, elapsed float64) string {
	if elapsed <= 0 || bytes <= 0 {
		return "0 B/s"
	}
	return humanize.IBytes(uint64(float64(bytes)/elapsed)) + "/s"
}

func FormatBandwidth(bps int64) string {
	if bps <= Unlimited {
		return "unlimited"
	}
	return humanize.IBytes(uint64(bps)) + "/s"
}

// ParseBandwidth accepts plain byte counts or human sizes such as "512KiB".
// Empty, "0" and "unlimited" mean no cap.
func ParseBandwidth(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "unlimited") {
		return Unlimited, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid bandwidth %q: %w", s, err)
	}
	if n > uint64(1<<62) {
		return 0, fmt.Errorf("bandwidth %q is too large", s)
	}
	return int64(n), nil
}

func TempFileName(workerID int) string {
	return fmt.Sprintf("%s%d%s", TempFilePrefix, workerID, TempFileSuffix)
}

// Clean removes worker temp files left behind in dir and returns how many were removed.
func Clean(dir string) (int, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	removed := 0
	for _, file := range files {
		name := file.Name()
		if file.IsDir() || !strings.HasPrefix(name, TempFilePrefix) || !strings.HasSuffix(name, TempFileSuffix) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
