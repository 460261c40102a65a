package utils

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ReadDownloadList loads the URL list at path. Plain files hold one URL per
// line; .yaml/.yml files hold a sequence of URLs or of {link: URL} entries.
// Invalid entries are logged and skipped.
func ReadDownloadList(path string) ([]DownloadTask, error) {
	if path == "" {
		return nil, fmt.Errorf("no URL list file provided")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading URL list %s: %w", path, err)
	}
	var raw []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		raw, err = parseYAMLList(data)
		if err != nil {
			return nil, fmt.Errorf("error parsing URL list %s: %w", path, err)
		}
	default:
		raw = parseTextList(data)
	}
	log := GetLogger("url-list")
	var tasks []DownloadTask
	for _, line := range raw {
		task, err := NewDownloadTask(line)
		if err != nil {
			log.Warn().Err(err).Msg("Skipping list entry")
			continue
		}
		tasks = append(tasks, task)
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyList)
	}
	log.Debug().Int("tasks", len(tasks)).Str("file", path).Msg("URL list loaded")
	return tasks, nil
}

func parseTextList(data []byte) []string {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func parseYAMLList(data []byte) ([]string, error) {
	var nodes []yaml.Node
	if err := yaml.Unmarshal(data, &nodes); err != nil {
		return nil, err
	}
	var links []string
	for _, node := range nodes {
		switch node.Kind {
		case yaml.ScalarNode:
			links = append(links, strings.TrimSpace(node.Value))
		case yaml.MappingNode:
			var entry DownloadEntry
			if err := node.Decode(&entry); err != nil {
				return nil, fmt.Errorf("line %d: %w", node.Line, err)
			}
			links = append(links, strings.TrimSpace(entry.URL))
		default:
			return nil, fmt.Errorf("line %d: expected a URL or a link entry", node.Line)
		}
	}
	return links, nil
}
