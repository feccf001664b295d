package handlers

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"appscout/internal/core"

	"github.com/goccy/go-json"
)

const (
	formatText = "text"
	formatJSON = "json"
)

// readKeywords collects keywords from path and args. A .json file holds an
// array of DiscoveredKeyword; anything else is one term per line, with
// blank lines and #-comments skipped. Positions follow input order.
func readKeywords(path string, args []string) ([]core.DiscoveredKeyword, error) {
	var keywords []core.DiscoveredKeyword

	if path != "" {
		if strings.EqualFold(filepath.Ext(path), ".json") {
			if err := readJSONFile(path, &keywords); err != nil {
				return nil, err
			}
		} else {
			f, err := os.Open(path)
			if err != nil {
				return nil, fmt.Errorf("failed to open keywords file %s: %w", path, err)
			}
			defer f.Close()

			scanner := bufio.NewScanner(f)
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" || strings.HasPrefix(line, "#") {
					continue
				}
				keywords = append(keywords, core.DiscoveredKeyword{Term: line})
			}
			if err := scanner.Err(); err != nil {
				return nil, fmt.Errorf("failed to read keywords file %s: %w", path, err)
			}
		}
	}

	for _, arg := range args {
		if term := strings.TrimSpace(arg); term != "" {
			keywords = append(keywords, core.DiscoveredKeyword{Term: term})
		}
	}

	for i := range keywords {
		if keywords[i].Position == 0 {
			keywords[i].Position = i + 1
		}
	}
	return keywords, nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// writeJSONFile writes v to path, or to w when path is empty.
func writeJSONFile(w io.Writer, path string, v any) error {
	if path == "" {
		return writeJSON(w, v)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	return writeJSON(f, v)
}

func checkFormat(format string) error {
	switch format {
	case formatText, formatJSON:
		return nil
	default:
		return fmt.Errorf("unknown format %q (expected %s or %s)", format, formatText, formatJSON)
	}
}
