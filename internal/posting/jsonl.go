package posting

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

const maxLineSize = 8 * 1024 * 1024

// ReadJSONL decodes one posting per line. Blank lines are skipped.
func ReadJSONL(r io.Reader) ([]RawPosting, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var items []RawPosting
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var p RawPosting
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		items = append(items, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// ReadJSONLFile reads a JSONL dump from disk.
func ReadJSONLFile(path string) ([]RawPosting, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	items, err := ReadJSONL(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return items, nil
}
