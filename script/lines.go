package script

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// maxLineBytes bounds a single script line.
const maxLineBytes = 64 * 1024

// ReadLines reads one script line per row. Blank rows and rows starting with
// '#' are skipped.
func ReadLines(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLineBytes)
	var lines []string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("script: read lines: %w", err)
	}
	return lines, nil
}

// LoadFile reads the script at path. An empty path returns DefaultLines.
func LoadFile(path string) ([]string, error) {
	if path == "" {
		return append([]string(nil), DefaultLines...), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	defer f.Close()
	lines, err := ReadLines(f)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("script: %s has no lines", path)
	}
	return lines, nil
}
