package source

import (
	"bufio"
	"os"
	"strings"
)

// Load reads the newline-delimited sources file. Blank lines and
// #-comments are skipped; duplicate URLs collapse.
func Load(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var out []string
	seen := make(map[string]struct{})

	scanner := bufio.NewScanner(file)
	// Increase buffer size for very long lines (some subscription links are huge)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out, scanner.Err()
}

// Prune rewrites the sources file without the sources whose consecutive
// failure count reached threshold. Comments and layout of surviving lines
// are preserved. Returns the number of removed sources.
func Prune(path string, failures func(url string) int, threshold int) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var kept []string
	removed := 0
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "#") && failures(trimmed) >= threshold {
			removed++
			continue
		}
		kept = append(kept, line)
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, os.WriteFile(path, []byte(strings.Join(kept, "\n")), 0644)
}
