// Package sourceslice recovers the exact source text a matched node's
// location attributes bound, the Go equivalent of Python's
// ast.get_source_segment as used by original_source/reiz/fetch.py's fetch().
package sourceslice

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Location is the four-attribute location tuple a positional node carries.
// Lineno/EndLineno are 1-based; ColOffset/EndColOffset are 0-based byte
// offsets into their line, matching Python's ast module convention.
type Location struct {
	Lineno       int
	ColOffset    int
	EndLineno    int
	EndColOffset int
}

// Fetch reads filename and returns the substring Location bounds. It never
// talks to the database or cache — callers (pkg/engine.RunQuery) treat any
// error here as a recoverable "source = nil" result, per spec.md §7's
// "slice failure" error kind.
func Fetch(filename string, loc Location) (string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return "", fmt.Errorf("sourceslice: open %s: %w", filename, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("sourceslice: read %s: %w", filename, err)
	}
	return Slice(lines, loc)
}

// Slice extracts loc's span out of lines (already split on newlines, no
// trailing \n), the pure function Fetch wraps around file I/O so it's
// directly testable without touching a filesystem.
func Slice(lines []string, loc Location) (string, error) {
	if loc.Lineno < 1 || loc.EndLineno < loc.Lineno || loc.EndLineno > len(lines) {
		return "", fmt.Errorf("sourceslice: location %+v out of range for %d lines", loc, len(lines))
	}

	if loc.Lineno == loc.EndLineno {
		line := lines[loc.Lineno-1]
		if loc.ColOffset < 0 || loc.EndColOffset > len(line) || loc.ColOffset > loc.EndColOffset {
			return "", fmt.Errorf("sourceslice: column range %d:%d out of range for line %d (len %d)",
				loc.ColOffset, loc.EndColOffset, loc.Lineno, len(line))
		}
		return line[loc.ColOffset:loc.EndColOffset], nil
	}

	var b strings.Builder
	first := lines[loc.Lineno-1]
	if loc.ColOffset < 0 || loc.ColOffset > len(first) {
		return "", fmt.Errorf("sourceslice: start column %d out of range for line %d (len %d)",
			loc.ColOffset, loc.Lineno, len(first))
	}
	b.WriteString(first[loc.ColOffset:])

	for ln := loc.Lineno + 1; ln < loc.EndLineno; ln++ {
		b.WriteByte('\n')
		b.WriteString(lines[ln-1])
	}

	last := lines[loc.EndLineno-1]
	if loc.EndColOffset < 0 || loc.EndColOffset > len(last) {
		return "", fmt.Errorf("sourceslice: end column %d out of range for line %d (len %d)",
			loc.EndColOffset, loc.EndLineno, len(last))
	}
	b.WriteByte('\n')
	b.WriteString(last[:loc.EndColOffset])

	return b.String(), nil
}
