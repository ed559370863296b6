// Package scanner recursively discovers Python source files under one or
// more roots, the directory-walking half of a bulk `reiz ingest --root`
// run.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Config bounds a discovery run.
type Config struct {
	MaxBytes       int64 // 0 means unbounded
	FollowSymlinks bool
}

// Scanner walks directory trees collecting .py files.
type Scanner struct {
	maxBytes       int64
	followSymlinks bool
}

// New returns a Scanner for cfg.
func New(cfg Config) *Scanner {
	return &Scanner{maxBytes: cfg.MaxBytes, followSymlinks: cfg.FollowSymlinks}
}

// skipDirs are never descended into, regardless of root.
var skipDirs = []string{".git", ".hg", ".svn", "vendor", "node_modules", ".reiz", "__pycache__"}

// Discover walks each of targets (a file or directory) and returns every
// .py file found, deduplicated and in a stable order.
func (s *Scanner) Discover(ctx context.Context, targets []string) ([]string, error) {
	if len(targets) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("scanner: getwd: %w", err)
		}
		targets = []string{cwd}
	}

	var all []string
	for _, target := range targets {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		files, err := s.scanTarget(ctx, target)
		if err != nil {
			return nil, fmt.Errorf("scanner: scanning %s: %w", target, err)
		}
		all = append(all, files...)
	}
	return dedup(all), nil
}

func (s *Scanner) scanTarget(ctx context.Context, target string) ([]string, error) {
	info, err := os.Lstat(target)
	if err != nil {
		return nil, fmt.Errorf("accessing %s: %w", target, err)
	}

	if info.Mode()&os.ModeSymlink != 0 {
		if !s.followSymlinks {
			return nil, nil
		}
		resolved, err := filepath.EvalSymlinks(target)
		if err != nil {
			return nil, fmt.Errorf("resolving symlink %s: %w", target, err)
		}
		return s.scanTarget(ctx, resolved)
	}

	if info.Mode().IsRegular() {
		if s.shouldProcess(target, info) {
			return []string{target}, nil
		}
		return nil, nil
	}

	if info.IsDir() {
		return s.scanDirectory(ctx, target)
	}
	return nil, nil
}

func (s *Scanner) scanDirectory(ctx context.Context, dir string) ([]string, error) {
	var files []string
	err := fs.WalkDir(os.DirFS(dir), ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		fullPath := filepath.Join(dir, path)
		if d.IsDir() {
			if shouldSkipDirectory(path) {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return fmt.Errorf("stat %s: %w", fullPath, err)
			}
			if s.shouldProcess(fullPath, info) {
				files = append(files, fullPath)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	return files, nil
}

func (s *Scanner) shouldProcess(path string, info os.FileInfo) bool {
	if s.maxBytes > 0 && info.Size() > s.maxBytes {
		return false
	}
	return strings.EqualFold(filepath.Ext(path), ".py")
}

func shouldSkipDirectory(path string) bool {
	name := filepath.Base(path)
	if slices.Contains(skipDirs, name) {
		return true
	}
	return strings.HasPrefix(name, ".") && name != "."
}

func dedup(files []string) []string {
	seen := make(map[string]bool, len(files))
	var out []string
	for _, f := range files {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}
