package application

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/WangYihang/Sitemap-Generator/pkg/infrastructure/sitemap"
)

// Finalizer moves partition temp files to their final names and writes the index
type Finalizer struct {
	target  string
	baseURL string
	mode    sitemap.SuffixMode
}

// NewFinalizer creates a finalizer writing to target
func NewFinalizer(target, baseURL string, mode sitemap.SuffixMode) *Finalizer {
	return &Finalizer{target: target, baseURL: baseURL, mode: mode}
}

// Finalize places the partitions and returns the paths written, index first
func (f *Finalizer) Finalize(temps []string) ([]string, error) {
	switch len(temps) {
	case 0:
		return nil, nil
	case 1:
		if err := moveFile(temps[0], f.target); err != nil {
			return nil, err
		}
		return []string{f.target}, nil
	}

	paths := []string{f.target}
	for i, temp := range temps {
		dst := sitemap.PartitionName(f.target, i+1)
		if err := copyFile(temp, dst); err != nil {
			return nil, err
		}
		if err := os.Remove(temp); err != nil {
			return nil, fmt.Errorf("remove %s: %w", temp, err)
		}
		paths = append(paths, dst)
	}

	index := sitemap.Index(f.mode, f.baseURL, filepath.Base(f.target), len(temps))
	if err := os.WriteFile(f.target, []byte(index), 0o644); err != nil {
		return nil, fmt.Errorf("write sitemap index: %w", err)
	}
	return paths, nil
}

// moveFile renames src to dst, copying when they sit on different devices
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove %s: %w", src, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}
	return nil
}
