package application

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/WangYihang/Sitemap-Generator/pkg/infrastructure/sitemap"
)

func writeTemps(t *testing.T, dir string, contents ...string) []string {
	t.Helper()
	var paths []string
	for _, content := range contents {
		f, err := os.CreateTemp(dir, "sitemap_*.xml")
		if err != nil {
			t.Fatalf("CreateTemp: %v", err)
		}
		f.WriteString(content)
		f.Close()
		paths = append(paths, f.Name())
	}
	return paths
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s): %v", path, err)
	}
	return string(data)
}

func TestFinalizer_SinglePartition(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "sitemap.xml")
	temps := writeTemps(t, dir, "one")

	paths, err := NewFinalizer(target, "https://example.com", sitemap.SuffixUniform).Finalize(temps)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if len(paths) != 1 || paths[0] != target {
		t.Errorf("Finalize() = %v, want [%s]", paths, target)
	}
	if got := readFile(t, target); got != "one" {
		t.Errorf("content = %q, want %q", got, "one")
	}
	if _, err := os.Stat(temps[0]); !os.IsNotExist(err) {
		t.Errorf("temp file %s still exists", temps[0])
	}
}

func TestFinalizer_MultiplePartitions(t *testing.T) {
	tests := []struct {
		name     string
		mode     sitemap.SuffixMode
		wantLocs []string
	}{
		{
			name: "uniform",
			mode: sitemap.SuffixUniform,
			wantLocs: []string{
				"https://example.com/sitemap_part1.xml",
				"https://example.com/sitemap_part2.xml",
				"https://example.com/sitemap_part3.xml",
			},
		},
		{
			name: "legacy",
			mode: sitemap.SuffixLegacy,
			wantLocs: []string{
				"https://example.com/sitemap_part1.xml",
				"https://example.com/sitemap_part2.xml",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			target := filepath.Join(dir, "sitemap.xml")
			temps := writeTemps(t, dir, "one", "two", "three")

			paths, err := NewFinalizer(target, "https://example.com/", tt.mode).Finalize(temps)
			if err != nil {
				t.Fatalf("Finalize: %v", err)
			}

			want := []string{
				target,
				filepath.Join(dir, "sitemap_part1.xml"),
				filepath.Join(dir, "sitemap_part2.xml"),
				filepath.Join(dir, "sitemap_part3.xml"),
			}
			if len(paths) != len(want) {
				t.Fatalf("Finalize() = %v, want %v", paths, want)
			}
			for i := range want {
				if paths[i] != want[i] {
					t.Errorf("paths[%d] = %s, want %s", i, paths[i], want[i])
				}
			}
			for i, content := range []string{"one", "two", "three"} {
				if got := readFile(t, want[i+1]); got != content {
					t.Errorf("content(%s) = %q, want %q", want[i+1], got, content)
				}
			}

			index := readFile(t, target)
			if got := strings.Count(index, "<sitemap>"); got != len(tt.wantLocs) {
				t.Errorf("index has %d entries, want %d", got, len(tt.wantLocs))
			}
			for _, loc := range tt.wantLocs {
				if !strings.Contains(index, "<loc>"+loc+"</loc>") {
					t.Errorf("index is missing %s:\n%s", loc, index)
				}
			}
		})
	}
}

func TestFinalizer_NoPartitions(t *testing.T) {
	target := filepath.Join(t.TempDir(), "sitemap.xml")
	paths, err := NewFinalizer(target, "https://example.com", sitemap.SuffixUniform).Finalize(nil)
	if err != nil || len(paths) != 0 {
		t.Errorf("Finalize(nil) = %v, %v, want no paths", paths, err)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Error("target should not be written without partitions")
	}
}

func TestFinalizer_MissingTemp(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "sitemap.xml")
	_, err := NewFinalizer(target, "https://example.com", sitemap.SuffixUniform).Finalize([]string{
		filepath.Join(dir, "missing_1.xml"),
		filepath.Join(dir, "missing_2.xml"),
	})
	if err == nil {
		t.Error("Finalize should fail when a partition file is missing")
	}
}
