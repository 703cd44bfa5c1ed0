package fsutil

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestWriteFileAtomicCreatesParents(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "a", "b", "bundle.js")

	if err := WriteFileAtomic(target, []byte("console.log(1)"), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	if got := readFile(t, target); got != "console.log(1)" {
		t.Errorf("content = %q", got)
	}

	entries, err := os.ReadDir(filepath.Dir(target))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the target file, found %d entries", len(entries))
	}
}

func TestWriteFileAtomicReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "bundle.js")
	writeFile(t, target, "old")

	if err := WriteFileAtomic(target, []byte("new"), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	if got := readFile(t, target); got != "new" {
		t.Errorf("content = %q, want new", got)
	}
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src", "logo.svg")
	dst := filepath.Join(dir, "out", "assets", "logo.svg")
	writeFile(t, src, "<svg/>")

	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}
	if got := readFile(t, dst); got != "<svg/>" {
		t.Errorf("content = %q", got)
	}
}

func TestCopyFileRejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := CopyFile(dir, filepath.Join(dir, "x")); err == nil {
		t.Error("expected error copying a directory")
	}
}

func TestCopyTreeMergesDirectories(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "assets")
	dst := filepath.Join(dir, "public", "assets")
	writeFile(t, filepath.Join(src, "a.css"), "a")
	writeFile(t, filepath.Join(src, "img", "b.png"), "b")
	writeFile(t, filepath.Join(dst, "stale.txt"), "keep")
	writeFile(t, filepath.Join(dst, "a.css"), "old")

	n, err := CopyTree(src, dst)
	if err != nil {
		t.Fatalf("CopyTree: %v", err)
	}
	if n != 2 {
		t.Errorf("copied = %d, want 2", n)
	}
	if got := readFile(t, filepath.Join(dst, "a.css")); got != "a" {
		t.Errorf("a.css = %q, want overwritten", got)
	}
	if got := readFile(t, filepath.Join(dst, "img", "b.png")); got != "b" {
		t.Errorf("img/b.png = %q", got)
	}
	if got := readFile(t, filepath.Join(dst, "stale.txt")); got != "keep" {
		t.Errorf("existing file should survive merge, got %q", got)
	}
}

func TestCopyTreeSingleFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "index.html")
	writeFile(t, src, "<html></html>")

	n, err := CopyTree(src, filepath.Join(dir, "out", "index.html"))
	if err != nil {
		t.Fatalf("CopyTree: %v", err)
	}
	if n != 1 {
		t.Errorf("copied = %d, want 1", n)
	}
}

func TestCopyTreeMissingSource(t *testing.T) {
	if _, err := CopyTree(filepath.Join(t.TempDir(), "missing"), t.TempDir()); err == nil {
		t.Error("expected error for missing source")
	}
}

func TestRemoveByExt(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.less"), "")
	writeFile(t, filepath.Join(dir, "nested", "vars.less"), "")
	writeFile(t, filepath.Join(dir, "nested", "main.css"), "")

	removed, err := RemoveByExt(dir, ".less")
	if err != nil {
		t.Fatalf("RemoveByExt: %v", err)
	}
	sort.Strings(removed)
	want := []string{filepath.Join(dir, "main.less"), filepath.Join(dir, "nested", "vars.less")}
	if len(removed) != len(want) || removed[0] != want[0] || removed[1] != want[1] {
		t.Errorf("removed = %v, want %v", removed, want)
	}
	if !IsRegularFile(filepath.Join(dir, "nested", "main.css")) {
		t.Error("main.css should not be removed")
	}
}

func TestRemoveByExtMissingRoot(t *testing.T) {
	removed, err := RemoveByExt(filepath.Join(t.TempDir(), "missing"), ".less")
	if err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if len(removed) != 0 {
		t.Errorf("removed = %v", removed)
	}
}
