package osfilesystem

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSystem_WriteFile(t *testing.T) {
	fsys := New()
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.png")

	if err := fsys.WriteFile(path, []byte("first")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := fsys.WriteFile(path, []byte("second")); err != nil {
		t.Fatalf("WriteFile overwrite failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("expected %q, got %q", "second", data)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm() != 0644 {
		t.Errorf("mode = %v, want 0644", info.Mode().Perm())
	}

	// No temporary files are left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries, want 1", len(entries))
	}
}

func TestFileSystem_WriteFileCreatesParentDirs(t *testing.T) {
	fsys := New()
	path := filepath.Join(t.TempDir(), "a", "b", "c", "frame.png")

	if err := fsys.WriteFile(path, []byte("test")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	exists, err := fsys.Exists(path)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("expected file to exist")
	}
}

func TestFileSystem_WriteFileIntoFile(t *testing.T) {
	fsys := New()
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if err := fsys.WriteFile(filepath.Join(blocker, "frame.png"), []byte("x")); err == nil {
		t.Error("expected error when the parent is a file")
	}
}

func TestFileSystem_MkdirAll(t *testing.T) {
	fsys := New()
	dir := filepath.Join(t.TempDir(), "x", "y", "z")

	if err := fsys.MkdirAll(dir); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("expected directory to exist: %v", err)
	}
	if !info.IsDir() {
		t.Error("expected a directory")
	}
}

func TestFileSystem_Exists(t *testing.T) {
	fsys := New()
	dir := t.TempDir()

	exists, err := fsys.Exists(filepath.Join(dir, "missing"))
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("expected file to not exist")
	}

	exists, err = fsys.Exists(dir)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("expected directory to exist")
	}
}
