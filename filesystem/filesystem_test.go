package filesystem

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLocalFileSystemMetadataLookups(t *testing.T) {
	fs := NewLocalFileSystem()
	tempDir := t.TempDir()

	testFile := filepath.Join(tempDir, "test.txt")
	if err := os.WriteFile(testFile, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	exists, err := fs.FileExists(testFile)
	if err != nil || !exists {
		t.Errorf("FileExists(%q) = %v, %v, want true, nil", testFile, exists, err)
	}

	missing, err := fs.FileExists(filepath.Join(tempDir, "nope.txt"))
	if err != nil || missing {
		t.Errorf("FileExists on missing file = %v, %v, want false, nil", missing, err)
	}

	info, err := fs.FileMetaData(testFile)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 5 {
		t.Errorf("FileMetaData size = %d, want 5", info.Size())
	}

	isDir, err := fs.IsDirectory(tempDir)
	if err != nil || !isDir {
		t.Errorf("IsDirectory(%q) = %v, %v, want true, nil", tempDir, isDir, err)
	}

	isDir, err = fs.IsDirectory(testFile)
	if err != nil || isDir {
		t.Errorf("IsDirectory(%q) = %v, %v, want false, nil", testFile, isDir, err)
	}

	entries, err := fs.ListDirectory(tempDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "test.txt" {
		t.Errorf("ListDirectory = %v, want [test.txt]", entries)
	}

	abs, err := fs.GetAbsolutePath(testFile)
	if err != nil || !filepath.IsAbs(abs) {
		t.Errorf("GetAbsolutePath(%q) = %q, %v, want absolute path", testFile, abs, err)
	}
}

func TestFileMetaDataMissingReturnsErrFileNotFound(t *testing.T) {
	fs := NewLocalFileSystem()
	_, err := fs.FileMetaData(filepath.Join(t.TempDir(), "missing.txt"))
	if err != ErrFileNotFound {
		t.Errorf("FileMetaData on missing file = %v, want ErrFileNotFound", err)
	}
}
