package db

import (
	"path/filepath"
	"testing"
)

func TestOpenMemory(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory failed: %v", err)
	}
	defer d.Close()

	var count int
	if err := d.QueryRow(`SELECT COUNT(*) FROM chat_sessions`).Scan(&count); err != nil {
		t.Fatalf("chat_sessions table missing: %v", err)
	}
	if err := d.QueryRow(`SELECT COUNT(*) FROM chat_messages`).Scan(&count); err != nil {
		t.Fatalf("chat_messages table missing: %v", err)
	}
	if err := d.QueryRow(`SELECT COUNT(*) FROM episode_cache`).Scan(&count); err != nil {
		t.Fatalf("episode_cache table missing: %v", err)
	}
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "podline.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer d.Close()

	// Migrations are idempotent.
	if err := d.migrate(); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
}
