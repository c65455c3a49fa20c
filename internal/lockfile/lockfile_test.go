package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLockAcquisition(t *testing.T) {
	tempDir := t.TempDir()

	lock, err := AcquireLock(tempDir)
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	defer lock.Release()

	lockPath := filepath.Join(tempDir, LockFileName)
	if lock.Path() != lockPath {
		t.Errorf("unexpected lock path %q", lock.Path())
	}

	content, err := os.ReadFile(lockPath)
	if err != nil {
		t.Fatalf("Failed to read lock file: %v", err)
	}
	owner := parseOwner(strings.NewReader(string(content)))
	if owner.PID != os.Getpid() {
		t.Errorf("Lock file should record our PID, got %q", content)
	}
	if owner.StartedAt.IsZero() {
		t.Errorf("Lock file should record the start time, got %q", content)
	}
}

func TestLockConflict(t *testing.T) {
	tempDir := t.TempDir()

	lock1, err := AcquireLock(tempDir)
	if err != nil {
		t.Fatalf("Failed to acquire first lock: %v", err)
	}
	defer lock1.Release()

	lock2, err := AcquireLock(tempDir)
	if err == nil {
		lock2.Release()
		t.Fatalf("Second lock acquisition should have failed")
	}

	var lockErr *LockError
	if !errors.As(err, &lockErr) {
		t.Fatalf("Expected LockError, got: %T", err)
	}
	if lockErr.Owner.PID != os.Getpid() {
		t.Errorf("Expected the holder's PID in the error, got %d", lockErr.Owner.PID)
	}

	errMsg := err.Error()
	if !strings.Contains(errMsg, "another ClimateCanvas instance") {
		t.Errorf("Error message should mention another instance: %s", errMsg)
	}
	if !strings.Contains(errMsg, tempDir) {
		t.Errorf("Error message should contain the lock path: %s", errMsg)
	}
	if !strings.Contains(errMsg, "(running)") {
		t.Errorf("Error message should report the holder as running: %s", errMsg)
	}
}

func TestLockRelease(t *testing.T) {
	tempDir := t.TempDir()

	lock, err := AcquireLock(tempDir)
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	lockPath := filepath.Join(tempDir, LockFileName)

	if err := lock.Release(); err != nil {
		t.Errorf("Failed to release lock: %v", err)
	}
	if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
		t.Errorf("Lock file should be removed after release: %s", lockPath)
	}
	if err := lock.Release(); err != nil {
		t.Errorf("Multiple releases should be safe: %v", err)
	}

	var nilLock *Lock
	if err := nilLock.Release(); err != nil {
		t.Errorf("Releasing a nil lock should be safe: %v", err)
	}
}

func TestLockReacquisition(t *testing.T) {
	tempDir := t.TempDir()

	lock1, err := AcquireLock(tempDir)
	if err != nil {
		t.Fatalf("Failed to acquire first lock: %v", err)
	}
	lock1.Release()

	lock2, err := AcquireLock(tempDir)
	if err != nil {
		t.Fatalf("Failed to reacquire lock after release: %v", err)
	}
	defer lock2.Release()
}

func TestStaleLockFileIsTakenOver(t *testing.T) {
	tempDir := t.TempDir()
	lockPath := filepath.Join(tempDir, LockFileName)
	if err := os.WriteFile(lockPath, []byte("pid=999999\n"), 0644); err != nil {
		t.Fatalf("failed to write stale lock: %v", err)
	}

	lock, err := AcquireLock(tempDir)
	if err != nil {
		t.Fatalf("A lock file without a live flock should be taken over: %v", err)
	}
	defer lock.Release()

	content, _ := os.ReadFile(lockPath)
	if !strings.Contains(string(content), fmt.Sprintf("pid=%d\n", os.Getpid())) {
		t.Errorf("Lock file should be rewritten with our PID, got %q", content)
	}
}

func TestParseOwner(t *testing.T) {
	started := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)
	tests := []struct {
		name    string
		content string
		want    Owner
	}{
		{"pid and start", "pid=12345\nstarted_at=2024-06-01T08:30:00Z\n", Owner{PID: 12345, StartedAt: started}},
		{"pid only", "pid=67890\nother=info", Owner{PID: 67890}},
		{"no pid", "other=info", Owner{}},
		{"empty content", "", Owner{}},
		{"invalid pid", "pid=abc", Owner{}},
		{"no equals", "pid12345", Owner{}},
		{"bad timestamp", "pid=7\nstarted_at=yesterday", Owner{PID: 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseOwner(strings.NewReader(tt.content))
			if got.PID != tt.want.PID || !got.StartedAt.Equal(tt.want.StartedAt) {
				t.Errorf("parseOwner(%q) = %+v, want %+v", tt.content, got, tt.want)
			}
		})
	}
}

func TestOwnerString(t *testing.T) {
	if got := (Owner{}).String(); got != "unknown process" {
		t.Errorf("unexpected %q", got)
	}
	if got := (Owner{PID: os.Getpid()}).String(); !strings.Contains(got, "(running)") {
		t.Errorf("own process should be reported running, got %q", got)
	}
}

func TestIsProcessRunning(t *testing.T) {
	if !isProcessRunning(os.Getpid()) {
		t.Errorf("Our own process should be detected as running")
	}
	if isProcessRunning(999999) {
		t.Logf("High PID detected as running (unexpected but not necessarily wrong)")
	}
}

func TestNonExistentDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")

	lock, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("Should be able to create directory and acquire lock: %v", err)
	}
	defer lock.Release()

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Errorf("Directory should have been created: %s", dir)
	}
}
