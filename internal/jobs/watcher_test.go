package jobs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, root string) <-chan string {
	t.Helper()
	changes := make(chan string, 64)
	fw := NewFolderWatcher(root, func(path string) {
		select {
		case changes <- path:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, fw.Watch(ctx))
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return changes
}

// touchUntilSeen writes path until the watcher reports it, since the watch
// may not be registered yet when the first write happens.
func touchUntilSeen(t *testing.T, changes <-chan string, path string) {
	t.Helper()
	assert.Eventually(t, func() bool {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			return false
		}
		for {
			select {
			case got := <-changes:
				if got == path {
					return true
				}
			default:
				return false
			}
		}
	}, 3*time.Second, 20*time.Millisecond)
}

func TestFolderWatcher_ReportsDocxChanges(t *testing.T) {
	root := t.TempDir()
	changes := startWatcher(t, root)

	touchUntilSeen(t, changes, filepath.Join(root, "refunds.docx"))
}

func TestFolderWatcher_IgnoresOtherFiles(t *testing.T) {
	root := t.TempDir()
	changes := startWatcher(t, root)

	touchUntilSeen(t, changes, filepath.Join(root, "ready.docx"))

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "~$refunds.docx"), []byte("x"), 0o644))

	ignored := map[string]bool{
		filepath.Join(root, "notes.txt"):      true,
		filepath.Join(root, "~$refunds.docx"): true,
	}
	deadline := time.After(200 * time.Millisecond)
	for {
		select {
		case got := <-changes:
			assert.False(t, ignored[got], "unexpected change for %s", got)
		case <-deadline:
			return
		}
	}
}

func TestFolderWatcher_WatchesNewSubdirectories(t *testing.T) {
	root := t.TempDir()
	changes := startWatcher(t, root)

	touchUntilSeen(t, changes, filepath.Join(root, "ready.docx"))

	sub := filepath.Join(root, "finance")
	require.NoError(t, os.Mkdir(sub, 0o755))

	touchUntilSeen(t, changes, filepath.Join(sub, "refunds.docx"))
}

func TestFolderWatcher_MissingRoot(t *testing.T) {
	fw := NewFolderWatcher(filepath.Join(t.TempDir(), "missing"), func(string) {})

	assert.Error(t, fw.Watch(context.Background()))
}
