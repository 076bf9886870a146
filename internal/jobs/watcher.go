package jobs

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/cloo-solutions/sopbot/internal/loader"
)

// FolderWatcher reports changes to eligible documents anywhere under a folder.
type FolderWatcher struct {
	root     string
	onChange func(path string)
}

// NewFolderWatcher creates a watcher calling onChange for every relevant event.
func NewFolderWatcher(root string, onChange func(path string)) *FolderWatcher {
	return &FolderWatcher{root: filepath.Clean(root), onChange: onChange}
}

// Watch blocks until ctx is cancelled. New subdirectories are watched as
// they appear.
func (fw *FolderWatcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := addTree(watcher, fw.root); err != nil {
		return err
	}
	log.Printf("watcher: watching %s", fw.root)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			fw.handle(watcher, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("watcher: error: %v", err)
		case <-ctx.Done():
			log.Println("watcher: context cancelled, shutting down")
			return nil
		}
	}
}

func (fw *FolderWatcher) handle(watcher *fsnotify.Watcher, event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := addTree(watcher, event.Name); err != nil {
				log.Printf("watcher: failed to watch %s: %v", event.Name, err)
			}
			fw.onChange(event.Name)
			return
		}
	}

	if !loader.IsEligible(filepath.Base(event.Name)) {
		return
	}
	if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		log.Printf("watcher: %s changed (%s)", event.Name, event.Op)
		fw.onChange(event.Name)
	}
}

func addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}
