package cache

import (
	"encoding/hex"
	"os"
	"strconv"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// Store persists cache contents under resolved keys. The store is logically
// a mapping from Key to blob contents shared by every concurrently running
// job; Save is an atomic last-writer-wins replacement and divergent contents
// under one key are never merged.
type Store interface {
	// Restore populates the given workspace paths from the entry stored
	// under key. It reports whether the key was present; on a miss the
	// workspace is left untouched and the job proceeds as a cold run.
	Restore(key Key, paths []string) (bool, error)

	// Save persists the current contents of the given workspace paths under
	// key, replacing any previous entry for that key.
	Save(key Key, paths []string) error
}

// DirStore is a Store backed by a directory tree: one subdirectory per key,
// holding a copy of the saved paths. Both filesystems are injected; tests
// run the store entirely in memory.
type DirStore struct {
	work  billy.Filesystem
	store billy.Filesystem
}

// NewDirStore creates a DirStore copying between the workspace filesystem
// and the cache root filesystem.
func NewDirStore(work, store billy.Filesystem) *DirStore {
	return &DirStore{work: work, store: store}
}

// Restore implements Store.
func (s *DirStore) Restore(key Key, paths []string) (bool, error) {
	entry := entryName(key)
	if _, err := s.store.Stat(entry); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, WrapErrorf(ErrStore, "stat entry %q: %v", entry, err)
	}

	for _, path := range paths {
		src := s.store.Join(entry, path)
		if _, err := s.store.Stat(src); err != nil {
			if os.IsNotExist(err) {
				// The entry was saved before this path existed. Nothing to
				// restore for it.
				continue
			}
			return false, WrapErrorf(ErrStore, "stat %q: %v", src, err)
		}
		if err := copyTree(s.store, src, s.work, path); err != nil {
			return false, WrapErrorf(ErrStore, "restoring %q: %v", path, err)
		}
	}
	return true, nil
}

// Save implements Store. The entry is assembled in a temporary sibling
// directory and renamed into place, so a crash mid-save never leaves a
// half-written entry at the canonical path.
func (s *DirStore) Save(key Key, paths []string) error {
	entry := entryName(key)
	tmp := entry + ".tmp-" + strconv.FormatInt(time.Now().UnixNano(), 36)

	if err := s.store.MkdirAll(tmp, 0o755); err != nil {
		return WrapErrorf(ErrStore, "creating %q: %v", tmp, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = util.RemoveAll(s.store, tmp)
		}
	}()

	for _, path := range paths {
		if _, err := s.work.Stat(path); err != nil {
			if os.IsNotExist(err) {
				// A declared cache path the job never produced. Skipped, not
				// an error: the next restore simply has nothing for it.
				continue
			}
			return WrapErrorf(ErrStore, "stat workspace %q: %v", path, err)
		}
		if err := copyTree(s.work, path, s.store, s.store.Join(tmp, path)); err != nil {
			return WrapErrorf(ErrStore, "saving %q: %v", path, err)
		}
	}

	if err := util.RemoveAll(s.store, entry); err != nil {
		return WrapErrorf(ErrStore, "replacing entry %q: %v", entry, err)
	}
	if err := s.store.Rename(tmp, entry); err != nil {
		return WrapErrorf(ErrStore, "committing entry %q: %v", entry, err)
	}
	committed = true
	return nil
}

// entryName maps a key to a directory name. Hex encoding keeps distinct keys
// distinct and keeps prefix path separators out of the store root.
func entryName(key Key) string {
	return hex.EncodeToString([]byte(key.String()))
}

// copyTree copies a file or directory tree between filesystems.
func copyTree(src billy.Filesystem, srcPath string, dst billy.Filesystem, dstPath string) error {
	info, err := src.Stat(srcPath)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		content, err := util.ReadFile(src, srcPath)
		if err != nil {
			return err
		}
		return util.WriteFile(dst, dstPath, content, info.Mode())
	}

	if err := dst.MkdirAll(dstPath, 0o755); err != nil {
		return err
	}
	children, err := src.ReadDir(srcPath)
	if err != nil {
		return err
	}
	for _, child := range children {
		err := copyTree(
			src, src.Join(srcPath, child.Name()),
			dst, dst.Join(dstPath, child.Name()),
		)
		if err != nil {
			return err
		}
	}
	return nil
}
