package cmake

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"time"
)

// ReplyDir is the File API reply directory relative to the build tree root
const ReplyDir = ".cmake/api/v1/reply"

// APIDir is the parent of ReplyDir. Watch mode observes it so a reply
// directory created after startup is still noticed.
const APIDir = ".cmake/api/v1"

// IndexPattern matches index documents inside the reply directory
const IndexPattern = "index-*.json"

// ReplySet identifies the reply directory and the index document selected
// from it. Paths are slash-separated and relative to the build tree root.
type ReplySet struct {
	Dir          string
	IndexFile    string
	IndexModTime time.Time
}

// Path returns the reply-set relative path of a document referenced by the index
func (r *ReplySet) Path(jsonFile string) string {
	return path.Join(r.Dir, jsonFile)
}

// HasReplyDir reports whether fsys contains a File API reply directory.
func HasReplyDir(fsys fs.FS) (bool, error) {
	info, err := fs.Stat(fsys, ReplyDir)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat reply directory: %w", err)
	}
	return info.IsDir(), nil
}

// Locate finds the reply directory in fsys and selects its current index.
//
// A missing reply directory is not an error: found is false and the caller
// decides whether to degrade. An existing directory without any index file
// yields a *NotFoundError, since that indicates a partial export.
func Locate(fsys fs.FS) (set *ReplySet, found bool, err error) {
	ok, err := HasReplyDir(fsys)
	if err != nil || !ok {
		return nil, false, err
	}

	name, modTime, err := SelectIndex(fsys, ReplyDir)
	if err != nil {
		return nil, true, err
	}

	return &ReplySet{
		Dir:          ReplyDir,
		IndexFile:    name,
		IndexModTime: modTime,
	}, true, nil
}

// SelectIndex picks the index document in dir with the newest modification
// time. Equal times are broken by the lexicographically greatest name, so the
// choice is stable across runs on unchanged input.
func SelectIndex(fsys fs.FS, dir string) (string, time.Time, error) {
	matches, err := fs.Glob(fsys, path.Join(dir, IndexPattern))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to list index files: %w", err)
	}

	var (
		best     string
		bestTime time.Time
	)
	for _, match := range matches {
		info, err := fs.Stat(fsys, match)
		if err != nil {
			return "", time.Time{}, fmt.Errorf("failed to stat %s: %w", match, err)
		}
		if info.IsDir() {
			continue
		}
		name := path.Base(match)
		mt := info.ModTime()
		if best == "" || mt.After(bestTime) || (mt.Equal(bestTime) && name > best) {
			best = name
			bestTime = mt
		}
	}

	if best == "" {
		return "", time.Time{}, &NotFoundError{Path: dir, Reason: "no " + IndexPattern + " in reply directory"}
	}

	return best, bestTime, nil
}
