package pipeline

import (
	"io/fs"
	"iter"
	"os"
	"path/filepath"

	"github.com/backmassage/kramtex/internal/planner"
)

// Walk returns a lazy sequence of the regular files under root. Each range
// over the sequence walks the tree again, so it can be restarted.
//
// Entries come in lexical order within each directory and directories are
// descended depth-first as they are met. A symbolic link to a regular file
// is yielded under the link's own path; links to directories are never
// descended, which keeps the walk finite on trees with link cycles. Errors
// reading a directory or a file's metadata, including dangling links, are
// yielded with a zero asset; the consumer decides whether to continue.
func Walk(root string) iter.Seq2[planner.SourceAsset, error] {
	return func(yield func(planner.SourceAsset, error) bool) {
		walkDir(root, yield)
	}
}

// walkDir reports false once the consumer stops the iteration.
func walkDir(dir string, yield func(planner.SourceAsset, error) bool) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return yield(planner.SourceAsset{}, err)
	}
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		switch {
		case e.IsDir():
			if !walkDir(path, yield) {
				return false
			}
		case e.Type().IsRegular(), e.Type()&fs.ModeSymlink != 0:
			fi, err := entryInfo(path, e)
			if err != nil {
				if !yield(planner.SourceAsset{}, err) {
					return false
				}
				continue
			}
			if !fi.Mode().IsRegular() {
				continue
			}
			asset := planner.SourceAsset{Path: path, Size: fi.Size(), ModTime: fi.ModTime()}
			if !yield(asset, nil) {
				return false
			}
		}
	}
	return true
}

// entryInfo returns the metadata of e, resolved through a symbolic link.
func entryInfo(path string, e fs.DirEntry) (fs.FileInfo, error) {
	if e.Type()&fs.ModeSymlink != 0 {
		return os.Stat(path)
	}
	return e.Info()
}
