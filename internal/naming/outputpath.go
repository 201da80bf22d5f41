package naming

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DestinationBase returns the output stem for a source stem. Height maps are
// turned into normal maps by the encoder, so a trailing "-h" or "-height" is
// rewritten to "-n". All other stems pass through unchanged.
func DestinationBase(stem string, c Classification) string {
	if c.Content != ContentHeight {
		return stem
	}
	lower := strings.ToLower(stem)
	for _, suffix := range []string{"-height", "-h"} {
		if strings.HasSuffix(lower, suffix) {
			return stem[:len(stem)-len(suffix)] + "-n"
		}
	}
	return stem
}

// OutputPath builds the destination file for srcPath. The relative directory
// under srcRoot is mirrored under dstRoot, and ext (with leading dot) replaces
// the source extension:
//
//	<dstRoot>/<rel dir>/<DestinationBase(stem)><ext>
//
// The result depends only on its arguments, so repeated runs agree on where
// each output lives.
func OutputPath(srcRoot, dstRoot, srcPath, ext string, c Classification) (string, error) {
	rel, err := filepath.Rel(srcRoot, srcPath)
	if err != nil {
		return "", fmt.Errorf("relative path of %s: %w", srcPath, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside source root %s", srcPath, srcRoot)
	}
	base := filepath.Base(rel)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dstRoot, filepath.Dir(rel), DestinationBase(stem, c)+ext), nil
}
