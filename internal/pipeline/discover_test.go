package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func walkAll(t *testing.T, root string) ([]string, []error) {
	t.Helper()
	var (
		names []string
		errs  []error
	)
	for asset, err := range Walk(root) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rel, relErr := filepath.Rel(root, asset.Path)
		require.NoError(t, relErr)
		names = append(names, filepath.ToSlash(rel))
	}
	return names, errs
}

func touch(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestWalk_LexicalDepthFirst(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "z.png")
	touch(t, root, "b/y.png")
	touch(t, root, "b/a/x.png")
	touch(t, root, "a.png")
	touch(t, root, "c/readme.txt")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	names, errs := walkAll(t, root)
	assert.Empty(t, errs)
	assert.Equal(t, []string{"a.png", "b/a/x.png", "b/y.png", "c/readme.txt", "z.png"}, names)
}

func TestWalk_Restartable(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "one.png")
	touch(t, root, "sub/two.png")

	first, _ := walkAll(t, root)
	second, _ := walkAll(t, root)
	assert.Equal(t, first, second)

	touch(t, root, "three.png")
	third, _ := walkAll(t, root)
	assert.Len(t, third, 3, "a new range sees files added since the last walk")
}

func TestWalk_EarlyStop(t *testing.T) {
	root := t.TempDir()
	for _, n := range []string{"a/1.png", "a/2.png", "b/3.png"} {
		touch(t, root, n)
	}
	count := 0
	for range Walk(root) {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
}

func TestWalk_AssetMetadata(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.png")
	for asset, err := range Walk(root) {
		require.NoError(t, err)
		fi, statErr := os.Stat(asset.Path)
		require.NoError(t, statErr)
		assert.Equal(t, fi.Size(), asset.Size)
		assert.True(t, fi.ModTime().Equal(asset.ModTime))
	}
}

func TestWalk_FileSymlinksFollowedDirSymlinksNot(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "real/a.png")
	if err := os.Symlink(root, filepath.Join(root, "loop")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Join(root, "real", "a.png"), filepath.Join(root, "link.png")))

	names, errs := walkAll(t, root)
	assert.Empty(t, errs)
	assert.Equal(t, []string{"link.png", "real/a.png"}, names)
}

func TestWalk_SymlinkAssetMetadata(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(t.TempDir(), "target.png")
	require.NoError(t, os.WriteFile(target, []byte("PNGDATA"), 0o644))
	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(target, old, old))
	if err := os.Symlink(target, filepath.Join(root, "linked-a.png")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	for asset, err := range Walk(root) {
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, "linked-a.png"), asset.Path)
		assert.Equal(t, int64(7), asset.Size)
		assert.True(t, old.Equal(asset.ModTime), "mtime comes from the link target")
	}
}

func TestWalk_DanglingSymlinkYieldsError(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.png")
	if err := os.Symlink(filepath.Join(root, "gone.png"), filepath.Join(root, "b.png")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	names, errs := walkAll(t, root)
	assert.Equal(t, []string{"a.png"}, names)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], os.ErrNotExist)
}

func TestWalk_MissingRoot(t *testing.T) {
	names, errs := walkAll(t, filepath.Join(t.TempDir(), "missing"))
	assert.Empty(t, names)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], os.ErrNotExist)
}
