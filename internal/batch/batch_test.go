package batch

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ImageRenUtil/internal/imagefs"
	"ImageRenUtil/internal/naming"
)

type memStore struct {
	calls  int
	prefix string
	next   int
	err    error
}

func (m *memStore) Persist(prefix string, next int) error {
	m.calls++
	m.prefix, m.next = prefix, next
	return m.err
}

// brokenDirs renames files on disk but refuses every folder rename.
type brokenDirs struct{ imagefs.OS }

func (brokenDirs) RenameDir(string, string) (string, error) {
	return "", errors.New("folder is busy")
}

func fixedNow() time.Time { return time.Date(2025, time.June, 1, 9, 0, 0, 0, time.Local) }

func newTestRunner(r Renamer, store Persister) *Runner {
	return &Runner{
		Files:    r,
		Settings: store,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:      fixedNow,
	}
}

func setup(t *testing.T, names ...string) (string, []string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "photos")
	require.NoError(t, os.Mkdir(dir, 0o755))
	var paths []string
	for _, n := range names {
		p := filepath.Join(dir, n)
		require.NoError(t, os.WriteFile(p, []byte(n), 0o644))
		paths = append(paths, p)
	}
	return dir, paths
}

func TestRun_RenamesFilesAndFolder(t *testing.T) {
	dir, paths := setup(t, "a.jpg", "b.png", "c.txt")
	paths = append(paths, filepath.Join(dir, "missing.jpg"))
	store := &memStore{}
	var progress []int

	res, err := newTestRunner(imagefs.OS{}, store).Run(context.Background(), naming.Request{
		Files:        paths,
		Prefix:       "img",
		StartNumber:  1,
		RenameFolder: true,
	}, Options{FolderUnit: "张", Progress: func(done, total int) {
		assert.Equal(t, 4, total)
		progress = append(progress, done)
	}})
	require.NoError(t, err)

	assert.Equal(t, []Renamed{
		{Original: "a.jpg", New: "img250601001.jpg"},
		{Original: "b.png", New: "img250601002.jpg"},
	}, res.Success)
	assert.Equal(t, []Failed{
		{File: "c.txt", Error: "unsupported image format"},
		{File: "missing.jpg", Error: "file does not exist"},
	}, res.Errors)
	assert.Equal(t, []int{1, 2, 3, 4}, progress)

	require.NotNil(t, res.FolderRenamed)
	assert.Equal(t, "photos", res.FolderRenamed.Original)
	assert.Equal(t, "img_250601 1-2 2张", res.FolderRenamed.New)
	assert.Empty(t, res.FolderRenameError)

	newDir := filepath.Join(filepath.Dir(dir), "img_250601 1-2 2张")
	assert.FileExists(t, filepath.Join(newDir, "img250601001.jpg"))
	assert.FileExists(t, filepath.Join(newDir, "img250601002.jpg"))
	assert.FileExists(t, filepath.Join(newDir, "c.txt"))

	assert.Equal(t, 1, store.calls)
	assert.Equal(t, "img", store.prefix)
	assert.Equal(t, 3, store.next)
}

func TestRun_RenamesSelectedFolderNotSubfolder(t *testing.T) {
	dir, _ := setup(t, "b.jpg")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "2024"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2024", "a.jpg"), nil, 0o644))

	files, err := imagefs.ListImageFiles(dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "2024", "a.jpg"), files[0])

	res, err := newTestRunner(imagefs.OS{}, nil).Run(context.Background(), naming.Request{
		Files: files, Folder: dir, Prefix: "img", StartNumber: 1, RenameFolder: true,
	}, Options{FolderUnit: "张"})
	require.NoError(t, err)

	require.NotNil(t, res.FolderRenamed)
	assert.Equal(t, "photos", res.FolderRenamed.Original)
	assert.NoDirExists(t, dir)

	newDir := filepath.Join(filepath.Dir(dir), "img_250601 1-2 2张")
	assert.DirExists(t, filepath.Join(newDir, "2024"))
	assert.FileExists(t, filepath.Join(newDir, "2024", "img250601001.jpg"))
	assert.FileExists(t, filepath.Join(newDir, "img250601002.jpg"))
}

func TestRun_ItemPathsFollowFolderRename(t *testing.T) {
	dir, _ := setup(t, "b.jpg")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "2024"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2024", "a.jpg"), nil, 0o644))
	files, err := imagefs.ListImageFiles(dir)
	require.NoError(t, err)

	res, err := newTestRunner(imagefs.OS{}, nil).Run(context.Background(), naming.Request{
		Files: files, Folder: dir, Prefix: "img", StartNumber: 1, RenameFolder: true,
	}, Options{FolderUnit: "张"})
	require.NoError(t, err)
	require.Len(t, res.Items, 3)

	for _, it := range res.Items {
		_, err := os.Stat(it.NewPath)
		assert.NoError(t, err, "new path of %s", it.OldName)
	}
	last := res.Items[len(res.Items)-1]
	assert.Equal(t, "folder", last.Reason)
	assert.Equal(t, dir, last.OldPath)
}

func TestRun_NoFolderRenameWhenDisabled(t *testing.T) {
	dir, paths := setup(t, "a.jpg")
	res, err := newTestRunner(imagefs.OS{}, nil).Run(context.Background(), naming.Request{
		Files: paths, Prefix: "x", StartNumber: 5,
	}, Options{})
	require.NoError(t, err)

	assert.Nil(t, res.FolderRenamed)
	assert.DirExists(t, dir)
	assert.FileExists(t, filepath.Join(dir, "x250601005.jpg"))
}

func TestRun_NoFolderRenameWithoutSuccess(t *testing.T) {
	dir, paths := setup(t, "notes.txt")
	res, err := newTestRunner(imagefs.OS{}, nil).Run(context.Background(), naming.Request{
		Files: paths, Prefix: "x", StartNumber: 1, RenameFolder: true,
	}, Options{})
	require.NoError(t, err)

	assert.Empty(t, res.Success)
	assert.Len(t, res.Errors, 1)
	assert.Nil(t, res.FolderRenamed)
	assert.DirExists(t, dir)
}

func TestRun_FolderRenameFailureKeepsFiles(t *testing.T) {
	dir, paths := setup(t, "a.jpg", "b.jpg")
	res, err := newTestRunner(brokenDirs{}, nil).Run(context.Background(), naming.Request{
		Files: paths, Prefix: "img", StartNumber: 1, RenameFolder: true,
	}, Options{})
	require.NoError(t, err)

	assert.Len(t, res.Success, 2)
	assert.Nil(t, res.FolderRenamed)
	assert.Equal(t, "folder is busy", res.FolderRenameError)
	assert.FileExists(t, filepath.Join(dir, "img250601002.jpg"))
}

func TestRun_TargetExistsIsPerFile(t *testing.T) {
	dir, paths := setup(t, "a.jpg", "b.jpg", "img250601002.jpg")
	paths = paths[:2]
	store := &memStore{}

	res, err := newTestRunner(imagefs.OS{}, store).Run(context.Background(), naming.Request{
		Files: paths, Prefix: "img", StartNumber: 1,
	}, Options{})
	require.NoError(t, err)

	assert.Equal(t, []Renamed{{Original: "a.jpg", New: "img250601001.jpg"}}, res.Success)
	assert.Equal(t, []Failed{{File: "b.jpg", Error: "target already exists"}}, res.Errors)
	assert.FileExists(t, filepath.Join(dir, "b.jpg"))
	assert.Equal(t, 3, store.next)
}

func TestRun_TruncatesPrefix(t *testing.T) {
	_, paths := setup(t, "a.jpg")
	store := &memStore{}

	res, err := newTestRunner(imagefs.OS{}, store).Run(context.Background(), naming.Request{
		Files: paths, Prefix: "vacation_photo", StartNumber: 1,
	}, Options{})
	require.NoError(t, err)

	assert.True(t, res.Plan.PrefixTruncated)
	assert.Equal(t, "vacation250601001.jpg", res.Success[0].New)
	assert.Equal(t, "vacation", store.prefix)
}

func TestRun_DryRunTouchesNothing(t *testing.T) {
	dir, paths := setup(t, "a.jpg", "b.gif", "c.txt")
	store := &memStore{}

	res, err := newTestRunner(imagefs.OS{}, store).Run(context.Background(), naming.Request{
		Files: paths, Prefix: "img", StartNumber: 1, RenameFolder: true,
	}, Options{DryRun: true})
	require.NoError(t, err)

	assert.True(t, res.DryRun)
	assert.Len(t, res.Success, 2)
	assert.Equal(t, []Failed{{File: "c.txt", Error: "unsupported image format"}}, res.Errors)
	assert.Equal(t, StatusDryRun, res.Items[0].Status)
	assert.Equal(t, StatusError, res.Items[2].Status)
	assert.Nil(t, res.FolderRenamed)

	for _, p := range paths {
		assert.FileExists(t, p)
	}
	assert.DirExists(t, dir)
	assert.Equal(t, 0, store.calls)
}

func TestRun_Rejected(t *testing.T) {
	_, paths := setup(t, "a.jpg")
	r := newTestRunner(imagefs.OS{}, &memStore{})

	_, err := r.Run(context.Background(), naming.Request{Prefix: "img", StartNumber: 1}, Options{})
	assert.ErrorIs(t, err, ErrNoFilesSelected)

	_, err = r.Run(context.Background(), naming.Request{Files: paths, Prefix: "a/b", StartNumber: 1}, Options{})
	assert.ErrorIs(t, err, naming.ErrInvalidPrefix)

	_, err = r.Run(context.Background(), naming.Request{Files: []string{"a", "b"}, Prefix: "x", StartNumber: 99999}, Options{})
	assert.ErrorIs(t, err, naming.ErrSequenceOverflow)

	assert.FileExists(t, paths[0])
}

func TestRun_CancelledContext(t *testing.T) {
	dir, paths := setup(t, "a.jpg", "b.jpg")
	store := &memStore{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newTestRunner(imagefs.OS{}, store).Run(ctx, naming.Request{
		Files: paths, Prefix: "img", StartNumber: 10, RenameFolder: true,
	}, Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, res.Success)
	assert.Nil(t, res.FolderRenamed)
	assert.FileExists(t, filepath.Join(dir, "a.jpg"))
	assert.Equal(t, 10, store.next)
}

func TestRun_PersistFailureIsNotFatal(t *testing.T) {
	_, paths := setup(t, "a.jpg")
	store := &memStore{err: errors.New("disk full")}

	res, err := newTestRunner(imagefs.OS{}, store).Run(context.Background(), naming.Request{
		Files: paths, Prefix: "img", StartNumber: 1,
	}, Options{})
	require.NoError(t, err)
	assert.Len(t, res.Success, 1)
	assert.Equal(t, 1, store.calls)
}

func TestWriteUndoCSV(t *testing.T) {
	dir, paths := setup(t, "a.jpg", "b.txt")
	res, err := newTestRunner(imagefs.OS{}, nil).Run(context.Background(), naming.Request{
		Files: paths, Prefix: "img", StartNumber: 1, RenameFolder: true,
	}, Options{FolderUnit: " photos"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteUndoCSV(&buf, res.Items))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, undoHeader, rows[0])
	newDir := filepath.Join(filepath.Dir(dir), "img_250601 1-1 1 photos")
	assert.Equal(t, []string{filepath.Join(newDir, "a.jpg"), filepath.Join(newDir, "img250601001.jpg"), "a.jpg", "img250601001.jpg", "1", "renamed", ""}, rows[1])
	assert.Equal(t, "error", rows[2][5])
	assert.Equal(t, "unsupported image format", rows[2][6])
	assert.Equal(t, filepath.Join(newDir, "b.txt"), rows[2][0])
	assert.Equal(t, []string{dir, newDir, "photos", "img_250601 1-1 1 photos", "", "renamed", "folder"}, rows[3])
}
