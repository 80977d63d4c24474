// Package batch runs one rename batch: it builds the naming plan, renames
// every file in order, optionally renames the containing folder and records
// the next start number.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ImageRenUtil/internal/imagefs"
	"ImageRenUtil/internal/naming"
)

var (
	ErrNoFilesSelected   = errors.New("no files selected")
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// Renamer performs the filesystem side of a batch.
type Renamer interface {
	RenameFile(oldPath, newName string) (string, error)
	RenameDir(oldPath, newName string) (string, error)
}

// Persister stores the prefix and next start number after a batch.
type Persister interface {
	Persist(prefix string, next int) error
}

/* -------------------- Result -------------------- */

type Status string

const (
	StatusOK      Status = "ok"
	StatusRenamed Status = "renamed"
	StatusError   Status = "error"
	StatusDryRun  Status = "dry-run"
)

type Item struct {
	OldPath  string
	NewPath  string
	OldName  string
	NewName  string
	Sequence int
	Status   Status
	Reason   string
}

type Renamed struct {
	Original string `json:"original"`
	New      string `json:"new"`
}

type Failed struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

type Result struct {
	Success           []Renamed `json:"success"`
	Errors            []Failed  `json:"error"`
	FolderRenamed     *Renamed  `json:"folder_renamed,omitempty"`
	FolderRenameError string    `json:"folder_rename_error,omitempty"`
	DryRun            bool      `json:"dry_run"`

	Plan  naming.Plan `json:"-"`
	Items []Item      `json:"-"`
}

/* -------------------- Runner -------------------- */

type Options struct {
	DryRun bool
	// FolderUnit is appended to the file count in the folder name.
	FolderUnit string
	// Progress is called after each file; may be nil.
	Progress func(done, total int)
}

type Runner struct {
	Files    Renamer
	Settings Persister // may be nil
	Logger   *slog.Logger
	Now      func() time.Time
}

func NewRunner(files Renamer, store Persister, logger *slog.Logger) *Runner {
	return &Runner{Files: files, Settings: store, Logger: logger, Now: time.Now}
}

// Validate checks everything that must hold before any file is touched.
func Validate(req naming.Request) error {
	if len(req.Files) == 0 {
		return ErrNoFilesSelected
	}
	if err := naming.ValidatePrefix(req.Prefix); err != nil {
		return err
	}
	return naming.CheckRange(len(req.Files), req.StartNumber)
}

// Run renames the files of req in order. Per-file and folder failures are
// reported in the Result; the returned error is set only when the batch was
// rejected up front or ctx was cancelled part way.
func (r *Runner) Run(ctx context.Context, req naming.Request, opts Options) (Result, error) {
	if err := Validate(req); err != nil {
		return Result{}, err
	}

	log := r.logger()
	plan := naming.BuildPlan(req, r.now())
	res := Result{DryRun: opts.DryRun, Plan: plan, Items: make([]Item, 0, len(plan.Entries))}
	if plan.PrefixTruncated {
		log.Info("prefix truncated", "prefix", req.Prefix, "effective", plan.Prefix, "max", plan.MaxPrefixLength)
	}

	lastUsed := req.StartNumber - 1
	firstOK, lastOK := 0, 0
	var runErr error

	for i, e := range plan.Entries {
		if err := ctx.Err(); err != nil {
			runErr = err
			log.Warn("batch interrupted", "done", i, "total", len(plan.Entries))
			break
		}

		it := Item{
			OldPath:  e.OriginalPath,
			NewPath:  filepath.Join(filepath.Dir(e.OriginalPath), e.NewFileName),
			OldName:  filepath.Base(e.OriginalPath),
			NewName:  e.NewFileName,
			Sequence: e.Sequence,
			Status:   StatusOK,
		}

		if opts.DryRun {
			if why := dryRunCheck(it); why != "" {
				it.Status, it.Reason = StatusError, why
				res.Errors = append(res.Errors, Failed{File: it.OldName, Error: why})
			} else {
				it.Status = StatusDryRun
				res.Success = append(res.Success, Renamed{Original: it.OldName, New: it.NewName})
			}
		} else {
			newPath, err := r.renameOne(it)
			if !errors.Is(err, ErrUnsupportedFormat) && !errors.Is(err, os.ErrNotExist) {
				lastUsed = e.Sequence
			}
			if err != nil {
				it.Status, it.Reason = StatusError, reason(err)
				res.Errors = append(res.Errors, Failed{File: it.OldName, Error: it.Reason})
				log.Debug("rename failed", "file", it.OldPath, "err", err)
			} else {
				it.Status, it.NewPath = StatusRenamed, newPath
				res.Success = append(res.Success, Renamed{Original: it.OldName, New: it.NewName})
				if firstOK == 0 {
					firstOK = e.Sequence
				}
				lastOK = e.Sequence
				log.Debug("renamed", "from", it.OldPath, "to", newPath)
			}
		}
		res.Items = append(res.Items, it)

		if opts.Progress != nil {
			opts.Progress(i+1, len(plan.Entries))
		}
	}

	if opts.DryRun {
		log.Info("dry run complete", "would_rename", len(res.Success), "errors", len(res.Errors))
		return res, nil
	}

	if req.RenameFolder && runErr == nil && len(res.Success) > 0 {
		r.renameFolder(&res, targetFolder(req), plan, firstOK, lastOK, opts.FolderUnit)
	}

	if r.Settings != nil {
		if err := r.Settings.Persist(plan.Prefix, lastUsed+1); err != nil {
			log.Warn("could not save settings", "err", err)
		}
	}

	log.Info("batch complete", "renamed", len(res.Success), "errors", len(res.Errors), "folder_renamed", res.FolderRenamed != nil)
	return res, runErr
}

func (r *Runner) renameOne(it Item) (string, error) {
	if !imagefs.IsImage(it.OldPath) {
		return "", fmt.Errorf("%s: %w", it.OldName, ErrUnsupportedFormat)
	}
	return r.Files.RenameFile(it.OldPath, it.NewName)
}

// targetFolder is the folder the user selected, or the parent of the first
// file when files were picked one by one.
func targetFolder(req naming.Request) string {
	if req.Folder != "" {
		return filepath.Clean(req.Folder)
	}
	return filepath.Dir(req.Files[0])
}

func (r *Runner) renameFolder(res *Result, folder string, plan naming.Plan, first, last int, unit string) {
	name := naming.FolderName(plan.Prefix, plan.Date, first, last, len(res.Success), unit)

	newPath, err := r.Files.RenameDir(folder, name)
	if err != nil {
		res.FolderRenameError = err.Error()
		r.logger().Warn("folder rename failed", "folder", folder, "err", err)
		return
	}
	res.FolderRenamed = &Renamed{Original: filepath.Base(folder), New: name}
	for i := range res.Items {
		res.Items[i].OldPath = rebase(res.Items[i].OldPath, folder, newPath)
		res.Items[i].NewPath = rebase(res.Items[i].NewPath, folder, newPath)
	}
	res.Items = append(res.Items, Item{
		OldPath: folder,
		NewPath: newPath,
		OldName: filepath.Base(folder),
		NewName: name,
		Status:  StatusRenamed,
		Reason:  "folder",
	})
}

// rebase moves p from under dir to under newDir. Paths outside dir are
// returned unchanged.
func rebase(p, dir, newDir string) string {
	rel, err := filepath.Rel(dir, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return p
	}
	return filepath.Join(newDir, rel)
}

// dryRunCheck reports why a rename would fail without touching the disk.
func dryRunCheck(it Item) string {
	info, err := os.Stat(it.OldPath)
	switch {
	case err != nil:
		return reason(err)
	case !info.Mode().IsRegular():
		return reason(imagefs.ErrNotAFile)
	case !imagefs.IsImage(it.OldPath):
		return reason(ErrUnsupportedFormat)
	}
	if _, err := os.Lstat(it.NewPath); err == nil && it.NewPath != filepath.Clean(it.OldPath) {
		return reason(imagefs.ErrTargetExists)
	}
	return ""
}

func reason(err error) string {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return "file does not exist"
	case errors.Is(err, ErrUnsupportedFormat):
		return ErrUnsupportedFormat.Error()
	case errors.Is(err, imagefs.ErrTargetExists):
		return imagefs.ErrTargetExists.Error()
	case errors.Is(err, imagefs.ErrNotAFile):
		return imagefs.ErrNotAFile.Error()
	default:
		return err.Error()
	}
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}
