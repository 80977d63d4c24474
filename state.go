package main

import (
	"time"

	"ImageRenUtil/internal/naming"
)

/* -------------------- Form State -------------------- */

type formState struct {
	folder string   // set when the selection came from a folder
	files  []string // in the order sequence numbers are assigned

	prefix       string
	startNumber  int
	renameFolder bool
}

type preview struct {
	cfg       naming.Config
	first     string
	last      string // empty for a single file
	truncated bool
}

func newFormState(prefix string, start int) *formState {
	return &formState{
		prefix:       prefix,
		startNumber:  clamp(start, 1, naming.MaxNumber),
		renameFolder: true,
	}
}

// applyBudget recomputes the naming config for the current selection and
// shortens the stored prefix when it no longer fits. The shortened prefix
// replaces what the user typed.
func (s *formState) applyBudget() (naming.Config, bool) {
	cfg := naming.ComputeConfig(len(s.files), s.startNumber)
	p, truncated := cfg.ConstrainPrefix(s.prefix)
	if truncated {
		s.prefix = p
	}
	return cfg, truncated
}

// setStartNumber stores the parsed start number and reports clamping.
// Invalid input falls back to 1 without a notice.
func (s *formState) setStartNumber(raw string) naming.StartNotice {
	n, notice := naming.NormalizeStartNumber(raw)
	s.startNumber = n
	return notice
}

func (s *formState) preview(now time.Time) preview {
	cfg, truncated := s.applyBudget()
	pv := preview{
		cfg:       cfg,
		first:     naming.BuildFileName(s.prefix, s.startNumber, 0, now),
		truncated: truncated,
	}
	if n := len(s.files); n > 1 {
		pv.last = naming.BuildFileName(s.prefix, s.startNumber, n-1, now)
	}
	return pv
}

func (s *formState) request() naming.Request {
	files := make([]string, len(s.files))
	copy(files, s.files)
	return naming.Request{
		Files:        files,
		Folder:       s.folder,
		Prefix:       s.prefix,
		StartNumber:  s.startNumber,
		RenameFolder: s.renameFolder,
	}
}

func (s *formState) setFiles(folder string, files []string) {
	s.folder = folder
	s.files = files
}

// addFile appends a picked file unless it is already selected. A manual
// pick replaces a folder selection.
func (s *formState) addFile(path string) bool {
	if s.folder != "" {
		s.folder = ""
		s.files = nil
	}
	for _, f := range s.files {
		if f == path {
			return false
		}
	}
	s.files = append(s.files, path)
	return true
}

func (s *formState) reset() {
	s.folder = ""
	s.files = nil
}
