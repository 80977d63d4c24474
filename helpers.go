package main

import (
	"io"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
)

/* -------------------- small helpers -------------------- */

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func firstN[T any](in []T, n int) []T {
	if len(in) <= n {
		return in
	}
	return in[:n]
}

func prettyPath(p string) string {
	if strings.TrimSpace(p) == "" {
		return "(not saved)"
	}
	return p
}

func baseNames(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}
	return out
}

// closeWithLog closes c and logs a failure. Safe with a nil closer.
func closeWithLog(name string, c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		fyne.LogError(name+": failed to close", err)
	}
}
