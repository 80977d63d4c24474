// Package naming computes the target file names for a rename batch:
// prefix + YYMMDD date + sequence number, with the prefix shrunk so the
// stem never exceeds MaxTotalLength for any file in the batch.
package naming

import (
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	MaxTotalLength = 15 // prefix + date + sequence, extension excluded
	DateLength     = 6  // YYMMDD
	MaxNumber      = 99999
	Extension      = ".jpg"
)

/* -------------------- Request / Config -------------------- */

// Request is one batch as the user set it up. Folder is the folder the
// files were listed from, empty for files picked one by one.
type Request struct {
	Files        []string
	Folder       string
	Prefix       string
	StartNumber  int
	RenameFolder bool
}

// Config is the length budget derived from the batch size and start number.
// It is recomputed whenever either of them changes, never stored.
type Config struct {
	MaxTotalLength    int
	DateLength        int
	MaxPossibleNumber int
	NumberLength      int
	MaxPrefixLength   int
}

// ComputeConfig sizes the prefix budget for the largest sequence number the
// batch will produce. An empty selection is budgeted as a single file.
func ComputeConfig(fileCount, startNumber int) Config {
	if fileCount < 1 {
		fileCount = 1
	}
	maxNum := startNumber + fileCount - 1
	if maxNum > MaxNumber {
		maxNum = MaxNumber
	}
	numLen := digitCount(maxNum)
	return Config{
		MaxTotalLength:    MaxTotalLength,
		DateLength:        DateLength,
		MaxPossibleNumber: maxNum,
		NumberLength:      numLen,
		MaxPrefixLength:   MaxTotalLength - DateLength - numLen,
	}
}

// ConstrainPrefix returns prefix cut to MaxPrefixLength characters and
// whether it had to be cut. Length is counted in runes of the NFC form.
// A prefix that fits is returned as typed; a cut prefix is the NFC form
// cut at a rune boundary.
func (c Config) ConstrainPrefix(prefix string) (string, bool) {
	p := norm.NFC.String(prefix)
	if utf8.RuneCountInString(p) <= c.MaxPrefixLength {
		return prefix, false
	}
	n := 0
	for i := range p {
		if n == c.MaxPrefixLength {
			return p[:i], true
		}
		n++
	}
	return p, false
}

/* -------------------- Formatting -------------------- */

func FormatSequenceNumber(n int) string {
	if n < 100 {
		return fmt.Sprintf("%03d", n)
	}
	return strconv.Itoa(n)
}

func FormatDate(t time.Time) string {
	return t.Format("060102")
}

// BuildFileName is total: the caller must already have constrained prefix
// and checked the sequence range. The extension is always ".jpg".
func BuildFileName(prefix string, startNumber, index int, date time.Time) string {
	return prefix + FormatDate(date) + FormatSequenceNumber(startNumber+index) + Extension
}

/* -------------------- Plan -------------------- */

type Entry struct {
	OriginalPath string
	NewFileName  string
	Sequence     int
}

type Plan struct {
	Config
	Prefix          string // effective prefix after truncation
	PrefixTruncated bool
	Date            string
	Entries         []Entry
}

// First and Last return the sequence range covered by the plan.
func (p Plan) First() int {
	if len(p.Entries) == 0 {
		return 0
	}
	return p.Entries[0].Sequence
}

func (p Plan) Last() int {
	if len(p.Entries) == 0 {
		return 0
	}
	return p.Entries[len(p.Entries)-1].Sequence
}

// BuildPlan computes the whole batch at once so every entry shares one date
// stamp and one prefix budget. Input order decides sequence numbers.
func BuildPlan(req Request, now time.Time) Plan {
	cfg := ComputeConfig(len(req.Files), req.StartNumber)
	prefix, truncated := cfg.ConstrainPrefix(req.Prefix)

	plan := Plan{
		Config:          cfg,
		Prefix:          prefix,
		PrefixTruncated: truncated,
		Date:            FormatDate(now),
		Entries:         make([]Entry, 0, len(req.Files)),
	}
	for i, f := range req.Files {
		plan.Entries = append(plan.Entries, Entry{
			OriginalPath: f,
			NewFileName:  BuildFileName(prefix, req.StartNumber, i, now),
			Sequence:     req.StartNumber + i,
		})
	}
	return plan
}

func digitCount(n int) int {
	if n < 0 {
		n = -n
	}
	d := 1
	for n >= 10 {
		n /= 10
		d++
	}
	return d
}
