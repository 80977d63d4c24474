package naming

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

var (
	ErrInvalidPrefix    = errors.New("invalid prefix")
	ErrSequenceOverflow = errors.New("sequence number out of range")
)

// StartNotice tells the caller what NormalizeStartNumber did to the input.
type StartNotice int

const (
	StartOK StartNotice = iota
	StartInvalid
	StartClamped
)

// NormalizeStartNumber parses user input for the start number. Anything
// non-numeric or below 1 becomes 1; anything above MaxNumber is clamped.
func NormalizeStartNumber(raw string) (int, StartNotice) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		// Out of int range still means "too big" when it is all digits.
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) && !strings.HasPrefix(strings.TrimSpace(raw), "-") {
			return MaxNumber, StartClamped
		}
		return 1, StartInvalid
	}
	if n < 1 {
		return 1, StartInvalid
	}
	if n > MaxNumber {
		return MaxNumber, StartClamped
	}
	return n, StartOK
}

// ValidatePrefix rejects prefixes that cannot appear in a file name.
// An empty prefix is allowed.
func ValidatePrefix(prefix string) error {
	if strings.ContainsAny(prefix, `<>:"/\|?*`) {
		return fmt.Errorf("%w: %q contains invalid characters", ErrInvalidPrefix, prefix)
	}
	for _, r := range prefix {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: %q contains control characters", ErrInvalidPrefix, prefix)
		}
	}
	if strings.TrimSpace(prefix) != prefix {
		return fmt.Errorf("%w: %q has leading or trailing spaces", ErrInvalidPrefix, prefix)
	}
	return nil
}

// CheckRange refuses a batch whose last sequence number would pass MaxNumber.
func CheckRange(fileCount, startNumber int) error {
	if startNumber < 1 || startNumber > MaxNumber {
		return fmt.Errorf("%w: start number %d", ErrSequenceOverflow, startNumber)
	}
	if last := startNumber + fileCount - 1; last > MaxNumber {
		return fmt.Errorf("%w: %d files from %d ends at %d (max %d)", ErrSequenceOverflow, fileCount, startNumber, last, MaxNumber)
	}
	return nil
}

// FolderName is the new name of the containing folder once a batch is done:
// "<prefix>_<date> <first>-<last> <count><unit>".
func FolderName(prefix, date string, first, last, count int, unit string) string {
	return fmt.Sprintf("%s_%s %d-%d %d%s", prefix, date, first, last, count, unit)
}
