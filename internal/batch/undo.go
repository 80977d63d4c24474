package batch

import (
	"encoding/csv"
	"io"
	"strconv"
)

var undoHeader = []string{"old_path", "new_path", "old_name", "new_name", "sequence", "status", "reason"}

// WriteUndoCSV writes one row per item so a batch can be reverted by hand.
func WriteUndoCSV(w io.Writer, items []Item) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(undoHeader); err != nil {
		return err
	}
	for _, it := range items {
		seq := ""
		if it.Sequence > 0 {
			seq = strconv.Itoa(it.Sequence)
		}
		if err := cw.Write([]string{it.OldPath, it.NewPath, it.OldName, it.NewName, seq, string(it.Status), it.Reason}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
