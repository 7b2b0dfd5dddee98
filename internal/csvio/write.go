package csvio

import (
	"bufio"
	"encoding/csv"
	"os"

	"github.com/sans-lang/sans/internal/engine"
)

// Writer implements engine.SaveWriter for the CSV format: LF-terminated,
// UTF-8, RFC-4180 quoting via the standard library writer (it already
// produces deterministic output for a fixed input, which is all spec.md §6
// requires of a save step).
type Writer struct{}

func (Writer) Write(path, _ string, t *engine.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	w := csv.NewWriter(bw)
	w.UseCRLF = false

	if err := w.Write(t.Columns); err != nil {
		return err
	}
	for _, row := range t.Rows {
		rec := make([]string, len(row))
		for i, v := range row {
			if !v.IsNull() {
				rec[i] = v.Text()
			}
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return bw.Flush()
}
