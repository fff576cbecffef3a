package bench

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

var csvHeader = []string{"id", "shape", "estMB", "cpu_ms", "gpu_ms", "speedup", "mae", "max", "gpu_init_ms", "adapter"}

// WriteCSV writes results as CSV rows, preceded by the header if header is true.
func WriteCSV(w io.Writer, results []*Result, header bool) error {
	cw := csv.NewWriter(w)
	if header {
		if err := cw.Write(csvHeader); err != nil {
			return err
		}
	}
	for _, r := range results {
		adapter := r.InitReply
		if r.Failed() {
			adapter = "error:" + r.Err.Error()
		}
		record := []string{
			r.Shape.ID,
			r.Shape.Join(" → "),
			fmt.Sprintf("%.2f", r.Shape.EstimatedMiB()),
			fmt.Sprintf("%.3f", r.BaselineMillis),
			fmt.Sprintf("%.3f", r.AcceleratedMillis),
			fmt.Sprintf("%.2f", r.Speedup()),
			fmt.Sprintf("%.2E", r.MeanAbsDiff),
			fmt.Sprintf("%.2E", r.MaxAbsDiff),
			fmt.Sprintf("%.2f", r.InitMillis),
			adapter,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// AppendCSV appends results to the file at path, writing the header only when
// the file is new.
func AppendCSV(path string, results []*Result) error {
	_, err := os.Stat(path)
	newFile := errors.Is(err, os.ErrNotExist)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening %q: %w", path, err)
	}
	if err := WriteCSV(f, results, newFile); err != nil {
		f.Close()
		return fmt.Errorf("writing %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %q: %w", path, err)
	}
	return nil
}
