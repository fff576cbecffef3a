package bench

import (
	"fmt"
	"io"
	"math"

	"github.com/olekukonko/tablewriter"
)

// Reporter prints results to the console.
type Reporter struct {
	Out io.Writer
	// Quiet omits the raw output replies.
	Quiet bool
}

func (p *Reporter) Header(title string) {
	fmt.Fprintln(p.Out, title)
	for range title {
		fmt.Fprint(p.Out, "=")
	}
	fmt.Fprintln(p.Out)
}

// Case prints the block for one result.
func (p *Reporter) Case(r *Result) {
	fmt.Fprintf(p.Out, "\n=== %s (%s) ===\n", r.Shape.ID, r.Shape.Join("→"))
	if r.Failed() {
		fmt.Fprintf(p.Out, "NewNetwork failed (%s): %v\n", r.Strategy, r.Err)
		return
	}

	initReply := r.InitReply
	if initReply == "" {
		initReply = "{}"
	}
	fmt.Fprintf(p.Out, "Shape: %s   (~weights %.2f MB)\n", r.Shape.Join(" → "), r.Shape.EstimatedMiB())
	fmt.Fprintf(p.Out, "GPU init: %s  in %.2f ms  enabled=%s\n", initReply, r.InitMillis, yesNo(r.AccelerationEnabled))
	fmt.Fprintf(p.Out, "CPU  ⏱ %.3f ms\n", r.BaselineMillis)
	fmt.Fprintf(p.Out, "GPU  ⏱ %.3f ms\n", r.AcceleratedMillis)
	fmt.Fprintf(p.Out, "Speedup: %.2fx\n", r.Speedup())
	fmt.Fprintf(p.Out, "Δ(CPU vs GPU)  mae=%.2E  max=%.2E  (n=%d)\n", r.MeanAbsDiff, r.MaxAbsDiff, r.Compared)
	if !p.Quiet {
		fmt.Fprintf(p.Out, "CPU ExtractOutput: %s\n", r.BaselineReply)
		fmt.Fprintf(p.Out, "GPU ExtractOutput: %s\n", r.AcceleratedReply)
		if len(r.BaselineOutput) == classifierWidth && len(r.AcceleratedOutput) >= classifierWidth {
			p.outputTable(r)
		}
	}
}

// classifierWidth is the output width that gets a per-index comparison.
const classifierWidth = 10

func (p *Reporter) outputTable(r *Result) {
	var data [][]string
	for i := 0; i < classifierWidth; i++ {
		cpu, gpu := r.BaselineOutput[i], r.AcceleratedOutput[i]
		data = append(data, []string{
			fmt.Sprintf("%d", i),
			fmt.Sprintf("%.16g", cpu),
			fmt.Sprintf("%.16g", gpu),
			fmt.Sprintf("%.9e", math.Abs(cpu-gpu)),
		})
	}

	table := tablewriter.NewWriter(p.Out)
	table.SetHeader([]string{"IDX", "CPU", "GPU", "Δ"})
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetBorder(false)
	table.AppendBulk(data)
	table.Render()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// Summary prints one table row per result.
func (p *Reporter) Summary(results []*Result) {
	var data [][]string
	for _, r := range results {
		status := r.Strategy.String()
		if r.Failed() {
			status = "failed"
		}
		data = append(data, []string{
			r.Shape.ID,
			r.Shape.Join("→"),
			fmt.Sprintf("%.2f", r.Shape.EstimatedMiB()),
			fmt.Sprintf("%.3f", r.BaselineMillis),
			fmt.Sprintf("%.3f", r.AcceleratedMillis),
			fmt.Sprintf("%.2fx", r.Speedup()),
			fmt.Sprintf("%.2E", r.MeanAbsDiff),
			fmt.Sprintf("%.2E", r.MaxAbsDiff),
			status,
		})
	}

	fmt.Fprintln(p.Out)
	table := tablewriter.NewWriter(p.Out)
	table.SetHeader([]string{"ID", "SHAPE", "MB", "CPU MS", "GPU MS", "SPEEDUP", "MAE", "MAX", "STATUS"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
}
