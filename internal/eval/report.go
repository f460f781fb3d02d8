package eval

import (
	"encoding/json"
	"fmt"
	"io"

	ptable "github.com/jedib0t/go-pretty/v6/table"
)

// Report bundles the three score families for one real/synthetic pair.
// Utility is nil when no target column is configured.
type Report struct {
	Fidelity *FidelityReport `json:"fidelity,omitempty"`
	Utility  *UtilityReport  `json:"utility,omitempty"`
	Privacy  *PrivacyReport  `json:"privacy,omitempty"`
}

// WriteJSON serializes the report with indentation.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// RenderText writes a human-readable rendering.
func (r *Report) RenderText(w io.Writer) {
	if r.Fidelity != nil {
		renderFidelity(w, r.Fidelity)
	}
	if r.Utility != nil {
		renderUtility(w, r.Utility)
	}
	if r.Privacy != nil {
		renderPrivacy(w, r.Privacy)
	}
}

func renderFidelity(w io.Writer, f *FidelityReport) {
	_, _ = fmt.Fprintln(w, "Fidelity")

	t := ptable.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(ptable.StyleLight)
	t.AppendHeader(ptable.Row{"Column", "Kind", "Metric", "Statistic"})
	for _, c := range f.Columns {
		t.AppendRow(ptable.Row{c.Column, c.Kind, c.Metric, fmt.Sprintf("%.4f", c.Statistic)})
	}
	t.Render()

	if len(f.Correlations) > 0 {
		t = ptable.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(ptable.StyleLight)
		t.AppendHeader(ptable.Row{"Pair", "Real r", "Synth r", "|Delta|"})
		for _, c := range f.Correlations {
			t.AppendRow(ptable.Row{
				c.A + " / " + c.B,
				fmt.Sprintf("%.4f", c.Real),
				fmt.Sprintf("%.4f", c.Synth),
				fmt.Sprintf("%.4f", c.Delta),
			})
		}
		t.Render()
	}

	_, _ = fmt.Fprintf(w, "columns within %.2f: %.0f%%, median statistic %.4f, median corr delta %.4f\n\n",
		f.Threshold, f.ShareWithinThreshold*100, f.MedianStatistic, f.MedianCorrDelta)
}

func renderUtility(w io.Writer, u *UtilityReport) {
	_, _ = fmt.Fprintf(w, "Utility (%s on %q, seed %d, %d train / %d test)\n",
		u.Task, u.Target, u.Seed, u.TrainRows, u.TestRows)

	t := ptable.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(ptable.StyleLight)
	switch {
	case u.RealClass != nil:
		t.AppendHeader(ptable.Row{"Trained on", "Accuracy", "F1", "AUROC"})
		t.AppendRow(ptable.Row{"synthetic", f4(u.SynthClass.Accuracy), f4(u.SynthClass.F1), f4(u.SynthClass.AUROC)})
		t.AppendRow(ptable.Row{"real", f4(u.RealClass.Accuracy), f4(u.RealClass.F1), f4(u.RealClass.AUROC)})
	case u.RealReg != nil:
		t.AppendHeader(ptable.Row{"Trained on", "RMSE", "MAE", "R2"})
		t.AppendRow(ptable.Row{"synthetic", f4(u.SynthReg.RMSE), f4(u.SynthReg.MAE), f4(u.SynthReg.R2)})
		t.AppendRow(ptable.Row{"real", f4(u.RealReg.RMSE), f4(u.RealReg.MAE), f4(u.RealReg.R2)})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "real-minus-synth delta on primary metric: %.4f\n\n", u.Delta)
}

func renderPrivacy(w io.Writer, p *PrivacyReport) {
	_, _ = fmt.Fprintln(w, "Privacy (heuristic indicators)")

	t := ptable.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(ptable.StyleLight)
	t.AppendHeader(ptable.Row{"Indicator", "Value"})
	t.AppendRow(ptable.Row{"exact match rate", f4(p.ExactMatchRate)})
	t.AppendRow(ptable.Row{"uniqueness rate", f4(p.UniquenessRate)})
	t.AppendRow(ptable.Row{fmt.Sprintf("NN distance median (k=%d)", p.K), f4(p.NNDistanceMedian)})
	t.AppendRow(ptable.Row{"NN distance p05", f4(p.NNDistanceP05)})
	t.AppendRow(ptable.Row{"NN distance p95", f4(p.NNDistanceP95)})
	t.AppendRow(ptable.Row{"flagged rows", fmt.Sprintf("%d", len(p.FlaggedRows))})
	t.Render()
	_, _ = fmt.Fprintln(w)
}

func f4(v float64) string { return fmt.Sprintf("%.4f", v) }
