package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/constellation-resilience/model"
)

// openOutput returns the file named by path, or the command's stdout when
// path is empty. The returned close function is always safe to call.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, f.Close, nil
}

func formatPath(p model.Path) string {
	parts := make([]string, len(p))
	for i, id := range p {
		parts[i] = strconv.Itoa(int(id))
	}
	return strings.Join(parts, "-")
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }

func routedColumns(r *model.RoutedPath) []string {
	if r == nil {
		return []string{"", "", ""}
	}
	return []string{formatPath(r.Path), strconv.Itoa(r.Metrics.Hops), formatFloat(r.Metrics.Weight)}
}

func writeRecords(w io.Writer, records []model.ComparisonRecord) error {
	cw := csv.NewWriter(w)
	header := []string{
		"id", "shell", "timeslot", "outcome", "source", "target",
		"primary_path", "primary_hops", "primary_delay",
		"removed", "removed_risk",
		"proactive_path", "proactive_hops", "proactive_delay",
		"reactive_path", "reactive_hops", "reactive_delay", "reactive_solve_ms",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.ID, r.Shell, strconv.Itoa(r.Timeslot), string(r.Outcome),
			strconv.Itoa(int(r.Source)), strconv.Itoa(int(r.Target)),
		}
		if r.Primary.Path != nil {
			row = append(row, routedColumns(&r.Primary)...)
		} else {
			row = append(row, routedColumns(nil)...)
		}
		removed, risk := "", ""
		if r.RemovedNode != 0 {
			removed = strconv.Itoa(int(r.RemovedNode))
			risk = formatFloat(r.RemovedRisk)
		}
		row = append(row, removed, risk)
		row = append(row, routedColumns(r.Proactive)...)
		row = append(row, routedColumns(r.Reactive)...)
		row = append(row, strconv.FormatFloat(float64(r.ReactiveSolveDuration.Microseconds())/1000, 'f', 3, 64))
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeJitterReports(w io.Writer, reports []model.JitterReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"shell", "from", "to", "samples",
		"skipped_no_data", "skipped_no_access_node", "skipped_no_path",
		"observed_mean", "observed_std", "predicted_mean", "predicted_std", "improvement_pct",
	}); err != nil {
		return err
	}
	for _, r := range reports {
		if err := cw.Write([]string{
			r.Shell, strconv.Itoa(r.From), strconv.Itoa(r.To), strconv.Itoa(r.SampleCount),
			strconv.Itoa(r.Skipped.NoData), strconv.Itoa(r.Skipped.NoAccessNode), strconv.Itoa(r.Skipped.NoPath),
			formatFloat(r.ObservedMean), formatFloat(r.ObservedStdDev),
			formatFloat(r.PredictedMean), formatFloat(r.PredictedStdDev),
			strconv.FormatFloat(r.ImprovementPercent(), 'f', 2, 64),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeSamples(w io.Writer, reports []model.JitterReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"shell", "timeslot", "source", "target",
		"observed_delay", "observed_hops", "predicted_delay", "predicted_hops",
	}); err != nil {
		return err
	}
	for _, r := range reports {
		for _, s := range r.Samples {
			if err := cw.Write([]string{
				r.Shell, strconv.Itoa(s.Timeslot), strconv.Itoa(int(s.Source)), strconv.Itoa(int(s.Target)),
				formatFloat(s.ObservedDelay), strconv.Itoa(s.ObservedHops),
				formatFloat(s.PredictedDelay), strconv.Itoa(s.PredictedHops),
			}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeFeatures(w io.Writer, rows []model.LinkFeature) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time_slot", "u", "v", "is_inter_plane", "actual_delay"}); err != nil {
		return err
	}
	for _, f := range rows {
		inter := "0"
		if f.InterPlane {
			inter = "1"
		}
		if err := cw.Write([]string{
			strconv.Itoa(f.Timeslot), strconv.Itoa(int(f.U)), strconv.Itoa(int(f.V)), inter,
			strconv.FormatFloat(f.Delay, 'g', -1, 64),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writePolicies(w io.Writer, c model.PolicyComparison) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"shell", "timeslot", "policy", "path", "hops", "delay"}); err != nil {
		return err
	}
	for _, row := range []struct {
		name string
		r    model.RoutedPath
	}{{"shortest_latency", c.Latency}, {"least_hop", c.LeastHop}} {
		if err := cw.Write(append([]string{c.Shell, strconv.Itoa(c.Timeslot), row.name}, routedColumns(&row.r)...)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
