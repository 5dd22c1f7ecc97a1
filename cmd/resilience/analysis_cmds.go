package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/constellation-resilience/internal/harness"
	"github.com/signalsfoundry/constellation-resilience/internal/logging"
	"github.com/signalsfoundry/constellation-resilience/internal/predict"
	"github.com/signalsfoundry/constellation-resilience/model"
	"github.com/signalsfoundry/constellation-resilience/timectrl"
)

// routeFlags select one route ad hoc instead of the configured runs.
type routeFlags struct {
	shell          string
	source, target string
}

func (f *routeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.shell, "shell", "", "constellation shell")
	cmd.Flags().StringVar(&f.source, "source", "", "source user name from the config")
	cmd.Flags().StringVar(&f.target, "target", "", "target user name from the config")
}

func (f *routeFlags) set() bool { return f.shell != "" }

func (f *routeFlags) check() error {
	if f.shell == "" || f.source == "" || f.target == "" {
		return errors.New("--shell, --source and --target must be given together")
	}
	return nil
}

func newFailureCmd(a *app) *cobra.Command {
	var (
		route    routeFlags
		timeslot int
		out      string
	)
	cmd := &cobra.Command{
		Use:   "failure",
		Short: "Compare proactive and reactive recovery from the riskiest satellite failing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			var scenarios []harness.Scenario
			if route.set() {
				if err := route.check(); err != nil {
					return err
				}
				src, dst, err := a.users(route.source, route.target)
				if err != nil {
					return err
				}
				scenarios = append(scenarios, harness.Scenario{Shell: route.shell, Timeslot: timeslot, Source: src, Target: dst})
			} else {
				for _, sc := range a.cfg.Scenarios {
					src, dst, err := a.users(sc.Source, sc.Target)
					if err != nil {
						return err
					}
					scenarios = append(scenarios, harness.Scenario{Shell: sc.Shell, Timeslot: sc.Timeslot, Source: src, Target: dst})
				}
			}
			if len(scenarios) == 0 {
				return errors.New("no failure scenarios configured")
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			_, access, err := a.loadCatalog(ctx)
			if err != nil {
				return err
			}
			h := harness.NewFailureHarness(store, access,
				harness.WithLogger(a.log),
				harness.WithRecorder(a.collector),
			)
			records, runErr := h.RunAll(ctx, scenarios)

			w, closeOut, err := openOutput(cmd, out)
			if err != nil {
				return err
			}
			if err := writeRecords(w, records); err != nil {
				_ = closeOut()
				return err
			}
			if err := closeOut(); err != nil {
				return err
			}

			s := harness.Summarize(records)
			a.log.Info(ctx, "failure scenarios finished",
				logging.Int("total", s.Total),
				logging.Int("completed", s.Completed),
				logging.Int("fallbacks", s.Fallbacks),
				logging.Duration("mean_reactive_solve", s.MeanReactiveSolve),
				logging.Float("mean_proactive_delay", s.MeanProactiveDelay),
				logging.Float("mean_reactive_delay", s.MeanReactiveDelay),
			)
			return runErr
		},
	}
	route.register(cmd)
	cmd.Flags().IntVar(&timeslot, "timeslot", 1, "timeslot for an ad hoc scenario")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write records as CSV to this file instead of stdout")
	return cmd
}

func newStabilityCmd(a *app) *cobra.Command {
	var (
		route       routeFlags
		from, to    int
		out         string
		samplesPath string
	)
	cmd := &cobra.Command{
		Use:   "stability",
		Short: "Compare path delay jitter under observed and predicted link weights",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			var requests []harness.StabilityRequest
			if route.set() {
				if err := route.check(); err != nil {
					return err
				}
				src, dst, err := a.users(route.source, route.target)
				if err != nil {
					return err
				}
				rng, err := timectrl.NewRange(from, to)
				if err != nil {
					return err
				}
				requests = append(requests, harness.StabilityRequest{Shell: route.shell, Range: rng, Source: src, Target: dst})
			} else {
				for _, sc := range a.cfg.Stability {
					src, dst, err := a.users(sc.Source, sc.Target)
					if err != nil {
						return err
					}
					requests = append(requests, harness.StabilityRequest{
						Shell:  sc.Shell,
						Range:  timectrl.Range{From: sc.From, To: sc.To},
						Source: src,
						Target: dst,
					})
				}
			}
			if len(requests) == 0 {
				return errors.New("no stability runs configured")
			}
			if a.cfg.Predictor == "" {
				return errors.New("stability runs need a predictor model in the config")
			}
			mdl, err := predict.LoadModelFile(a.cfg.Predictor)
			if err != nil {
				return err
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			catalog, access, err := a.loadCatalog(ctx)
			if err != nil {
				return err
			}
			h := harness.NewStabilityHarness(store, access, mdl, catalog,
				harness.WithLogger(a.log),
				harness.WithRecorder(a.collector),
				harness.WithWorkers(a.cfg.Workers),
			)

			reports := make([]model.JitterReport, 0, len(requests))
			for _, req := range requests {
				report, err := h.Run(ctx, req)
				if err != nil {
					return fmt.Errorf("stability %s [%d, %d]: %w", req.Shell, req.Range.From, req.Range.To, err)
				}
				reports = append(reports, report)
			}

			w, closeOut, err := openOutput(cmd, out)
			if err != nil {
				return err
			}
			if err := writeJitterReports(w, reports); err != nil {
				_ = closeOut()
				return err
			}
			if err := closeOut(); err != nil {
				return err
			}
			if samplesPath == "" {
				return nil
			}
			f, err := os.Create(samplesPath)
			if err != nil {
				return err
			}
			if err := writeSamples(f, reports); err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		},
	}
	route.register(cmd)
	cmd.Flags().IntVar(&from, "from", 1, "first timeslot of an ad hoc run")
	cmd.Flags().IntVar(&to, "to", 1, "last timeslot of an ad hoc run")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the summary CSV to this file instead of stdout")
	cmd.Flags().StringVar(&samplesPath, "samples", "", "also write per-timeslot samples as CSV")
	return cmd
}

func newPoliciesCmd(a *app) *cobra.Command {
	var (
		route    routeFlags
		timeslot int
	)
	cmd := &cobra.Command{
		Use:   "policies",
		Short: "Compare shortest-latency and least-hop routing for one route",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := route.check(); err != nil {
				return err
			}
			src, dst, err := a.users(route.source, route.target)
			if err != nil {
				return err
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}
			_, access, err := a.loadCatalog(ctx)
			if err != nil {
				return err
			}
			cmp, err := harness.ComparePolicies(ctx, store, access, route.shell, timeslot, src, dst)
			if err != nil {
				return err
			}
			return writePolicies(cmd.OutOrStdout(), cmp)
		},
	}
	route.register(cmd)
	cmd.Flags().IntVar(&timeslot, "timeslot", 1, "timeslot to route in")
	return cmd
}

func newFeaturesCmd(a *app) *cobra.Command {
	var (
		shell    string
		from, to int
		out      string
		fitPath  string
	)
	cmd := &cobra.Command{
		Use:   "features",
		Short: "Export per-link training rows and optionally fit a latency model",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if shell == "" {
				return errors.New("--shell is required")
			}
			rng, err := timectrl.NewRange(from, to)
			if err != nil {
				return err
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}
			catalog, _, err := a.loadCatalog(ctx)
			if err != nil {
				return err
			}
			rows, skipped, err := harness.ExtractLinkFeatures(ctx, store, catalog, shell, rng)
			if err != nil {
				return err
			}
			a.log.Info(ctx, "extracted link features",
				logging.String("shell", shell),
				logging.Int("rows", len(rows)),
				logging.Int("skipped_slots", skipped),
			)

			w, closeOut, err := openOutput(cmd, out)
			if err != nil {
				return err
			}
			if err := writeFeatures(w, rows); err != nil {
				_ = closeOut()
				return err
			}
			if err := closeOut(); err != nil {
				return err
			}

			if fitPath == "" {
				return nil
			}
			mdl, err := predict.Fit(rows)
			if err != nil {
				return err
			}
			f, err := os.Create(fitPath)
			if err != nil {
				return err
			}
			if err := mdl.Save(f); err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVar(&shell, "shell", "", "constellation shell")
	cmd.Flags().IntVar(&from, "from", 1, "first timeslot")
	cmd.Flags().IntVar(&to, "to", 1, "last timeslot")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write rows as CSV to this file instead of stdout")
	cmd.Flags().StringVar(&fitPath, "fit", "", "fit a linear model to the rows and save it as YAML")
	return cmd
}
