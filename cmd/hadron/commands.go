package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/hadron/internal/automation"
	"github.com/san-kum/hadron/internal/config"
	"github.com/san-kum/hadron/internal/experiment"
	"github.com/san-kum/hadron/internal/export"
	"github.com/san-kum/hadron/internal/geom"
	"github.com/san-kum/hadron/internal/storage"
	"github.com/san-kum/hadron/internal/transform"
	"github.com/san-kum/hadron/internal/viz"
)

func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func printMetrics(ms map[string]float64) {
	names := make([]string, 0, len(ms))
	for name := range ms {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, ms[name])
	}
}

func newRunCmd() *cobra.Command {
	var (
		modelFile string
		name      string
		samples   int
		duration  float64
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run a headless simulation and record it",
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(dataDir)
			if err := st.Init(); err != nil {
				return err
			}
			exp, err := newExperiment(modelFile, log)
			if err != nil {
				return err
			}
			defer exp.Close()
			m := exp.Model()

			ctx, cancel := interruptContext()
			defer cancel()

			fmt.Printf("running %d particles, %d links in %dD...\n", m.Len(), len(m.Links()), m.Dimension())
			res, err := exp.Run(ctx, experiment.RunConfig{
				Samples:  samples,
				Duration: time.Duration(duration * float64(time.Second)),
				Metrics:  experiment.NewRegistry().DefaultMetrics(),
			})
			if err != nil && (res == nil || ctx.Err() == nil) {
				return err
			}

			runID, err := st.Save(runMetadata(name, m), res)
			if err != nil {
				return err
			}
			if err := st.SaveModel(runID, m); err != nil {
				return err
			}

			fmt.Printf("completed in %v\n", res.Wall.Round(time.Millisecond))
			fmt.Printf("run id: %s\n", runID)
			fmt.Printf("samples: %d\n", len(res.Samples))
			fmt.Printf("engine steps: %d\n", m.StepCount())
			printMetrics(res.Metrics)
			return nil
		},
	}
	cmd.Flags().StringVar(&modelFile, "model", "", "Hadronium document to start from instead of a random graph")
	cmd.Flags().StringVar(&name, "name", "run", "run name")
	cmd.Flags().IntVar(&samples, "samples", 100, "number of refreshes to record (0 = until duration)")
	cmd.Flags().Float64Var(&duration, "time", 0, "duration in seconds (0 = until samples)")
	return cmd
}

func newRandomCmd() *cobra.Command {
	var particles, links int
	var seed int64
	cmd := &cobra.Command{
		Use:   "random [output.xml]",
		Short: "generate a random graph document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("particles") {
				cfg.Random.Particles = particles
			}
			if cmd.Flags().Changed("links") {
				cfg.Random.Links = links
			}
			if cmd.Flags().Changed("seed") {
				cfg.Random.Seed = seed
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			exp, err := newExperiment("", log)
			if err != nil {
				return err
			}
			defer exp.Close()

			if len(args) == 0 {
				return storage.Write(os.Stdout, exp.Model())
			}
			if err := storage.SaveFile(args[0], exp.Model()); err != nil {
				return err
			}
			fmt.Printf("wrote %d particles, %d links to %s\n", exp.Model().Len(), len(exp.Model().Links()), args[0])
			return nil
		},
	}
	cmd.Flags().IntVar(&particles, "particles", config.DefaultParticles, "particle count")
	cmd.Flags().IntVar(&links, "links", config.DefaultLinks, "link count")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 = time based)")
	return cmd
}

func newLiveCmd() *cobra.Command {
	var (
		modelFile string
		viewScale float64
		theme     string
	)
	cmd := &cobra.Command{
		Use:   "live",
		Short: "interactive terminal view",
		RunE: func(cmd *cobra.Command, args []string) error {
			// console logs would tear the alternate screen
			l := zap.NewNop()
			if cfg.Logging.File != "" {
				l = log
			}
			exp, err := newExperiment(modelFile, l)
			if err != nil {
				return err
			}
			defer exp.Close()

			zone, err := cfg.Zone()
			if err != nil {
				return err
			}
			return viz.Run(exp.Model(), viz.Options{
				Zone:      zone,
				ViewScale: viewScale,
				Rotation:  cfg.View.Rotation,
				Period:    cfg.RefreshPeriod(),
				Theme:     theme,
				Logger:    l,
			})
		},
	}
	cmd.Flags().StringVar(&modelFile, "model", "", "Hadronium document to open")
	cmd.Flags().Float64Var(&viewScale, "view-scale", 0, "initial view scale (0 = fit the random zone)")
	cmd.Flags().StringVar(&theme, "theme", "classic", fmt.Sprintf("color theme %v", viz.ThemeNames()))
	return cmd
}

func newRenderCmd() *cobra.Command {
	var (
		modelFile     string
		out           string
		width, height int
		samples       int
		hideNames     bool
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "render a model to SVG",
		RunE: func(cmd *cobra.Command, args []string) error {
			exp, err := newExperiment(modelFile, log)
			if err != nil {
				return err
			}
			defer exp.Close()
			m := exp.Model()

			if samples > 0 {
				ctx, cancel := interruptContext()
				defer cancel()
				if _, err := exp.Run(ctx, experiment.RunConfig{Samples: samples}); err != nil {
					return err
				}
			}

			tr, err := transform.New(m.Dimension())
			if err != nil {
				return err
			}
			tr.SetViewScale(cfg.View.ViewScale)
			tr.SetRotation(cfg.View.Rotation)
			tr.SetRenderSize(float64(width), float64(height))
			tr.SetOffset(geom.Vec{X: float64(width) / 2, Y: float64(height) / 2})

			opts := export.DefaultOptions()
			opts.Width, opts.Height = width, height
			opts.ParticleSize = cfg.View.ParticleSize
			opts.ShowNames = !hideNames

			var w io.Writer = os.Stdout
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return export.WriteSVG(w, m, tr, opts)
		},
	}
	cmd.Flags().StringVar(&modelFile, "model", "", "Hadronium document to render")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().IntVar(&width, "width", 800, "image width")
	cmd.Flags().IntVar(&height, "height", 600, "image height")
	cmd.Flags().IntVar(&samples, "settle", 0, "run the engine for this many refreshes first")
	cmd.Flags().BoolVar(&hideNames, "no-names", false, "omit particle names")
	return cmd
}

func newScriptCmd() *cobra.Command {
	var save string
	cmd := &cobra.Command{
		Use:   "script [scenario.yaml]",
		Short: "run a scripted scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := automation.LoadScenario(args[0])
			if err != nil {
				return err
			}
			cfg.Random.Particles, cfg.Random.Links = 0, 0
			exp, err := newExperiment("", log)
			if err != nil {
				return err
			}
			defer exp.Close()

			ctx, cancel := interruptContext()
			defer cancel()

			fmt.Printf("scenario: %s\n", sc.Name)
			results, err := automation.RunScenario(ctx, sc, exp.Model(), automation.Options{
				Period: cfg.RefreshPeriod(),
				Log:    log,
			})
			for i, res := range results {
				fmt.Printf("\nrun %d: %d samples in %v", i+1, len(res.Samples), res.Wall.Round(time.Millisecond))
				printMetrics(res.Metrics)
			}
			if err != nil {
				return err
			}
			if save != "" {
				return storage.SaveFile(save, exp.Model())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&save, "save", "", "write the final model to this document")
	return cmd
}

func newSweepCmd() *cobra.Command {
	var (
		lo, hi  float64
		steps   int
		samples int
	)
	cmd := &cobra.Command{
		Use:   "sweep [parameter]",
		Short: "run the random graph once per parameter value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := interruptContext()
			defer cancel()

			results, err := automation.RunSweep(ctx, cfg, experiment.NewRegistry(), automation.ParameterSweep{
				Param: args[0],
				Min:   lo,
				Max:   hi,
				Steps: steps,
				Run:   experiment.RunConfig{Samples: samples},
			}, log)
			if err != nil {
				return err
			}

			var names []string
			if len(results) > 0 {
				for name := range results[0].Metrics {
					names = append(names, name)
				}
				sort.Strings(names)
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\tSAMPLES", args[0])
			for _, name := range names {
				fmt.Fprintf(w, "\t%s", name)
			}
			fmt.Fprintln(w)
			for _, r := range results {
				fmt.Fprintf(w, "%.4g\t%d", r.Value, r.Samples)
				for _, name := range names {
					fmt.Fprintf(w, "\t%.6g", r.Metrics[name])
				}
				fmt.Fprintln(w)
			}
			return w.Flush()
		},
	}
	cmd.Flags().Float64Var(&lo, "min", 0, "first value")
	cmd.Flags().Float64Var(&hi, "max", 1, "last value")
	cmd.Flags().IntVar(&steps, "steps", 5, "number of values")
	cmd.Flags().IntVar(&samples, "samples", 50, "refreshes per value")
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list recorded runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := storage.New(dataDir).List()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no runs found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTIME\tDIM\tPARTICLES\tLINKS\tENGINE\tINTEG\tWALL")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\t%s\t%.2fs\n",
					run.ID,
					run.Timestamp.Format("2006-01-02 15:04:05"),
					run.Dimension,
					run.Particles,
					run.Links,
					run.Engine,
					run.Integrator,
					run.Wall,
				)
			}
			return w.Flush()
		},
	}
}

// series extracts one column of a trace by its stats.csv name.
func series(samples []experiment.Sample, column string) ([]float64, error) {
	data := make([]float64, 0, len(samples))
	for _, s := range samples {
		var v float64
		switch column {
		case "real_time_scale":
			v = s.RealTimeScale
		case "step_elapsed_ms":
			v = s.StepElapsedTime
		case "step_count":
			v = float64(s.StepCount)
		default:
			mv, ok := s.Metrics[column]
			if !ok {
				return nil, fmt.Errorf("no column %q in trace", column)
			}
			v = mv
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		data = append(data, v)
	}
	return data, nil
}

func newPlotCmd() *cobra.Command {
	var columns []string
	var svgOut string
	cmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a recorded trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(dataDir)
			meta, err := st.Load(args[0])
			if err != nil {
				return err
			}
			trace, err := st.LoadTrace(args[0])
			if err != nil {
				return err
			}
			if len(trace) < 2 {
				return fmt.Errorf("no data to plot")
			}

			fmt.Printf("run: %s\n", meta.ID)
			fmt.Printf("samples: %d\n\n", len(trace))
			for i, column := range columns {
				data, err := series(trace, column)
				if err != nil {
					return err
				}
				graph := asciigraph.Plot(data,
					asciigraph.Height(10),
					asciigraph.Width(80),
					asciigraph.Caption(column),
				)
				fmt.Println(graph)
				fmt.Println()

				if svgOut != "" && i == 0 {
					if err := os.WriteFile(svgOut, []byte(export.SeriesToSVG(data, 800, 300, "#00ff88")), 0644); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&columns, "column", []string{"real_time_scale", "kinetic_energy"}, "trace columns to plot")
	cmd.Flags().StringVar(&svgOut, "svg", "", "also write the first column as SVG")
	return cmd
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(dataDir)
			meta, err := st.Load(args[0])
			if err != nil {
				return err
			}
			trace, err := st.LoadTrace(args[0])
			if err != nil {
				return err
			}
			return storage.ExportJSON(os.Stdout, *meta, trace)
		},
	}
}

func newParamsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "params",
		Short: "list engine parameters",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cfg.Parameters.Input()
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tVALUE\tDEFAULT\tMIN\tMAX\tSCALE")
			for _, d := range config.Descriptors {
				v, err := in.Field(d.Name)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%g\t%g\t%g\t%g\t%s\n", d.Name, *v, d.Default, d.Min, d.Max, d.Scale)
			}
			return w.Flush()
		},
	}
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets [group]",
		Short: "list presets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			groups := make([]string, 0, len(config.Presets))
			for g := range config.Presets {
				groups = append(groups, g)
			}
			sort.Strings(groups)
			if len(args) == 1 {
				groups = []string{args[0]}
			}
			for _, g := range groups {
				presets := config.ListPresets(g)
				if len(presets) == 0 {
					fmt.Printf("no presets in group: %s\n", g)
					continue
				}
				fmt.Printf("%s:\n", g)
				for _, p := range presets {
					fmt.Printf("  %s/%s\n", g, p)
				}
			}
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config [path]",
		Short: "write the effective configuration (yaml or toml by extension)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.Save(args[0], cfg)
		},
	}
}

func newEnsembleCmd() *cobra.Command {
	var (
		runs    int
		seed    int64
		samples int
	)
	cmd := &cobra.Command{
		Use:   "ensemble",
		Short: "run the random graph for several seeds in parallel",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := interruptContext()
			defer cancel()

			results, err := automation.RunEnsemble(ctx, cfg, experiment.NewRegistry(), runs, seed, experiment.RunConfig{Samples: samples}, log)
			if err != nil {
				return err
			}
			for i, res := range results {
				fmt.Printf("\nseed %d: %d samples in %v", seed+int64(i), len(res.Samples), res.Wall.Round(time.Millisecond))
				printMetrics(res.Metrics)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&runs, "runs", 4, "number of runs")
	cmd.Flags().Int64Var(&seed, "seed", 1, "first seed")
	cmd.Flags().IntVar(&samples, "samples", 50, "refreshes per run")
	return cmd
}
