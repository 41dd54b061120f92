package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/notargets/flowmodes/archive"
	"github.com/notargets/flowmodes/config"
	"github.com/notargets/flowmodes/ensemble"
	"github.com/notargets/flowmodes/field"
	"github.com/notargets/flowmodes/logging"
	"github.com/notargets/flowmodes/partitions"
	"github.com/spf13/cobra"
)

// Decomposition flags, shared by pod and dmd
var (
	configPaths []string
	numWorkers  int
	strategy    string
)

var podCmd = &cobra.Command{
	Use:   "pod",
	Short: "Run Proper Orthogonal Decompositions",
	Long: `Run one POD per job file. Several --config flags form an ensemble that
is spread over --workers goroutines.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDecompose(cmd.Context(), ensemble.KindPOD, cmd.OutOrStdout())
	},
}

var dmdCmd = &cobra.Command{
	Use:   "dmd",
	Short: "Run Dynamic Mode Decompositions",
	Long: `Run one DMD per job file. Several --config flags form an ensemble that
is spread over --workers goroutines.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDecompose(cmd.Context(), ensemble.KindDMD, cmd.OutOrStdout())
	},
}

func init() {
	for _, c := range []*cobra.Command{podCmd, dmdCmd} {
		rootCmd.AddCommand(c)
		c.Flags().StringArrayVar(&configPaths, "config", nil, "job file (repeatable)")
		c.Flags().IntVar(&numWorkers, "workers", 0, "worker goroutines, 0 uses the largest workers value of the jobs")
		c.Flags().StringVar(&strategy, "strategy", "cost", "job distribution: block, roundrobin or cost")
		_ = c.MarkFlagRequired("config")
	}
}

type loadedJob struct {
	cfg   *config.Job
	shape field.Shape
}

func loadJobs(kind ensemble.Kind, paths []string) ([]ensemble.Job, []loadedJob, error) {
	jobs := make([]ensemble.Job, 0, len(paths))
	loaded := make([]loadedJob, 0, len(paths))
	for _, path := range paths {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, nil, err
		}
		if ensemble.Kind(cfg.Kind) != kind {
			return nil, nil, fmt.Errorf("%s: job kind %q cannot run under %s: %w",
				path, cfg.Kind, kind, config.ErrInvalidJob)
		}
		snaps, err := cfg.Snapshots()
		if err != nil {
			return nil, nil, err
		}
		X, shape, err := field.Flatten(snaps)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		name := cfg.Name
		if name == "" {
			name = path
		}
		jobs = append(jobs, ensemble.Job{
			Name:   name,
			Kind:   kind,
			Matrix: X,
			POD:    cfg.PODOptions(),
			DMD:    cfg.DMDOptions(),
		})
		loaded = append(loaded, loadedJob{cfg: cfg, shape: shape})
	}
	return jobs, loaded, nil
}

func runDecompose(ctx context.Context, kind ensemble.Kind, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	jobs, loaded, err := loadJobs(kind, configPaths)
	if err != nil {
		return err
	}
	strat, err := partitions.ParseStrategy(strategy)
	if err != nil {
		return err
	}
	workers := numWorkers
	if workers == 0 {
		for _, l := range loaded {
			workers = max(workers, l.cfg.Workers)
		}
	}

	logging.Infow("starting decompositions", "kind", string(kind), "jobs", len(jobs), "workers", workers)
	outcomes, err := ensemble.Run(ctx, jobs, ensemble.Config{Workers: workers, Strategy: strat})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "JOB\tMODES\tSNAPSHOTS\tELEMENTS\tELAPSED\tARCHIVE")
	var errs []error
	for i, o := range outcomes {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.Name, o.Err))
			fmt.Fprintf(tw, "%s\tfailed\t\t\t\t%v\n", o.Name, o.Err)
			continue
		}
		var rec archive.Record
		if o.POD != nil {
			rec = archive.FromPOD(o.POD, loaded[i].shape.Spatial())
		} else {
			rec = archive.FromDMD(o.DMD, loaded[i].shape.Spatial())
		}
		rec.RunID = o.JobID.String()
		rec.Name = o.Name

		dest := loaded[i].cfg.OutputPath()
		if dest != "" {
			if err := archive.SaveFile(dest, rec); err != nil {
				errs = append(errs, err)
				dest = "error: " + err.Error()
			}
		} else {
			dest = "-"
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%s\n",
			o.Name, rec.ModeCount, rec.SnapshotCount, rec.ElementCount, o.Elapsed, dest)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return errors.Join(errs...)
}
