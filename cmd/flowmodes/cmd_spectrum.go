package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/notargets/flowmodes/archive"
	"github.com/spf13/cobra"
)

var (
	archivePath string
	band        string
)

var spectrumCmd = &cobra.Command{
	Use:   "spectrum",
	Short: "List the modes stored in an archive",
	Long: `List the eigenvalue spectrum of a POD archive or the ritz values and
frequencies of a DMD archive. --band f1,f2 restricts a DMD listing to
modes with f1 <= |frequency| <= f2.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSpectrum(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(spectrumCmd)
	spectrumCmd.Flags().StringVar(&archivePath, "archive", "", "archive written by pod or dmd")
	spectrumCmd.Flags().StringVar(&band, "band", "", "frequency band f1,f2 in Hz (dmd only)")
	_ = spectrumCmd.MarkFlagRequired("archive")
}

func parseBand(s string) (f1, f2 float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("band %q: expected f1,f2", s)
	}
	if f1, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64); err != nil {
		return 0, 0, fmt.Errorf("band %q: %w", s, err)
	}
	if f2, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err != nil {
		return 0, 0, fmt.Errorf("band %q: %w", s, err)
	}
	return f1, f2, nil
}

func runSpectrum(out io.Writer) error {
	rec, err := archive.LoadFile(archivePath)
	if err != nil {
		return err
	}
	rows := rec.Spectrum()
	if band != "" {
		f1, f2, err := parseBand(band)
		if err != nil {
			return err
		}
		if rows, err = rec.Band(f1, f2); err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "%s %s (%s), %d modes, %d snapshots, %d elements\n",
		rec.Kind, rec.Name, rec.Method, rec.ModeCount, rec.SnapshotCount, rec.ElementCount)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if rec.Kind == archive.KindPOD {
		fmt.Fprintln(tw, "MODE\tEIGENVALUE\tENERGY")
		for _, r := range rows {
			fmt.Fprintf(tw, "%d\t%.6g\t%.4f\n", r.Index, r.Value, r.Energy)
		}
	} else {
		fmt.Fprintln(tw, "MODE\tFREQUENCY\t|RITZ|\tNORM")
		for _, r := range rows {
			fmt.Fprintf(tw, "%d\t%.4f Hz\t%.6f\t%.6g\n", r.Index, r.Frequency, r.Value, r.Energy)
		}
	}
	return tw.Flush()
}
