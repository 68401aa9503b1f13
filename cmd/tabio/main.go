package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"tabio/adapters/delimited"
	"tabio/internal"
	"tabio/internal/config"
	"tabio/internal/profiling"
	"tabio/iodata"
	"tabio/ports"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		internal.DefaultLogger.Debug("[CLI] no .env file found, using system environment variables")
	}

	rootCmd := &cobra.Command{
		Use:           "tabio",
		Short:         "Load and save tables across file formats",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newConvertCmd(),
		newHeadCmd(),
		newDescribeCmd(),
		newFormatsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		internal.DefaultLogger.Sync()
		os.Exit(1)
	}
	internal.DefaultLogger.Sync()
}

// newDispatcher loads configuration from the environment. The CLI always
// rejects unrecognised extensions.
func newDispatcher() (*iodata.Dispatcher, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := internal.NewLogger(internal.ParseLogLevel(cfg.Log.Level))
	return iodata.New(cfg, logger, iodata.WithStrict(true)), cfg, nil
}

func newConvertCmd() *cobra.Command {
	var jobs int

	cmd := &cobra.Command{
		Use:   "convert [src] [dst] [src dst...]",
		Short: "Convert files between formats",
		Long: `Load each source file and save it to the paired destination. The format of
each side is picked from its extension.

Example: tabio convert sales.xlsx sales.parquet legacy.xls legacy.csv.zip --jobs 2`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 || len(args)%2 != 0 {
				return fmt.Errorf("expected source and destination pairs, got %d arguments", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd.Context(), args, jobs)
		},
	}

	cmd.Flags().IntVar(&jobs, "jobs", 2, "Number of conversions run at once")
	return cmd
}

func runConvert(ctx context.Context, args []string, jobs int) error {
	dispatcher, _, err := newDispatcher()
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, jobs))
	for i := 0; i < len(args); i += 2 {
		src, dst := args[i], args[i+1]
		g.Go(func() error {
			startTime := time.Now()
			t, err := dispatcher.LoadData(gctx, src)
			if err != nil {
				return fmt.Errorf("%s: %w", src, err)
			}
			if err := dispatcher.SaveData(gctx, t, dst); err != nil {
				return fmt.Errorf("%s: %w", dst, err)
			}
			fmt.Printf("✅ %s → %s (%d rows, %d columns) in %v\n",
				src, dst, t.NumRows(), t.NumCols(), time.Since(startTime).Round(time.Millisecond))
			return nil
		})
	}
	return g.Wait()
}

func newHeadCmd() *cobra.Command {
	var rows int

	cmd := &cobra.Command{
		Use:   "head [file]",
		Short: "Print the first rows of a file as tab-separated text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dispatcher, _, err := newDispatcher()
			if err != nil {
				return err
			}
			t, err := dispatcher.LoadData(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return delimited.Encode(cmd.OutOrStdout(), t.Slice(0, rows), '\t')
		},
	}

	cmd.Flags().IntVarP(&rows, "rows", "n", 10, "Number of rows to print")
	return cmd
}

func newDescribeCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "describe [file]",
		Short: "Summarise every column of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dispatcher, cfg, err := newDispatcher()
			if err != nil {
				return err
			}
			t, err := dispatcher.LoadData(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			logger := internal.NewLogger(internal.ParseLogLevel(cfg.Log.Level))
			var profiler ports.ProfilerPort = profiling.NewDataProfiler(logger)
			profiles := profiler.ProfileTable(t)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(profiles)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows, %d columns\n\n", args[0], t.NumRows(), t.NumCols())
			return printProfiles(cmd.OutOrStdout(), profiles)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print profiles as JSON")
	return cmd
}

func printProfiles(out io.Writer, profiles []profiling.ColumnProfile) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "COLUMN\tKIND\tCOUNT\tMISSING\tDISTINCT\tMEAN\tSTD\tMIN\tMEDIAN\tMAX\tSKEW")
	for _, p := range profiles {
		if !p.Numeric {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t\t\t\t\t\t\n", p.Name, p.Kind, p.Count, p.Missing, p.Distinct)
			continue
		}
		s := p.Summary
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%.4g\t%.4g\t%.4g\t%.4g\t%.4g\t%.3f\n",
			p.Name, p.Kind, p.Count, p.Missing, p.Distinct,
			s.Mean, s.StdDev, s.Min, s.Median, s.Max, p.Shape.Skewness)
	}
	return w.Flush()
}

func newFormatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List recognised file extensions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			byFormat := make(map[iodata.Format][]string)
			for _, suffix := range iodata.Suffixes() {
				_, format, _ := iodata.Lookup("file." + suffix)
				byFormat[format] = append(byFormat[format], "."+suffix)
			}

			formats := make([]string, 0, len(byFormat))
			for f := range byFormat {
				formats = append(formats, string(f))
			}
			sort.Strings(formats)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, f := range formats {
				fmt.Fprintf(w, "%s\t%v\n", f, byFormat[iodata.Format(f)])
			}
			return w.Flush()
		},
	}
}
