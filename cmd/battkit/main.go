// Command battkit is the command-line interface to battkit containers:
// inspect, validate, convert and enumerate battery cycling datasets.
package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/battkit/battkit/pkg/config"
	"github.com/battkit/battkit/pkg/consistency"
	"github.com/battkit/battkit/pkg/container"
	"github.com/battkit/battkit/pkg/logger"
	"github.com/battkit/battkit/pkg/metadata"
	"github.com/battkit/battkit/pkg/schema"

	// Import the codecs to register them
	_ "github.com/battkit/battkit/pkg/container/arrowipc"
	_ "github.com/battkit/battkit/pkg/container/parquet"
)

var version = metadata.Version

// globalFlags are shared by every container-touching command
type globalFlags struct {
	configPath string
	format     string
	keyPrefix  string
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	flags := &globalFlags{}
	cfg := config.Default()

	root := &cobra.Command{
		Use:   "battkit",
		Short: "battkit - battery cycling data containers",
		Long: `battkit curates battery cycling data: schema-validated tables,
structured metadata and self-describing on-disk containers in Arrow IPC
or Parquet form.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flags.configPath != "" {
				loaded, err := config.Load(flags.configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if flags.format == "" {
				flags.format = cfg.Format
			}
			return logger.Init(logger.Config{
				Level:    cfg.Logging.Level,
				Encoding: cfg.Logging.Format,
			})
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&flags.format, "format", "", "container format (default from config)")
	root.PersistentFlags().StringVar(&flags.keyPrefix, "cell", "", "cell key prefix within the container")

	root.AddCommand(versionCmd())
	root.AddCommand(describeCmd(flags))
	root.AddCommand(validateCmd(flags))
	root.AddCommand(convertCmd(flags, cfg))
	root.AddCommand(cellsCmd(flags))

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("battkit v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			fmt.Printf("Formats: %s\n", strings.Join(container.Formats(), ", "))
		},
	}
}

func codecFor(name string) (container.Codec, error) {
	codec, ok := container.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown container format %q (available: %s)",
			name, strings.Join(container.Formats(), ", "))
	}
	return codec, nil
}

func describeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <container>",
		Short: "Print a container's metadata and table summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := codecFor(flags.format)
			if err != nil {
				return err
			}
			ds, err := codec.Read(args[0], &container.Options{KeyPrefix: flags.keyPrefix})
			if err != nil {
				return err
			}

			meta := ds.Metadata
			fmt.Printf("Name:      %s\n", orDash(meta.Name))
			fmt.Printf("Version:   %s\n", meta.Version)
			if meta.TestProtocol != nil {
				fmt.Printf("Cycler:    %s\n", orDash(meta.TestProtocol.Cycler))
			}
			if len(meta.Authors) > 0 {
				names := make([]string, len(meta.Authors))
				for i, a := range meta.Authors {
					names[i] = fmt.Sprintf("%s %s", a.FirstName, a.LastName)
				}
				fmt.Printf("Authors:   %s\n", strings.Join(names, ", "))
			}
			fmt.Println("Tables:")
			for _, name := range ds.TableNames() {
				t, err := ds.Table(name)
				if err != nil {
					return err
				}
				fmt.Printf("  %-14s %8d rows  %3d columns\n", name, t.NumRows(), t.NumColumns())
			}
			return nil
		},
	}
}

func validateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <container>",
		Short: "Validate a container's data against its schemas",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := codecFor(flags.format)
			if err != nil {
				return err
			}
			ds, err := codec.Read(args[0], &container.Options{KeyPrefix: flags.keyPrefix})
			if err != nil {
				return err
			}

			issues := ds.Validate()
			for _, issue := range issues {
				loc := issue.Table
				if issue.Column != "" {
					loc += "." + issue.Column
				}
				fmt.Printf("%-7s %-30s %s\n", issue.Severity, loc, issue.Message)
			}
			for _, w := range consistency.Check(ds) {
				loc := w.Table
				if w.Column != "" {
					loc += "." + w.Column
				}
				fmt.Printf("%-7s %-30s %s\n", w.Severity, loc, w.Message)
			}
			if len(issues) == 0 {
				fmt.Println("ok")
			}
			if schema.HasErrors(issues) {
				return fmt.Errorf("validation found errors")
			}
			return nil
		},
	}
}

func convertCmd(flags *globalFlags, cfg *config.Config) *cobra.Command {
	var (
		toFormat  string
		level     int
		overwrite bool
	)
	cmd := &cobra.Command{
		Use:   "convert <source> <destination>",
		Short: "Convert a container to another format",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := codecFor(flags.format)
			if err != nil {
				return err
			}
			dst, err := codecFor(toFormat)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("compression-level") {
				level = cfg.CompressionLevel
			}

			ds, err := src.Read(args[0], &container.Options{KeyPrefix: flags.keyPrefix})
			if err != nil {
				return err
			}
			opts := &container.Options{
				CompressionLevel: level,
				Overwrite:        overwrite,
				BatchSize:        cfg.BatchSize,
			}
			if err := dst.Write(ds, args[1], opts); err != nil {
				return err
			}
			logger.Info("converted container",
				zap.String("source", args[0]),
				zap.String("destination", args[1]),
				zap.String("to", toFormat),
			)
			fmt.Printf("wrote %s (%s)\n", args[1], toFormat)
			return nil
		},
	}
	cmd.Flags().StringVar(&toFormat, "to", "parquet", "destination container format")
	cmd.Flags().IntVar(&level, "compression-level", 0, "compression level 0-9 for the destination")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace the destination if it exists")
	return cmd
}

func cellsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "cells <container>",
		Short: "List a container's cells in write order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := codecFor(flags.format)
			if err != nil {
				return err
			}
			lister, ok := codec.(container.CellLister)
			if !ok {
				return fmt.Errorf("format %q holds a single dataset per container", flags.format)
			}
			prefixes, err := lister.ListCells(args[0])
			if err != nil {
				return err
			}
			for _, prefix := range prefixes {
				if prefix == "" {
					prefix = "(default)"
				}
				fmt.Println(prefix)
			}
			return nil
		},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
