package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/stroke-code-server/internal/archive"
	"github.com/stroke-code-server/internal/config"
	"github.com/stroke-code-server/internal/domain"
	"github.com/stroke-code-server/internal/export"
	"github.com/stroke-code-server/internal/service"
)

// importer is implemented by the archive stores that accept JSON exports
type importer interface {
	ImportJSON(ctx context.Context, r io.Reader) (imported int, skipped int, err error)
}

func newRootCmd() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:          "strokectl",
		Short:        "Stroke code operator tool",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a configuration file")

	load := func() (*config.Manager, error) {
		var opts []config.Option
		if configFile != "" {
			opts = append(opts, config.WithConfigFile(configFile))
		}
		return config.NewManager(opts...)
	}

	rootCmd.AddCommand(doseCmd())
	rootCmd.AddCommand(casesCmd(load))
	rootCmd.AddCommand(configCmd(load))
	return rootCmd
}

func doseCmd() *cobra.Command {
	var weight float64

	cmd := &cobra.Command{
		Use:   "dose",
		Short: "Compute the IV alteplase dose for a weight in kg",
		RunE: func(cmd *cobra.Command, args []string) error {
			dose := service.RtpaDose(&weight)
			if dose == nil {
				return fmt.Errorf("weight must be a positive number of kilograms, got %v", weight)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total:    %.1f mg\n", dose.Total)
			fmt.Fprintf(out, "Bolus:    %.1f mg (IV over 1 min)\n", dose.Bolus)
			fmt.Fprintf(out, "Infusion: %.1f mg (over 60 min)\n", dose.Infusion)
			return nil
		},
	}
	cmd.Flags().Float64Var(&weight, "weight", 0, "patient weight in kilograms")
	_ = cmd.MarkFlagRequired("weight")
	return cmd
}

func casesCmd(load func() (*config.Manager, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cases",
		Short: "Inspect the case archive",
	}

	openStore := func(cmd *cobra.Command) (domain.CaseStore, error) {
		manager, err := load()
		if err != nil {
			return nil, err
		}
		logger := config.NewLogger(manager.GetConfig().Logging)
		logger.SetOutput(cmd.ErrOrStderr())
		logger.SetLevel(logrus.WarnLevel)
		return archive.Open(manager.GetConfig().Archive, logger)
	}

	// cases list
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List archived cases",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			offset, _ := cmd.Flags().GetInt("offset")

			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			cases, err := store.List(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTIMESTAMP\tNIHSS\tASPECTS\tTHROMBOLYSIS\tTHROMBECTOMY\tELAPSED")
			for _, c := range cases {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
					c.ID,
					c.Timestamp.UTC().Format(time.RFC3339),
					c.NihssTotal,
					c.AspectsScore,
					yesNo(c.Thrombolysis.Eligible),
					yesNo(c.Thrombectomy.Eligible),
					service.FormatElapsed(c.ElapsedSeconds),
				)
			}
			return w.Flush()
		},
	}
	listCmd.Flags().Int("limit", 50, "maximum number of cases")
	listCmd.Flags().Int("offset", 0, "number of cases to skip")

	// cases export
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export cases as CSV (one case with --id, all cases otherwise)",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetString("id")
			outPath, _ := cmd.Flags().GetString("out")

			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			var cases []domain.Case
			if id != "" {
				c, err := store.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				cases = append(cases, c)
			} else {
				cases, err = store.List(cmd.Context(), -1, 0)
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", outPath, err)
				}
				defer f.Close()
				out = f
			}
			return export.WriteCSV(out, cases...)
		},
	}
	exportCmd.Flags().String("id", "", "case id")
	exportCmd.Flags().String("out", "", "output file (default stdout)")

	// cases dump
	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Write the whole archive as a versioned JSON export",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			return store.ExportJSON(cmd.Context(), cmd.OutOrStdout())
		},
	}

	// cases import
	importCmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Append the cases of a JSON export that are not archived yet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			imp, ok := store.(importer)
			if !ok {
				return fmt.Errorf("archive does not support import")
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			imported, skipped, err := imp.ImportJSON(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d cases, skipped %d\n", imported, skipped)
			return nil
		},
	}

	cmd.AddCommand(listCmd, exportCmd, dumpCmd, importCmd)
	return cmd
}

func configCmd(load func() (*config.Manager, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := load()
			if err != nil {
				return err
			}
			if err := manager.Validate(); err != nil {
				return err
			}
			source := manager.ConfigFileUsed()
			if source == "" {
				source = "defaults and environment"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration OK (%s)\n", source)
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := load()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(manager.GetConfig())
		},
	}

	cmd.AddCommand(validateCmd, showCmd)
	return cmd
}

func yesNo(b bool) string {
	if b {
		return "SI"
	}
	return "NO"
}
