// Command carectl evaluates onboarding answers offline and administers the guideline catalog,
// the snapshot database and the recency confirmation store.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/preventive-care-server/internal/catalog"
	"github.com/preventive-care-server/internal/config"
	"github.com/preventive-care-server/internal/confirmation"
	"github.com/preventive-care-server/internal/database"
	"github.com/preventive-care-server/internal/domain"
	"github.com/preventive-care-server/internal/service"
	"github.com/preventive-care-server/internal/setup"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "carectl",
		Short:        "Preventive care recommendation engine tooling",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "Path to a configuration file")

	rootCmd.AddCommand(evaluateCmd())
	rootCmd.AddCommand(catalogCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(confirmationsCmd())
	rootCmd.AddCommand(mcpCmd())
	return rootCmd
}

func loadConfig(cmd *cobra.Command) (*config.Manager, error) {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		return config.NewManagerFromFile(path)
	}
	return config.NewManager()
}

func cliLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func evaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Compute the checklist for a JSON file of onboarding answers",
		RunE: func(cmd *cobra.Command, args []string) error {
			profilePath, _ := cmd.Flags().GetString("profile")
			asOfValue, _ := cmd.Flags().GetString("as-of")
			catalogPath, _ := cmd.Flags().GetString("catalog")
			explain, _ := cmd.Flags().GetBool("explain")
			asJSON, _ := cmd.Flags().GetBool("json")

			raw, err := readAnswers(profilePath)
			if err != nil {
				return err
			}
			var asOf time.Time
			if asOfValue != "" {
				if asOf, err = domain.ParseDate(asOfValue); err != nil {
					return fmt.Errorf("--as-of: %w", err)
				}
			}
			cat, err := catalog.Load(catalogPath)
			if err != nil {
				return err
			}
			svc, err := service.NewRecommendationService(cliLogger(), cat, service.ServiceOptions{})
			if err != nil {
				return err
			}

			req := service.ComputeRequest{Answers: raw, AsOf: asOf}
			out := cmd.OutOrStdout()
			if explain {
				decisions, err := svc.Explain(cmd.Context(), req)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(out, decisions)
				}
				return printDecisions(out, decisions)
			}

			result, err := svc.Compute(cmd.Context(), req)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(out, result.Checklist)
			}
			return printChecklist(out, result.Checklist)
		},
	}
	cmd.Flags().String("profile", "", "Path to a JSON file of onboarding answers (- for stdin)")
	cmd.Flags().String("as-of", "", "Evaluation date as YYYY-MM-DD (default today)")
	cmd.Flags().String("catalog", "", "Guideline catalog file (default built-in table)")
	cmd.Flags().Bool("explain", false, "Show every rule's decision, including rules that do not apply")
	cmd.Flags().Bool("json", false, "Print JSON instead of a table")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}

func readAnswers(path string) (*domain.RawAnswers, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening profile: %w", err)
		}
		defer f.Close()
		r = f
	}

	var raw domain.RawAnswers
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding profile: %w", err)
	}
	return &raw, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func printChecklist(w io.Writer, checklist *domain.Checklist) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tSCREENING\tCATEGORY\tRATIONALE")
	for _, r := range checklist.Recommendations {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Status, r.Title, r.Category, r.Rationale)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d due now, %d due soon, %d up to date, %d unknown (catalog %s)\n",
		checklist.DueNowCount, checklist.DueSoonCount, checklist.UpToDateCount, checklist.UnknownCount,
		checklist.CatalogVersion)
	return err
}

func printDecisions(w io.Writer, decisions []domain.Decision) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RULE\tAPPLIES\tSTATUS\tRATIONALE")
	for _, d := range decisions {
		fmt.Fprintf(tw, "%s\t%t\t%s\t%s\n", d.ScreeningID, d.Applicable, d.Status, d.Rationale)
	}
	return tw.Flush()
}

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect guideline catalogs",
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a catalog file against the rule schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			cat, err := catalog.Load(file)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "catalog %s is valid: %d rules in %d categories\n",
				cat.Version, len(cat.Rules), len(cat.Categories))
			return nil
		},
	}
	validateCmd.Flags().String("file", "", "Catalog file (default built-in table)")
	cmd.AddCommand(validateCmd)

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print a catalog as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			cat, err := catalog.Load(file)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), cat)
		},
	}
	showCmd.Flags().String("file", "", "Catalog file (default built-in table)")
	cmd.AddCommand(showCmd)

	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the snapshot database schema",
	}

	runner := func(cmd *cobra.Command) (*database.MigrationRunner, error) {
		manager, err := loadConfig(cmd)
		if err != nil {
			return nil, err
		}
		dbCfg := manager.GetDatabaseConfig()
		return database.NewMigrationRunner(database.ConfigFrom(*dbCfg).URL(), dbCfg.MigrationsPath, cliLogger())
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			mr, err := runner(cmd)
			if err != nil {
				return err
			}
			defer mr.Close()
			return mr.Up(cmd.Context())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			mr, err := runner(cmd)
			if err != nil {
				return err
			}
			defer mr.Close()
			return mr.Down(cmd.Context())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			mr, err := runner(cmd)
			if err != nil {
				return err
			}
			defer mr.Close()
			version, dirty, err := mr.Version()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
			return nil
		},
	})

	return cmd
}

func confirmationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "confirmations",
		Short: "Export or import recency confirmations",
	}

	openStore := func(cmd *cobra.Command) (confirmation.Store, error) {
		manager, err := loadConfig(cmd)
		if err != nil {
			return nil, err
		}
		store, err := confirmation.NewStore(manager.GetConfig().Confirmations)
		if err != nil {
			return nil, err
		}
		if store == nil {
			return nil, fmt.Errorf("confirmations are disabled in the configuration")
		}
		return store, nil
	}

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write every confirmation as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if path, _ := cmd.Flags().GetString("out"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return store.ExportJSON(cmd.Context(), out)
		},
	}
	exportCmd.Flags().String("out", "", "Output file (default stdout)")
	cmd.AddCommand(exportCmd)

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Load confirmations from a JSON export, skipping ones that exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			imported, skipped, err := store.ImportJSON(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d, skipped %d\n", imported, skipped)
			return nil
		},
	}
	importCmd.Flags().String("file", "", "JSON export to import")
	_ = importCmd.MarkFlagRequired("file")
	cmd.AddCommand(importCmd)

	return cmd
}

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Register the MCP server with a desktop MCP client",
	}

	clientConfig := func(cmd *cobra.Command) (string, error) {
		if path, _ := cmd.Flags().GetString("client-config"); path != "" {
			return path, nil
		}
		return setup.ClientConfigPath()
	}

	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Add or update the server entry in the client configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := clientConfig(cmd)
			if err != nil {
				return err
			}
			binary, _ := cmd.Flags().GetString("binary")
			dataDir, _ := cmd.Flags().GetString("data-dir")
			configFile, _ := cmd.Flags().GetString("config")

			entry, err := setup.Register(path, setup.Options{BinaryPath: binary, ConfigFile: configFile, DataDir: dataDir})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s -> %s in %s\n", setup.ServerName, entry.Command, path)
			return nil
		},
	}
	registerCmd.Flags().String("client-config", "", "Client configuration file (default platform location)")
	registerCmd.Flags().String("binary", "", "Path to the MCP server binary (default searched)")
	registerCmd.Flags().String("data-dir", "", "Directory for the confirmation store")
	cmd.AddCommand(registerCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether the server is registered",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := clientConfig(cmd)
			if err != nil {
				return err
			}
			status, err := setup.GetStatus(path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "client config: %s\nregistered: %t\n", status.ConfigPath, status.Registered)
			if status.Command != "" {
				fmt.Fprintf(out, "command: %s\n", status.Command)
			}
			for _, issue := range status.Issues {
				fmt.Fprintf(out, "issue: %s\n", issue)
			}
			return nil
		},
	}
	statusCmd.Flags().String("client-config", "", "Client configuration file (default platform location)")
	cmd.AddCommand(statusCmd)

	return cmd
}
