package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/prayertimes/internal/config"
	"github.com/nao1215/prayertimes/internal/report"
)

// NewDistrictsCmd creates the districts command.
func NewDistrictsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "districts",
		Short: "Print the district catalog",
		Long: `Districts prints the catalog scrape would use, after applying the
configuration file and --districts, together with the page URL of each
district.

Examples:
  # Print the built-in catalog
  prayertimes districts

  # Check a custom list, one id per line for scripts
  prayertimes districts -D districts.yaml --plain`,
		Args: cobra.NoArgs,
		RunE: runDistrictsCmd,
	}

	cmd.Flags().StringP("districts", "D", "",
		"District list file (.json, .json5, .yaml or one id per line)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .prayertimes in current or home directory)")
	cmd.Flags().Bool("plain", false,
		"Print one district id per line")

	return cmd
}

// runDistrictsCmd executes the districts command.
func runDistrictsCmd(cmd *cobra.Command, _ []string) error {
	cfg := config.NewConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	if err := loadConfigFile(cfg, configPath); err != nil {
		return err
	}

	path, err := cmd.Flags().GetString("districts")
	if err != nil {
		return err
	}
	if path != "" {
		if cfg.Districts, err = config.LoadCatalog(path); err != nil {
			return err
		}
	}
	if err := config.ValidateCatalog(cfg.Districts); err != nil {
		return err
	}

	plain, err := cmd.Flags().GetBool("plain")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if plain {
		for _, d := range cfg.Districts {
			fmt.Fprintln(out, d)
		}
		return nil
	}

	base := strings.TrimRight(cfg.EffectiveBaseURL(), "/")
	rows := make([][]string, 0, len(cfg.Districts))
	for i, d := range cfg.Districts {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			string(d),
			report.DisplayName(d),
			base + "/" + string(d),
		})
	}
	report.NewTableWriter(out).WriteTable("Districts", []string{"#", "ID", "Name", "URL"}, rows)
	fmt.Fprintf(out, "%d districts\n", len(cfg.Districts))
	return nil
}
