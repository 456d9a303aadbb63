package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/dailylove/internal/content"
	"github.com/example/dailylove/internal/database"
	"github.com/example/dailylove/internal/excel"
	"github.com/example/dailylove/pkg/models"
	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.DBType == "memory" {
				return fmt.Errorf("DB_TYPE=memory has no schema to migrate")
			}
			db, err := database.Connect(a.cfg.DBType, a.cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "schema is up to date (%s)\n", db.DriverName())
			return nil
		},
	}
}

func newTracksCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tracks",
		Short: "List configured content tracks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := a.catalog()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, t := range catalog.Tracks() {
				personalized := ""
				if t.Personalized != nil {
					personalized = ", personalized"
				}
				fmt.Fprintf(out, "%-16s %-24s %s, %d days, %d items%s\n",
					t.Name, t.Title, t.Policy, t.MaxDay, t.Bank.Len(), personalized)
			}
			return nil
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	var (
		trackName string
		day       int
		tags      []string
		lang      string
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the item a track serves on a given day",
		Example: `  dailylove show --day 51
  dailylove show --track love-actions --day 3 --tags gifts,touch --lang es`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := a.catalog()
			if err != nil {
				return err
			}
			if trackName == "" {
				trackName = a.cfg.DefaultTrack
			}
			track, err := catalog.Track(trackName)
			if err != nil {
				return err
			}
			selector, err := a.selector()
			if err != nil {
				return err
			}

			var p *models.PersonalizationContext
			if len(tags) > 0 {
				p = &models.PersonalizationContext{RankedTags: tags}
			}
			item, err := selector.SelectFrom(track.Bank, track.Personalized, day, p)
			if err != nil {
				return err
			}

			r := content.Render(item, lang)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s day %d: item %d", track.Name, day, r.ID)
			if r.Category != "" {
				fmt.Fprintf(out, " [%s]", r.Category)
			}
			fmt.Fprintln(out)
			if r.Title != "" {
				fmt.Fprintln(out, r.Title)
			}
			fmt.Fprintln(out, r.Body)
			return nil
		},
	}
	cmd.Flags().StringVar(&trackName, "track", "", "Track name (default DEFAULT_TRACK)")
	cmd.Flags().IntVar(&day, "day", 1, "Day number, 1-based")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Ranked categories, most preferred first")
	cmd.Flags().StringVar(&lang, "lang", content.DefaultLocale, "Preferred locale")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	config := excel.DefaultImportConfig()
	var (
		outPath string
		name    string
	)
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Convert an xlsx or csv sheet into a content bank file",
		Long: `Reads rows of title, body, category, difficulty and minutes (columns A-E)
and writes them as a YAML content bank numbered 1..N in row order.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config.FilePath = args[0]
			result, err := excel.ImportItems(config)
			if err != nil {
				return err
			}
			for _, e := range result.Errors {
				fmt.Fprintln(cmd.ErrOrStderr(), e)
			}
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}
			if _, err := result.Bank(name); err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if outPath != "" && outPath != "-" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", outPath, err)
				}
				defer f.Close()
				w = f
			}
			if err := content.WriteBank(w, name, result.Items); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "imported %d items, skipped %d empty rows, %d errors\n",
				result.Imported, result.Skipped, len(result.Errors))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "-", "Output bank file, - for stdout")
	cmd.Flags().StringVar(&name, "name", "", "Bank name (default: input file name)")
	cmd.Flags().StringVar(&config.SheetName, "sheet", "", "Sheet to read (default: first sheet)")
	cmd.Flags().IntVar(&config.StartRow, "start-row", config.StartRow, "First row to import, 1-based")
	cmd.Flags().StringVar(&config.Locale, "locale", config.Locale, "Locale of the text columns")
	return cmd
}
