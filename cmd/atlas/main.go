package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kokistudios/atlas/internal/bundle"
	"github.com/kokistudios/atlas/internal/catalog"
	atlasmcp "github.com/kokistudios/atlas/internal/mcp"
	"github.com/kokistudios/atlas/internal/source"
	"github.com/kokistudios/atlas/internal/store"
	"github.com/kokistudios/atlas/internal/ui"
	"github.com/kokistudios/atlas/internal/view"
)

// Set via ldflags at build time
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func buildVersion() string {
	if commit == "none" {
		return version
	}
	return fmt.Sprintf("%s (%s, %s)", version, commit, date)
}

func main() {
	var noColor bool
	var logLevel string

	rootCmd := &cobra.Command{
		Use:   "atlas",
		Short: "ATLAS: AI challenge catalog browser",
		Long:  "Browse a catalog of industry challenges as themed cards, filtered by sector, AI capability, text and star scores.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := logLevel
			if level == "" {
				level = "info"
				if s, err := store.Load(store.Home()); err == nil {
					level = s.Config.Log.Level
				}
			}
			ui.Init(noColor, level)
		},
	}

	rootCmd.Version = buildVersion()
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (default from config)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "core", Title: "Core Commands:"},
		&cobra.Group{ID: "catalog", Title: "Catalog Commands:"},
		&cobra.Group{ID: "data", Title: "Data Commands:"},
		&cobra.Group{ID: "config", Title: "Configuration:"},
	)

	initC := initCmd()
	initC.GroupID = "core"
	doctorC := doctorCmd()
	doctorC.GroupID = "core"

	listC := listCmd()
	listC.GroupID = "catalog"
	showC := showCmd()
	showC.GroupID = "catalog"
	browseC := browseCmd()
	browseC.GroupID = "catalog"
	capsC := capabilitiesCmd()
	capsC.GroupID = "catalog"
	sectorsC := sectorsCmd()
	sectorsC.GroupID = "catalog"

	exportC := exportCmd()
	exportC.GroupID = "data"
	importC := importCmd()
	importC.GroupID = "data"

	configC := configCmd()
	configC.GroupID = "config"

	rootCmd.AddCommand(initC, doctorC)
	rootCmd.AddCommand(listC, showC, browseC, capsC, sectorsC)
	rootCmd.AddCommand(exportC, importC)
	rootCmd.AddCommand(configC)
	rootCmd.AddCommand(completionCmd())
	rootCmd.AddCommand(mcpServeCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadStore() (*store.Store, error) {
	s, err := store.Load(store.Home())
	if err != nil {
		return nil, fmt.Errorf("ATLAS not initialized, run 'atlas init' first: %w", err)
	}
	return s, nil
}

func newCatalog(s *store.Store) *catalog.Catalog {
	return catalog.New(catalog.Config{
		RecordsLocation:      s.RecordsLocation(),
		CapabilitiesLocation: s.CapabilitiesLocation(),
		Fetcher:              source.NewFetcher(s.Config.FetchTimeout()),
		Logger:               ui.Logger,
	})
}

// openCatalog loads the store and both sources. Load failures are logged by
// the catalog and returned in the report; the catalog is usable either way.
func openCatalog(ctx context.Context) (*store.Store, *catalog.Catalog, *catalog.LoadReport, error) {
	s, err := loadStore()
	if err != nil {
		return nil, nil, nil, err
	}
	cat := newCatalog(s)

	var sp *ui.Spinner
	if source.IsRemote(s.RecordsLocation()) || source.IsRemote(s.CapabilitiesLocation()) {
		sp = ui.NewSpinner("Fetching catalog...")
	}
	report := cat.Load(ctx)
	if sp != nil {
		sp.Stop()
	}
	ui.Logger.Debug("Catalog loaded", "records", report.Records, "capabilities", report.Capabilities, "took", report.Duration)
	return s, cat, report, nil
}

func uiAssets(s *store.Store) ui.Assets {
	return ui.Assets{Images: s.Config.Assets.Images, Icons: s.Config.Assets.Icons}
}

func initCmd() *cobra.Command {
	var force, yes bool
	cmd := &cobra.Command{
		Use:     "init",
		Short:   "Initialize ATLAS_HOME directory structure",
		Long:    "Create the ATLAS_HOME directory (~/.atlas by default) with data/ and config.yaml. Put records.json and capabilities.json in data/, or point sources.* at other files or URLs.",
		Example: "  atlas init\n  atlas init --force",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := store.Home()
			if _, err := os.Stat(home); err == nil && force && !yes {
				ok, err := ui.Confirm(fmt.Sprintf("Reset %s/config.yaml to defaults?", home))
				if err != nil {
					return err
				}
				if !ok {
					ui.Info("Aborted")
					return nil
				}
			}
			if err := store.Init(home, force); err != nil {
				return err
			}
			ui.LogoWithTagline("challenge catalog ready")
			ui.Success("ATLAS initialized")
			ui.Detail("Home:", home)
			ui.Detail("Data:", home+"/data")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Reinitialize even if ATLAS_HOME already exists")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func listCmd() *cobra.Command {
	var filters filterFlags
	format := formatFlag{value: "grid", allowed: ui.Formats}
	var columns int
	var watch bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List challenge cards matching the filters",
		Long: `List challenge cards in catalog order.

Filters combine with AND. Repeated --sector or --capability values combine
with OR. Scores take all, 1, 2 or 3.`,
		Example: `  atlas list
  atlas list --sector energy --sector health --significance 2
  atlas list --capability forecasting --search grid --format json
  atlas list --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			s, cat, report, err := openCatalog(ctx)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("columns") {
				columns = s.Config.Display.Columns
			}
			r, err := ui.NewRenderer(format.value, os.Stdout, ui.RenderOptions{
				Columns:   columns,
				CardWidth: s.Config.Display.CardWidth,
				Assets:    uiAssets(s),
			})
			if err != nil {
				return err
			}

			session := catalog.NewSession(cat, r)
			if err := session.SetState(filters.state()); err != nil {
				return err
			}

			if !watch {
				if report.RecordsErr != nil {
					return fmt.Errorf("records source failed: %w", report.RecordsErr)
				}
				return nil
			}

			ui.Info("Watching sources for changes (ctrl+c to stop)")
			err = cat.Watch(ctx, func(r *catalog.LoadReport) {
				if r.RecordsErr != nil {
					ui.Warning("Reload failed, keeping previous records")
				}
				if err := session.Refresh(); err != nil {
					ui.Logger.Error("Render failed", "err", err)
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	filters.register(cmd.Flags())
	cmd.Flags().VarP(&format, "format", "f", "Output format: "+strings.Join(ui.Formats, ", "))
	cmd.Flags().IntVar(&columns, "columns", 0, "Grid columns (0 fits the terminal)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-render when local sources change")
	return cmd
}

func showCmd() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:     "show <number>",
		Short:   "Show one challenge card in full",
		Example: "  atlas show 12\n  atlas show 12 --raw > card.md",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cat, report, err := openCatalog(cmd.Context())
			if err != nil {
				return err
			}
			card, _, ok := cat.Card(args[0])
			if !ok {
				if report.RecordsErr != nil {
					return fmt.Errorf("records source failed: %w", report.RecordsErr)
				}
				return fmt.Errorf("challenge not found: %s", args[0])
			}
			src := ui.DetailMarkdown(card, uiAssets(s))
			if raw {
				fmt.Print(src)
				return nil
			}
			ui.RenderMarkdown(src)
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print markdown without terminal rendering")
	return cmd
}

func browseCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse the catalog interactively",
		Long: `Open the interactive card browser.

Type / to search, s/c/r to pick a score, 1-3 to toggle it, 0 to clear it,
x to reset all filters and enter to open a card.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cat, _, err := openCatalog(cmd.Context())
			if err != nil {
				return err
			}
			return ui.Browse(cmd.Context(), cat, ui.BrowseOptions{Assets: uiAssets(s), Watch: watch})
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", true, "Reload when local sources change")
	return cmd
}

func capabilitiesCmd() *cobra.Command {
	var theme string
	cmd := &cobra.Command{
		Use:     "capabilities",
		Short:   "List the AI capability taxonomy",
		Long:    "List registered capabilities with their icons and usage counts, followed by ids that records reference but the taxonomy does not define.",
		Example: "  atlas capabilities\n  atlas capabilities --theme health",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			th, err := view.ParseTheme(theme)
			if err != nil {
				return err
			}
			_, cat, report, err := openCatalog(cmd.Context())
			if err != nil {
				return err
			}
			if report.CapabilitiesErr != nil {
				ui.Warning("Capability taxonomy unavailable; showing raw ids")
			}
			caps := atlasmcp.CapabilityTable(cat, th)
			if len(caps) == 0 {
				ui.EmptyState("No capabilities loaded.")
				return nil
			}
			var rows [][]string
			for _, c := range caps {
				name := c.Name
				if c.Unregistered {
					name = ui.Yellow(name + " (unregistered)")
				}
				count := fmt.Sprintf("%d", c.Challenges)
				if c.Challenges == 0 {
					count = ui.Dim(count)
				}
				rows = append(rows, []string{c.ID, name, c.Icon, count})
			}
			ui.Table([]string{"ID", "NAME", "ICON", "CHALLENGES"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&theme, "theme", string(view.ThemeEnergy), "Theme used to resolve file icons")
	return cmd
}

func sectorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sectors",
		Short: "List sectors and the theme each maps to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cat, report, err := openCatalog(cmd.Context())
			if err != nil {
				return err
			}
			sectors := atlasmcp.SectorTable(cat)
			if len(sectors) == 0 {
				if report.RecordsErr != nil {
					return fmt.Errorf("records source failed: %w", report.RecordsErr)
				}
				ui.EmptyState("No sectors in the catalog.")
				return nil
			}
			var rows [][]string
			for _, sec := range sectors {
				rows = append(rows, []string{sec.Sector, sec.Theme, sec.Image, fmt.Sprintf("%d", sec.Challenges)})
			}
			ui.Table([]string{"SECTOR", "THEME", "IMAGE", "CHALLENGES"}, rows)
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and edit ATLAS configuration",
	}
	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configSetCmd())
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(s.Config)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Print(string(data))
			for _, key := range s.Overrides() {
				ui.Info(fmt.Sprintf("%s overridden by %s", key, store.EnvVar(key)))
			}
			return nil
		},
	}
}

func configSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long:  "Set an ATLAS configuration value. Valid keys: " + strings.Join(store.Keys, ", ") + ".",
		Example: `  atlas config set sources.records https://example.org/challenges.json
  atlas config set display.card_width 44
  atlas config set log.level debug`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: store.Keys,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			if err := s.SetConfigValue(args[0], args[1]); err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("Set %s = %s", args[0], args[1]))
			return nil
		},
	}
}

func doctorCmd() *cobra.Command {
	var fix bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check ATLAS_HOME and both data sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := store.Home()

			if fix {
				ui.CommandBanner("DOCTOR", "repair mode")
				fixed := store.FixIssues(home)
				for _, f := range fixed {
					ui.Success(fmt.Sprintf("[FIXED] %s", f))
				}
				if len(fixed) == 0 {
					ui.EmptyState("Nothing to fix.")
				}
			} else {
				ui.CommandBanner("DOCTOR", "health check")
			}

			issues := store.CheckHealth(home)
			if s, err := store.Load(home); err == nil {
				cat := newCatalog(s)
				report := cat.Load(cmd.Context())
				recLoc, capLoc := cat.Locations()
				ui.SectionHeader("Sources")
				if report.RecordsErr != nil {
					ui.Detail("Records:", fmt.Sprintf("%s %s", ui.Red("failed"), recLoc))
					issues = append(issues, store.Issue{Severity: "error", Message: report.RecordsErr.Error()})
				} else {
					ui.Detail("Records:", fmt.Sprintf("%s %d from %s", ui.Green("ok"), report.Records, recLoc))
				}
				if report.CapabilitiesErr != nil {
					ui.Detail("Capabilities:", fmt.Sprintf("%s %s", ui.Red("failed"), capLoc))
					issues = append(issues, store.Issue{Severity: "warning", Message: report.CapabilitiesErr.Error() + " (cards fall back to raw capability ids)"})
				} else {
					ui.Detail("Capabilities:", fmt.Sprintf("%s %d from %s", ui.Green("ok"), report.Capabilities, capLoc))
				}
			}

			if len(issues) == 0 {
				ui.Success("Everything looks good")
				os.Exit(0)
			}

			ui.SectionHeader("Issues")
			hasError := false
			for _, issue := range issues {
				if issue.Severity == "error" {
					ui.Error(fmt.Sprintf("[ERR]  %s", issue.Message))
					hasError = true
				} else {
					ui.Warning(fmt.Sprintf("[WARN] %s", issue.Message))
				}
			}

			if hasError {
				os.Exit(2)
			}
			os.Exit(1)
			return nil
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "Recreate a missing data directory or config.yaml")
	return cmd
}

func completionCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "completion [bash|zsh|fish]",
		Short:     "Generate shell completion scripts",
		Long:      "Generate shell completion scripts for bash, zsh, or fish. Output the script to stdout for sourcing in your shell profile.",
		Example:   "  atlas completion bash > ~/.bashrc.d/atlas\n  atlas completion zsh > ~/.zfunc/_atlas\n  atlas completion fish > ~/.config/fish/completions/atlas.fish",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish"},
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			default:
				return fmt.Errorf("unsupported shell: %s (use bash, zsh, or fish)", args[0])
			}
		},
	}
}

func exportCmd() *cobra.Command {
	var outputPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export both data sources to a portable .atlas bundle",
		Long: `Export the configured records and capability sources to a .atlas bundle.

Remote sources are fetched, so the bundle can be browsed offline after
'atlas import'. Both documents must parse before anything is written.`,
		Example: `  atlas export
  atlas export -o ~/Desktop/catalog.atlas`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}

			ui.Info("Exporting catalog...")
			path, manifest, err := bundle.Export(cmd.Context(), s, source.NewFetcher(s.Config.FetchTimeout()), outputPath)
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			sizeStr := ""
			if info, err := os.Stat(path); err == nil {
				sizeStr = fmt.Sprintf(" (%d bytes)", info.Size())
			}
			ui.Success(fmt.Sprintf("Exported to %s%s", path, sizeStr))
			ui.KeyValue("Records:     ", fmt.Sprintf("%d", manifest.Records))
			ui.KeyValue("Capabilities:", fmt.Sprintf("%d", manifest.Capabilities))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file or directory (default: atlas-<timestamp>.atlas)")
	return cmd
}

func importCmd() *cobra.Command {
	var preview, force bool
	cmd := &cobra.Command{
		Use:   "import <bundle-path>",
		Short: "Import data sources from a .atlas bundle",
		Long: `Import a .atlas bundle into ATLAS_HOME/data and point sources.records
and sources.capabilities at the imported files.

Use --preview to see what will be imported without making changes.`,
		Example: `  atlas import catalog.atlas
  atlas import catalog.atlas --preview
  atlas import catalog.atlas --force`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bundlePath := args[0]

			if preview {
				manifest, err := bundle.ReadManifest(bundlePath)
				if err != nil {
					return fmt.Errorf("failed to read bundle: %w", err)
				}
				ui.CommandBanner("IMPORT PREVIEW", bundlePath)
				ui.KeyValue("Exported at: ", manifest.ExportedAt.Format("2006-01-02 15:04:05"))
				ui.KeyValue("Records:     ", fmt.Sprintf("%d (from %s)", manifest.Records, manifest.Sources.Records))
				ui.KeyValue("Capabilities:", fmt.Sprintf("%d (from %s)", manifest.Capabilities, manifest.Sources.Capabilities))
				ui.Info("Use 'atlas import' without --preview to import this bundle.")
				return nil
			}

			s, err := loadStore()
			if err != nil {
				return err
			}

			ui.Info(fmt.Sprintf("Importing from %s...", bundlePath))
			result, err := bundle.Import(s, bundlePath, force)
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			ui.Success(fmt.Sprintf("Imported %d records and %d capabilities", result.Manifest.Records, result.Manifest.Capabilities))
			ui.KeyValue("Records:     ", result.RecordsPath)
			ui.KeyValue("Capabilities:", result.CapabilitiesPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&preview, "preview", false, "Preview bundle contents without importing")
	cmd.Flags().BoolVar(&force, "force", false, "Replace existing data files")
	return cmd
}

func mcpServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "mcp-serve",
		Short:  "Run ATLAS as an MCP server",
		Long:   "Start ATLAS as a Model Context Protocol (MCP) server over stdio so assistants can query the challenge catalog.",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			cat := newCatalog(s)
			cat.Load(cmd.Context())

			assets := atlasmcp.Assets{Images: s.Config.Assets.Images, Icons: s.Config.Assets.Icons}
			server := atlasmcp.NewServer(cat, assets, version)
			return server.Run(context.Background())
		},
	}
}
