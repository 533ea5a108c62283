package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/CarlosIrineuCosta/boxiii/internal/config"
	"github.com/CarlosIrineuCosta/boxiii/internal/domain"
	"github.com/CarlosIrineuCosta/boxiii/internal/log"
	"github.com/CarlosIrineuCosta/boxiii/internal/media"
	"github.com/CarlosIrineuCosta/boxiii/internal/service"
	"github.com/CarlosIrineuCosta/boxiii/internal/source"
	"github.com/CarlosIrineuCosta/boxiii/internal/store"
)

// Version is set at build time via -ldflags
var Version = "dev"

// app bundles the wired services for command handlers.
type app struct {
	store    *store.BoxStore
	sync     *service.SyncService
	download *service.DownloadManager
	progress *service.ProgressTracker
	search   *service.SearchService
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup wires config, logging, store, source, and services. The caller must
// Close the returned app's store.
func setup() (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.IsConfigured() {
		return nil, fmt.Errorf("no content source configured: set source.url in the config file or BOXIII_SOURCE_URL")
	}

	logger, err := log.SetupLogger(&cfg.Logging)
	if err != nil {
		logger = log.NullLogger()
	}
	slog.SetDefault(logger)
	logger.Info("starting boxiii", "version", Version)

	st, err := store.Open(cfg.Storage.Dir)
	if err != nil {
		return nil, err
	}

	mode := source.Mode(cfg.Source.Mode)
	client := source.NewClient(cfg.Source.URL, mode, time.Duration(cfg.Sync.TimeoutSeconds)*time.Second, logger)
	probe := source.NewProbe(cfg.Source.URL, mode)

	mediaCache, err := media.NewCache(cfg.Media.Dir, logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	syncSvc := service.NewSyncService(client, st, probe, logger)
	if cfg.Sync.RecentWindowDays > 0 {
		syncSvc.RecentWindow = time.Duration(cfg.Sync.RecentWindowDays) * 24 * time.Hour
	}

	return &app{
		store:    st,
		sync:     syncSvc,
		download: service.NewDownloadManager(client, st, mediaCache, probe, logger),
		progress: service.NewProgressTracker(st, logger),
		search:   service.NewSearchService(st, logger),
	}, nil
}

// withApp wraps a command handler with setup and teardown.
func withApp(fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.store.Close()
		return fn(cmd, args, a)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "boxiii",
		Short:         "Offline-first client for Boxiii content boxes",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newConfigCmd(),
		newBoxesCmd(),
		newCardsCmd(),
		newDownloadCmd(),
		newProgressCmd(),
		newSearchCmd(),
	)
	return root
}

func newConfigCmd() *cobra.Command {
	var (
		mode string
		url  string
	)
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or update the content provider configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			changed := false
			if cmd.Flags().Changed("source-mode") {
				if mode != string(source.ModeAPI) && mode != string(source.ModeStatic) {
					return fmt.Errorf("invalid source mode %q: must be %q or %q", mode, source.ModeAPI, source.ModeStatic)
				}
				cfg.Source.Mode = mode
				changed = true
			}
			if cmd.Flags().Changed("source-url") {
				cfg.Source.URL = url
				changed = true
			}
			if changed {
				if err := config.SaveConfig(cfg); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "source mode: %s\n", cfg.Source.Mode)
			fmt.Fprintf(cmd.OutOrStdout(), "source url:  %s\n", cfg.Source.URL)
			fmt.Fprintf(cmd.OutOrStdout(), "storage dir: %s\n", cfg.Storage.Dir)
			fmt.Fprintf(cmd.OutOrStdout(), "media dir:   %s\n", cfg.Media.Dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "source-mode", "", `provider mode ("api" or "static")`)
	cmd.Flags().StringVar(&url, "source-url", "", "provider base URL")
	return cmd
}

func newBoxesCmd() *cobra.Command {
	var mine bool
	cmd := &cobra.Command{
		Use:   "boxes",
		Short: "List boxes (remote when reachable, cached otherwise)",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			var (
				boxes []domain.Box
				err   error
			)
			if mine {
				boxes, err = a.sync.MyBoxes(cmd.Context())
			} else {
				boxes, err = a.sync.Boxes(cmd.Context())
			}
			if err != nil {
				return err
			}
			for _, box := range boxes {
				printBox(cmd, box)
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&mine, "mine", false, "only downloaded and recently opened boxes")
	return cmd
}

func newCardsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cards <set_id>",
		Short: "List a box's cards in reading order",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			cards, err := a.sync.Cards(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, card := range cards {
				fmt.Fprintf(cmd.OutOrStdout(), "%3d  %s  %s\n", card.OrderIndex, card.CardID, card.Title)
			}
			return nil
		}),
	}
}

func newDownloadCmd() *cobra.Command {
	var remove bool
	cmd := &cobra.Command{
		Use:   "download <set_id>",
		Short: "Make a box fully usable offline",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			setID := args[0]
			if remove {
				if err := a.download.RemoveDownload(setID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed download for %s\n", setID)
				return nil
			}

			result, err := a.download.DownloadBox(cmd.Context(), setID)
			if errors.Is(err, domain.ErrNetworkUnavailable) {
				return fmt.Errorf("cannot download %s: %w", setID, err)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "downloaded %s: %d cards, %d media cached (%d skipped)\n",
				result.SetID, result.Cards, result.MediaFetched, result.MediaSkipped)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&remove, "remove", false, "remove the offline copy instead")
	return cmd
}

func newProgressCmd() *cobra.Command {
	var (
		card int
		done int
	)
	cmd := &cobra.Command{
		Use:   "progress <set_id>",
		Short: "Show or update reading progress for a box",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			setID := args[0]

			if cmd.Flags().Changed("done") {
				p, err := a.progress.MarkCompleted(setID, done)
				if err != nil {
					return err
				}
				printProgress(cmd, p)
				return nil
			}
			if cmd.Flags().Changed("card") {
				p, err := a.progress.SaveProgress(setID, card, nil)
				if err != nil {
					return err
				}
				printProgress(cmd, p)
				return nil
			}

			p, err := a.progress.Progress(setID)
			if errors.Is(err, domain.ErrNotFound) {
				fmt.Fprintln(cmd.OutOrStdout(), "no progress yet (start at card 0)")
				return nil
			}
			if err != nil {
				return err
			}
			printProgress(cmd, p)
			return nil
		}),
	}
	cmd.Flags().IntVar(&card, "card", 0, "set the current card index")
	cmd.Flags().IntVar(&done, "done", 0, "mark a card index completed and move there")
	return cmd
}

func newSearchCmd() *cobra.Command {
	var cards bool
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Fuzzy-search cached boxes and cards",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			if cards {
				matches, err := a.search.Cards(args[0])
				if err != nil {
					return err
				}
				for _, card := range matches {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  [%s]  %s\n", card.CardID, card.SetID, card.Title)
				}
				return nil
			}

			matches, err := a.search.Boxes(args[0])
			if err != nil {
				return err
			}
			for _, box := range matches {
				printBox(cmd, box)
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&cards, "cards", false, "search cards instead of boxes")
	return cmd
}

func printBox(cmd *cobra.Command, box domain.Box) {
	marker := " "
	if box.Downloaded {
		marker = "*"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s  %s (%d cards)\n", marker, box.SetID, box.Title, box.CardCount)
}

func printProgress(cmd *cobra.Command, p domain.Progress) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s: card %d, %d completed\n", p.SetID, p.CardIndex, len(p.CompletedCards))
}
