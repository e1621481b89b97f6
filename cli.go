package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"biblify/internal/app"
	"biblify/internal/config"
	"biblify/internal/notify"
	"biblify/internal/server"
	"biblify/internal/storage"
	"biblify/internal/verse"
)

const version = "biblify v0.3.0"

var (
	cfgFile  string
	verbose  bool
	openLink string
)

var rootCmd = &cobra.Command{
	Use:   "biblify",
	Short: "Biblify - a terminal verse reader",
	Long: `Biblify shows Bible verses and your own affirmations one at a time.

Run it without a subcommand to open the reader. Subcommands search the
collection, manage favorites and affirmations, deliver the daily verse
notification and serve the JSON API.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReader(openLink)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.biblify/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("data-dir", "", "directory for affirmations, favorites and session state")
	rootCmd.PersistentFlags().String("scripture", "", "scripture file (default: bundled KJV)")
	rootCmd.Flags().StringVar(&openLink, "open", "", "open the reader on a biblify://verse link")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	_ = viper.BindPFlag("scripture_file", rootCmd.PersistentFlags().Lookup("scripture"))

	serveCmd.Flags().String("addr", "", "listen address (default: 127.0.0.1:8080)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))

	affirmAddCmd.Flags().StringVarP(&affirmRef, "ref", "r", "", "reference line shown under the affirmation")
	affirmEditCmd.Flags().StringVarP(&affirmRef, "ref", "r", "", "reference line shown under the affirmation")

	affirmCmd.AddCommand(affirmListCmd, affirmAddCmd, affirmEditCmd, affirmRemoveCmd)
	favoritesCmd.AddCommand(favoritesToggleCmd)
	prefsCmd.AddCommand(prefsShowCmd, prefsSetCmd)
	notifyCmd.AddCommand(notifySendCmd)
	configCmd.AddCommand(configShowCmd, configInitCmd)

	rootCmd.AddCommand(
		versionCmd,
		searchCmd,
		randomCmd,
		dailyCmd,
		chapterCmd,
		favoritesCmd,
		affirmCmd,
		prefsCmd,
		notifyCmd,
		donateCmd,
		serveCmd,
		configCmd,
	)
}

// initConfig reads the config file and BIBLIFY_* environment variables.
func initConfig() {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(config.DefaultDataDir())
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	config.BindEnv(viper.GetViper())

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := viper.ReadInConfig(); err == nil {
		slog.Debug("Using config file", "path", viper.ConfigFileUsed())
	} else {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && cfgFile != "" {
			slog.Warn("Failed to read config file", "path", cfgFile, "error", err)
		}
	}
}

func loadConfig() (config.Config, error) {
	return config.Load(viper.GetViper())
}

func openService() (*app.Service, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.Open(cfg), nil
}

// withService opens the service for the duration of fn.
func withService(fn func(svc *app.Service) error) error {
	svc, err := openService()
	if err != nil {
		return err
	}
	defer svc.Close()
	return fn(svc)
}

func printVerse(w io.Writer, v verse.Verse, favorite bool) {
	mark := " "
	if favorite {
		mark = "*"
	}
	label := v.Reference
	if v.IsAffirmation {
		label += " (affirmation)"
	}
	fmt.Fprintf(w, "%s %s\n", mark, label)
	for _, line := range strings.Split(wordwrap.String(v.Text, 72), "\n") {
		fmt.Fprintf(w, "    %s\n", line)
	}
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search verses by reference or text",
	Long: `Search the visible collection. A query that looks like a reference
("gen 1", "3:16") is matched against the reference index. Otherwise a single
word finds verses with a word starting with it, and several words must appear
together as a phrase. Text matching ignores case and covers both the verse text
and its reference.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(svc *app.Service) error {
			results, err := svc.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintln(out, "No verses found.")
				return nil
			}
			for _, r := range results {
				printVerse(out, r.Verse, r.Favorite)
			}
			fmt.Fprintf(out, "\n%d results\n", len(results))
			return nil
		})
	},
}

var randomCmd = &cobra.Command{
	Use:   "random",
	Short: "Print a random verse",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(svc *app.Service) error {
			v, ok := svc.RandomVerse()
			if !ok {
				return errors.New("no verses available")
			}
			printVerse(cmd.OutOrStdout(), v, svc.Favorites.IsFavorite(v))
			return nil
		})
	},
}

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Print the verse of the day",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(svc *app.Service) error {
			v, ok := svc.DailyVerse(time.Now())
			if !ok {
				return errors.New("no verses available")
			}
			printVerse(cmd.OutOrStdout(), v, svc.Favorites.IsFavorite(v))
			return nil
		})
	},
}

var chapterCmd = &cobra.Command{
	Use:   "chapter <book> [chapter]",
	Short: "Print a chapter of scripture",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(svc *app.Service) error {
			snap := svc.Snapshot()
			c, ok := lookupChapter(snap, strings.Join(args, " "))
			if !ok {
				return fmt.Errorf("chapter %q not found", strings.Join(args, " "))
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %d\n\n", c.book, c.chapter)
			for _, v := range snap.Chapter(c.book, c.chapter) {
				printVerse(out, v, svc.Favorites.IsFavorite(v))
			}
			return nil
		})
	},
}

var favoritesCmd = &cobra.Command{
	Use:     "favorites",
	Aliases: []string{"favs"},
	Short:   "List favorite verses",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(svc *app.Service) error {
			favs := svc.Favorites.List(svc.Snapshot())
			out := cmd.OutOrStdout()
			if len(favs) == 0 {
				fmt.Fprintln(out, "No favorites yet.")
				return nil
			}
			for _, v := range favs {
				printVerse(out, v, true)
			}
			return nil
		})
	},
}

var favoritesToggleCmd = &cobra.Command{
	Use:   "toggle <reference>",
	Short: "Add or remove a verse from favorites",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(svc *app.Service) error {
			ref := strings.Join(args, " ")
			v, ok := svc.Snapshot().FindReference(ref)
			if !ok {
				return fmt.Errorf("verse %q not found", ref)
			}
			if svc.Favorites.Toggle(v) {
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s to favorites\n", v.Reference)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from favorites\n", v.Reference)
			}
			return nil
		})
	},
}

var affirmRef string

var affirmCmd = &cobra.Command{
	Use:   "affirm",
	Short: "Manage affirmations",
}

var affirmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List affirmations with their numbers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(svc *app.Service) error {
			out := cmd.OutOrStdout()
			for i, v := range svc.Editor.List() {
				fmt.Fprintf(out, "%3d. %s\n", i+1, strings.ReplaceAll(v.Text, "\n", " / "))
				if v.Reference != "" {
					fmt.Fprintf(out, "     (%s)\n", v.Reference)
				}
			}
			return nil
		})
	},
}

var affirmAddCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Add an affirmation",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(svc *app.Service) error {
			v, err := svc.Editor.Add(strings.Join(args, " "), affirmRef)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added affirmation %q\n", v.Text)
			return nil
		})
	},
}

var affirmEditCmd = &cobra.Command{
	Use:   "edit <number> <text>",
	Short: "Replace an affirmation",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(svc *app.Service) error {
			old, err := affirmationAt(svc, args[0])
			if err != nil {
				return err
			}
			ref := affirmRef
			if !cmd.Flags().Changed("ref") {
				ref = old.Reference
			}
			v, err := svc.Editor.Edit(old, strings.Join(args[1:], " "), ref)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated affirmation %s\n", args[0])
			slog.Debug("Affirmation edited", "id", v.ID())
			return nil
		})
	},
}

var affirmRemoveCmd = &cobra.Command{
	Use:   "remove <number>",
	Short: "Remove an affirmation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(svc *app.Service) error {
			v, err := affirmationAt(svc, args[0])
			if err != nil {
				return err
			}
			if !svc.Editor.Remove(v) {
				return fmt.Errorf("affirmation %s not found", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed affirmation %s\n", args[0])
			return nil
		})
	},
}

// affirmationAt resolves the 1-based number printed by "affirm list".
func affirmationAt(svc *app.Service, arg string) (verse.Verse, error) {
	n, err := strconv.Atoi(arg)
	list := svc.Editor.List()
	if err != nil || n < 1 || n > len(list) {
		return verse.Verse{}, fmt.Errorf("invalid affirmation number %q (have %d)", arg, len(list))
	}
	return list[n-1], nil
}

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show or change preferences",
}

var prefsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(svc *app.Service) error {
			data, err := yaml.Marshal(svc.Preferences())
			if err != nil {
				return fmt.Errorf("error marshaling preferences: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		})
	},
}

var prefsSetCmd = &cobra.Command{
	Use:   "set <key=value>...",
	Short: "Change preferences",
	Long: `Change one or more preferences. Keys:

  theme=light|dark
  affirmations=true|false
  notifications=true|false
  time=HH:MM          daily notification time`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(svc *app.Service) error {
			var applyErr error
			p, err := svc.UpdatePreferences(func(p *storage.Preferences) {
				for _, arg := range args {
					if err := applyPreference(p, arg); err != nil && applyErr == nil {
						applyErr = err
					}
				}
			})
			if applyErr != nil {
				return applyErr
			}
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(p)
			if err != nil {
				return fmt.Errorf("error marshaling preferences: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		})
	},
}

func applyPreference(p *storage.Preferences, arg string) error {
	key, value, ok := strings.Cut(arg, "=")
	if !ok {
		return fmt.Errorf("expected key=value, got %q", arg)
	}
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "theme":
		p.Theme = strings.ToLower(strings.TrimSpace(value))
	case "affirmations":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("affirmations: %w", err)
		}
		p.AffirmationsEnabled = b
	case "notifications":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("notifications: %w", err)
		}
		p.NotificationsEnabled = b
	case "time":
		t, err := time.Parse("15:04", strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("time must be HH:MM: %w", err)
		}
		p.NotificationHour, p.NotificationMinute = t.Hour(), t.Minute()
	default:
		return fmt.Errorf("unknown preference %q", key)
	}
	return nil
}

func newNotifier(cfg config.Config, w io.Writer) notify.Notifier {
	if c, ok := notify.ParseCommand(cfg.Notifications.Command); ok {
		return c
	}
	return notify.WriterNotifier{W: w}
}

func newScheduler(svc *app.Service, w io.Writer) *notify.Scheduler {
	cfg := svc.Config
	return notify.NewScheduler(svc, newNotifier(cfg, w), cfg.Notifications.Exact, cfg.Notifications.Recheck)
}

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Deliver the daily verse notification",
	Long: `Run the notification scheduler until interrupted. Enable it with
"biblify prefs set notifications=true time=08:00". Set notifications.command
(for example "notify-send") to hand notifications to the desktop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return withService(func(svc *app.Service) error {
			newScheduler(svc, cmd.OutOrStdout()).Run(ctx)
			return nil
		})
	},
}

var notifySendCmd = &cobra.Command{
	Use:   "send",
	Short: "Deliver one notification now",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(svc *app.Service) error {
			if _, ok := newScheduler(svc, cmd.OutOrStdout()).Fire(cmd.Context()); !ok {
				return errors.New("notification was not delivered")
			}
			return nil
		})
	},
}

var donateCmd = &cobra.Command{
	Use:   "donate [product]",
	Short: "List donation tiers or donate",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(svc *app.Service) error {
			if !svc.DonationsEnabled() {
				return errors.New("donations are unavailable without a database")
			}
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				products, err := svc.Donations.Products(cmd.Context())
				if err != nil {
					return err
				}
				for _, p := range products {
					fmt.Fprintf(out, "%-16s %-18s %s\n", p.ID, p.Title, p.Price)
				}
				return nil
			}
			res, err := svc.Donations.Donate(cmd.Context(), args[0])
			fmt.Fprintln(out, res.Message)
			return err
		})
	},
}

// runInBackground runs fn in its own goroutine. The returned stop cancels
// fn's context and waits for fn to return.
func runInBackground(ctx context.Context, fn func(context.Context)) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API and run the notification scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !verbose {
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return withService(func(svc *app.Service) error {
			srv := server.New(svc, svc.Config.Server.Addr).HTTPServer()

			stopJobs := runInBackground(ctx, newScheduler(svc, cmd.OutOrStdout()).Run)
			defer stopJobs()
			slog.Info("Notification scheduler started")

			errCh := make(chan error, 1)
			go func() {
				slog.Info("API listening", "addr", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdown); err != nil {
				return fmt.Errorf("server shutdown: %w", err)
			}
			slog.Info("Server stopped gracefully")
			return nil
		})
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage biblify configuration",
	Long: `Manage biblify configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (BIBLIFY_*, also read from .env)
3. Config file (~/.biblify/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if file := viper.ConfigFileUsed(); file != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", file)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = filepath.Join(config.DefaultDataDir(), config.FileName)
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s\nUse 'biblify config show' to view it, or delete it first to recreate", path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("error creating config directory: %w", err)
		}

		data, err := yaml.Marshal(config.Default())
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		header := "# Biblify configuration\n" +
			"# Environment variables override these values, e.g. BIBLIFY_SEARCH_DEBOUNCE=500ms\n\n"
		if err := os.WriteFile(path, append([]byte(header), data...), 0o644); err != nil {
			return fmt.Errorf("error writing config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created default configuration: %s\n", path)
		return nil
	},
}
