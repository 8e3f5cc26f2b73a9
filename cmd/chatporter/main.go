package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/chatporter/api"
	"github.com/hrygo/chatporter/capture"
	"github.com/hrygo/chatporter/credential"
	"github.com/hrygo/chatporter/daterange"
	"github.com/hrygo/chatporter/export"
	"github.com/hrygo/chatporter/internal/profile"
	"github.com/hrygo/chatporter/internal/version"
	"github.com/hrygo/chatporter/server"
	"github.com/hrygo/chatporter/store"
	"github.com/hrygo/chatporter/syncer"
)

var rootCmd = &cobra.Command{
	Use:   "chatporter",
	Short: "Synchronize remote chat history into a local store and export it in the interchange tree format.",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// Try to load .env from the current directory (ignore error if file doesn't exist)
		_ = godotenv.Load()
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch the remote conversation list and missing conversation content.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := buildProfile()
		if err != nil {
			return err
		}
		logger := newLogger(p)

		interval, err := intervalFromFlags()
		if err != nil {
			return err
		}

		st := store.New()
		captureLog := capture.NewLog()
		client, err := buildClient(p, capture.NewRecorder(st, captureLog, logger))
		if err != nil {
			return err
		}

		orch := syncer.New(client, st,
			syncer.WithPace(time.Duration(p.PaceMillis)*time.Millisecond),
			syncer.WithLogger(logger))

		report, err := orch.Run(cmd.Context(), interval)
		if err != nil {
			return err
		}
		fmt.Printf("synced %d conversations across %d pages (%d fetched, %d skipped, %d failed)\n",
			report.Discovered, report.Pages, report.Fetched, report.Skipped, report.Failed)
		for _, msg := range report.Errors {
			fmt.Println("  error:", msg)
		}

		if out := viper.GetString("capture-out"); out != "" {
			if err := captureLog.WriteFile(out); err != nil {
				return err
			}
			fmt.Println("capture log written to", out)
		}
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Sync (or replay a capture artifact) and write the conversations.json export.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := buildProfile()
		if err != nil {
			return err
		}
		logger := newLogger(p)

		interval, err := intervalFromFlags()
		if err != nil {
			return err
		}

		st := store.New()
		if capturePath := viper.GetString("from-capture"); capturePath != "" {
			exchanges, err := capture.ReadFile(capturePath)
			if err != nil {
				return err
			}
			merged := capture.NewRecorder(st, nil, logger).Replay(exchanges)
			logger.Info("replayed capture artifact", "exchanges", len(exchanges), "merged", merged)
		} else {
			client, err := buildClient(p, nil)
			if err != nil {
				return err
			}
			orch := syncer.New(client, st,
				syncer.WithPace(time.Duration(p.PaceMillis)*time.Millisecond),
				syncer.WithLogger(logger))
			if _, err := orch.Run(cmd.Context(), interval); err != nil {
				return err
			}
		}

		doc, err := export.Project(st.Values(), interval)
		if err != nil {
			if errors.Is(err, export.ErrNothingToExport) {
				return errors.New("nothing to export for the selected range")
			}
			return err
		}

		out := viper.GetString("out")
		if out == "" {
			out = filepath.Join(p.Data, "conversations.json")
		}
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(out, data, 0o600); err != nil {
			return err
		}
		fmt.Printf("exported %d conversations to %s\n", len(doc.Conversations), out)
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local control server.",
	RunE: func(_ *cobra.Command, _ []string) error {
		p, err := buildProfile()
		if err != nil {
			return err
		}
		logger := newLogger(p)

		st := store.New()
		captureLog := capture.NewLog()
		client, err := buildClient(p, capture.NewRecorder(st, captureLog, logger))
		if err != nil {
			return err
		}
		orch := syncer.New(client, st,
			syncer.WithPace(time.Duration(p.PaceMillis)*time.Millisecond),
			syncer.WithLogger(logger))

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s := server.NewServer(p, st, orch, captureLog, logger)
		if err := s.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information.",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Println(version.StringFull())
	},
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("port", 28180)
	viper.SetDefault("page-size", 50)
	viper.SetDefault("pace-millis", 500)
	viper.SetDefault("timeout-seconds", 30)
	viper.SetDefault("range", "all")

	pf := rootCmd.PersistentFlags()
	pf.String("mode", "dev", `mode, can be "prod" or "dev"`)
	pf.String("addr", "", "address of the control server")
	pf.Int("port", 28180, "port of the control server")
	pf.String("data", "", "data directory for artifacts")
	pf.String("api-url", "", "base URL of the remote conversation service")
	pf.String("session", "", "path to the exported browser-session artifact")
	pf.String("client-id", "", "vendor client identifier")
	pf.String("scope", "chat.read", "token scope")
	pf.Int("page-size", 50, "conversations per list page")
	pf.Int("pace-millis", 500, "delay between outbound requests in milliseconds")
	pf.Int("timeout-seconds", 30, "per-request timeout in seconds")
	pf.String("range", "all", "date range: all|today|week|month|year|custom")
	pf.String("from", "", "custom range start date (YYYY-MM-DD, inclusive)")
	pf.String("to", "", "custom range end date (YYYY-MM-DD, inclusive)")

	for _, name := range []string{
		"mode", "addr", "port", "data", "api-url", "session", "client-id", "scope",
		"page-size", "pace-millis", "timeout-seconds", "range", "from", "to",
	} {
		if err := viper.BindPFlag(name, pf.Lookup(name)); err != nil {
			panic(err)
		}
	}

	syncCmd.Flags().String("capture-out", "", "write the raw-capture artifact to this path")
	if err := viper.BindPFlag("capture-out", syncCmd.Flags().Lookup("capture-out")); err != nil {
		panic(err)
	}

	exportCmd.Flags().String("out", "", "output path for conversations.json")
	exportCmd.Flags().String("from-capture", "", "project from a raw-capture artifact instead of fetching")
	if err := viper.BindPFlag("out", exportCmd.Flags().Lookup("out")); err != nil {
		panic(err)
	}
	if err := viper.BindPFlag("from-capture", exportCmd.Flags().Lookup("from-capture")); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(syncCmd, exportCmd, serveCmd, versionCmd)
}

func buildProfile() (*profile.Profile, error) {
	p := &profile.Profile{
		Mode:           viper.GetString("mode"),
		Addr:           viper.GetString("addr"),
		Port:           viper.GetInt("port"),
		Data:           viper.GetString("data"),
		APIBaseURL:     viper.GetString("api-url"),
		SessionPath:    viper.GetString("session"),
		ClientID:       viper.GetString("client-id"),
		Scope:          viper.GetString("scope"),
		PageSize:       viper.GetInt("page-size"),
		PaceMillis:     viper.GetInt("pace-millis"),
		TimeoutSeconds: viper.GetInt("timeout-seconds"),
	}
	p.FromEnv()
	p.Version = version.GetCurrentVersion(p.Mode)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func newLogger(p *profile.Profile) *slog.Logger {
	if p.IsDev() {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func intervalFromFlags() (daterange.Interval, error) {
	return daterange.Resolve(
		daterange.Preset(viper.GetString("range")),
		viper.GetString("from"),
		viper.GetString("to"),
		time.Now(),
	)
}

// buildClient resolves the credential and constructs the API client.
// observer may be nil.
func buildClient(p *profile.Profile, observer api.Observer) (*api.Client, error) {
	if p.SessionPath == "" {
		return nil, errors.New("session artifact path is required (--session or CHATPORTER_SESSION_PATH)")
	}
	source, err := credential.LoadSessionFile(p.SessionPath)
	if err != nil {
		return nil, err
	}
	cred, err := credential.NewSessionResolver(source, p.ClientID, p.Scope).Resolve()
	if err != nil {
		return nil, err
	}

	opts := []api.Option{
		api.WithPageSize(p.PageSize),
		api.WithHTTPClient(&http.Client{Timeout: time.Duration(p.TimeoutSeconds) * time.Second}),
	}
	if observer != nil {
		opts = append(opts, api.WithObserver(observer))
	}
	return api.New(p.APIBaseURL, cred, opts...), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
