package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"libraquant/configs"
	"libraquant/internal/adapter/gemini"
	"libraquant/internal/adapter/sheets"
	"libraquant/internal/auth"
	"libraquant/internal/domain"
	"libraquant/internal/infra"
	"libraquant/internal/seed"
	"libraquant/internal/service"
	"libraquant/internal/usecase"
)

// runtime is everything a command needs, opened once per invocation
type runtime struct {
	cfg      *configs.Config
	store    *infra.Store
	local    *service.LocalStore
	terminal *usecase.Terminal
	notifier *printNotifier
}

var (
	storePath string
	verbose   bool
	rt        *runtime
)

var rootCmd = &cobra.Command{
	Use:   "libractl",
	Short: "Terminal client for LibraQuant option signals",
	Long: `libractl logs in against the signal sheet, keeps a local copy of the
signals and market watch, and prints alerts as the desk publishes them.

Sessions and the device identifier are kept in the local store, so a login
survives between invocations until it expires.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !verbose {
			log.SetOutput(io.Discard)
		}
		var err error
		rt, err = openRuntime(cmd.Context(), cmd.OutOrStdout())
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if rt != nil {
			rt.close()
		}
	},
}

// Execute adds all child commands to the root command and runs it
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "", "local store file (default $STORE_PATH)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print sync logs")

	rootCmd.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newSyncCmd(),
		newWatchCmd(),
		newStatsCmd(),
		newAnalyzeCmd(),
		newDeviceCmd(),
		newSoundCmd(),
	)
}

func openRuntime(ctx context.Context, out io.Writer) (*runtime, error) {
	_ = godotenv.Load()

	cfg, err := configs.Load()
	if err != nil {
		return nil, err
	}
	if storePath != "" {
		cfg.Store.Driver, cfg.Store.Path = configs.DriverSQLite, storePath
	}

	store, err := infra.OpenStore(ctx, cfg.Store.Driver, cfg.Store.Path, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	local := service.NewLocalStore(store.Repo, store.Feed)

	sheet := sheets.NewClient(cfg.Sheet.Endpoint, cfg.Sheet.HTTPTimeout)

	var demo *domain.Snapshot
	if cfg.Sheet.SeedDemo {
		if demo, err = seed.Demo(time.Now()); err != nil {
			store.Close()
			return nil, err
		}
	}

	analyst, err := gemini.NewAnalyst(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		store.Close()
		return nil, err
	}

	notifier := &printNotifier{out: out, sound: local.SoundEnabled}
	trust := usecase.NewTrustManager(sheet, local, auth.NewTokenIssuer(cfg.Auth.JWTSecret), usecase.TrustOptions{
		SessionTTL:  cfg.Auth.SessionTTL,
		AdminSuffix: cfg.Auth.AdminSuffix,
	})
	terminal := usecase.NewTerminal(usecase.TerminalDeps{
		Trust:    trust,
		Source:   sheet,
		Pusher:   sheet,
		Store:    local,
		Analyst:  analyst,
		Notifier: notifier,
		Engine: usecase.EngineOptions{
			PollInterval: cfg.Sheet.PollInterval,
			Seed:         demo,
		},
	})

	return &runtime{cfg: cfg, store: store, local: local, terminal: terminal, notifier: notifier}, nil
}

func (r *runtime) close() {
	r.terminal.Close()
	r.store.Close()
}

// resume returns the stored session or tells the user to log in
func (r *runtime) resume(ctx context.Context) (*domain.Session, error) {
	session, err := r.terminal.Restore(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("not logged in, run: libractl login --phone <10 digits>")
	}
	return session, nil
}
