// Command compass runs the team survey service and its maintenance jobs.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/casanoova/compass/internal/config"
	"github.com/casanoova/compass/internal/utils"
)

// Set at build time with -ldflags "-X main.commit=... -X main.buildTime=...".
var (
	commit    = "dev"
	buildTime = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
	envFile    string
}

func rootCmd() *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:   "compass",
		Short: "Team leadership survey service",
		Long: `Compass collects bipolar adjective surveys from team members, scores
them onto a two-dimensional plane and gates the results behind an admin release.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "compass.yaml", "YAML config file; a missing file means defaults")
	cmd.PersistentFlags().StringVar(&g.envFile, "env-file", ".env", "dotenv file loaded before COMPASS_* variables are read")

	cmd.AddCommand(
		serveCmd(g),
		migrateCmd(g),
		seedCmd(g),
		remindCmd(g),
		createAdminCmd(g),
		takeCmd(),
		versionCmd(),
	)
	return cmd
}

// load reads .env, then the config file and environment, and installs the
// configured logger as the slog default.
func (g *globalFlags) load() (config.Config, error) {
	if g.envFile != "" {
		if err := godotenv.Load(g.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return config.Config{}, fmt.Errorf("load %s: %w", g.envFile, err)
		}
	}
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	slog.SetDefault(cfg.NewLogger(os.Stderr))
	return cfg, nil
}

func versionInfo() (string, string) {
	return utils.SafeEnv("COMPASS_COMMIT", commit), utils.SafeEnv("COMPASS_BUILD_TIME", buildTime)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			c, b := versionInfo()
			fmt.Fprintf(cmd.OutOrStdout(), "compass %s (built %s)\n", c, b)
		},
	}
}
