package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/franz/tilekeeper/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version is set at build time
	Version = "dev"

	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "tkp",
		Short: "Tilekeeper - migrate and manage party game action content",
		Long: `tkp (Tilekeeper) moves the bundled, per-language action content of the
game into a local SQLite store, tracks migration status per language, repairs
group links between tiles and groups, and imports or exports user-created
groups.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/tilekeeper.yaml)")
	rootCmd.PersistentFlags().String("db", "tilekeeper.db", "content database file")
	rootCmd.PersistentFlags().String("kv", "tilekeeper-status.db", "migration status file")
	rootCmd.PersistentFlags().String("content", "", "content directory (default: bundled content)")
	rootCmd.PersistentFlags().String("lang", "", "language to work on (default: detected)")
	rootCmd.PersistentFlags().String("artifacts", "artifacts", "directory for event logs and reports")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "quiet output (errors only)")

	// Bind flags to viper
	for _, name := range []string{"db", "kv", "content", "lang", "artifacts", "verbose", "quiet"} {
		viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}

	viper.SetDefault("languages", []string{"en", "es", "fr", "zh", "hi"})
	viper.SetDefault("game_modes", []string{"local", "online"})
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.SetConfigName("tilekeeper")
		viper.SetConfigType("yaml")
	}

	// TKP_DB, TKP_CONTENT_VERSION, ...
	viper.SetEnvPrefix("TKP")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && !viper.GetBool("quiet") {
		util.InfoLog("Using config file: %s", viper.ConfigFileUsed())
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
