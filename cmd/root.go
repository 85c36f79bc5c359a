package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/humanlog"
	"github.com/spf13/viper"

	"github.com/lepinkainen/novelseek/internal/cache"
	"github.com/lepinkainen/novelseek/internal/config"
)

var (
	stdout io.Writer = os.Stdout
	stdin  io.Reader = os.Stdin
)

// CLI represents the complete command structure for the novelseek application
type CLI struct {
	Verbose     bool   `short:"v" help:"Enable debug logging"`
	CacheDBFile string `help:"Path to cache SQLite database file (defaults to cache.dbfile)"`

	Search SearchCmd `cmd:"" help:"Search every enabled platform and show one ranked page"`
	Detail DetailCmd `cmd:"" help:"Show the details of one search result"`
	Pick   PickCmd   `cmd:"" help:"Browse search results in an interactive picker"`
	Chat   ChatCmd   `cmd:"" help:"Run a line-based search session on stdin"`
	Serve  ServeCmd  `cmd:"" help:"Serve the search API over HTTP"`
	Ping   PingCmd   `cmd:"" help:"Check that every enabled platform answers"`
	Cache  CacheCmd  `cmd:"" help:"Manage the local cache"`
}

// CacheCmd groups the cache maintenance commands.
type CacheCmd struct {
	Invalidate cache.InvalidateCacheCmd `cmd:"" help:"Clear one cache table"`
	Prune      cache.PruneCacheCmd      `cmd:"" help:"Remove expired cache entries"`
}

func kongOptions() []kong.Option {
	return []kong.Option{
		kong.Name("novelseek"),
		kong.Description("Search web novels across several Chinese reading platforms."),
		kong.UsageOnError(),
	}
}

// Execute runs the Kong-based CLI
func Execute() {
	var cli CLI
	ctx := kong.Parse(&cli, kongOptions()...)

	initLogging(cli.Verbose)
	if err := initConfig("."); err != nil {
		slog.Error("Fatal error config file", "error", err)
		os.Exit(1)
	}
	updateGlobalConfig(&cli)

	if err := ctx.Run(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// initConfig reads config.yaml from dir, writing a default one when it is
// missing, and enables NOVELSEEK_ environment overrides.
func initConfig(dir string) error {
	config.SetDefaults()

	viper.SetEnvPrefix("NOVELSEEK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(dir)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
		slog.Info("Config file not found, writing default config file...")
		if err := viper.SafeWriteConfig(); err != nil {
			slog.Error("Error writing config file", "error", err)
		}
	}
	return nil
}

func updateGlobalConfig(cli *CLI) {
	if cli.CacheDBFile != "" {
		viper.Set("cache.dbfile", cli.CacheDBFile)
	}
}

func initLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	// stdout carries command output
	handler := humanlog.NewHandler(os.Stderr, &humanlog.Options{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

func printf(format string, args ...any) {
	if _, err := fmt.Fprintf(stdout, format, args...); err != nil {
		slog.Debug("Failed to write output", "error", err)
	}
}
