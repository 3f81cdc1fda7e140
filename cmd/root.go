// Package cmd provides the command-line interface for quill.
//
// Configuration is read, highest priority first, from command-line flags,
// QUILL_ environment variables (QUILL_SERVER_PORT, QUILL_BLOG_DATA_PATH, ...)
// and the config file. The file is the --config flag, else
// QUILL_CONFIG_FILE, else .quill.yml in the working directory.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/quill/internal/config"
	"github.com/conneroisu/quill/internal/errors"
	"github.com/conneroisu/quill/internal/logging"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "quill",
	Short: "Serve a directory of Markdown posts",
	Long: `Quill serves a directory of Markdown files with YAML front matter as a
blog. Posts are indexed at startup and kept current as files change.

Quick Start:
  quill serve                 Serve ./Data on localhost:5000
  quill list                  List indexed posts
  quill version               Show version information`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .quill.yml, can also use QUILL_CONFIG_FILE)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringP("data", "d", config.DefaultDataPath, "directory holding the Markdown posts")

	SetViperBindings(rootCmd, map[string]string{
		"log.level":      "log-level",
		"blog.data_path": "data",
	})
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("QUILL_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".quill")
	}

	viper.SetEnvPrefix("QUILL")
	viper.SetEnvKeyReplacer(config.EnvKeyReplacer())
	viper.AutomaticEnv()

	// A missing file leaves defaults in place.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig loads the configuration and a logger built from it.
func loadConfig() (*config.Config, logging.Logger, error) {
	return loadConfigFrom(viper.GetViper())
}

func loadConfigFrom(v *viper.Viper) (*config.Config, logging.Logger, error) {
	cfg, err := config.LoadFrom(v)
	if errors.IsConfigError(err) {
		return nil, nil, fmt.Errorf("invalid configuration from %s: %w", configSource(v), err)
	}
	if err != nil {
		return nil, nil, err
	}
	lc, err := cfg.LoggerConfig()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.NewLogger(lc), nil
}

// configSource names where settings were read from, for error messages.
func configSource(v *viper.Viper) string {
	if file := v.ConfigFileUsed(); file != "" {
		return file
	}
	return "flags and environment"
}
