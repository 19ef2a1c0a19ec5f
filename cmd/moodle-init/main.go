package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func init() {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if os.Getenv("NO_COLOR") != "" {
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	log, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(log)
}

var rootOpt = struct {
	Configuration string
	EnvFile       string
}{}

var rootCmd = cobra.Command{
	Use:           "moodle-init",
	Short:         "Configure, install and upgrade a containerized Moodle instance",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&rootOpt.Configuration, "config", "c", "", "Optional YAML configuration file")
	pf.StringVar(&rootOpt.EnvFile, "env-file", "", "An optional environment file loaded before reading MOODLE_* variables")

	rootCmd.AddCommand(
		newBootstrapCommand(),
		newRunCommand(),
		newWaitDBCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
