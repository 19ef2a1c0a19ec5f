// Package runner executes the external CLI tools the init sequence
// depends on (the PHP installer, upgrader and cron entry point).
package runner

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/venu-sivanadham/moodle-to-azure-aks/logger"
)

// Command describes one external invocation.
type Command struct {
	// Name labels the command in log output.
	Name string
	// Path is the executable to run.
	Path string
	// Args are the arguments, excluding the executable itself.
	Args []string
	// Dir is the working directory; empty means inherit.
	Dir string
	// Env is merged over the inherited process environment.
	Env map[string]string
}

// Runner runs external commands. The production implementation shells
// out; tests substitute a recorder.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// Local runs commands on the local host, streaming their output into
// the given logger line by line.
type Local struct {
	log *zap.Logger
}

func NewLocal(log *zap.Logger) *Local {
	return &Local{log: log}
}

func (r *Local) Run(ctx context.Context, c Command) error {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = os.Environ()
	for k, v := range c.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	log := r.log.With(zap.String("prog", c.Name))
	stdout := logger.NewLineWriter(log, zapcore.InfoLevel)
	stderr := logger.NewLineWriter(log, zapcore.WarnLevel)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	defer func() {
		_ = stdout.Close()
		_ = stderr.Close()
	}()

	log.Info("running command", zap.String("path", c.Path), zap.Strings("args", c.Args))
	err := cmd.Run()
	if err == nil {
		return nil
	}
	if exit, ok := err.(*exec.ExitError); ok {
		return fmt.Errorf("%s exited with code %d", c.Name, exit.ExitCode())
	}
	return fmt.Errorf("cannot run %s: %w", c.Name, err)
}
