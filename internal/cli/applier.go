package cli

import (
	"context"
	"os"
	"os/exec"
	"path"

	"go.uber.org/zap"

	"github.com/samasrinivas/kafkautomation/errors"
	"github.com/samasrinivas/kafkautomation/fs"
)

// VariablesFileName is the emitted variables artifact within
// catalogs/<env>/.
const VariablesFileName = "kafka.auto.tfvars.json"

// execApplier writes the emitted variables into the checkout and hands
// them to the configured provisioning command. With no command configured
// the write alone counts as the hand-off.
type execApplier struct {
	fs      fs.Filesystem
	workdir string
	command []string
	log     *zap.Logger
}

func newExecApplier(fsys fs.Filesystem, workdir string, command []string, log *zap.Logger) *execApplier {
	return &execApplier{fs: fsys, workdir: workdir, command: command, log: log}
}

// VariablesKey returns the variables artifact path for an environment.
func VariablesKey(environment string) string {
	return path.Join("catalogs", environment, VariablesFileName)
}

func (a *execApplier) Apply(ctx context.Context, environment string, variables []byte) error {
	key := VariablesKey(environment)
	if err := a.fs.WriteFile(key, variables, 0o644); err != nil {
		return errors.Wrapf(err, errors.CodeIO, "writing variables artifact %q", key)
	}
	a.log.Info("variables artifact written", zap.String("path", key))

	if len(a.command) == 0 {
		return nil
	}

	args := append(append([]string(nil), a.command[1:]...), key)
	cmd := exec.CommandContext(ctx, a.command[0], args...)
	cmd.Dir = a.workdir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), "KAFKA_TFVARS="+key)

	a.log.Info("running provisioning command",
		zap.String("program", a.command[0]), zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, errors.CodeInternal,
			"provisioning command %q failed", a.command[0])
	}
	return nil
}
