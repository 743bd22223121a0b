package bootstrap

import (
	"context"
	"io"
	"os/exec"

	"github.com/pkg/errors"
)

// Commander runs an external command to completion.
type Commander interface {
	Run(ctx context.Context, name string, args ...string) error
}

type ExecCommander struct {
	Stdout io.Writer
	Stderr io.Writer
}

var _ Commander = (*ExecCommander)(nil)

func (c *ExecCommander) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "running %s", name)
	}
	return nil
}
