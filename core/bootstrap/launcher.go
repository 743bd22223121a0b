package bootstrap

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/mikanhq/launcher/core"
)

// Launcher runs the container startup sequence: role validation, dependency
// gating, then for the migration leader (the http role, by deployment
// convention) database bootstrap, coordinated schema migration, secrets
// rendering and asset publication, before execing into the role binary.
type Launcher struct {
	Conf        *core.Config
	Logger      core.Logger
	Gate        *Gate
	Coordinator *Coordinator
	Assets      *AssetPublisher
	Dispatcher  *Dispatcher

	// PrepareDB creates the app user/database on a fresh cluster; optional,
	// http role only.
	PrepareDB func(ctx context.Context) error
}

// Run returns only on failure; on success the process image has been replaced
// by the role binary.
func (l *Launcher) Run(ctx context.Context, roleToken string) error {
	role, err := ParseRole(roleToken)
	if err != nil {
		// rejected before any dependency waiting
		return err
	}

	l.Logger.Info(fmt.Sprintf("starting as %s (build %s)", role, l.Conf.Build))
	if err := l.Gate.Wait(ctx); err != nil {
		return err
	}

	if role == RoleHTTP {
		if l.PrepareDB != nil {
			if err := l.PrepareDB(ctx); err != nil {
				return errors.Wrap(err, "preparing database")
			}
		}
		if err := l.Coordinator.Run(ctx); err != nil {
			return err
		}
		RenderSecrets(l.Conf, l.Logger)
		l.Assets.Publish(ctx)
	}

	return l.Dispatcher.Exec(role)
}
