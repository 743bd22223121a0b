package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/mikanhq/launcher/core"
)

// publishedThreshold is the entry count above which the static root is
// considered already published. Approximate on purpose: a collected asset
// tree holds far more than ten entries, an empty or half-initialized one
// never does.
const publishedThreshold = 10

type PublishResult int

const (
	AssetsPublished PublishResult = iota
	AssetsSkipped
	AssetsWarned
)

// AssetPublisher materializes static assets into the target directory.
// Failures are downgraded to warnings across the board: assets may be served
// from the object store instead, so local publication is never worth failing
// startup over.
type AssetPublisher struct {
	root      string
	threshold int
	command   string
	commander Commander
	logger    core.Logger
}

func NewAssetPublisher(conf *core.Config, commander Commander, logger core.Logger) *AssetPublisher {
	return &AssetPublisher{
		root:      conf.Static.Root,
		threshold: publishedThreshold,
		command:   conf.Static.Command,
		commander: commander,
		logger:    logger,
	}
}

func (p *AssetPublisher) Publish(ctx context.Context) PublishResult {
	entries, err := os.ReadDir(p.root)
	if err != nil && !os.IsNotExist(err) {
		p.logger.Warn(fmt.Sprintf("checking static root: %v", err))
		return AssetsWarned
	}
	if len(entries) > p.threshold {
		p.logger.Info(fmt.Sprintf("static assets already published (%d entries); skipping", len(entries)))
		return AssetsSkipped
	}

	if err := p.clear(); err != nil {
		p.logger.Warn(fmt.Sprintf("clearing static root: %v", err))
		return AssetsWarned
	}
	if err := p.commander.Run(ctx, p.command, "collectstatic", "--root", p.root); err != nil {
		p.logger.Warn(fmt.Sprintf("publishing static assets: %v", err))
		return AssetsWarned
	}
	p.logger.Info("static assets published")
	return AssetsPublished
}

func (p *AssetPublisher) clear() error {
	if err := os.MkdirAll(p.root, 0o755); err != nil {
		return errors.Wrap(err, "creating static root")
	}
	entries, err := os.ReadDir(p.root)
	if err != nil {
		return errors.Wrap(err, "reading static root")
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(p.root, entry.Name())); err != nil {
			return errors.Wrapf(err, "removing %s", entry.Name())
		}
	}
	return nil
}
