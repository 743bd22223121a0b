package bootstrap

import (
	"fmt"
	"os"
	"strings"

	"github.com/mikanhq/launcher/core"
)

// SecretPlaceholder is the token replaced when rendering the secrets template.
const SecretPlaceholder = "__SECRET_KEY__"

// RenderSecrets substitutes the secret key into the config template, if one
// is configured and present. Best effort: a missing template or an unwritable
// target is a warning, never a startup failure.
func RenderSecrets(conf *core.Config, logger core.Logger) {
	tmplPath := conf.Secrets.TemplatePath
	if tmplPath == "" || conf.Secrets.TargetPath == "" {
		return
	}

	raw, err := os.ReadFile(tmplPath)
	if os.IsNotExist(err) {
		logger.Debug(fmt.Sprintf("no secrets template at %s; skipping", tmplPath))
		return
	}
	if err != nil {
		logger.Warn(fmt.Sprintf("reading secrets template: %v", err))
		return
	}

	rendered := strings.ReplaceAll(string(raw), SecretPlaceholder, conf.SecretKey)
	if err := os.WriteFile(conf.Secrets.TargetPath, []byte(rendered), 0o600); err != nil {
		logger.Warn(fmt.Sprintf("writing rendered secrets: %v", err))
		return
	}
	logger.Info(fmt.Sprintf("secrets rendered to %s", conf.Secrets.TargetPath))
}
