package logging

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/contre95/plexify/src/features/config"
	"github.com/stretchr/testify/assert"
)

func TestSetupLogger_FollowsLevelChanges(t *testing.T) {
	cfg := config.Default()
	cfg.Logger.Level = "warn"
	cfg.Logger.Format = "logfmt"
	m := config.NewManager(cfg)

	var buf bytes.Buffer
	logger := SetupLogger(m, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "playlist", "Road Trip")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "Plexify")

	next := *cfg
	next.Logger.Level = "debug"
	m.Update(&next)
	logger.Info("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestSetupLogger_Disabled(t *testing.T) {
	cfg := config.Default()
	cfg.Logger.Enabled = false
	var buf bytes.Buffer
	SetupLogger(config.NewManager(cfg), &buf).Error("nothing")
	assert.Empty(t, buf.String())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, log.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, log.InfoLevel, ParseLevel("bogus"))
}
