package main

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/kardianos/service"
	"github.com/stretchr/testify/assert"
)

func TestServiceConfig(t *testing.T) {
	cfg := serviceConfig("config.yaml")

	abs, err := filepath.Abs("config.yaml")
	assert.NoError(t, err)

	assert.Equal(t, serviceName, cfg.Name)
	assert.Equal(t, []string{"run", "--config", abs}, cfg.Arguments)
	assert.Equal(t, true, cfg.Option["UserService"])
}

func TestServiceConfigWithoutPath(t *testing.T) {
	assert.Equal(t, []string{"run"}, serviceConfig("").Arguments)
}

func TestDescribeStatus(t *testing.T) {
	assert.Equal(t, "running", describeStatus(service.StatusRunning, nil))
	assert.Equal(t, "stopped", describeStatus(service.StatusStopped, nil))
	assert.Equal(t, "unknown", describeStatus(service.StatusUnknown, nil))
	assert.Contains(t, describeStatus(service.StatusUnknown, errors.New("not installed")), "not installed")
}
