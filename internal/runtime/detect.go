package runtime

import (
	"fmt"
	"os/exec"

	"github.com/zenprocess/open-lovable-cf/internal/logging"
)

// RuntimeType names a container engine, or "auto".
type RuntimeType string

const (
	RuntimeDocker RuntimeType = "docker"
	RuntimePodman RuntimeType = "podman"
	RuntimeAuto   RuntimeType = "auto"
)

// Config selects the engine and the container naming scheme.
type Config struct {
	Type            RuntimeType
	ContainerPrefix string
}

func DefaultConfig() *Config {
	return &Config{Type: RuntimeAuto, ContainerPrefix: "lovable-"}
}

// detectOrder lists engines by preference; podman runs rootless.
var detectOrder = []RuntimeType{RuntimePodman, RuntimeDocker}

var lookPath = exec.LookPath

// Detect returns the first installed engine in detectOrder.
func Detect() (RuntimeType, error) {
	for _, rt := range detectOrder {
		if _, err := lookPath(string(rt)); err == nil {
			logging.Debug("detected container engine", "engine", rt)
			return rt, nil
		}
	}
	return "", fmt.Errorf("no container engine found (tried: podman, docker)")
}

// New builds the Runtime described by cfg. A nil cfg means DefaultConfig.
func New(cfg *Config) (Runtime, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	switch cfg.Type {
	case RuntimeAuto, "":
		return NewDockerRuntime("", cfg.ContainerPrefix)
	case RuntimeDocker, RuntimePodman:
		return NewDockerRuntime(string(cfg.Type), cfg.ContainerPrefix)
	}
	return nil, fmt.Errorf("unknown runtime type: %s", cfg.Type)
}
