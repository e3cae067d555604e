package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeEnv overrides the base directory, mostly for tests and packaging.
const HomeEnv = "PODSUP_HOME"

var baseDir string

func Init() error {
	if dir := os.Getenv(HomeEnv); dir != "" {
		baseDir = dir
		return nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("cannot determine home directory: %w", err)
	}
	baseDir = filepath.Join(home, ".podsup")
	return nil
}

func Dir() string {
	return baseDir
}

func Path() string {
	return filepath.Join(Dir(), "config.yaml")
}

func LogPath() string {
	return filepath.Join(Dir(), "podsup.log")
}

func AccessLogPath() string {
	return filepath.Join(Dir(), "access.log")
}

func PidPath() string {
	return filepath.Join(Dir(), "podsup.pid")
}

func DefaultReleasesPath() string {
	return filepath.Join(Dir(), "releases.json")
}

// SocketPath is the admin socket the CLI uses to reach a running server.
func SocketPath() string {
	return filepath.Join(Dir(), "podsup.sock")
}
