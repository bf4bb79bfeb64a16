package common

import "time"

const (
	// UserConfigDirectory is the dirname of the directory holding the user
	// configuration for seijaku.
	UserConfigDirectory = ".seijaku"

	// ConfigFile is the name of the configuration file inside
	// UserConfigDirectory.
	ConfigFile = "config.toml"

	// DefaultPortString is the string version of the default port the client
	// connects to.
	DefaultPortString = "4444"

	// DefaultListenAddress is where the operator listener binds by default.
	DefaultListenAddress = ":2333"

	// DefaultShell is started when neither configuration nor /etc/passwd name
	// one.
	DefaultShell = "/bin/sh"

	// DefaultTerm is exported to the shell as TERM.
	DefaultTerm = "xterm"
)

// Wire and relay sizes.
const (
	// TagSize is the length of the session tag sent in the clear.
	TagSize = 8

	// DefaultBufferSize bounds a single read in the relay loop.
	DefaultBufferSize = 1024
)

// Supervision defaults.
const (
	DefaultRestartDelay     = time.Second
	DefaultTeardownAttempts = 10
	DefaultTeardownInterval = 100 * time.Millisecond
	DefaultDialTimeout      = 30 * time.Second
	DefaultKeepAlive        = 15 * time.Second
	DefaultResolveRetry     = 5 * time.Second
	DefaultTolerance        = 30 * time.Second
)

// Environment variables used to pass the process role across re-exec.
const (
	RoleEnv        = "SEIJAKU_ROLE"
	RoleWorker     = "worker"
	DaemonStageEnv = "SEIJAKU_DAEMON_STAGE"
)
