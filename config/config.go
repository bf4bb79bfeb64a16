// Package config contains the structures for the seijaku client and listener
// configuration, and the code that loads them from TOML.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"

	"seijaku.dev/seijaku/common"
	"seijaku.dev/seijaku/handshake"
	"seijaku.dev/seijaku/pkg/combinators"
	"seijaku.dev/seijaku/pkg/thunks"
)

// Build-time defaults. These are strings so they can be replaced with
//
//	go build -ldflags "-X seijaku.dev/seijaku/config.DefaultSecret=..."
//
// which is how a client with baked-in settings is produced.
var (
	DefaultSecret    = ""
	DefaultHost      = "127.0.0.1"
	DefaultPort      = common.DefaultPortString
	DefaultShell     = ""
	DefaultDaemonize = "false"
)

// Errors returned by Validate.
var (
	ErrMissingSecret = errors.New("config: secret must be set")
	ErrInvalidPort   = errors.New("config: port must be in 1-65535")
	ErrMissingHost   = errors.New("config: host must be set")
)

// Duration is a time.Duration that decodes from TOML strings such as "1s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config is the client configuration. The listener reads the same file and
// uses the Listener table plus the shared Secret and TagFormat.
type Config struct {
	// Secret is the shared secret as raw text. SecretHex, when set, takes
	// precedence and is decoded from hex.
	Secret    string `toml:"secret"`
	SecretHex string `toml:"secret_hex"`

	Host      string   `toml:"host"`
	Port      int      `toml:"port"`
	Shell     string   `toml:"shell"`
	ShellArgs []string `toml:"shell_args"`
	Term      string   `toml:"term"`
	Daemonize bool     `toml:"daemonize"`

	TagFormat string `toml:"tag_format"`
	LogLevel  string `toml:"log_level"`

	BufferSize       int      `toml:"buffer_size"`
	NoDelay          bool     `toml:"no_delay"`
	KeepAlive        Duration `toml:"keep_alive"`
	DialTimeout      Duration `toml:"dial_timeout"`
	ResolveRetry     Duration `toml:"resolve_retry"`
	RestartDelay     Duration `toml:"restart_delay"`
	TeardownAttempts int      `toml:"teardown_attempts"`
	TeardownInterval Duration `toml:"teardown_interval"`

	Listener ListenerConfig `toml:"listener"`
}

// ListenerConfig holds the operator listener settings.
type ListenerConfig struct {
	Address   string            `toml:"address"`
	Tolerance Duration          `toml:"tolerance"`
	Keys      map[string]string `toml:"keys"`
}

// Default returns a Config populated from the build-time defaults.
func Default() *Config {
	c := &Config{
		Secret:           DefaultSecret,
		Host:             DefaultHost,
		Shell:            DefaultShell,
		Term:             common.DefaultTerm,
		TagFormat:        handshake.TagBinary.String(),
		LogLevel:         logrus.InfoLevel.String(),
		BufferSize:       common.DefaultBufferSize,
		NoDelay:          true,
		KeepAlive:        Duration(common.DefaultKeepAlive),
		DialTimeout:      Duration(common.DefaultDialTimeout),
		ResolveRetry:     Duration(common.DefaultResolveRetry),
		RestartDelay:     Duration(common.DefaultRestartDelay),
		TeardownAttempts: common.DefaultTeardownAttempts,
		TeardownInterval: Duration(common.DefaultTeardownInterval),
		Listener: ListenerConfig{
			Address:   common.DefaultListenAddress,
			Tolerance: Duration(common.DefaultTolerance),
		},
	}
	if p, err := strconv.Atoi(DefaultPort); err == nil {
		c.Port = p
	}
	if d, err := strconv.ParseBool(DefaultDaemonize); err == nil {
		c.Daemonize = d
	}
	return c
}

// UserDirectory returns the path to the seijaku configuration directory for
// the current user, or the empty string when there is no home directory.
func UserDirectory() string {
	home, err := thunks.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, common.UserConfigDirectory)
}

// DefaultPath returns UserDirectory()/config.toml.
func DefaultPath() string {
	d := UserDirectory()
	if d == "" {
		return ""
	}
	return filepath.Join(d, common.ConfigFile)
}

// Load returns the defaults overlaid with the file at path. An empty path
// means DefaultPath(), and a missing default file is not an error.
func Load(path string) (*Config, error) {
	c := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
		if path == "" {
			return c, nil
		}
	}
	f, err := fileSystem.Open(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			logrus.Debugf("no config at %s, using defaults", path)
			return c, nil
		}
		return nil, err
	}
	defer f.Close()

	md, err := toml.NewDecoder(f).Decode(c)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("config: %s: invalid setting %q", path, strings.Join(keys, ", "))
	}
	return c, nil
}

// SecretBytes returns the shared secret.
func (c *Config) SecretBytes() ([]byte, error) {
	if c.SecretHex != "" {
		b, err := hex.DecodeString(c.SecretHex)
		if err != nil {
			return nil, fmt.Errorf("config: secret_hex: %w", err)
		}
		return b, nil
	}
	return []byte(c.Secret), nil
}

// Format returns the parsed tag format.
func (c *Config) Format() (handshake.TagFormat, error) {
	return handshake.ParseTagFormat(combinators.StringOr(c.TagFormat, handshake.TagBinary.String()))
}

// Address returns host:port.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Level returns the configured logrus level.
func (c *Config) Level() (logrus.Level, error) {
	return logrus.ParseLevel(combinators.StringOr(c.LogLevel, logrus.InfoLevel.String()))
}

// Validate checks the client settings.
func (c *Config) Validate() error {
	secret, err := c.SecretBytes()
	if err != nil {
		return err
	}
	if len(secret) == 0 {
		return ErrMissingSecret
	}
	if c.Host == "" {
		return ErrMissingHost
	}
	if c.Port <= 0 || c.Port > 65535 {
		return ErrInvalidPort
	}
	if _, err := c.Format(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("config: buffer_size must be positive, got %d", c.BufferSize)
	}
	if c.TeardownAttempts < 0 {
		return fmt.Errorf("config: teardown_attempts must not be negative, got %d", c.TeardownAttempts)
	}
	return nil
}

// ListenerKeys returns the named secrets a listener accepts. The top-level
// secret, if any, is included under the name "default".
func (c *Config) ListenerKeys() (map[string][]byte, error) {
	out := make(map[string][]byte, len(c.Listener.Keys)+1)
	for name, k := range c.Listener.Keys {
		out[name] = []byte(k)
	}
	secret, err := c.SecretBytes()
	if err != nil {
		return nil, err
	}
	if len(secret) > 0 {
		if _, ok := out["default"]; !ok {
			out["default"] = secret
		}
	}
	if len(out) == 0 {
		return nil, ErrMissingSecret
	}
	return out, nil
}
