package config

import (
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/sirupsen/logrus"
	"gotest.tools/assert"

	"seijaku.dev/seijaku/handshake"
	"seijaku.dev/seijaku/pkg/thunks"
)

// rootedFS lets absolute paths resolve inside a MapFS.
type rootedFS struct {
	fstest.MapFS
}

func (r rootedFS) Open(name string) (fs.File, error) {
	return r.MapFS.Open(strings.TrimPrefix(name, "/"))
}

func useFS(t *testing.T, files map[string]string) {
	m := fstest.MapFS{}
	for name, contents := range files {
		m[strings.TrimPrefix(name, "/")] = &fstest.MapFile{Data: []byte(contents)}
	}
	old := fileSystem
	fileSystem = rootedFS{m}
	thunks.SetUpTest()
	t.Cleanup(func() {
		fileSystem = old
		thunks.TearDownTest()
	})
}

const clientToml = `secret = "V6h9A_wyEE6YLFiAtxY4W601RkBQIsLn"
host = "c2.example.com"
port = 2333
shell = "/bin/bash"
shell_args = ["-i"]
daemonize = true
tag_format = "decimal"
restart_delay = "250ms"
teardown_attempts = 3

[listener]
address = "127.0.0.1:2333"
tolerance = "10s"

[listener.keys]
laptop = "CHANGE_ME"
`

func TestLoadExplicitPath(t *testing.T) {
	useFS(t, map[string]string{"/etc/seijaku.toml": clientToml})

	c, err := Load("/etc/seijaku.toml")
	assert.NilError(t, err)
	assert.NilError(t, c.Validate())

	assert.Equal(t, c.Secret, "V6h9A_wyEE6YLFiAtxY4W601RkBQIsLn")
	assert.Equal(t, c.Address(), "c2.example.com:2333")
	assert.Equal(t, c.Shell, "/bin/bash")
	assert.DeepEqual(t, c.ShellArgs, []string{"-i"})
	assert.Equal(t, c.Daemonize, true)
	assert.Equal(t, time.Duration(c.RestartDelay), 250*time.Millisecond)
	assert.Equal(t, c.TeardownAttempts, 3)
	assert.Equal(t, time.Duration(c.Listener.Tolerance), 10*time.Second)

	// Unset values keep their defaults.
	assert.Equal(t, c.BufferSize, 1024)
	assert.Equal(t, c.Term, "xterm")

	f, err := c.Format()
	assert.NilError(t, err)
	assert.Equal(t, f, handshake.TagDecimal)

	keys, err := c.ListenerKeys()
	assert.NilError(t, err)
	assert.Equal(t, string(keys["laptop"]), "CHANGE_ME")
	assert.Equal(t, string(keys["default"]), c.Secret)
}

func TestLoadDefaultPath(t *testing.T) {
	useFS(t, map[string]string{"/home/operator/.seijaku/config.toml": `secret_hex = "00ff10"`})

	c, err := Load("")
	assert.NilError(t, err)
	s, err := c.SecretBytes()
	assert.NilError(t, err)
	assert.DeepEqual(t, s, []byte{0x00, 0xff, 0x10})
	assert.Equal(t, c.Port, 4444)
	assert.Equal(t, c.Host, "127.0.0.1")
}

func TestMissingDefaultFileIsFine(t *testing.T) {
	useFS(t, map[string]string{})
	c, err := Load("")
	assert.NilError(t, err)
	assert.DeepEqual(t, c, Default())
}

func TestMissingExplicitFile(t *testing.T) {
	useFS(t, map[string]string{})
	_, err := Load("/nope.toml")
	assert.ErrorContains(t, err, "not exist")
}

func TestUnknownSetting(t *testing.T) {
	useFS(t, map[string]string{"/c.toml": "secret = \"x\"\nbogus = 1\n"})
	_, err := Load("/c.toml")
	assert.ErrorContains(t, err, "bogus")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		err    string
	}{
		{"no secret", func(c *Config) { c.Secret = "" }, ErrMissingSecret.Error()},
		{"bad hex", func(c *Config) { c.SecretHex = "zz" }, "secret_hex"},
		{"no host", func(c *Config) { c.Host = "" }, ErrMissingHost.Error()},
		{"port zero", func(c *Config) { c.Port = 0 }, ErrInvalidPort.Error()},
		{"port high", func(c *Config) { c.Port = 70000 }, ErrInvalidPort.Error()},
		{"tag format", func(c *Config) { c.TagFormat = "base64" }, "base64"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "loud"},
		{"buffer", func(c *Config) { c.BufferSize = 0 }, "buffer_size"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			c.Secret = "CHANGE_ME"
			tc.modify(c)
			assert.ErrorContains(t, c.Validate(), tc.err)
		})
	}
}

func TestBuildTimeDefaults(t *testing.T) {
	oldPort, oldDaemon, oldSecret := DefaultPort, DefaultDaemonize, DefaultSecret
	defer func() { DefaultPort, DefaultDaemonize, DefaultSecret = oldPort, oldDaemon, oldSecret }()

	DefaultPort = "9001"
	DefaultDaemonize = "1"
	DefaultSecret = "baked"
	c := Default()
	assert.Equal(t, c.Port, 9001)
	assert.Equal(t, c.Daemonize, true)
	assert.Equal(t, c.Secret, "baked")

	lvl, err := c.Level()
	assert.NilError(t, err)
	assert.Equal(t, lvl, logrus.InfoLevel)
}
