package flags

import (
	"errors"
	"flag"
	"fmt"

	"seijaku.dev/seijaku/config"
)

// ErrConflictingModes is returned when both -d and -f are given
var ErrConflictingModes = errors.New("-d and -f are mutually exclusive")

// ClientFlags holds CLI arguments for the seijaku client.
type ClientFlags struct {
	ConfigPath string
	Address    string // optional host[:port] overriding the configured endpoint

	Daemonize  bool
	Foreground bool
	InProcess  bool // restart generations as goroutines instead of re-executing
	Verbose    bool
}

func defineClientFlags(fs *flag.FlagSet, f *ClientFlags) {
	fs.StringVar(&f.ConfigPath, "C", "", "path to client config (uses ~/.seijaku/config.toml when unspecified)")
	fs.BoolVar(&f.Daemonize, "d", false, "detach from the terminal")
	fs.BoolVar(&f.Foreground, "f", false, "stay in the foreground even if the config says otherwise")
	fs.BoolVar(&f.InProcess, "inprocess", false, "run generations inside the supervisor process")
	fs.BoolVar(&f.Verbose, "v", false, "debug logging")
}

// ParseClientArgs defines and parses the flags from the command line for the client
func ParseClientArgs(args []string) (*ClientFlags, error) {
	f := new(ClientFlags)
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	defineClientFlags(fs, f)

	if err := fs.Parse(args[1:]); err != nil {
		return nil, err
	}
	if f.Daemonize && f.Foreground {
		return nil, ErrConflictingModes
	}
	switch fs.NArg() {
	case 0:
	case 1:
		f.Address = fs.Arg(0)
	default:
		return nil, ErrExcessArgs
	}
	return f, nil
}

func mergeClientFlagsAndConfig(f *ClientFlags, cfg *config.Config) error {
	if err := mergeAddress(f.Address, cfg); err != nil {
		return err
	}
	if f.Daemonize {
		cfg.Daemonize = true
	}
	if f.Foreground {
		cfg.Daemonize = false
	}
	if f.Verbose {
		cfg.LogLevel = "debug"
	}
	return nil
}

// LoadClientConfigFromFlags loads the config named by the flags (or the
// default), applies the flags over it and validates the result.
func LoadClientConfigFromFlags(f *ClientFlags) (*config.Config, error) {
	cfg, err := config.Load(f.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := mergeClientFlagsAndConfig(f, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
