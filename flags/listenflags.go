package flags

import (
	"flag"
	"fmt"
	"time"

	"seijaku.dev/seijaku/config"
)

// ListenFlags holds CLI args for seijaku-listen.
type ListenFlags struct {
	ConfigPath string
	Address    string
	Tolerance  time.Duration
	TagFormat  string
	GenKey     bool
	Verbose    bool
}

func defineListenFlags(fs *flag.FlagSet, f *ListenFlags) {
	fs.StringVar(&f.ConfigPath, "C", "", "path to config file")
	fs.StringVar(&f.Address, "l", "", "address to listen on")
	fs.DurationVar(&f.Tolerance, "tolerance", 0, "accepted clock skew")
	fs.StringVar(&f.TagFormat, "format", "", "tag layout, binary or decimal")
	fs.BoolVar(&f.GenKey, "genkey", false, "print a random secret as hex and exit")
	fs.BoolVar(&f.Verbose, "v", false, "debug logging")
}

// ParseListenArgs defines and parses the flags from the cmd line for the listener
func ParseListenArgs(args []string) (*ListenFlags, error) {
	f := new(ListenFlags)
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	defineListenFlags(fs, f)

	if err := fs.Parse(args[1:]); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 { // there were unparsed args
		return nil, ErrExcessArgs
	}
	return f, nil
}

func mergeListenFlagsAndConfig(f *ListenFlags, cfg *config.Config) {
	if f.Address != "" {
		cfg.Listener.Address = f.Address
	}
	if f.Tolerance > 0 {
		cfg.Listener.Tolerance = config.Duration(f.Tolerance)
	}
	if f.TagFormat != "" {
		cfg.TagFormat = f.TagFormat
	}
	if f.Verbose {
		cfg.LogLevel = "debug"
	}
}

// LoadListenConfigFromFlags follows the config path provided in flags (or
// default) and updates the config with the flags.
func LoadListenConfigFromFlags(f *ListenFlags) (*config.Config, error) {
	cfg, err := config.Load(f.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	mergeListenFlagsAndConfig(f, cfg)
	if _, err := cfg.Format(); err != nil {
		return nil, err
	}
	if _, err := cfg.Level(); err != nil {
		return nil, err
	}
	return cfg, nil
}
