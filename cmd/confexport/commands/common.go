// Package commands implements the confexport command line.
package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/confexport/internal/config"
	"git.home.luguber.info/inful/confexport/internal/foundation/errors"
)

// Global carries state shared by every command.
type Global struct {
	Logger *slog.Logger
	Out    io.Writer
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (built-in defaults when omitted)"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Export   ExportCmd   `cmd:"" help:"Export a page tree once"`
	Schedule ScheduleCmd `cmd:"" help:"Export periodically, reloading the configuration file on change"`
	History  HistoryCmd  `cmd:"" help:"List recorded runs or the pages of one run"`
	Init     InitCmd     `cmd:"" help:"Write a sample configuration file"`
}

// AfterApply runs after flag parsing; installs a logger until the
// configuration provides its own settings.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// loadConfig loads the configuration file (or defaults) and installs the
// logger it describes.
func (c *CLI) loadConfig(g *Global) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(c.Config)
	if err != nil {
		return nil, err
	}
	g.Logger = cfg.Logging.NewLogger(os.Stderr, c.Verbose)
	slog.SetDefault(g.Logger)
	if g.Out == nil {
		g.Out = os.Stdout
	}
	return cfg, nil
}

// Overrides are flags that take precedence over the configuration file.
type Overrides struct {
	Root       string `help:"Root page ID"`
	Mode       string `help:"Export mode: per-file, flat or chunked"`
	Output     string `short:"o" help:"Output directory"`
	ChunkBytes int64  `name:"chunk-bytes" help:"Byte budget per chunk file"`
	BaseURL    string `name:"base-url" help:"Content API base URL"`
	TokenFile  string `name:"token-file" help:"Credential file holding the bearer token"`
}

// Apply copies every set flag into cfg.
func (o Overrides) Apply(cfg *config.Config) error {
	if o.Root != "" {
		cfg.Confluence.RootPageID = o.Root
	}
	if o.Mode != "" {
		mode, err := config.ParseMode(o.Mode)
		if err != nil {
			return errors.ValidationError(err.Error()).WithContext("flag", "--mode").Build()
		}
		cfg.Export.Mode = mode
	}
	if o.Output != "" {
		cfg.Export.OutputDir = o.Output
	}
	if o.ChunkBytes != 0 {
		cfg.Export.ChunkBytes = o.ChunkBytes
	}
	if o.BaseURL != "" {
		cfg.Confluence.BaseURL = o.BaseURL
	}
	if o.TokenFile != "" {
		cfg.Confluence.TokenFile = o.TokenFile
	}
	return nil
}
