package commands

import (
	"fmt"

	"git.home.luguber.info/inful/confexport/internal/config"
)

// DefaultConfigFile is written by 'init' when --config is not given.
const DefaultConfigFile = "confexport.yaml"

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite existing configuration file"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	path := root.Config
	if path == "" {
		path = DefaultConfigFile
	}
	_, _ = fmt.Fprintf(g.Out, "Writing configuration to %s\n", path)
	if err := config.Init(path, i.Force); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(g.Out, "Edit confluence.base_url and confluence.root_page_id, then run 'confexport export'")
	return nil
}
