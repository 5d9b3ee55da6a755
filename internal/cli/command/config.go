package command

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/yndnr/securestore-go/internal/cli/output"
	"github.com/yndnr/securestore-go/internal/core/domain"
	"github.com/yndnr/securestore-go/internal/server/config"
)

// ConfigCommand returns the config subcommand group. It works on local
// server configuration files and never contacts a server.
func ConfigCommand() *cli.Command {
	fileFlag := &cli.StringFlag{
		Name:     "config",
		Aliases:  []string{"c"},
		Usage:    "Server configuration `FILE`",
		Required: true,
	}
	return &cli.Command{
		Name:  "config",
		Usage: "Validate and inspect server configuration files",
		Subcommands: []*cli.Command{
			{
				Name:   "validate",
				Usage:  "Check a configuration file",
				Flags:  []cli.Flag{fileFlag},
				Action: configValidate,
			},
			{
				Name:   "show",
				Usage:  "Print the effective configuration with secrets masked",
				Flags:  []cli.Flag{fileFlag},
				Action: configShow,
			},
		},
	}
}

func configValidate(c *cli.Context) error {
	path := c.String("config")
	_, err := config.Load(path, nil)
	w := c.App.Writer
	if err == nil {
		output.Success(w, "%s is valid", path)
		return nil
	}

	output.Failure(w, "%s is invalid", path)
	var de *domain.DomainError
	if errors.As(err, &de) && de.Details != "" {
		fmt.Fprintf(w, "  %s\n", de.Details)
	} else {
		fmt.Fprintf(w, "  %v\n", err)
	}
	return fmt.Errorf("%s: invalid configuration", path)
}

func configShow(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"), nil)
	if cfg == nil {
		return err
	}
	if err != nil {
		output.Warning(c.App.ErrWriter, "configuration has problems: %v", err)
	}

	// The config structs carry yaml tags only, so table and yaml output
	// both print the file format directly.
	sanitized := config.Sanitize(cfg)
	if ParseGlobalFlags(c).Output == output.FormatJSON {
		return output.NewFormatter(output.FormatJSON, false).Format(c.App.Writer, sanitized)
	}
	enc := yaml.NewEncoder(c.App.Writer)
	enc.SetIndent(2)
	if err := enc.Encode(sanitized); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}
