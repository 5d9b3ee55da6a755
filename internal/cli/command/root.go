package command

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/securestore-go/internal/cli/connection"
	"github.com/yndnr/securestore-go/internal/cli/output"
	"github.com/yndnr/securestore-go/internal/infra/buildinfo"
)

// DefaultServer is the address used when --server is not given.
const DefaultServer = "localhost:5080"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:                 "securestore-cli",
		Usage:                "SecureStore command-line client",
		Version:              buildinfo.String(),
		Flags:                globalFlags(),
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			EntryCommand(),
			SystemCommand(),
			AuditCommand(),
			ConfigCommand(),
		},
		Before: func(c *cli.Context) error {
			if _, err := output.ParseFormat(c.String("output")); err != nil {
				return err
			}
			connection.SetVersion(buildinfo.Version)
			return nil
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "SecureStore server address (e.g., localhost:5080)",
			EnvVars: []string{"SECURESTORE_SERVER"},
			Value:   DefaultServer,
		},
		&cli.StringFlag{
			Name:    "token",
			Aliases: []string{"t"},
			Usage:   "API token sent as a bearer credential",
			EnvVars: []string{"SECURESTORE_API_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   string(output.FormatTable),
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Request timeout",
			Value: connection.DefaultTimeout,
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Server  string
	Token   string
	Output  output.Format
	Wide    bool
	Timeout time.Duration
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		format = output.FormatTable
	}
	return &GlobalFlags{
		Server:  c.String("server"),
		Token:   c.String("token"),
		Output:  format,
		Wide:    c.Bool("wide"),
		Timeout: c.Duration("timeout"),
	}
}

// newClient builds an HTTP client and a request context from the global flags.
func newClient(c *cli.Context) (*connection.HTTPClient, context.Context, context.CancelFunc) {
	flags := ParseGlobalFlags(c)
	client := connection.NewHTTPClient(flags.Server, flags.Token, flags.Timeout)
	ctx, cancel := context.WithTimeout(c.Context, client.Timeout())
	return client, ctx, cancel
}

// render writes data in the selected format. table, when non-nil, is
// used instead of the generic table rendering.
func render(c *cli.Context, data any, table func(w io.Writer) error) error {
	flags := ParseGlobalFlags(c)
	if flags.Output == output.FormatTable && table != nil {
		return table(c.App.Writer)
	}
	return output.NewFormatter(flags.Output, flags.Wide).Format(c.App.Writer, data)
}

// requireArgs checks the positional argument count.
func requireArgs(c *cli.Context, n int) error {
	if c.NArg() != n {
		return fmt.Errorf("%s: expected %d argument(s): %s", c.Command.FullName(), n, c.Command.ArgsUsage)
	}
	return nil
}
