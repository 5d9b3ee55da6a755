package command

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/securestore-go/internal/cli/connection"
	"github.com/yndnr/securestore-go/internal/cli/output"
)

// EntryCommand returns the entry subcommand group.
func EntryCommand() *cli.Command {
	return &cli.Command{
		Name:    "entry",
		Aliases: []string{"e"},
		Usage:   "Store and read classified entries",
		Subcommands: []*cli.Command{
			{
				Name:      "put",
				Usage:     "Store a value",
				ArgsUsage: "CLASSIFICATION KEY [VALUE]",
				Description: "VALUE is parsed as JSON when possible and stored as a string otherwise.\n" +
					"Use --file to read the value from a file (\"-\" for stdin).",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "ttl",
						Usage: "Expire the entry after this duration (0 = never)",
					},
					&cli.BoolFlag{
						Name:  "strong-auth",
						Usage: "Require authenticated backend storage",
					},
					&cli.BoolFlag{
						Name:  "string",
						Usage: "Store VALUE as a string even if it parses as JSON",
					},
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Read the value from `FILE`",
					},
				},
				Action: entryPut,
			},
			{
				Name:      "get",
				Usage:     "Retrieve a value",
				ArgsUsage: "CLASSIFICATION KEY",
				Action:    entryGet,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete an entry",
				ArgsUsage: "CLASSIFICATION KEY",
				Action:    entryDelete,
			},
			{
				Name:      "exists",
				Usage:     "Check whether a live entry exists",
				ArgsUsage: "CLASSIFICATION KEY",
				Action:    entryExists,
			},
		},
	}
}

func entryPath(classification, key string) string {
	return "/v1/entries/" + url.PathEscape(classification) + "/" + url.PathEscape(key)
}

type putRequest struct {
	Value             json.RawMessage `json:"value"`
	ExpirationSeconds int64           `json:"expiration_seconds,omitempty"`
	RequireStrongAuth bool            `json:"require_strong_auth,omitempty"`
}

type entryResult struct {
	Key            string          `json:"key"`
	Classification string          `json:"classification"`
	Value          json.RawMessage `json:"value,omitempty"`
}

// readValue resolves the value argument into JSON.
func readValue(c *cli.Context) (json.RawMessage, error) {
	var raw []byte
	switch path := c.String("file"); {
	case path == "-":
		data, err := io.ReadAll(c.App.Reader)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		raw = data
	case path != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read value file: %w", err)
		}
		raw = data
	case c.NArg() == 3:
		raw = []byte(c.Args().Get(2))
	default:
		return nil, fmt.Errorf("entry put: a VALUE argument or --file is required")
	}

	trimmed := bytes.TrimSpace(raw)
	if !c.Bool("string") && json.Valid(trimmed) && len(trimmed) > 0 {
		return json.RawMessage(trimmed), nil
	}
	quoted, err := json.Marshal(string(raw))
	if err != nil {
		return nil, err
	}
	return quoted, nil
}

func entryPut(c *cli.Context) error {
	if c.NArg() < 2 || c.NArg() > 3 {
		return fmt.Errorf("entry put: expected CLASSIFICATION KEY [VALUE]")
	}
	value, err := readValue(c)
	if err != nil {
		return err
	}
	ttl := c.Duration("ttl")
	if ttl < 0 {
		return fmt.Errorf("entry put: --ttl must not be negative")
	}

	client, ctx, cancel := newClient(c)
	defer cancel()

	class, key := c.Args().Get(0), c.Args().Get(1)
	resp, err := client.Put(ctx, entryPath(class, key), putRequest{
		Value:             value,
		ExpirationSeconds: int64(ttl.Round(time.Second) / time.Second),
		RequireStrongAuth: c.Bool("strong-auth"),
	})
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	var result entryResult
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	return render(c, result, func(w io.Writer) error {
		output.Success(w, "Stored %s/%s", result.Classification, result.Key)
		return nil
	})
}

func entryGet(c *cli.Context) error {
	if err := requireArgs(c, 2); err != nil {
		return err
	}
	client, ctx, cancel := newClient(c)
	defer cancel()

	resp, err := client.Get(ctx, entryPath(c.Args().Get(0), c.Args().Get(1)))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	var result entryResult
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	return render(c, result, func(w io.Writer) error {
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, result.Value, "", "  "); err != nil {
			_, err = w.Write(result.Value)
			return err
		}
		pretty.WriteByte('\n')
		_, err := pretty.WriteTo(w)
		return err
	})
}

func entryDelete(c *cli.Context) error {
	if err := requireArgs(c, 2); err != nil {
		return err
	}
	client, ctx, cancel := newClient(c)
	defer cancel()

	resp, err := client.Delete(ctx, entryPath(c.Args().Get(0), c.Args().Get(1)))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	var result entryResult
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	return render(c, result, func(w io.Writer) error {
		output.Success(w, "Deleted %s/%s", result.Classification, result.Key)
		return nil
	})
}

func entryExists(c *cli.Context) error {
	if err := requireArgs(c, 2); err != nil {
		return err
	}
	client, ctx, cancel := newClient(c)
	defer cancel()

	resp, err := client.Get(ctx, entryPath(c.Args().Get(0), c.Args().Get(1))+"/exists")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	var result struct {
		Key            string `json:"key"`
		Classification string `json:"classification"`
		Exists         bool   `json:"exists"`
	}
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	return render(c, result, func(w io.Writer) error {
		if result.Exists {
			output.Success(w, "%s/%s exists", result.Classification, result.Key)
		} else {
			output.Failure(w, "%s/%s does not exist", result.Classification, result.Key)
		}
		return nil
	})
}
