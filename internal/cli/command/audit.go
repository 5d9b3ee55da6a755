package command

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/securestore-go/internal/cli/connection"
	"github.com/yndnr/securestore-go/internal/cli/output"
)

// AuditCommand returns the audit subcommand group.
func AuditCommand() *cli.Command {
	return &cli.Command{
		Name:  "audit",
		Usage: "Inspect the server's audit trail",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List the most recent audit records",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Number of records to show",
						Value:   20,
					},
				},
				Action: auditList,
			},
		},
	}
}

// auditRecord mirrors the server's record. Values are never part of it.
type auditRecord struct {
	ID             string `json:"id" table:"wide"`
	Timestamp      int64  `json:"timestamp"`
	Operation      string `json:"operation"`
	Classification string `json:"classification"`
	Key            string `json:"key"`
	Success        bool   `json:"success"`
	Error          string `json:"error,omitempty"`
}

func auditList(c *cli.Context) error {
	limit := c.Int("limit")
	if limit <= 0 {
		return fmt.Errorf("audit list: --limit must be positive")
	}

	client, ctx, cancel := newClient(c)
	defer cancel()

	resp, err := client.Get(ctx, "/admin/v1/audit?limit="+strconv.Itoa(limit))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	var result struct {
		Records []auditRecord `json:"records"`
		Count   int           `json:"count"`
	}
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	return render(c, result, func(w io.Writer) error {
		t := &output.Table{}
		headers := []string{"TIME", "OPERATION", "CLASSIFICATION", "KEY", "RESULT"}
		if flags.Wide {
			headers = append(headers, "ID")
		}
		t.SetHeaders(headers...)
		for _, r := range result.Records {
			status := "ok"
			if !r.Success {
				status = "failed"
				if r.Error != "" {
					status += ": " + r.Error
				}
			}
			row := []string{
				time.UnixMilli(r.Timestamp).UTC().Format(time.RFC3339),
				r.Operation,
				r.Classification,
				r.Key,
				status,
			}
			if flags.Wide {
				row = append(row, r.ID)
			}
			t.AddRow(row...)
		}
		return t.Render(w)
	})
}
