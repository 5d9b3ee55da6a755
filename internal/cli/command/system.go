package command

import (
	"errors"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/securestore-go/internal/cli/connection"
	"github.com/yndnr/securestore-go/internal/cli/output"
)

// SystemCommand returns the system subcommand group.
func SystemCommand() *cli.Command {
	return &cli.Command{
		Name:    "system",
		Aliases: []string{"sys"},
		Usage:   "Server health and maintenance",
		Subcommands: []*cli.Command{
			{
				Name:   "health",
				Usage:  "Check server liveness and readiness",
				Action: systemHealth,
			},
			{
				Name:   "stats",
				Usage:  "Show storage statistics",
				Action: systemStats,
			},
			{
				Name:   "cleanup",
				Usage:  "Remove expired entries now",
				Action: systemCleanup,
			},
		},
	}
}

type healthResult struct {
	Status string `json:"status"`
	Time   string `json:"time"`
	Error  string `json:"error,omitempty"`
}

func systemHealth(c *cli.Context) error {
	client, ctx, cancel := newClient(c)
	defer cancel()

	resp, err := client.Get(ctx, "/health")
	if err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}
	var live healthResult
	if err := connection.ParseResponse(resp, &live); err != nil {
		return err
	}

	ready := healthResult{Status: "ready"}
	resp, err = client.Get(ctx, "/ready")
	if err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}
	if err := connection.ParseResponse(resp, &ready); err != nil {
		var apiErr *connection.APIError
		if !errors.As(err, &apiErr) {
			return err
		}
		ready = healthResult{Status: "not_ready", Error: apiErr.Message}
	}

	result := map[string]healthResult{"live": live, "ready": ready}
	if err := render(c, result, func(w io.Writer) error {
		output.Success(w, "Server is %s", live.Status)
		if ready.Status == "ready" {
			output.Success(w, "Server is ready")
		} else {
			output.Failure(w, "Server is not ready: %s", ready.Error)
		}
		fmt.Fprintf(w, "  Target: %s\n", client.BaseURL())
		return nil
	}); err != nil {
		return err
	}

	if ready.Status != "ready" {
		return errors.New("server is not ready")
	}
	return nil
}

type statsResult struct {
	TotalEntries     int   `json:"totalEntries"`
	EncryptedEntries int   `json:"encryptedEntries"`
	ExpiredEntries   int   `json:"expiredEntries"`
	UsedSpaceBytes   int64 `json:"usedSpaceBytes"`
	SecurityScore    int   `json:"securityScore"`
}

func systemStats(c *cli.Context) error {
	client, ctx, cancel := newClient(c)
	defer cancel()

	resp, err := client.Get(ctx, "/admin/v1/stats")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	var st statsResult
	if err := connection.ParseResponse(resp, &st); err != nil {
		return err
	}

	return render(c, st, func(w io.Writer) error {
		output.Heading(w, "Storage Stats")
		fmt.Fprintf(w, "  Total entries:     %d\n", st.TotalEntries)
		fmt.Fprintf(w, "  Encrypted entries: %d\n", st.EncryptedEntries)
		fmt.Fprintf(w, "  Expired entries:   %d\n", st.ExpiredEntries)
		fmt.Fprintf(w, "  Used space:        %.2f KB\n", float64(st.UsedSpaceBytes)/1024)
		fmt.Fprintf(w, "  Security score:    %d/100\n", st.SecurityScore)
		return nil
	})
}

func systemCleanup(c *cli.Context) error {
	client, ctx, cancel := newClient(c)
	defer cancel()

	resp, err := client.Post(ctx, "/admin/v1/cleanup", nil)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	var result struct {
		Removed     int   `json:"removed"`
		TriggeredAt int64 `json:"triggered_at"`
	}
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	return render(c, result, func(w io.Writer) error {
		output.Success(w, "Cleanup completed: %d expired entries removed", result.Removed)
		return nil
	})
}
