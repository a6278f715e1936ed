package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/afraznein/KTPDiscordRelay/internal/infra/upstream"
)

var statusAddr string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show upstream health as seen by a running relay",
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "http://localhost:8080", "base URL of the running relay")
	rootCmd.AddCommand(statusCmd)
}

func fetchStats(ctx context.Context, addr string) (upstream.MonitorStats, error) {
	var stats upstream.MonitorStats

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(addr, "/")+"/health/detailed", nil)
	if err != nil {
		return stats, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return stats, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return stats, fmt.Errorf("unexpected status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return stats, fmt.Errorf("decode stats: %w", err)
	}
	return stats, nil
}

func runStatus(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stats, err := fetchStats(ctx, statusAddr)
	if err != nil {
		slog.Error("Failed to fetch relay status", "addr", statusAddr, "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "STATUS\tAVG LATENCY\tREQ/1H\tTHROTTLED\t5XX\tNETWORK\tRETRY-AFTER LEFT")
	_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
		stats.Status,
		stats.AverageLatency,
		stats.RequestsLastHour,
		stats.ThrottleCount,
		stats.ServerErrorCount,
		stats.NetworkErrorCount,
		stats.RetryAfterRemaining,
	)
	_ = w.Flush()
}
