package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/afraznein/KTPDiscordRelay/internal/core/clock"
	"github.com/afraznein/KTPDiscordRelay/internal/relay/linking"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Issue or inspect account-linking state tokens",
}

var stateIssueCmd = &cobra.Command{
	Use:   "issue [user_id]",
	Short: "Issue a state token for a user",
	Args:  cobra.ExactArgs(1),
	Run:   runStateIssue,
}

var stateVerifyCmd = &cobra.Command{
	Use:   "verify [token]",
	Short: "Verify a state token and print its user",
	Args:  cobra.ExactArgs(1),
	Run:   runStateVerify,
}

func init() {
	stateCmd.AddCommand(stateIssueCmd, stateVerifyCmd)
	rootCmd.AddCommand(stateCmd)
}

func stateManager(cmd *cobra.Command) *linking.StateManager {
	cfg, err := loadConfig(cmd)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.OAuth.StateSecret == "" {
		slog.Error("oauth.state_secret is not configured")
		os.Exit(1)
	}
	return linking.NewStateManager([]byte(cfg.OAuth.StateSecret), cfg.OAuth.StateTTL, clock.System{})
}

func runStateIssue(cmd *cobra.Command, args []string) {
	token, err := stateManager(cmd).Issue(args[0])
	if err != nil {
		slog.Error("Failed to issue state", "error", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

func runStateVerify(cmd *cobra.Command, args []string) {
	userID, err := stateManager(cmd).Verify(args[0])
	if err != nil {
		fmt.Println("invalid:", err)
		os.Exit(1)
	}
	fmt.Println(userID)
}
