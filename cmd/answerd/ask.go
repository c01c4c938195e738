package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question against the running server",
	Long: `Ask a question against the running server.

Examples:
  answerd ask "How many vacation days do I get?"
  answerd ask --session 7d8f2c1a what about sick leave`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")
		session, _ := cmd.Flags().GetString("session")
		if session == "" {
			session = uuid.NewString()
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := map[string]any{
			"session_id": session,
			"messages": []map[string]string{
				{"role": "user", "content": question},
			},
		}

		resp, err := client.post(cmd.Context(), "/chat", req)
		if err != nil {
			return err
		}

		var result struct {
			Answer string `json:"answer"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Println(result.Answer)
		return nil
	},
}

func init() {
	askCmd.Flags().String("session", "", "session identifier (default: random UUID)")
}
