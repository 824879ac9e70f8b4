package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"replication-agent/internal/app"
)

func newQueueCommand(agent *agentOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "Show the agent queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			service := newAppService()
			spec, err := loadAgentSpec(cmd, service, agent)
			if err != nil {
				return err
			}
			status, err := service.QueueStatus(cmd.Context(), app.QueueStatusRequest{Agent: spec})
			if err != nil {
				return err
			}
			fmt.Print(formatQueueStatus(status))
			return nil
		},
	}
}

func formatQueueStatus(status app.QueueStatusResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "queue: %s\n", status.Name)
	fmt.Fprintf(&b, "length: %d\n", status.Length)
	if status.Head == nil {
		return b.String()
	}
	fmt.Fprintf(&b, "head: %s\n", status.Head.ID)
	fmt.Fprintf(&b, "  action: %s\n", status.Head.Action)
	fmt.Fprintf(&b, "  type: %s\n", status.Head.Type)
	fmt.Fprintf(&b, "  paths: %s\n", strings.Join(status.Head.Paths, ", "))
	fmt.Fprintf(&b, "  holders: %s\n", strings.Join(status.Holders, ", "))
	return b.String()
}
