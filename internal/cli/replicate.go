package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"replication-agent/internal/app"
)

type replicateOptions struct {
	Action string
}

func newReplicateCommand(agent *agentOptions) *cobra.Command {
	opts := replicateOptions{}
	cmd := &cobra.Command{
		Use:   "replicate [paths...]",
		Short: "Build a replication package for content paths and queue it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service := newAppService()
			spec, err := loadAgentSpec(cmd, service, agent)
			if err != nil {
				return err
			}
			result, err := service.Replicate(cmd.Context(), app.ReplicateRequest{
				Agent:  spec,
				Action: resolveString(cmd, opts.Action, "action", "action"),
				Paths:  args,
			})
			if err != nil {
				return err
			}
			fmt.Printf("queued package %s on %s (%s, %d bytes)\n", result.PackageID, result.QueueName, result.Action, result.Size)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Action, "action", "ADD", "Replication action (ADD or DELETE)")
	_ = viper.BindPFlag("action", cmd.Flags().Lookup("action"))
	return cmd
}
