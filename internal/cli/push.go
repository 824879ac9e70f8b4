package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"replication-agent/internal/app"
)

type pushOptions struct {
	Max int
}

func newPushCommand(agent *agentOptions) *cobra.Command {
	opts := pushOptions{}
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Deliver queued packages to the transport endpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			service := newAppService()
			spec, err := loadAgentSpec(cmd, service, agent)
			if err != nil {
				return err
			}
			result, err := service.Push(cmd.Context(), app.PushRequest{
				Agent: spec,
				Max:   resolveInt(cmd, opts.Max, "max", "max"),
			})
			if err != nil {
				return err
			}
			fmt.Printf("delivered %d package(s) from %s, %d remaining\n", result.Delivered, result.QueueName, result.Remaining)
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.Max, "max", 0, "Maximum packages to deliver (0 = drain the queue)")
	_ = viper.BindPFlag("max", cmd.Flags().Lookup("max"))
	return cmd
}
