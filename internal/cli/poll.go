package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"replication-agent/internal/app"
)

type pollOptions struct {
	Enqueue    bool
	Continuous bool
}

func newPollCommand(agent *agentOptions) *cobra.Command {
	opts := pollOptions{}
	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Pull packages from the transport endpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			service := newAppService()
			spec, err := loadAgentSpec(cmd, service, agent)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			result, err := service.Poll(ctx, app.PollRequest{
				Agent:      spec,
				Enqueue:    resolveBool(cmd, opts.Enqueue, "enqueue", "enqueue"),
				Continuous: resolveBool(cmd, opts.Continuous, "continuous", "continuous"),
			})
			if err != nil {
				return err
			}
			fmt.Printf("polled %d package(s) in %d cycle(s): %d installed, %d queued, %d failed\n",
				result.Received, result.Cycles, result.Imported, result.Queued, result.Failed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.Enqueue, "enqueue", false, "Queue polled packages instead of installing them")
	cmd.Flags().BoolVar(&opts.Continuous, "continuous", false, "Keep polling every transport.poll_interval_ms")
	_ = viper.BindPFlag("enqueue", cmd.Flags().Lookup("enqueue"))
	_ = viper.BindPFlag("continuous", cmd.Flags().Lookup("continuous"))
	return cmd
}
