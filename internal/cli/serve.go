package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"replication-agent/internal/app"
)

type serveOptions struct {
	Addr string
	Path string
	Poll bool
}

func newServeCommand(agent *agentOptions) *cobra.Command {
	opts := serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Receive pushed packages and answer poll requests",
		RunE: func(cmd *cobra.Command, _ []string) error {
			service := newAppService()
			spec, err := loadAgentSpec(cmd, service, agent)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return service.Serve(ctx, app.ServeRequest{
				Agent:      spec,
				Addr:       resolveString(cmd, opts.Addr, "addr", "addr"),
				Path:       resolveString(cmd, opts.Path, "path", "path"),
				EnablePoll: resolveBool(cmd, opts.Poll, "poll", "poll"),
			})
		},
	}
	cmd.Flags().StringVar(&opts.Addr, "addr", app.DefaultServeAddr, "Listen address")
	cmd.Flags().StringVar(&opts.Path, "path", app.DefaultServePath, "Replication endpoint path")
	cmd.Flags().BoolVar(&opts.Poll, "poll", false, "Serve POLL requests from the agent queue")
	_ = viper.BindPFlag("addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("path", cmd.Flags().Lookup("path"))
	_ = viper.BindPFlag("poll", cmd.Flags().Lookup("poll"))
	return cmd
}
