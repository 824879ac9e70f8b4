package cli

import (
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"replication-agent/internal/app"
	"replication-agent/internal/types"
)

// agentOptions are the persistent flags that select an agent spec and
// override parts of it.
type agentOptions struct {
	AgentPath  string
	Endpoints  []string
	Properties []string
	Strategy   string
	RedisAddr  string
}

func (o *agentOptions) bind(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&o.AgentPath, "agent", "", "Agent spec file (YAML)")
	flags.StringSliceVar(&o.Endpoints, "endpoint", nil, "Transport endpoint URI (repeatable, overrides the agent file endpoints)")
	flags.StringArrayVar(&o.Properties, "property", nil, "Transport property key[.action]=value (repeatable, overrides the agent file properties)")
	flags.StringVar(&o.Strategy, "strategy", "", "Endpoint strategy (all or one)")
	flags.StringVar(&o.RedisAddr, "redis-addr", "", "Redis address for the redis queue backend")
	_ = viper.BindPFlag("agent", flags.Lookup("agent"))
	_ = viper.BindPFlag("endpoints", flags.Lookup("endpoint"))
	_ = viper.BindPFlag("properties", flags.Lookup("property"))
	_ = viper.BindPFlag("strategy", flags.Lookup("strategy"))
	_ = viper.BindPFlag("redis_addr", flags.Lookup("redis-addr"))
}

// loadAgentSpec reads the agent spec and applies flag, environment and
// config file overrides on top of it.
func loadAgentSpec(cmd *cobra.Command, service app.Service, opts *agentOptions) (types.AgentSpec, error) {
	path := strings.TrimSpace(resolveString(cmd, opts.AgentPath, "agent", "agent"))
	if path == "" {
		return types.AgentSpec{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("agent spec file is required (--agent)")
	}
	spec, err := service.LoadAgentSpec(path)
	if err != nil {
		return types.AgentSpec{}, err
	}
	if endpoints := resolveStrings(cmd, opts.Endpoints, "endpoints", "endpoint"); len(endpoints) > 0 {
		spec.Transport.Endpoints = endpoints
	}
	if properties := resolveStrings(cmd, opts.Properties, "properties", "property"); len(properties) > 0 {
		spec.Transport.Properties = properties
	}
	if strategy := resolveString(cmd, opts.Strategy, "strategy", "strategy"); strategy != "" {
		spec.Transport.Strategy = types.EndpointStrategy(strings.ToLower(strategy))
	}
	if addr := resolveString(cmd, opts.RedisAddr, "redis_addr", "redis-addr"); addr != "" {
		spec.Queue.RedisAddr = addr
	}
	return spec, nil
}

func newAppService() app.Service {
	return app.NewService()
}

func resolveString(cmd *cobra.Command, value string, key string, flagName string) string {
	if cmd == nil {
		if value != "" {
			return value
		}
		return viper.GetString(key)
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetString(key)
}

func resolveStrings(cmd *cobra.Command, values []string, key string, flagName string) []string {
	if cmd == nil {
		if len(values) > 0 {
			return values
		}
		return viper.GetStringSlice(key)
	}
	if flagChanged(cmd, flagName) {
		return values
	}
	return viper.GetStringSlice(key)
}

func resolveBool(cmd *cobra.Command, value bool, key string, flagName string) bool {
	if cmd == nil {
		return value
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetBool(key)
}

func resolveInt(cmd *cobra.Command, value int, key string, flagName string) int {
	if cmd == nil {
		return value
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetInt(key)
}

func flagChanged(cmd *cobra.Command, name string) bool {
	if cmd == nil || strings.TrimSpace(name) == "" {
		return false
	}
	if flag := cmd.Flags().Lookup(name); flag != nil {
		return flag.Changed
	}
	if flag := cmd.PersistentFlags().Lookup(name); flag != nil {
		return flag.Changed
	}
	if flag := cmd.InheritedFlags().Lookup(name); flag != nil {
		return flag.Changed
	}
	return false
}
