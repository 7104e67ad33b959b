package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	tmos "github.com/tendermint/tendermint/libs/os"

	nm "github.com/Tanuj-solulab/learning-service-real-estate/node"
)

// AddAgentFlags exposes the most used settings of agent.toml.
func AddAgentFlags(cmd *cobra.Command) {
	cmd.Flags().String("abci", config.ABCI, "embedded | socket")
	cmd.Flags().String("proxy_app", config.ProxyApp, "address the ABCI socket server listens on")
	cmd.Flags().String("tendermint_rpc", config.TendermintRPC, "host:port of the Tendermint RPC in socket mode")
	cmd.Flags().String("rpc.laddr", config.RPC.ListenAddress, "agent RPC listen address")
}

// NewRunNodeCmd returns the command that allows the CLI to start an agent.
func NewRunNodeCmd(nodeProvider nm.Provider) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "start",
		Aliases: []string{"node", "run"},
		Short:   "Run the agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			applyAgentFlags(cmd)

			n, err := nodeProvider(config, tmConfig, logger)
			if err != nil {
				return fmt.Errorf("failed to create agent: %w", err)
			}

			if err := n.Start(); err != nil {
				return fmt.Errorf("failed to start agent: %w", err)
			}

			logger.Info("Started agent", "address", n.PrivAgent().GetAddress(), "rpc", n.RPCAddress())

			// Stop upon receiving SIGTERM or CTRL-C.
			tmos.TrapSignal(logger, func() {
				if n.IsRunning() {
					if err := n.Stop(); err != nil {
						logger.Error("unable to stop the agent", "error", err)
					}
				}
			})

			// Run forever.
			select {}
		},
	}

	AddAgentFlags(cmd)
	return cmd
}

func applyAgentFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if f := flags.Lookup("abci"); f.Changed {
		config.ABCI = f.Value.String()
	}
	if f := flags.Lookup("proxy_app"); f.Changed {
		config.ProxyApp = f.Value.String()
	}
	if f := flags.Lookup("tendermint_rpc"); f.Changed {
		config.TendermintRPC = f.Value.String()
	}
	if f := flags.Lookup("rpc.laddr"); f.Changed {
		config.RPC.ListenAddress = f.Value.String()
	}
}
