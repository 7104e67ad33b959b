package main

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	jsonrpc "github.com/tendermint/tendermint/rpc/jsonrpc/types"
)

const (
	sendTimeout = 10 * time.Second
)

var (
	host   string
	label  string
	height int64
)

func connect(host string) (*websocket.Conn, *http.Response, error) {
	u := url.URL{Scheme: "ws", Host: host, Path: "/websocket"}
	return websocket.DefaultDialer.Dial(u.String(), nil)
}

// call sends one request over a fresh connection and prints the result.
func call(method string, params map[string]interface{}) error {
	c, _, err := connect(host)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", host, err)
	}
	defer c.Close()

	paramsJSON, err := jsoniter.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}

	c.SetWriteDeadline(time.Now().Add(sendTimeout))
	req := jsonrpc.RPCRequest{
		JSONRPC: "2.0",
		ID:      jsonrpc.JSONRPCStringID("agent-rpc"),
		Method:  method,
		Params:  paramsJSON,
	}
	if err := c.WriteJSON(req); err != nil {
		return err
	}

	c.SetReadDeadline(time.Now().Add(sendTimeout))
	var res jsonrpc.RPCResponse
	if err := c.ReadJSON(&res); err != nil {
		return err
	}
	if res.Error != nil {
		return res.Error
	}

	var out interface{}
	if err := jsoniter.Unmarshal(res.Result, &out); err != nil {
		return err
	}
	bz, err := jsoniter.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(bz))
	return nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "agent-rpc",
		Short: "Query the RPC of a running agent",
	}
	rootCmd.PersistentFlags().StringVar(&host, "host", "127.0.0.1:26680", "host:port of the agent RPC")

	roundCmd := &cobra.Command{
		Use:   "round",
		Short: "Show the active round",
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("round", map[string]interface{}{})
		},
	}
	documentCmd := &cobra.Command{
		Use:   "document",
		Short: "Show the synchronized document",
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("document", map[string]interface{}{"height": fmt.Sprint(height)})
		},
	}
	documentCmd.Flags().Int64Var(&height, "height", 0, "committed height, active round if 0")
	metricsCmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show the JSON metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("metrics", map[string]interface{}{"label": label})
		},
	}
	metricsCmd.Flags().StringVar(&label, "label", "", "metric label, all if empty")

	rootCmd.AddCommand(roundCmd, documentCmd, metricsCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
