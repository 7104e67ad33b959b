package rpc

import rpc "github.com/tendermint/tendermint/rpc/jsonrpc/server"

var Routes = map[string]*rpc.RPCFunc{
	"document":     rpc.NewRPCFunc(Document, "height"),
	"round":        rpc.NewRPCFunc(Round, ""),
	"metrics":      rpc.NewRPCFunc(JSONMetrics, "label"),
	"broadcast_tx": rpc.NewRPCFunc(BroadcastTx, "tx"),
}
