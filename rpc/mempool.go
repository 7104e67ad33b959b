package rpc

import (
	"github.com/pkg/errors"
	ctypes "github.com/tendermint/tendermint/rpc/core/types"
	rpctypes "github.com/tendermint/tendermint/rpc/jsonrpc/types"
	tmtypes "github.com/tendermint/tendermint/types"
)

var (
	ErrNoBroadcaster = errors.New("agent has no broadcaster")
)

// BroadcastTx relays a signed payload tx to the replication engine and
// returns once it passed CheckTx.
func BroadcastTx(ctx *rpctypes.Context, tx tmtypes.Tx) (*ctypes.ResultBroadcastTx, error) {
	if env.Broadcaster == nil {
		return nil, ErrNoBroadcaster
	}
	if err := env.Broadcaster.BroadcastTx(ctx.Context(), tx); err != nil {
		return nil, err
	}
	return &ctypes.ResultBroadcastTx{Hash: tx.Hash()}, nil
}
