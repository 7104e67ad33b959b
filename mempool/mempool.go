package mempool

import (
	tmtypes "github.com/tendermint/tendermint/types"
)

// UnknownPeerID is the sender id of txs submitted by the local agent.
const UnknownPeerID uint16 = 0

// Mempool holds signed payload txs until a block includes them.
type Mempool interface {
	// CheckTx runs the pre-check and, if it passes, adds tx to the mempool.
	CheckTx(tx tmtypes.Tx, txInfo TxInfo) error

	// ReapMaxTxs returns up to max txs in arrival order. A negative max
	// returns all of them.
	ReapMaxTxs(max int) tmtypes.Txs

	// Lock locks the mempool. The consensus must be able to hold the lock
	// to safely update.
	Lock()

	// Unlock unlocks the mempool.
	Unlock()

	// Update removes the txs committed at height and re-checks the rest.
	// NOTE: this should be called *after* block is committed by consensus.
	// NOTE: Lock/Unlock must be managed by caller
	Update(height int64, txs tmtypes.Txs) error

	// Flush removes all transactions from the mempool and cache
	Flush()

	// Size returns the number of transactions in the mempool.
	Size() int

	// TxsBytes returns the total size of all txs in the mempool.
	TxsBytes() int64
}

//--------------------------------------------------------------------------------

// PreCheckFunc validates a tx before it enters the mempool, and again on
// every Update. A tx that fails it is dropped.
type PreCheckFunc func(tmtypes.Tx) error

// TxInfo are parameters that get passed when attempting to add a tx to the
// mempool.
type TxInfo struct {
	// SenderID is the internal id of the agent that submitted the tx.
	SenderID uint16
}
