package mempool

import (
	"github.com/pkg/errors"
)

var (
	// ErrTxInCache is returned to the client if we saw tx earlier
	ErrTxInCache = errors.New("tx already exists in cache")
	ErrTxInMap   = errors.New("tx already exists in map")

	ErrTxTooLarge    = errors.New("tx too large")
	ErrMempoolIsFull = errors.New("mempool is full")
	ErrPreCheck      = errors.New("tx failed pre-check")
)
