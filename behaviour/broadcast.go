package behaviour

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	tmjson "github.com/tendermint/tendermint/libs/json"
	"github.com/tendermint/tendermint/libs/log"
	ctypes "github.com/tendermint/tendermint/rpc/core/types"
	jsonrpc "github.com/tendermint/tendermint/rpc/jsonrpc/types"
	tmtypes "github.com/tendermint/tendermint/types"
)

const (
	sendTimeout = 10 * time.Second
	// see https://github.com/tendermint/tendermint/blob/master/rpc/lib/server/handlers.go
	pingPeriod = (30 * 9 / 10) * time.Second

	broadcastTxMethod = "broadcast_tx_sync"
)

var (
	ErrTxRejected         = errors.New("payload transaction rejected")
	ErrBroadcasterStopped = errors.New("broadcaster stopped")
)

// Broadcaster hands a signed payload transaction to the replication engine.
type Broadcaster interface {
	BroadcastTx(ctx context.Context, tx []byte) error
}

// TxSyncClient is the part of a tendermint rpc client the
// ClientBroadcaster needs; rpc/client/local and rpc/client/http satisfy it.
type TxSyncClient interface {
	BroadcastTxSync(ctx context.Context, tx tmtypes.Tx) (*ctypes.ResultBroadcastTx, error)
}

// ClientBroadcaster submits through a tendermint rpc client.
type ClientBroadcaster struct {
	client TxSyncClient
}

var _ Broadcaster = (*ClientBroadcaster)(nil)

func NewClientBroadcaster(client TxSyncClient) *ClientBroadcaster {
	return &ClientBroadcaster{client: client}
}

func (cb *ClientBroadcaster) BroadcastTx(ctx context.Context, tx []byte) error {
	res, err := cb.client.BroadcastTxSync(ctx, tx)
	if err != nil {
		return err
	}
	return checkTxResult(res)
}

func checkTxResult(res *ctypes.ResultBroadcastTx) error {
	if res.Code != 0 {
		return errors.Wrapf(ErrTxRejected, "code %d: %s", res.Code, res.Log)
	}
	return nil
}

//-----------------------------------------------------------------------------

// WSBroadcaster submits over one websocket connection to the JSON-RPC
// endpoint of a tendermint node, one request at a time.
type WSBroadcaster struct {
	Target string

	mtx     sync.Mutex
	conn    *websocket.Conn
	nextID  int
	stopped chan struct{}
	wg      sync.WaitGroup

	logger log.Logger
}

var _ Broadcaster = (*WSBroadcaster)(nil)

// NewWSBroadcaster takes the host:port of the node rpc.
func NewWSBroadcaster(target string) *WSBroadcaster {
	return &WSBroadcaster{
		Target:  target,
		stopped: make(chan struct{}),
		logger:  log.NewNopLogger(),
	}
}

// SetLogger lets you set your own logger
func (wb *WSBroadcaster) SetLogger(l log.Logger) {
	wb.logger = l
}

// Start opens the connection and starts the ping routine.
func (wb *WSBroadcaster) Start() error {
	c, _, err := connect(wb.Target)
	if err != nil {
		return errors.Wrapf(err, "connect %s", wb.Target)
	}
	c.SetPingHandler(func(message string) error {
		err := c.WriteControl(websocket.PongMessage, []byte(message), time.Now().Add(sendTimeout))
		if err == websocket.ErrCloseSent {
			return nil
		} else if e, ok := err.(net.Error); ok && e.Temporary() {
			return nil
		}
		return err
	})
	wb.conn = c

	wb.wg.Add(1)
	go wb.pingLoop()
	return nil
}

// Stop closes the connection.
func (wb *WSBroadcaster) Stop() {
	close(wb.stopped)
	wb.wg.Wait()

	wb.mtx.Lock()
	defer wb.mtx.Unlock()
	// To cleanly close a connection, a client should send a close
	// frame and wait for the server to close the connection.
	wb.conn.SetWriteDeadline(time.Now().Add(sendTimeout))
	err := wb.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		wb.logger.Error("failed to write close message", "err", err)
	}
	wb.conn.Close()
}

func (wb *WSBroadcaster) pingLoop() {
	defer wb.wg.Done()
	pingsTicker := time.NewTicker(pingPeriod)
	defer pingsTicker.Stop()

	for {
		select {
		case <-wb.stopped:
			return
		case <-pingsTicker.C:
			// go-rpc server closes the connection in the absence of pings
			wb.mtx.Lock()
			wb.conn.SetWriteDeadline(time.Now().Add(sendTimeout))
			err := wb.conn.WriteMessage(websocket.PingMessage, []byte{})
			wb.mtx.Unlock()
			if err != nil {
				wb.logger.Error("failed to write ping message", "err", err)
			}
		}
	}
}

func (wb *WSBroadcaster) BroadcastTx(ctx context.Context, tx []byte) error {
	select {
	case <-wb.stopped:
		return ErrBroadcasterStopped
	default:
	}

	wb.mtx.Lock()
	defer wb.mtx.Unlock()

	wb.nextID++
	id := jsonrpc.JSONRPCIntID(wb.nextID)
	req, err := jsonrpc.MapToRequest(id, broadcastTxMethod, map[string]interface{}{"tx": tmtypes.Tx(tx)})
	if err != nil {
		return errors.Wrap(err, "failed to encode params")
	}

	deadline := time.Now().Add(sendTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	wb.conn.SetWriteDeadline(deadline)
	if err := wb.conn.WriteJSON(req); err != nil {
		return errors.Wrap(err, "payload send failed")
	}

	wb.conn.SetReadDeadline(deadline)
	for {
		var res jsonrpc.RPCResponse
		if err := wb.conn.ReadJSON(&res); err != nil {
			return errors.Wrap(err, "failed to read response")
		}
		if res.ID != id {
			// a late answer to an earlier request
			continue
		}
		if res.Error != nil {
			return errors.Wrap(ErrTxRejected, res.Error.Error())
		}
		result := new(ctypes.ResultBroadcastTx)
		if err := tmjson.Unmarshal(res.Result, result); err != nil {
			return errors.Wrap(err, "failed to decode response")
		}
		return checkTxResult(result)
	}
}

func connect(host string) (*websocket.Conn, *http.Response, error) {
	u := url.URL{Scheme: "ws", Host: host, Path: "/websocket"}
	return websocket.DefaultDialer.Dial(u.String(), nil)
}
