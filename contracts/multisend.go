package contracts

import (
	"bytes"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// DefaultMultiSendAddress is the MultiSendCallOnly deployment on gnosis.
const DefaultMultiSendAddress = "0xA238CBeb142c10Ef7Ad8442C6D1f9E89e07e7761"

// MultiSendOperation is the per call operation inside a multisend batch.
type MultiSendOperation uint8

const (
	MultiSendCall         MultiSendOperation = 0
	MultiSendDelegateCall MultiSendOperation = 1
)

// SafeOperation is the operation the Safe performs on its target.
type SafeOperation uint8

const (
	SafeCall         SafeOperation = 0
	SafeDelegateCall SafeOperation = 1
)

// MultiSendTx is one call of a multisend batch.
type MultiSendTx struct {
	Operation MultiSendOperation
	To        common.Address
	Value     *big.Int
	Data      []byte
}

// EncodeMultiSend packs txs as
// operation (1) | to (20) | value (32) | data length (32) | data
// per call, the layout multiSend(bytes) expects.
func EncodeMultiSend(txs []MultiSendTx) ([]byte, error) {
	if len(txs) == 0 {
		return nil, errors.New("empty multisend batch")
	}
	var buf bytes.Buffer
	for _, tx := range txs {
		value := tx.Value
		if value == nil {
			value = new(big.Int)
		}
		if value.Sign() < 0 || value.BitLen() > 256 {
			return nil, errors.Errorf("multisend value %s out of range", value)
		}
		buf.WriteByte(byte(tx.Operation))
		buf.Write(tx.To.Bytes())
		buf.Write(common.LeftPadBytes(value.Bytes(), 32))
		buf.Write(common.LeftPadBytes(big.NewInt(int64(len(tx.Data))).Bytes(), 32))
		buf.Write(tx.Data)
	}
	return buf.Bytes(), nil
}

// DecodeMultiSend reverses EncodeMultiSend.
func DecodeMultiSend(packed []byte) ([]MultiSendTx, error) {
	var txs []MultiSendTx
	for len(packed) > 0 {
		if len(packed) < 85 {
			return nil, errors.New("truncated multisend call")
		}
		tx := MultiSendTx{
			Operation: MultiSendOperation(packed[0]),
			To:        common.BytesToAddress(packed[1:21]),
			Value:     new(big.Int).SetBytes(packed[21:53]),
		}
		size := new(big.Int).SetBytes(packed[53:85])
		packed = packed[85:]
		if !size.IsInt64() || size.Int64() > int64(len(packed)) {
			return nil, errors.New("truncated multisend data")
		}
		tx.Data = common.CopyBytes(packed[:size.Int64()])
		packed = packed[size.Int64():]
		txs = append(txs, tx)
	}
	return txs, nil
}
