package contracts

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"

	"github.com/Tanuj-solulab/learning-service-real-estate/types"
)

var ErrMalformedSettlementPayload = errors.New("malformed settlement payload")

// SettlementPayload is everything the settlement stage needs to execute an
// agreed Safe transaction.
type SettlementPayload struct {
	SafeTxHash              string
	EtherValue              *big.Int
	SafeTxGas               *big.Int
	ToAddress               string
	Operation               SafeOperation
	BaseGas                 *big.Int
	SafeGasPrice            *big.Int
	GasToken                string
	RefundReceiver          string
	UseFlashbots            bool
	GasLimit                *big.Int
	RaiseOnFailedSimulation bool
	Data                    []byte
}

// NewSettlementPayload fills the defaults: no refunds, no flashbots.
func NewSettlementPayload(safeTxHash string, value, safeTxGas *big.Int, to string, data []byte, operation SafeOperation) *SettlementPayload {
	return &SettlementPayload{
		SafeTxHash:     safeTxHash,
		EtherValue:     value,
		SafeTxGas:      safeTxGas,
		ToAddress:      to,
		Operation:      operation,
		GasToken:       types.NullAddress,
		RefundReceiver: types.NullAddress,
		Data:           data,
	}
}

const (
	hashLen    = 64
	wordLen    = 64
	addressLen = 42
	opLen      = 2
)

func hexWord(v *big.Int) (string, error) {
	if v == nil {
		v = new(big.Int)
	}
	if v.Sign() < 0 || v.BitLen() > 256 {
		return "", errors.Wrapf(ErrMalformedSettlementPayload, "%s does not fit 32 bytes", v)
	}
	return common.Bytes2Hex(common.LeftPadBytes(v.Bytes(), 32)), nil
}

func boolWord(b bool) string {
	if b {
		return hexWordUnchecked(1)
	}
	return hexWordUnchecked(0)
}

func hexWordUnchecked(v int64) string {
	return common.Bytes2Hex(common.LeftPadBytes(big.NewInt(v).Bytes(), 32))
}

// HashPayloadToHex concatenates the settlement fields:
//
//	safe tx hash (64 hex) | value (32 bytes) | safe tx gas (32 bytes) |
//	to (0x + 40 hex) | operation (1 byte) | base gas (32 bytes) |
//	safe gas price (32 bytes) | gas token (0x + 40 hex) |
//	refund receiver (0x + 40 hex) | use flashbots (32 bytes) |
//	gas limit (32 bytes) | raise on failed simulation (32 bytes) | data
func HashPayloadToHex(p *SettlementPayload) (string, error) {
	if len(p.SafeTxHash) != hashLen {
		return "", errors.Wrapf(ErrMalformedSettlementPayload, "safe tx hash has length %d", len(p.SafeTxHash))
	}
	for _, addr := range []string{p.ToAddress, p.GasToken, p.RefundReceiver} {
		if len(addr) != addressLen {
			return "", errors.Wrapf(ErrMalformedSettlementPayload, "address %q", addr)
		}
	}
	var sb strings.Builder
	sb.WriteString(p.SafeTxHash)
	for _, v := range []*big.Int{p.EtherValue, p.SafeTxGas} {
		w, err := hexWord(v)
		if err != nil {
			return "", err
		}
		sb.WriteString(w)
	}
	sb.WriteString(p.ToAddress)
	sb.WriteString(common.Bytes2Hex([]byte{byte(p.Operation)}))
	for _, v := range []*big.Int{p.BaseGas, p.SafeGasPrice} {
		w, err := hexWord(v)
		if err != nil {
			return "", err
		}
		sb.WriteString(w)
	}
	sb.WriteString(p.GasToken)
	sb.WriteString(p.RefundReceiver)
	sb.WriteString(boolWord(p.UseFlashbots))
	w, err := hexWord(p.GasLimit)
	if err != nil {
		return "", err
	}
	sb.WriteString(w)
	sb.WriteString(boolWord(p.RaiseOnFailedSimulation))
	sb.WriteString(common.Bytes2Hex(p.Data))
	return sb.String(), nil
}

// DecodeHashPayload parses the output of HashPayloadToHex.
func DecodeHashPayload(payload string) (*SettlementPayload, error) {
	r := &hexReader{s: payload}
	p := &SettlementPayload{}
	p.SafeTxHash = r.take(hashLen)
	p.EtherValue = r.word()
	p.SafeTxGas = r.word()
	p.ToAddress = r.take(addressLen)
	p.Operation = SafeOperation(r.readInt(opLen).Int64())
	p.BaseGas = r.word()
	p.SafeGasPrice = r.word()
	p.GasToken = r.take(addressLen)
	p.RefundReceiver = r.take(addressLen)
	p.UseFlashbots = r.word().Sign() != 0
	p.GasLimit = r.word()
	p.RaiseOnFailedSimulation = r.word().Sign() != 0
	if r.err != nil {
		return nil, r.err
	}
	data, err := hexutil.Decode("0x" + r.s)
	if err != nil {
		return nil, errors.Wrap(ErrMalformedSettlementPayload, err.Error())
	}
	p.Data = data
	return p, nil
}

type hexReader struct {
	s   string
	err error
}

func (r *hexReader) take(n int) string {
	if r.err != nil {
		return ""
	}
	if len(r.s) < n {
		r.err = errors.Wrap(ErrMalformedSettlementPayload, "truncated")
		return ""
	}
	out := r.s[:n]
	r.s = r.s[n:]
	return out
}

func (r *hexReader) readInt(n int) *big.Int {
	s := r.take(n)
	v := new(big.Int)
	if r.err != nil {
		return v
	}
	if _, ok := v.SetString(s, 16); !ok {
		r.err = errors.Wrapf(ErrMalformedSettlementPayload, "not hex: %q", s)
	}
	return v
}

func (r *hexReader) word() *big.Int {
	return r.readInt(wordLen)
}
