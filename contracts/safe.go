package contracts

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	domainSeparatorTypeHash = crypto.Keccak256Hash([]byte("EIP712Domain(uint256 chainId,address verifyingContract)"))
	safeTxTypeHash          = crypto.Keccak256Hash([]byte("SafeTx(address to,uint256 value,bytes data,uint8 operation,uint256 safeTxGas,uint256 baseGas,uint256 gasPrice,address gasToken,address refundReceiver,uint256 nonce)"))
)

// SafeTx is a transaction executed by a Gnosis Safe.
type SafeTx struct {
	To             common.Address
	Value          *big.Int
	Data           []byte
	Operation      SafeOperation
	SafeTxGas      *big.Int
	BaseGas        *big.Int
	GasPrice       *big.Int
	GasToken       common.Address
	RefundReceiver common.Address
	Nonce          *big.Int
}

func word(v *big.Int) []byte {
	if v == nil {
		return make([]byte, 32)
	}
	return common.LeftPadBytes(v.Bytes(), 32)
}

// SafeTxHash is the EIP-712 hash the Safe owners sign, for Safe 1.3 and later.
func SafeTxHash(chainID *big.Int, safe common.Address, tx SafeTx) common.Hash {
	domain := crypto.Keccak256(
		domainSeparatorTypeHash.Bytes(),
		word(chainID),
		common.LeftPadBytes(safe.Bytes(), 32),
	)
	structHash := crypto.Keccak256(
		safeTxTypeHash.Bytes(),
		common.LeftPadBytes(tx.To.Bytes(), 32),
		word(tx.Value),
		crypto.Keccak256(tx.Data),
		word(big.NewInt(int64(tx.Operation))),
		word(tx.SafeTxGas),
		word(tx.BaseGas),
		word(tx.GasPrice),
		common.LeftPadBytes(tx.GasToken.Bytes(), 32),
		common.LeftPadBytes(tx.RefundReceiver.Bytes(), 32),
		word(tx.Nonce),
	)
	return crypto.Keccak256Hash([]byte{0x19, 0x01}, domain, structHash)
}
