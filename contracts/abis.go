package contracts

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var (
	// RealEstateABI is the marketplace: getPropertiesForSale() and buyProperty(uint256).
	RealEstateABI = `[
{"inputs":[],"name":"getPropertiesForSale","outputs":[{"components":[{"internalType":"uint256","name":"id","type":"uint256"},{"internalType":"address","name":"owner","type":"address"},{"internalType":"string","name":"location","type":"string"},{"internalType":"uint256","name":"price","type":"uint256"},{"internalType":"bool","name":"forSale","type":"bool"}],"internalType":"struct RealEstate.Property[]","name":"","type":"tuple[]"}],"stateMutability":"view","type":"function"},
{"inputs":[{"internalType":"uint256","name":"_propertyId","type":"uint256"}],"name":"buyProperty","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

	ERC20ABI = `[
{"inputs":[{"internalType":"address","name":"spender","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"}],"name":"approve","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

	MultiSendABI = `[
{"inputs":[{"internalType":"bytes","name":"transactions","type":"bytes"}],"name":"multiSend","outputs":[],"stateMutability":"payable","type":"function"}
]`

	GnosisSafeABI = `[
{"inputs":[],"name":"nonce","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[{"internalType":"address","name":"to","type":"address"},{"internalType":"uint256","name":"value","type":"uint256"},{"internalType":"bytes","name":"data","type":"bytes"},{"internalType":"enum Enum.Operation","name":"operation","type":"uint8"},{"internalType":"uint256","name":"safeTxGas","type":"uint256"},{"internalType":"uint256","name":"baseGas","type":"uint256"},{"internalType":"uint256","name":"gasPrice","type":"uint256"},{"internalType":"address","name":"gasToken","type":"address"},{"internalType":"address","name":"refundReceiver","type":"address"},{"internalType":"uint256","name":"_nonce","type":"uint256"}],"name":"getTransactionHash","outputs":[{"internalType":"bytes32","name":"","type":"bytes32"}],"stateMutability":"view","type":"function"}
]`
)

var (
	realEstateABI abi.ABI
	erc20ABI      abi.ABI
	multiSendABI  abi.ABI
	gnosisSafeABI abi.ABI
)

func init() {
	for _, parsed := range []struct {
		dst  *abi.ABI
		json string
	}{
		{&realEstateABI, RealEstateABI},
		{&erc20ABI, ERC20ABI},
		{&multiSendABI, MultiSendABI},
		{&gnosisSafeABI, GnosisSafeABI},
	} {
		a, err := abi.JSON(strings.NewReader(parsed.json))
		if err != nil {
			panic(err)
		}
		*parsed.dst = a
	}
}

// OnChainProperty is one row of getPropertiesForSale.
type OnChainProperty struct {
	Id       *big.Int
	Owner    common.Address
	Location string
	Price    *big.Int
	ForSale  bool
}

// Row returns the property in contract field order
// [id, owner, location, price, forSale], the form stored in snapshots.
func (p OnChainProperty) Row() []interface{} {
	return []interface{}{p.Id, p.Owner.Hex(), p.Location, p.Price, p.ForSale}
}
