package types

import (
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

var (
	ErrInvalidAddress = errors.New("invalid address")
)

// NullAddress is the zero account, used as gas token and refund receiver
// when none is set.
const NullAddress = "0x0000000000000000000000000000000000000000"

// Address identifies a participant or a contract in EIP-55 checksum form.
type Address string

func NewAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return "", errors.Wrapf(ErrInvalidAddress, "%q", s)
	}
	return Address(common.HexToAddress(s).Hex()), nil
}

// MustAddress is NewAddress for constants and tests.
func MustAddress(s string) Address {
	addr, err := NewAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}

func GetAddress(addr common.Address) Address {
	return Address(addr.Hex())
}

func (addr Address) Common() common.Address {
	return common.HexToAddress(string(addr))
}

func (addr Address) Equal(other Address) bool {
	if addr == "" || other == "" {
		return false
	}
	return addr.Common() == other.Common()
}

func (addr Address) String() string {
	return string(addr)
}

// ParseAddresses parses a list of hex addresses, rejecting duplicates.
func ParseAddresses(ss []string) ([]Address, error) {
	seen := make(map[Address]struct{}, len(ss))
	addrs := make([]Address, 0, len(ss))
	for _, s := range ss {
		addr, err := NewAddress(s)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[addr]; ok {
			return nil, errors.Errorf("duplicate address %s", addr)
		}
		seen[addr] = struct{}{}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

// SortAddresses sorts addrs in place by their string form.
func SortAddresses(addrs []Address) {
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
}
