package types

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// PrivAgent signs payload transactions on behalf of one participant.
type PrivAgent interface {
	GetAddress() Address
	SignTx(tx *Tx) error
}

// SignTx sets the signature of tx with key. The sender must be the key's
// address.
func SignTx(tx *Tx, key *ecdsa.PrivateKey) error {
	if addr := GetAddress(crypto.PubkeyToAddress(key.PublicKey)); !addr.Equal(tx.Sender) {
		return errors.Errorf("cannot sign for %s with key of %s", tx.Sender, addr)
	}
	digest, err := tx.SignBytes()
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		return err
	}
	tx.Signature = sig
	return nil
}

// MockPA is an in-memory PrivAgent, for tests.
type MockPA struct {
	key *ecdsa.PrivateKey
}

var _ PrivAgent = MockPA{}

func NewMockPA() MockPA {
	key, err := crypto.GenerateKey()
	if err != nil {
		panic(err)
	}
	return MockPA{key: key}
}

func (pa MockPA) GetAddress() Address {
	return GetAddress(crypto.PubkeyToAddress(pa.key.PublicKey))
}

func (pa MockPA) SignTx(tx *Tx) error {
	return SignTx(tx, pa.key)
}

func (pa MockPA) String() string {
	return fmt.Sprintf("MockPA{%v}", pa.GetAddress())
}
