package types

import (
	"github.com/ethereum/go-ethereum/crypto"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/tendermint/tendermint/crypto/tmhash"
	tmbytes "github.com/tendermint/tendermint/libs/bytes"
)

var (
	ErrInvalidSignature = errors.New("invalid payload signature")
	ErrMalformedTx      = errors.New("malformed payload transaction")
)

// Tx is the signed envelope a participant broadcasts through the
// replication engine. RoundCount pins the payload to one round instance.
type Tx struct {
	Kind       PayloadKind         `json:"kind"`
	Sender     Address             `json:"sender"`
	RoundCount int64               `json:"round_count"`
	Body       jsoniter.RawMessage `json:"body"`
	Signature  tmbytes.HexBytes    `json:"signature,omitempty"`
}

func NewTx(sender Address, roundCount int64, p Payload) (*Tx, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(err, "encode payload")
	}
	return &Tx{
		Kind:       p.Kind(),
		Sender:     sender,
		RoundCount: roundCount,
		Body:       body,
	}, nil
}

// DecodeTx decodes the wire form produced by Tx.Bytes.
func DecodeTx(bz []byte) (*Tx, error) {
	tx := &Tx{}
	if err := json.Unmarshal(bz, tx); err != nil {
		return nil, errors.Wrap(ErrMalformedTx, err.Error())
	}
	if err := tx.ValidateBasic(); err != nil {
		return nil, err
	}
	return tx, nil
}

func (tx *Tx) ValidateBasic() error {
	if tx.Kind == "" || len(tx.Body) == 0 {
		return errors.Wrap(ErrMalformedTx, "missing kind or body")
	}
	if _, err := NewAddress(string(tx.Sender)); err != nil {
		return errors.Wrap(ErrMalformedTx, err.Error())
	}
	if tx.RoundCount < 0 {
		return errors.Wrap(ErrMalformedTx, "negative round count")
	}
	return nil
}

func (tx *Tx) Bytes() ([]byte, error) {
	return json.Marshal(tx)
}

func (tx *Tx) Hash() []byte {
	bz, _ := tx.Bytes()
	return tmhash.Sum(bz)
}

// SignBytes is the keccak256 digest of the envelope without its signature.
func (tx *Tx) SignBytes() ([]byte, error) {
	unsigned := *tx
	unsigned.Signature = nil
	bz, err := json.Marshal(&unsigned)
	if err != nil {
		return nil, err
	}
	return crypto.Keccak256(bz), nil
}

// VerifySignature recovers the signer and checks it is the sender.
func (tx *Tx) VerifySignature() error {
	if len(tx.Signature) != crypto.SignatureLength {
		return errors.Wrap(ErrInvalidSignature, "bad signature length")
	}
	digest, err := tx.SignBytes()
	if err != nil {
		return err
	}
	pub, err := crypto.SigToPub(digest, tx.Signature)
	if err != nil {
		return errors.Wrap(ErrInvalidSignature, err.Error())
	}
	if !GetAddress(crypto.PubkeyToAddress(*pub)).Equal(tx.Sender) {
		return errors.Wrapf(ErrInvalidSignature, "signer is not %s", tx.Sender)
	}
	return nil
}

func (tx *Tx) Payload() (Payload, error) {
	return DecodePayload(tx.Kind, tx.Body)
}
