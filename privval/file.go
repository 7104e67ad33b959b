package privval

import (
	"crypto/ecdsa"
	"fmt"
	"io/ioutil"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	tmjson "github.com/tendermint/tendermint/libs/json"
	tmos "github.com/tendermint/tendermint/libs/os"
	"github.com/tendermint/tendermint/libs/tempfile"

	"github.com/Tanuj-solulab/learning-service-real-estate/types"
)

//-------------------------------------------------------------------------------

// FilePVKey stores the agent key. The address is the checksummed EVM address
// of the key and identifies the agent as a participant.
type FilePVKey struct {
	Address types.Address `json:"address"`
	PrivKey string        `json:"priv_key"`

	key      *ecdsa.PrivateKey
	filePath string
}

// Save persists the FilePVKey to its filePath.
func (pvKey FilePVKey) Save() {
	outFile := pvKey.filePath
	if outFile == "" {
		panic("cannot save agent key: filePath not set")
	}

	jsonBytes, err := tmjson.MarshalIndent(pvKey, "", "  ")
	if err != nil {
		panic(err)
	}
	err = tempfile.WriteFileAtomic(outFile, jsonBytes, 0600)
	if err != nil {
		panic(err)
	}
}

//-------------------------------------------------------------------------------

// FilePV implements types.PrivAgent using a key persisted to disk.
// NOTE: the directory containing pv.Key.filePath must already exist.
type FilePV struct {
	Key FilePVKey
}

var _ types.PrivAgent = (*FilePV)(nil)

// NewFilePV wraps key; it does not call Save().
func NewFilePV(key *ecdsa.PrivateKey, keyFilePath string) *FilePV {
	return &FilePV{
		Key: FilePVKey{
			Address:  types.GetAddress(crypto.PubkeyToAddress(key.PublicKey)),
			PrivKey:  hexutil.Encode(crypto.FromECDSA(key)),
			key:      key,
			filePath: keyFilePath,
		},
	}
}

// GenFilePV generates a new agent key and sets the filePath, but does not
// call Save().
func GenFilePV(keyFilePath string) *FilePV {
	key, err := crypto.GenerateKey()
	if err != nil {
		panic(err)
	}
	return NewFilePV(key, keyFilePath)
}

// LoadFilePV loads a FilePV from keyFilePath.
func LoadFilePV(keyFilePath string) (*FilePV, error) {
	keyJSONBytes, err := ioutil.ReadFile(keyFilePath)
	if err != nil {
		return nil, err
	}
	pvKey := FilePVKey{}
	if err := tmjson.Unmarshal(keyJSONBytes, &pvKey); err != nil {
		return nil, errors.Wrapf(err, "error reading agent key from %v", keyFilePath)
	}
	raw, err := hexutil.Decode(pvKey.PrivKey)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading agent key from %v", keyFilePath)
	}
	key, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading agent key from %v", keyFilePath)
	}

	// the address is always derived from the key
	pv := NewFilePV(key, keyFilePath)
	if pvKey.Address != "" && !pvKey.Address.Equal(pv.Key.Address) {
		return nil, errors.Errorf("agent key file %v: address %v does not match key", keyFilePath, pvKey.Address)
	}
	return pv, nil
}

// LoadOrGenFilePV loads a FilePV from keyFilePath or else generates a new
// one and saves it there.
func LoadOrGenFilePV(keyFilePath string) (*FilePV, error) {
	if tmos.FileExists(keyFilePath) {
		return LoadFilePV(keyFilePath)
	}
	pv := GenFilePV(keyFilePath)
	pv.Save()
	return pv, nil
}

// GetAddress returns the participant address of the agent.
func (pv *FilePV) GetAddress() types.Address {
	return pv.Key.Address
}

// PrivateKey exposes the key for the ledger signer.
func (pv *FilePV) PrivateKey() *ecdsa.PrivateKey {
	return pv.Key.key
}

// SignTx signs the payload envelope.
func (pv *FilePV) SignTx(tx *types.Tx) error {
	if err := types.SignTx(tx, pv.Key.key); err != nil {
		return fmt.Errorf("error signing payload: %v", err)
	}
	return nil
}

// Save persists the FilePV to disk.
func (pv *FilePV) Save() {
	pv.Key.Save()
}

// String returns a string representation of the FilePV.
func (pv *FilePV) String() string {
	return fmt.Sprintf("PrivAgent{%v}", pv.GetAddress())
}
