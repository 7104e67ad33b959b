package store

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/tendermint/tendermint/crypto/tmhash"
	tmdb "github.com/tendermint/tm-db"
)

// blob hashes are base16 CIDv1 strings: dag-pb, sha2-256, 32 bytes
const cidPrefix = "f01701220"

var (
	ErrBlobNotFound  = errors.New("blob not found")
	ErrBlobCorrupted = errors.New("blob content does not match its hash")
)

// BlobStore is a content addressed object store. Put returns the hash other
// agents use to Get the same object.
type BlobStore interface {
	Put(ctx context.Context, name string, v interface{}) (string, error)
	Get(ctx context.Context, hash string, v interface{}) error
}

var blobJSON = jsoniter.Config{
	SortMapKeys: true,
	EscapeHTML:  true,
	UseNumber:   true,
}.Froze()

// EncodeBlob returns the canonical encoding of v and its hash.
func EncodeBlob(v interface{}) ([]byte, string, error) {
	bz, err := blobJSON.Marshal(v)
	if err != nil {
		return nil, "", errors.Wrap(err, "encode blob")
	}
	// round trip through a generic value so struct field order does not matter
	var generic interface{}
	if err := blobJSON.Unmarshal(bz, &generic); err != nil {
		return nil, "", errors.Wrap(err, "encode blob")
	}
	if bz, err = blobJSON.Marshal(generic); err != nil {
		return nil, "", errors.Wrap(err, "encode blob")
	}
	return bz, BlobHash(bz), nil
}

func BlobHash(content []byte) string {
	return cidPrefix + common.Bytes2Hex(tmhash.Sum(content))
}

func IsBlobHash(hash string) bool {
	return len(hash) == len(cidPrefix)+2*tmhash.Size && strings.HasPrefix(hash, cidPrefix)
}

func decodeBlob(hash string, content []byte, v interface{}) error {
	if BlobHash(content) != hash {
		return errors.Wrapf(ErrBlobCorrupted, "%s", hash)
	}
	if err := blobJSON.Unmarshal(content, v); err != nil {
		return errors.Wrapf(err, "decode blob %s", hash)
	}
	return nil
}

// DBBlobStore keeps blobs in a tm-db database under "blob:<hash>".
type DBBlobStore struct {
	db tmdb.DB
}

var _ BlobStore = (*DBBlobStore)(nil)

func NewDBBlobStore(db tmdb.DB) *DBBlobStore {
	return &DBBlobStore{db: db}
}

// Blobs returns a blob store sharing the document database.
func (kv *KVStore) Blobs() *DBBlobStore {
	return NewDBBlobStore(kv.kvDB)
}

func (bs *DBBlobStore) Put(ctx context.Context, name string, v interface{}) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	content, hash, err := EncodeBlob(v)
	if err != nil {
		return "", err
	}
	if err := bs.db.Set(genKey(tableBlob, hash), content); err != nil {
		return "", errors.Wrapf(err, "store blob %s", name)
	}
	return hash, nil
}

func (bs *DBBlobStore) Get(ctx context.Context, hash string, v interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	content, err := bs.db.Get(genKey(tableBlob, hash))
	if err != nil {
		return err
	}
	if content == nil {
		return errors.Wrapf(ErrBlobNotFound, "%s", hash)
	}
	return decodeBlob(hash, content, v)
}
