package store

import (
	"bytes"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/tendermint/tendermint/libs/log"
	tmdb "github.com/tendermint/tm-db"

	"github.com/Tanuj-solulab/learning-service-real-estate/state"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	tableDocument = "doc:"
	tableState    = "state:"
	tableBlob     = "blob:"

	latestKey = "latest"
)

var (
	ErrNotFound = errors.New("not found")
)

var _ state.Store = (*KVStore)(nil)

func NewKVStore(name, dir string, logger log.Logger) (*KVStore, error) {
	levelDB, err := tmdb.NewGoLevelDB(name, dir)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s in %s", name, dir)
	}
	return NewKVStoreWithDB(levelDB, logger), nil
}

func NewKVStoreWithDB(kvdb tmdb.DB, logger log.Logger) *KVStore {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &KVStore{kvDB: kvdb, logger: logger}
}

// KVStore keeps every committed document version and the latest state.
//
//	doc:<height>   document committed at height
//	state:latest   header of the latest committed state
//	blob:<hash>    content addressed blobs, see DBBlobStore
type KVStore struct {
	kvDB tmdb.DB

	logger log.Logger
}

type stateRecord struct {
	ChainID         string    `json:"chain_id"`
	LastBlockHeight int64     `json:"last_block_height"`
	LastBlockTime   time.Time `json:"last_block_time"`
	RoundType       string    `json:"round_type"`
	RoundCount      int64     `json:"round_count"`
	AppHash         []byte    `json:"app_hash"`
}

// SaveState writes the document of s at its height and moves the latest
// pointer, in one batch.
func (kv *KVStore) SaveState(s state.State) error {
	if s.IsEmpty() {
		return errors.New("save empty state")
	}
	docBytes, err := s.Data.Document().MarshalJSON()
	if err != nil {
		return err
	}
	header, err := json.Marshal(stateRecord{
		ChainID:         s.ChainID,
		LastBlockHeight: s.LastBlockHeight,
		LastBlockTime:   s.LastBlockTime,
		RoundType:       s.RoundType,
		RoundCount:      s.RoundCount,
		AppHash:         s.AppHash,
	})
	if err != nil {
		return err
	}

	batch := kv.kvDB.NewBatch()
	defer batch.Close()

	if err := batch.Set(genKey(tableDocument, s.LastBlockHeight), docBytes); err != nil {
		return err
	}
	if err := batch.Set(genKey(tableDocument, latestKey), docBytes); err != nil {
		return err
	}
	if err := batch.Set(genKey(tableState, latestKey), header); err != nil {
		return err
	}
	if err := batch.Write(); err != nil {
		return err
	}
	kv.logger.Debug("saved state", "height", s.LastBlockHeight, "round", s.RoundType, "version", s.Data.Document().Version())
	return nil
}

// LoadState returns the latest committed state, or an empty state when
// nothing was committed yet.
func (kv *KVStore) LoadState() (state.State, error) {
	header, err := kv.kvDB.Get(genKey(tableState, latestKey))
	if err != nil {
		return state.State{}, err
	}
	if header == nil {
		return state.State{}, nil
	}
	var rec stateRecord
	if err := json.Unmarshal(header, &rec); err != nil {
		return state.State{}, errors.Wrap(err, "decode state")
	}
	doc, err := kv.loadDocument(genKey(tableDocument, latestKey))
	if err != nil {
		return state.State{}, err
	}
	return state.State{
		ChainID:         rec.ChainID,
		LastBlockHeight: rec.LastBlockHeight,
		LastBlockTime:   rec.LastBlockTime,
		RoundType:       rec.RoundType,
		RoundCount:      rec.RoundCount,
		Data:            state.NewSynchronizedData(doc),
		AppHash:         rec.AppHash,
	}, nil
}

func (kv *KVStore) LoadDocument(height int64) (*state.Document, error) {
	return kv.loadDocument(genKey(tableDocument, height))
}

func (kv *KVStore) loadDocument(key []byte) (*state.Document, error) {
	bz, err := kv.kvDB.Get(key)
	if err != nil {
		return nil, err
	}
	if bz == nil {
		return nil, errors.Wrapf(ErrNotFound, "document %s", key)
	}
	doc := state.NewDocument()
	if err := doc.UnmarshalJSON(bz); err != nil {
		return nil, errors.Wrap(err, "decode document")
	}
	return doc, nil
}

func (kv *KVStore) GetDB() tmdb.DB {
	return kv.kvDB
}

func (kv *KVStore) Close() error {
	return kv.kvDB.Close()
}

func genKey(table string, primaryKey interface{}) []byte {
	buffer := new(bytes.Buffer)
	buffer.WriteString(table)
	switch k := primaryKey.(type) {
	case int64:
		buffer.WriteString(strconv.FormatInt(k, 10))
	case string:
		buffer.WriteString(k)
	case []byte:
		buffer.Write(k)
	default:
		panic(errors.Errorf("unsupported key type %T", primaryKey))
	}
	return buffer.Bytes()
}
