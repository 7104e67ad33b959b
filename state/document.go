package state

import (
	"sort"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/tendermint/tendermint/crypto/tmhash"
)

var (
	ErrMissingKey      = errors.New("missing key")
	ErrDeserialization = errors.New("deserialization error")
)

// canonical encodes documents with sorted object keys and exact numbers, so
// equal documents have equal bytes on every replica.
var canonical = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

// Document is one immutable version of the replicated key/value state.
// Values are stored as canonical JSON.
type Document struct {
	version int64
	data    map[string]jsoniter.RawMessage
}

func NewDocument() *Document {
	return &Document{data: make(map[string]jsoniter.RawMessage)}
}

// MakeDocument builds a version 0 document from values.
func MakeDocument(values map[string]interface{}) (*Document, error) {
	doc, err := NewDocument().Update(values)
	if err != nil {
		return nil, err
	}
	doc.version = 0
	return doc, nil
}

func (d *Document) Version() int64 {
	return d.version
}

func (d *Document) Has(key string) bool {
	_, ok := d.data[key]
	return ok
}

// Raw returns the canonical JSON stored under key.
func (d *Document) Raw(key string) (jsoniter.RawMessage, bool) {
	raw, ok := d.data[key]
	return raw, ok
}

func (d *Document) Keys() []string {
	keys := make([]string, 0, len(d.data))
	for k := range d.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (d *Document) Len() int {
	return len(d.data)
}

// Update returns the next version with the named keys overwritten.
// d itself is left untouched.
func (d *Document) Update(values map[string]interface{}) (*Document, error) {
	next := &Document{
		version: d.version + 1,
		data:    make(map[string]jsoniter.RawMessage, len(d.data)+len(values)),
	}
	for k, v := range d.data {
		next.data[k] = v
	}
	for k, v := range values {
		raw, err := canonicalize(v)
		if err != nil {
			return nil, errors.Wrapf(err, "update key %q", k)
		}
		next.data[k] = raw
	}
	return next, nil
}

// Bytes returns the canonical encoding of the key/value data.
func (d *Document) Bytes() []byte {
	bz, err := canonical.Marshal(d.data)
	if err != nil {
		// values are canonical JSON already
		panic(err)
	}
	return bz
}

// Hash is the application hash committed for this version.
func (d *Document) Hash() []byte {
	return tmhash.Sum(d.Bytes())
}

type documentJSON struct {
	Version int64                          `json:"version"`
	Data    map[string]jsoniter.RawMessage `json:"data"`
}

func (d *Document) MarshalJSON() ([]byte, error) {
	return canonical.Marshal(documentJSON{Version: d.version, Data: d.data})
}

func (d *Document) UnmarshalJSON(bz []byte) error {
	var dj documentJSON
	if err := canonical.Unmarshal(bz, &dj); err != nil {
		return errors.Wrap(ErrDeserialization, err.Error())
	}
	d.version = dj.Version
	d.data = make(map[string]jsoniter.RawMessage, len(dj.Data))
	for k, v := range dj.Data {
		raw, err := canonicalize(v)
		if err != nil {
			return err
		}
		d.data[k] = raw
	}
	return nil
}

// Get reads a required key. Absent keys fail with ErrMissingKey.
func Get[T any](d *Document, key string) (T, error) {
	var v T
	raw, ok := d.data[key]
	if !ok {
		return v, errors.Wrapf(ErrMissingKey, "%q", key)
	}
	if err := canonical.Unmarshal(raw, &v); err != nil {
		return v, errors.Wrapf(ErrDeserialization, "key %q: %v", key, err)
	}
	return v, nil
}

// GetOptional reads a key, returning def when it is absent, null or
// unreadable.
func GetOptional[T any](d *Document, key string, def T) T {
	raw, ok := d.data[key]
	if !ok || string(raw) == "null" {
		return def
	}
	var v T
	if err := canonical.Unmarshal(raw, &v); err != nil {
		return def
	}
	return v
}

// GetCollection reads a participant keyed collection.
func (d *Document) GetCollection(key string) (Collection, error) {
	raw, ok := d.data[key]
	if !ok {
		return nil, errors.Wrapf(ErrMissingKey, "%q", key)
	}
	var c Collection
	if err := canonical.Unmarshal(raw, &c); err != nil {
		return nil, errors.Wrapf(ErrDeserialization, "collection %q: %v", key, err)
	}
	if c == nil {
		return nil, errors.Wrapf(ErrDeserialization, "collection %q is null", key)
	}
	return c, nil
}

func canonicalize(v interface{}) (jsoniter.RawMessage, error) {
	bz, err := canonical.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic interface{}
	if err := canonical.Unmarshal(bz, &generic); err != nil {
		return nil, err
	}
	return canonical.Marshal(generic)
}
