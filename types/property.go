package types

import (
	"math/big"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

const (
	// ListedPropertiesFile is the blob name of the property snapshot.
	ListedPropertiesFile = "ListedProperties.json"

	propertyIDIndex    = 0
	propertyValueIndex = 3
)

var (
	ErrMalformedProperty = errors.New("malformed property")
)

// Property is one row returned by getPropertiesForSale:
// [id, owner, location, price, for_sale].
type Property []jsoniter.RawMessage

// PropertyListing is the snapshot persisted to blob storage.
type PropertyListing struct {
	Properties []Property `json:"Properties for sale: "`
}

func (p Property) field(i int) (jsoniter.RawMessage, error) {
	if i >= len(p) {
		return nil, errors.Wrapf(ErrMalformedProperty, "row has %d fields", len(p))
	}
	return p[i], nil
}

// ID returns the property identifier exactly as listed.
func (p Property) ID() (jsoniter.RawMessage, error) {
	return p.field(propertyIDIndex)
}

// RawValue returns the property price exactly as listed.
func (p Property) RawValue() (jsoniter.RawMessage, error) {
	return p.field(propertyValueIndex)
}

// Value returns the property price as an integer.
func (p Property) Value() (*big.Int, error) {
	raw, err := p.RawValue()
	if err != nil {
		return nil, err
	}
	return ParseBigInt(raw)
}

// ParseBigInt parses a JSON number or a decimal string.
func ParseBigInt(raw []byte) (*big.Int, error) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errors.Wrapf(ErrMalformedProperty, "not an integer: %s", raw)
	}
	return v, nil
}
