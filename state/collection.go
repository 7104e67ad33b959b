package state

import (
	"sort"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// Collection maps a participant address to the payload it submitted.
// One entry per participant; encoding is sorted by participant.
type Collection map[string]jsoniter.RawMessage

func (c Collection) Participants() []string {
	ps := make([]string, 0, len(c))
	for p := range c {
		ps = append(ps, p)
	}
	sort.Strings(ps)
	return ps
}

// Decode reads the payload of participant into v.
func (c Collection) Decode(participant string, v interface{}) error {
	raw, ok := c[participant]
	if !ok {
		return errors.Wrapf(ErrMissingKey, "participant %s", participant)
	}
	if err := canonical.Unmarshal(raw, v); err != nil {
		return errors.Wrapf(ErrDeserialization, "participant %s: %v", participant, err)
	}
	return nil
}
