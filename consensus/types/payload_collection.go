package types

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/Tanuj-solulab/learning-service-real-estate/state"
	"github.com/Tanuj-solulab/learning-service-real-estate/types"
)

var (
	ErrConflictingPayload = errors.New("conflicting payload from participant")
	ErrNotParticipant     = errors.New("sender is not a participant")
)

// PayloadCollection holds at most one payload per participant of a round and
// counts identical payloads.
type PayloadCollection struct {
	participants map[types.Address]struct{}

	payloads map[types.Address]types.Payload
	keys     map[types.Address]string

	counts map[string]int
	byKey  map[string]types.Payload
}

func NewPayloadCollection(participants []types.Address) *PayloadCollection {
	pc := &PayloadCollection{
		participants: make(map[types.Address]struct{}, len(participants)),
		payloads:     make(map[types.Address]types.Payload),
		keys:         make(map[types.Address]string),
		counts:       make(map[string]int),
		byKey:        make(map[string]types.Payload),
	}
	for _, p := range participants {
		pc.participants[p] = struct{}{}
	}
	return pc
}

// Check reports whether Add would accept the payload, without adding it.
// A resubmission of the identical payload is accepted.
func (pc *PayloadCollection) Check(sender types.Address, payload types.Payload) (string, error) {
	if _, ok := pc.participants[sender]; !ok {
		return "", errors.Wrapf(ErrNotParticipant, "%s", sender)
	}
	key, err := types.PayloadKey(payload)
	if err != nil {
		return "", err
	}
	if prev, ok := pc.keys[sender]; ok && prev != key {
		return "", errors.Wrapf(ErrConflictingPayload, "%s", sender)
	}
	return key, nil
}

// Add records the payload. It returns false, with no error, when the same
// payload was already recorded for sender.
func (pc *PayloadCollection) Add(sender types.Address, payload types.Payload) (bool, error) {
	key, err := pc.Check(sender, payload)
	if err != nil {
		return false, err
	}
	if _, ok := pc.keys[sender]; ok {
		return false, nil
	}
	pc.payloads[sender] = payload
	pc.keys[sender] = key
	pc.counts[key]++
	if _, ok := pc.byKey[key]; !ok {
		pc.byKey[key] = payload
	}
	return true, nil
}

func (pc *PayloadCollection) Has(sender types.Address) bool {
	_, ok := pc.keys[sender]
	return ok
}

func (pc *PayloadCollection) Get(sender types.Address) (types.Payload, bool) {
	p, ok := pc.payloads[sender]
	return p, ok
}

// Len is the number of participants that submitted.
func (pc *PayloadCollection) Len() int {
	return len(pc.payloads)
}

func (pc *PayloadCollection) NbParticipants() int {
	return len(pc.participants)
}

// MostVoted returns the payload with the highest count and that count.
// Ties go to the smallest canonical encoding.
func (pc *PayloadCollection) MostVoted() (types.Payload, int) {
	bestKey, bestCount := "", 0
	for key, count := range pc.counts {
		if count > bestCount || (count == bestCount && key < bestKey) {
			bestKey, bestCount = key, count
		}
	}
	if bestCount == 0 {
		return nil, 0
	}
	return pc.byKey[bestKey], bestCount
}

func (pc *PayloadCollection) CountOf(payload types.Payload) int {
	key, err := types.PayloadKey(payload)
	if err != nil {
		return 0
	}
	return pc.counts[key]
}

// Senders returns the participants that submitted, sorted.
func (pc *PayloadCollection) Senders() []types.Address {
	senders := make([]types.Address, 0, len(pc.keys))
	for s := range pc.keys {
		senders = append(senders, s)
	}
	sort.Slice(senders, func(i, j int) bool { return senders[i] < senders[j] })
	return senders
}

// IsThresholdReached reports whether some payload has at least threshold
// submissions.
func (pc *PayloadCollection) IsThresholdReached(threshold int) bool {
	_, count := pc.MostVoted()
	return threshold > 0 && count >= threshold
}

// IsMajorityPossible reports whether some payload can still reach threshold.
func (pc *PayloadCollection) IsMajorityPossible(threshold int) bool {
	_, count := pc.MostVoted()
	return types.IsMajorityPossible(pc.NbParticipants(), pc.Len(), count, threshold)
}

// Collection returns the submissions as a document collection.
func (pc *PayloadCollection) Collection() state.Collection {
	c := make(state.Collection, len(pc.keys))
	for sender, key := range pc.keys {
		c[sender.String()] = []byte(key)
	}
	return c
}
