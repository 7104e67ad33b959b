package state

import (
	"encoding/json"
	"math/big"

	"github.com/pkg/errors"

	"github.com/Tanuj-solulab/learning-service-real-estate/types"
)

// document keys
const (
	KeyAllParticipants         = "all_participants"
	KeyParticipants            = "participants"
	KeySafeContractAddress     = "safe_contract_address"
	KeyConsensusThreshold      = "consensus_threshold"
	KeyPeriodCount             = "period_count"
	KeyPrice                   = "price"
	KeyIPFSHash                = "ipfs_hash"
	KeyParticipantToPriceRound = "participant_to_price_round"
	KeyPropertyID              = "property_id"
	KeyPropertyValue           = "property_value"
	KeyParticipantToTxRound    = "participant_to_tx_round"
	KeyTxSubmitter             = "tx_submitter"
	KeyMostVotedTxHash         = "most_voted_tx_hash"
)

// SynchronizedData wraps a Document with typed accessors.
type SynchronizedData struct {
	doc *Document
}

func NewSynchronizedData(doc *Document) *SynchronizedData {
	return &SynchronizedData{doc: doc}
}

// MakeSetupData builds the document a period starts from.
func MakeSetupData(participants []types.Address, safeContractAddress types.Address, threshold int) (*SynchronizedData, error) {
	if len(participants) == 0 {
		return nil, errors.New("no participants")
	}
	if err := types.ValidateThreshold(threshold, len(participants)); err != nil {
		return nil, err
	}
	sorted := make([]types.Address, len(participants))
	copy(sorted, participants)
	types.SortAddresses(sorted)

	values := map[string]interface{}{
		KeyAllParticipants:     sorted,
		KeyParticipants:        sorted,
		KeySafeContractAddress: safeContractAddress,
		KeyPeriodCount:         0,
	}
	if threshold > 0 {
		values[KeyConsensusThreshold] = threshold
	}
	doc, err := MakeDocument(values)
	if err != nil {
		return nil, err
	}
	return NewSynchronizedData(doc), nil
}

func (s *SynchronizedData) Document() *Document {
	return s.doc
}

func (s *SynchronizedData) Update(values map[string]interface{}) (*SynchronizedData, error) {
	doc, err := s.doc.Update(values)
	if err != nil {
		return nil, err
	}
	return NewSynchronizedData(doc), nil
}

func (s *SynchronizedData) AllParticipants() ([]types.Address, error) {
	return Get[[]types.Address](s.doc, KeyAllParticipants)
}

// Participants are the agents expected to submit in the current period.
func (s *SynchronizedData) Participants() ([]types.Address, error) {
	return Get[[]types.Address](s.doc, KeyParticipants)
}

func (s *SynchronizedData) NbParticipants() (int, error) {
	ps, err := s.Participants()
	if err != nil {
		return 0, err
	}
	return len(ps), nil
}

// ConsensusThreshold returns the configured threshold, or ceil(2n/3).
func (s *SynchronizedData) ConsensusThreshold() (int, error) {
	n, err := s.NbParticipants()
	if err != nil {
		return 0, err
	}
	threshold := GetOptional(s.doc, KeyConsensusThreshold, 0)
	if threshold == 0 {
		return types.QuorumThreshold(n), nil
	}
	if err := types.ValidateThreshold(threshold, n); err != nil {
		return 0, err
	}
	return threshold, nil
}

func (s *SynchronizedData) SafeContractAddress() (types.Address, error) {
	return Get[types.Address](s.doc, KeySafeContractAddress)
}

func (s *SynchronizedData) PeriodCount() int64 {
	return GetOptional[int64](s.doc, KeyPeriodCount, 0)
}

func (s *SynchronizedData) Price() *float64 {
	return GetOptional[*float64](s.doc, KeyPrice, nil)
}

func (s *SynchronizedData) IPFSHash() *string {
	return GetOptional[*string](s.doc, KeyIPFSHash, nil)
}

func (s *SynchronizedData) ParticipantToPriceRound() (Collection, error) {
	return s.doc.GetCollection(KeyParticipantToPriceRound)
}

func (s *SynchronizedData) PropertyID() (*big.Int, error) {
	n, err := Get[json.Number](s.doc, KeyPropertyID)
	if err != nil {
		return nil, err
	}
	return types.ParseBigInt([]byte(n))
}

// PropertyValue is nil until a decision selected a property.
func (s *SynchronizedData) PropertyValue() *big.Int {
	n := GetOptional[json.Number](s.doc, KeyPropertyValue, "")
	if n == "" {
		return nil
	}
	v, err := types.ParseBigInt([]byte(n))
	if err != nil {
		return nil
	}
	return v
}

func (s *SynchronizedData) ParticipantToTxRound() (Collection, error) {
	return s.doc.GetCollection(KeyParticipantToTxRound)
}

func (s *SynchronizedData) TxSubmitter() (string, error) {
	return Get[string](s.doc, KeyTxSubmitter)
}

func (s *SynchronizedData) MostVotedTxHash() *string {
	return GetOptional[*string](s.doc, KeyMostVotedTxHash, nil)
}
