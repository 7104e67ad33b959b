package types

import (
	"regexp"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrUnknownPayloadKind = errors.New("unknown payload kind")
	ErrInvalidPayload     = errors.New("invalid payload")
)

// EmptyTxHash is submitted by the transaction preparation behaviour when the
// settlement payload could not be built.
const EmptyTxHash = "{}"

// settlement payloads embed 0x prefixed addresses between hex fields
var txHashPattern = regexp.MustCompile(`^(0x|[0-9a-fA-F])*$`)

type PayloadKind string

const (
	PayloadAPICheck       = PayloadKind("api_check")
	PayloadDecisionMaking = PayloadKind("decision_making")
	PayloadTxPreparation  = PayloadKind("tx_preparation")
)

// Payload is the value one participant submits into one round.
// Two payloads are equal when their canonical encodings are equal.
type Payload interface {
	Kind() PayloadKind

	// Attributes returns the payload fields in declaration order; rounds
	// zip them with their selection keys.
	Attributes() []interface{}

	ValidateBasic() error
}

// PayloadKey returns the canonical encoding of p, used as its
// aggregation bucket.
func PayloadKey(p Payload) (string, error) {
	bz, err := json.Marshal(p)
	if err != nil {
		return "", errors.Wrap(err, "encode payload")
	}
	return string(bz), nil
}

// DecodePayload decodes a payload body of the given kind.
func DecodePayload(kind PayloadKind, body []byte) (Payload, error) {
	var p Payload
	switch kind {
	case PayloadAPICheck:
		p = &APICheckPayload{}
	case PayloadDecisionMaking:
		p = &DecisionMakingPayload{}
	case PayloadTxPreparation:
		p = &TxPreparationPayload{}
	default:
		return nil, errors.Wrapf(ErrUnknownPayloadKind, "%q", kind)
	}
	if err := json.Unmarshal(body, p); err != nil {
		return nil, errors.Wrap(ErrInvalidPayload, err.Error())
	}
	if err := p.ValidateBasic(); err != nil {
		return nil, err
	}
	return p, nil
}

// ----- observation -----

// APICheckPayload carries the observed price and the blob reference of the
// property snapshot. Both are nil when the observation failed.
type APICheckPayload struct {
	Price    *float64 `json:"price"`
	IPFSHash *string  `json:"ipfs_hash"`
}

func NewAPICheckPayload(price *float64, ipfsHash *string) *APICheckPayload {
	return &APICheckPayload{Price: price, IPFSHash: ipfsHash}
}

func (p *APICheckPayload) Kind() PayloadKind { return PayloadAPICheck }

func (p *APICheckPayload) Attributes() []interface{} {
	return []interface{}{p.Price, p.IPFSHash}
}

func (p *APICheckPayload) ValidateBasic() error {
	if p.IPFSHash != nil && *p.IPFSHash == "" {
		return errors.Wrap(ErrInvalidPayload, "empty ipfs hash")
	}
	return nil
}

// ----- decision -----

// DecisionMakingPayload carries the decision encoded as
// {"event": ..., "property_data": {...}} with sorted keys.
type DecisionMakingPayload struct {
	Content string `json:"content"`
}

func NewDecisionMakingPayload(event Event, property map[string]interface{}) (*DecisionMakingPayload, error) {
	if property == nil {
		property = map[string]interface{}{}
	}
	bz, err := json.Marshal(struct {
		Event        string                 `json:"event"`
		PropertyData map[string]interface{} `json:"property_data"`
	}{event.String(), property})
	if err != nil {
		return nil, errors.Wrap(err, "encode decision")
	}
	return &DecisionMakingPayload{Content: string(bz)}, nil
}

func (p *DecisionMakingPayload) Kind() PayloadKind { return PayloadDecisionMaking }

func (p *DecisionMakingPayload) Attributes() []interface{} {
	return []interface{}{p.Content}
}

func (p *DecisionMakingPayload) ValidateBasic() error {
	if p.Content == "" {
		return errors.Wrap(ErrInvalidPayload, "empty decision content")
	}
	return nil
}

// Decision is the structured content of a DecisionMakingPayload.
type Decision struct {
	Event        string                         `json:"event"`
	PropertyData map[string]jsoniter.RawMessage `json:"property_data"`
}

// ParseDecision decodes decision content. Unknown events are an error.
func ParseDecision(content string) (Event, map[string]jsoniter.RawMessage, error) {
	var d Decision
	if err := json.UnmarshalFromString(content, &d); err != nil {
		return "", nil, errors.Wrap(err, "decode decision")
	}
	event, err := ParseEvent(d.Event)
	if err != nil {
		return "", nil, err
	}
	return event, d.PropertyData, nil
}

// ----- transaction preparation -----

// TxPreparationPayload carries the hex settlement payload, or EmptyTxHash.
type TxPreparationPayload struct {
	TxSubmitter string `json:"tx_submitter"`
	TxHash      string `json:"tx_hash"`
}

func NewTxPreparationPayload(submitter, txHash string) *TxPreparationPayload {
	return &TxPreparationPayload{TxSubmitter: submitter, TxHash: txHash}
}

func (p *TxPreparationPayload) Kind() PayloadKind { return PayloadTxPreparation }

func (p *TxPreparationPayload) Attributes() []interface{} {
	return []interface{}{p.TxSubmitter, p.TxHash}
}

func (p *TxPreparationPayload) IsEmpty() bool {
	return p.TxHash == EmptyTxHash
}

func (p *TxPreparationPayload) ValidateBasic() error {
	if p.TxSubmitter == "" {
		return errors.Wrap(ErrInvalidPayload, "empty tx submitter")
	}
	if !p.IsEmpty() && (p.TxHash == "" || !txHashPattern.MatchString(p.TxHash)) {
		return errors.Wrapf(ErrInvalidPayload, "malformed tx hash %q", p.TxHash)
	}
	return nil
}
