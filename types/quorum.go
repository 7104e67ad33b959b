package types

import (
	"github.com/pkg/errors"
)

var (
	ErrInvalidThreshold = errors.New("invalid consensus threshold")
)

// QuorumThreshold returns ceil(2n/3), the number of identical payloads
// needed to close a round with n participants.
func QuorumThreshold(n int) int {
	if n <= 0 {
		return 0
	}
	return (2*n + 2) / 3
}

// ValidateThreshold checks a configured threshold against n participants.
// Zero selects QuorumThreshold(n).
func ValidateThreshold(threshold, n int) error {
	if threshold == 0 {
		return nil
	}
	if threshold < QuorumThreshold(n) || threshold > n {
		return errors.Wrapf(ErrInvalidThreshold, "%d not in [%d, %d]", threshold, QuorumThreshold(n), n)
	}
	return nil
}

// IsMajorityPossible reports whether some payload can still reach threshold
// once the participants that have not submitted yet do so.
func IsMajorityPossible(nbParticipants, nbSubmitted, largestCount, threshold int) bool {
	remaining := nbParticipants - nbSubmitted
	return remaining+largestCount >= threshold
}
