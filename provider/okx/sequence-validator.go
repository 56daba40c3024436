package okx

import (
	"errors"

	"github.com/spooky-finn/go-okx-md-bridge/domain"
)

// SequenceValidator checks that every books batch continues the previous
// one: its prevSeqId must equal the seqId last seen for the instrument.
type SequenceValidator struct {
	lastSeqID map[string]int64
}

var _ domain.IDepthUpdateValidator = (*SequenceValidator)(nil)

func NewSequenceValidator() *SequenceValidator {
	return &SequenceValidator{
		lastSeqID: make(map[string]int64),
	}
}

func (v *SequenceValidator) Reset(symbol string, seqID int64) {
	v.lastSeqID[symbol] = seqID
}

func (v *SequenceValidator) IsValidUpd(symbol string, prevSeqID, seqID int64) error {
	last, ok := v.lastSeqID[symbol]
	// nothing to compare with before the first snapshot
	if !ok {
		v.lastSeqID[symbol] = seqID
		return nil
	}

	// also covers heartbeats (prevSeqId == seqId) and sequence resets after maintenance (seqId < prevSeqId)
	if prevSeqID == last {
		v.lastSeqID[symbol] = seqID
		return nil
	}

	if seqID <= last {
		return domain.ErrOrderBookUpdateIsOutdated
	}
	return domain.ErrOrderBookUpdateIsOutOfSequece
}

func (v *SequenceValidator) IsErrOutOfSequece(err error) bool {
	return errors.Is(err, domain.ErrOrderBookUpdateIsOutOfSequece)
}

func (v *SequenceValidator) IsErrOutdated(err error) bool {
	return errors.Is(err, domain.ErrOrderBookUpdateIsOutdated)
}
