package domain

import "errors"

var (
	// A gap between the last applied batch and the incoming one. The book has to be resynced.
	ErrOrderBookUpdateIsOutOfSequece = errors.New("order book update is out of sequece")
	// Older than what was already applied, should just be skipped.
	ErrOrderBookUpdateIsOutdated = errors.New("order book update is outdated")
)

type IDepthUpdateValidator interface {
	// Reset remembers seqID of a fresh snapshot for symbol.
	Reset(symbol string, seqID int64)
	// if return nil, the update is valid and becomes the last known one
	IsValidUpd(symbol string, prevSeqID, seqID int64) error
	IsErrOutOfSequece(err error) bool
	IsErrOutdated(err error) bool
}
