package services

import (
	"errors"
	"fmt"

	"artarena/internal/store"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrNotAuthorized     = errors.New("not authorized")
	ErrNotEligible       = errors.New("contest is not eligible for finalization")
	ErrInvalidInput      = errors.New("invalid input")
	ErrDuplicateEntry    = errors.New("user already has an entry in this contest")
	ErrContestClosed     = errors.New("contest is not accepting entries")
	ErrAlreadyReviewed   = errors.New("entry has already been reviewed")
	ErrContestFinalized  = errors.New("contest is finalized")
	ErrContestHasEntries = errors.New("contest already has entries")
	ErrPartialWrite      = errors.New("finalization write failed")
	ErrSweepLocked       = errors.New("another sweep is in progress")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// translate 把存储层的哨兵错误映射为服务层错误，其余原样返回
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrAlreadyFinalized):
		return ErrContestFinalized
	}
	return err
}
