package internal

import (
	"strconv"
	"time"
)

// FrameTokens hands out cache-busting tokens for the live frame locator.
// Tokens are Unix milliseconds and strictly increase even when the clock
// stalls or steps backwards. Not safe for concurrent use.
type FrameTokens struct {
	now  func() time.Time
	last int64
}

// NewFrameTokens returns a token source reading the given clock; nil means
// time.Now.
func NewFrameTokens(now func() time.Time) *FrameTokens {
	if now == nil {
		now = time.Now
	}
	return &FrameTokens{now: now}
}

// Next returns a token never handed out before by this source
func (f *FrameTokens) Next() string {
	ms := f.now().UnixMilli()
	if ms <= f.last {
		ms = f.last + 1
	}
	f.last = ms
	return strconv.FormatInt(ms, 10)
}
