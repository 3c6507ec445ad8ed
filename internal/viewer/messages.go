package viewer

import (
	"time"

	"github.com/iksnae/smile-viewer/internal"
)

type startResultMsg struct {
	err error
}

type stopSentMsg struct {
	err error
}

type tickMsg struct {
	epoch uint64
}

type pollResultMsg struct {
	epoch   uint64
	started time.Time
	result  internal.DetectionResult
	err     error
}

type snapshotsMsg struct {
	seq     uint64
	records []internal.SnapshotRecord
	err     error
}
