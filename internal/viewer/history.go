package viewer

import "github.com/iksnae/smile-viewer/internal"

// historyBrowser holds the snapshot list and the user's selection. cursor 0
// is the "Select a past smile" placeholder, cursor i is records[i-1].
type historyBrowser struct {
	records  []internal.SnapshotRecord
	selected *internal.SnapshotRecord
	cursor   int
	loading  bool
	seq      uint64
}

// replace swaps in a freshly fetched list
func (h *historyBrowser) replace(records []internal.SnapshotRecord) {
	h.records = records
	h.cursor = 0
	if h.selected != nil {
		for i, rec := range records {
			if rec.Timestamp == h.selected.Timestamp {
				h.cursor = i + 1
				break
			}
		}
	}
}

func (h *historyBrowser) choose(timestamp string) bool {
	for i, rec := range h.records {
		if rec.Timestamp == timestamp {
			rec := rec
			h.selected = &rec
			h.cursor = i + 1
			return true
		}
	}
	return false
}

func (h *historyBrowser) clearSelection() {
	h.selected = nil
	h.cursor = 0
}

func (h *historyBrowser) move(delta int) {
	h.cursor += delta
	if h.cursor < 0 {
		h.cursor = 0
	}
	if h.cursor > len(h.records) {
		h.cursor = len(h.records)
	}
}

// underCursor returns the timestamp at the cursor, "" for the placeholder
func (h *historyBrowser) underCursor() string {
	if h.cursor == 0 || h.cursor > len(h.records) {
		return ""
	}
	return h.records[h.cursor-1].Timestamp
}
