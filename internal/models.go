package internal

// DetectionResult is the body of GET detect-smile
type DetectionResult struct {
	SmileDetected bool   `json:"smile_detected" yaml:"smile_detected"`
	Coordinates   string `json:"coordinates" yaml:"coordinates"`
}

// HasCoordinates reports whether the service sent a location with the result
func (d DetectionResult) HasCoordinates() bool {
	return d.Coordinates != ""
}

// SnapshotRecord is one entry of GET get-smiles. Timestamp is the identity.
type SnapshotRecord struct {
	Timestamp string `json:"timestamp" yaml:"timestamp"`
	Filename  string `json:"filename" yaml:"filename"`
}

// FindSnapshot returns the record with the given timestamp
func FindSnapshot(records []SnapshotRecord, timestamp string) (SnapshotRecord, bool) {
	for _, rec := range records {
		if rec.Timestamp == timestamp {
			return rec, true
		}
	}
	return SnapshotRecord{}, false
}
