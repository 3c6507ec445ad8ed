package viewer

import "github.com/iksnae/smile-viewer/internal"

// detectionStore holds the latest tick's outcome. Written by the polling loop,
// reset by the session controller.
type detectionStore struct {
	result internal.DetectionResult
	frame  string
}

func (s *detectionStore) update(result internal.DetectionResult, frame string) {
	s.result = result
	s.frame = frame
}

func (s *detectionStore) reset() {
	s.result = internal.DetectionResult{}
	s.frame = ""
}
