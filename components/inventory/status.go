package inventory

// Status is the lifecycle of one asynchronous operation.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// TrackState is a snapshot of one operation track.
type TrackState struct {
	Status Status `json:"status"`
	Err    error  `json:"-"`
}

// Message returns the display message of the recorded failure.
func (s TrackState) Message() string {
	return MessageOf(s.Err)
}

// requestTrack records the status of one operation kind. Every begin issues a
// new generation; results carrying an older generation are ignored.
// Callers hold the owning store's mutex.
type requestTrack struct {
	status Status
	err    error
	issued uint64
}

func newRequestTrack() requestTrack {
	return requestTrack{status: StatusIdle}
}

func (t *requestTrack) begin() uint64 {
	t.issued++
	t.status = StatusLoading
	t.err = nil
	return t.issued
}

func (t *requestTrack) current(gen uint64) bool {
	return gen == t.issued
}

func (t *requestTrack) succeed(gen uint64) bool {
	if !t.current(gen) {
		return false
	}
	t.status = StatusSucceeded
	t.err = nil
	return true
}

func (t *requestTrack) fail(gen uint64, err error) bool {
	if !t.current(gen) {
		return false
	}
	t.status = StatusFailed
	t.err = err
	return true
}

// reset invalidates in-flight requests and returns the track to idle.
func (t *requestTrack) reset() {
	t.issued++
	t.status = StatusIdle
	t.err = nil
}

func (t *requestTrack) clearError() {
	t.err = nil
}

func (t *requestTrack) state() TrackState {
	return TrackState{Status: t.status, Err: t.err}
}
