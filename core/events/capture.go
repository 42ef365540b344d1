package events

const (
	KindCaptureStarted Kind = "capture.started"
	KindCapturePartial Kind = "capture.partial"
	KindCaptureEnded   Kind = "capture.ended"
	KindCaptureFailed  Kind = "capture.failed"
)

type CaptureStarted struct {
	Base
	Epoch Epoch
}

func NewCaptureStarted(epoch Epoch) CaptureStarted {
	return CaptureStarted{Base: NewBase(KindCaptureStarted), Epoch: epoch}
}

// CapturePartial carries a mutable interim transcript snapshot.
type CapturePartial struct {
	Base
	Epoch Epoch
	Text  string
}

func NewCapturePartial(epoch Epoch, text string) CapturePartial {
	return CapturePartial{Base: NewBase(KindCapturePartial), Epoch: epoch, Text: text}
}

// CaptureEnded is the terminal event of a capture session. Transcript is
// empty when nothing intelligible was heard.
type CaptureEnded struct {
	Base
	Epoch      Epoch
	Transcript string
}

func NewCaptureEnded(epoch Epoch, transcript string) CaptureEnded {
	return CaptureEnded{Base: NewBase(KindCaptureEnded), Epoch: epoch, Transcript: transcript}
}

// CaptureFailed is the terminal event of a capture session that errored.
// Transient failures (no speech, aborted) are expected and are not reported
// to the user.
type CaptureFailed struct {
	Base
	Epoch     Epoch
	Reason    string
	Transient bool
}

func NewCaptureFailed(epoch Epoch, reason string, transient bool) CaptureFailed {
	return CaptureFailed{Base: NewBase(KindCaptureFailed), Epoch: epoch, Reason: reason, Transient: transient}
}
