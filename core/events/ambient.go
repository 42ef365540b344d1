package events

const (
	KindDecorationTimerFired Kind = "ambient.decoration_timer_fired"
	KindRemarkTimerFired     Kind = "ambient.remark_timer_fired"
	KindRemarkSettled        Kind = "ambient.remark_settled"
	KindStatusRevert         Kind = "ambient.status_revert"
	KindAutoResumeFired      Kind = "ambient.auto_resume_fired"
	KindStartupCaptureFired  Kind = "ambient.startup_capture_fired"
)

type DecorationTimerFired struct{ Base }

func NewDecorationTimerFired() DecorationTimerFired {
	return DecorationTimerFired{Base: NewBase(KindDecorationTimerFired)}
}

type RemarkTimerFired struct{ Base }

func NewRemarkTimerFired() RemarkTimerFired {
	return RemarkTimerFired{Base: NewBase(KindRemarkTimerFired)}
}

type RemarkSettled struct {
	Base
	Epoch Epoch
	Reply string
	Err   error
}

func NewRemarkSettled(epoch Epoch, reply string, err error) RemarkSettled {
	return RemarkSettled{Base: NewBase(KindRemarkSettled), Epoch: epoch, Reply: reply, Err: err}
}

// StatusRevert restores the idle status line unless a newer status has been
// set since Generation was issued.
type StatusRevert struct {
	Base
	Generation uint64
	IdleOnly   bool
}

func NewStatusRevert(generation uint64, idleOnly bool) StatusRevert {
	return StatusRevert{Base: NewBase(KindStatusRevert), Generation: generation, IdleOnly: idleOnly}
}

// AutoResumeFired asks to start capture again after a settle into idle.
type AutoResumeFired struct {
	Base
	Generation uint64
}

func NewAutoResumeFired(generation uint64) AutoResumeFired {
	return AutoResumeFired{Base: NewBase(KindAutoResumeFired), Generation: generation}
}

type StartupCaptureFired struct{ Base }

func NewStartupCaptureFired() StartupCaptureFired {
	return StartupCaptureFired{Base: NewBase(KindStartupCaptureFired)}
}
