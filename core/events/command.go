package events

const (
	KindSendPrompt      Kind = "command.send_prompt"
	KindStartCapture    Kind = "command.start_capture"
	KindStopCapture     Kind = "command.stop_capture"
	KindStopPlayback    Kind = "command.stop_playback"
	KindReset           Kind = "command.reset"
	KindSetHandsFree    Kind = "command.set_hands_free"
	KindSetPlayback     Kind = "command.set_playback"
	KindReplay          Kind = "command.replay"
	KindCleanDecoration Kind = "command.clean_decoration"
)

// SendPrompt requests that typed text be sent as a user turn.
type SendPrompt struct {
	Base
	Text string
}

func NewSendPrompt(text string) SendPrompt {
	return SendPrompt{Base: NewBase(KindSendPrompt), Text: text}
}

type StartCapture struct{ Base }

func NewStartCapture() StartCapture {
	return StartCapture{Base: NewBase(KindStartCapture)}
}

type StopCapture struct{ Base }

func NewStopCapture() StopCapture {
	return StopCapture{Base: NewBase(KindStopCapture)}
}

type StopPlayback struct{ Base }

func NewStopPlayback() StopPlayback {
	return StopPlayback{Base: NewBase(KindStopPlayback)}
}

type Reset struct{ Base }

func NewReset() Reset {
	return Reset{Base: NewBase(KindReset)}
}

type SetHandsFree struct {
	Base
	Enabled bool
}

func NewSetHandsFree(enabled bool) SetHandsFree {
	return SetHandsFree{Base: NewBase(KindSetHandsFree), Enabled: enabled}
}

type SetPlayback struct {
	Base
	Enabled bool
}

func NewSetPlayback(enabled bool) SetPlayback {
	return SetPlayback{Base: NewBase(KindSetPlayback), Enabled: enabled}
}

// Replay stops the current utterance, or speaks the last spoken reply again
// when nothing is playing.
type Replay struct{ Base }

func NewReplay() Replay {
	return Replay{Base: NewBase(KindReplay)}
}

type CleanDecoration struct {
	Base
	ID string
}

func NewCleanDecoration(id string) CleanDecoration {
	return CleanDecoration{Base: NewBase(KindCleanDecoration), ID: id}
}
