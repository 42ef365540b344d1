package events

const KindPlaybackCompleted Kind = "playback.completed"

// PlaybackCompleted marks the end of an utterance, whether it finished,
// failed or was cancelled.
type PlaybackCompleted struct {
	Base
	Epoch Epoch
}

func NewPlaybackCompleted(epoch Epoch) PlaybackCompleted {
	return PlaybackCompleted{Base: NewBase(KindPlaybackCompleted), Epoch: epoch}
}
