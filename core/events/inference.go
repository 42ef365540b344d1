package events

const KindInferenceSettled Kind = "inference.settled"

// InferenceSettled carries the outcome of an inference request. Exactly one
// of Reply and Err is meaningful.
type InferenceSettled struct {
	Base
	Epoch Epoch
	Reply string
	Err   error
}

func NewInferenceSettled(epoch Epoch, reply string, err error) InferenceSettled {
	return InferenceSettled{Base: NewBase(KindInferenceSettled), Epoch: epoch, Reply: reply, Err: err}
}
