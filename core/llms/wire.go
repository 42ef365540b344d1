package llms

const EmptyReply = "(empty)"

// Request is the relay wire request.
type Request struct {
	Prompt string `json:"prompt"`
}

// Response is the relay wire response. Either field may carry the message
// to display.
type Response struct {
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Text returns the displayable message, preferring Response over Error.
func (r Response) Text() string {
	switch {
	case r.Response != "":
		return r.Response
	case r.Error != "":
		return r.Error
	default:
		return EmptyReply
	}
}
