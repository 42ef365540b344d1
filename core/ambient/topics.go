package ambient

import "strings"

const MaxRemarkRunes = 30

var DefaultTopics = []string{
	"how you feel right now",
	"something you have been curious about lately",
	"a little message for your human",
	"your favourite food",
	"the weather",
	"what you want to do today",
}

// Topics hands out remark topics in rotation.
type Topics struct {
	list []string
	next int
}

func NewTopics(list ...string) *Topics {
	if len(list) == 0 {
		list = DefaultTopics
	}
	return &Topics{list: list}
}

func (t *Topics) Next() string {
	topic := t.list[t.next%len(t.list)]
	t.next = (t.next + 1) % len(t.list)
	return topic
}

// RemarkPrompt is the prompt sent to ask for a remark about topic.
func RemarkPrompt(topic string) string {
	return "Mutter one short sentence to yourself about " + topic + ". Just one sentence."
}

// TruncateRemark trims a remark to fit the status line.
func TruncateRemark(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= MaxRemarkRunes {
		return text
	}
	return string(runes[:MaxRemarkRunes])
}
