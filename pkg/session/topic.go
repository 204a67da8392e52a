package session

import (
	"encoding/json"
	"strings"
)

// TopicKind tags a TopicChoice.
type TopicKind int

const (
	NoTopic TopicKind = iota
	Selected
	Custom
)

func (k TopicKind) String() string {
	switch k {
	case Selected:
		return "selected"
	case Custom:
		return "custom"
	default:
		return "none"
	}
}

// TopicChoice is either nothing, a catalog topic, or free text. The two
// kinds of topic can never be set at the same time.
type TopicChoice struct {
	kind TopicKind
	text string
}

// SelectedTopic chooses a catalog topic.
func SelectedTopic(topic string) TopicChoice {
	return TopicChoice{kind: Selected, text: topic}
}

// CustomTopic chooses free text.
func CustomTopic(text string) TopicChoice {
	return TopicChoice{kind: Custom, text: text}
}

func (c TopicChoice) Kind() TopicKind { return c.kind }
func (c TopicChoice) Text() string    { return c.text }

// Effective returns the topic used for rendering, trimmed. Empty means there
// is nothing to render.
func (c TopicChoice) Effective() string {
	if c.kind == NoTopic {
		return ""
	}
	return strings.TrimSpace(c.text)
}

func (c TopicChoice) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind string `json:"kind"`
		Text string `json:"text,omitempty"`
	}{c.kind.String(), c.text})
}
