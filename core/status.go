package orchestration

import "time"

// StatusPhrases are the lines shown under the companion.
type StatusPhrases struct {
	Idle      string `yaml:"idle"`
	Listening string `yaml:"listening"`
	Thinking  string `yaml:"thinking"`
	Speaking  string `yaml:"speaking"`
	// CaptureError is prefixed to the error kind of a failed capture.
	CaptureError string   `yaml:"capture_error"`
	CleanHint    string   `yaml:"clean_hint"`
	Happy        []string `yaml:"happy"`
	// Unavailable is added to the history once when there is no speech
	// input to listen with.
	Unavailable string `yaml:"unavailable"`
}

func DefaultStatusPhrases() StatusPhrases {
	return StatusPhrases{
		Idle:         "I'm here!",
		Listening:    "listening...",
		Thinking:     "thinking...",
		Speaking:     "talking...",
		CaptureError: "error: ",
		CleanHint:    "please clean up!",
		Happy:        []string{"so clean!", "thank you!", "feels fresh!", "sparkly!"},
		Unavailable:  "Speech input is not available, type to chat instead.",
	}
}

// withDefaults fills every empty phrase from DefaultStatusPhrases.
func (p StatusPhrases) withDefaults() StatusPhrases {
	defaults := DefaultStatusPhrases()
	fill := func(value *string, fallback string) {
		if *value == "" {
			*value = fallback
		}
	}
	fill(&p.Idle, defaults.Idle)
	fill(&p.Listening, defaults.Listening)
	fill(&p.Thinking, defaults.Thinking)
	fill(&p.Speaking, defaults.Speaking)
	fill(&p.CaptureError, defaults.CaptureError)
	fill(&p.CleanHint, defaults.CleanHint)
	fill(&p.Unavailable, defaults.Unavailable)
	if len(p.Happy) == 0 {
		p.Happy = defaults.Happy
	}
	return p
}

const (
	DefaultAutoResumeDelay     = 500 * time.Millisecond
	DefaultStartupCaptureDelay = time.Second
	happyStatusDuration        = 1500 * time.Millisecond
	remarkStatusDuration       = 5 * time.Second
	captureErrorStatusDuration = 3 * time.Second
	maxCaptureRetryDelay       = 30 * time.Second
)
