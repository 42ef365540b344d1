package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	orchestration "github.com/koscakluka/ema-pet/core"
	"github.com/koscakluka/ema-pet/core/ambient"
	"github.com/koscakluka/ema-pet/core/audio"
	"github.com/koscakluka/ema-pet/core/audio/miniaudio"
	"github.com/koscakluka/ema-pet/core/audio/portaudio"
	"github.com/koscakluka/ema-pet/core/history"
	historyfile "github.com/koscakluka/ema-pet/core/history/file"
	historysqlite "github.com/koscakluka/ema-pet/core/history/sqlite"
	"github.com/koscakluka/ema-pet/core/llms"
	"github.com/koscakluka/ema-pet/core/llms/claudecli"
	"github.com/koscakluka/ema-pet/core/llms/groq"
	"github.com/koscakluka/ema-pet/core/llms/openai"
	"github.com/koscakluka/ema-pet/core/llms/relay"
	"github.com/koscakluka/ema-pet/core/speechtotext"
	sttdeepgram "github.com/koscakluka/ema-pet/core/speechtotext/deepgram"
	ttsdeepgram "github.com/koscakluka/ema-pet/core/texttospeech/deepgram"
	"github.com/koscakluka/ema-pet/internal/config"
)

const (
	historyDBName    = "history.db"
	historyDirName   = "history"
	portaudioBufSize = 1024
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openHistory opens the configured medium and loads the log from it.
func openHistory(cfg *config.Config) (*history.Store, io.Closer, error) {
	var (
		medium history.Medium
		closer io.Closer = nopCloser{}
	)

	switch cfg.History.Medium {
	case "memory":
		medium = history.NewMemoryMedium()
	case "file":
		fileMedium, err := historyfile.New(filepath.Join(cfg.DataDir, historyDirName))
		if err != nil {
			return nil, nil, err
		}
		medium = fileMedium
	case "sqlite":
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create data dir: %w", err)
		}
		sqliteMedium, err := historysqlite.Open(filepath.Join(cfg.DataDir, historyDBName))
		if err != nil {
			return nil, nil, fmt.Errorf("open history database: %w", err)
		}
		medium, closer = sqliteMedium, sqliteMedium
	default:
		return nil, nil, fmt.Errorf("unknown history medium %q", cfg.History.Medium)
	}

	store := history.NewStore(medium, history.WithKey(cfg.History.Key))
	store.Load()
	return store, closer, nil
}

// inferenceClients returns the client answering prompts and the one
// producing remarks. Only the relay has a separate remark endpoint.
func inferenceClients(cfg config.InferenceConfig) (ask llms.InferenceClient, remark llms.InferenceClient, err error) {
	switch cfg.Provider {
	case "relay":
		ask = relay.NewClient(cfg.URL)
		remark = relay.NewClient(cfg.URL, relay.WithPath(relay.MonologuePath), relay.WithStrictReplies())
	case "claude":
		ask = claudecli.NewClient(claudecli.WithModel(cfg.Model), claudecli.WithSystemPrompt(cfg.SystemPrompt))
		remark = claudecli.NewClient(claudecli.WithModel(cfg.Model), claudecli.WithAllowedTools([]string{}))
	case "groq":
		opts := []groq.ClientOption{groq.WithSystemPrompt(cfg.SystemPrompt)}
		if cfg.Model != "" {
			opts = append(opts, groq.WithModel(cfg.Model))
		}
		if cfg.URL != "" {
			opts = append(opts, groq.WithURL(cfg.URL))
		}
		ask = groq.NewClient(cfg.APIKey, opts...)
		remark = ask
	case "openai":
		opts := []openai.ClientOption{openai.WithSystemPrompt(cfg.SystemPrompt)}
		if cfg.Model != "" {
			opts = append(opts, openai.WithModel(cfg.Model))
		}
		if cfg.URL != "" {
			opts = append(opts, openai.WithURL(cfg.URL))
		}
		ask = openai.NewClient(cfg.APIKey, opts...)
		remark = ask
	default:
		return nil, nil, fmt.Errorf("unknown inference provider %q", cfg.Provider)
	}
	return ask, remark, nil
}

type audioDevice interface {
	audio.Capture
	audio.Playback
	Close()
}

func openAudio(backend string) (audioDevice, error) {
	switch backend {
	case "portaudio":
		device, err := portaudio.NewClient(portaudioBufSize)
		if err != nil {
			return nil, err
		}
		return device, nil
	case "miniaudio", "":
		device, err := miniaudio.NewClient()
		if err != nil {
			return nil, err
		}
		return device, nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q", backend)
	}
}

// speech builds the speech adapters. Missing credentials or devices leave
// the companion without speech instead of failing, it can still chat.
type speech struct {
	options []orchestration.OrchestratorOption
	close   func()
}

func openSpeech(cfg config.SpeechConfig) speech {
	none := speech{close: func() {}}
	if !cfg.Enabled {
		return none
	}
	if cfg.DeepgramAPIKey == "" {
		slog.Warn("speech disabled", "reason", "no deepgram api key configured")
		return none
	}

	device, err := openAudio(cfg.AudioBackend)
	if err != nil {
		slog.Warn("speech disabled", "reason", "audio device unavailable", "error", err)
		return none
	}

	stt, err := sttdeepgram.NewTranscriptionClient(cfg.DeepgramAPIKey, device)
	if err != nil {
		slog.Warn("speech input disabled", "error", err)
	}
	tts, err := newTextToSpeech(cfg, device)
	if err != nil {
		slog.Warn("speech output disabled", "error", err)
	}

	var opts []orchestration.OrchestratorOption
	if stt != nil {
		opts = append(opts,
			orchestration.WithSpeechToTextClient(stt),
			orchestration.WithCaptureOptions(
				speechtotext.WithLanguage(cfg.Language),
				speechtotext.WithNoSpeechTimeout(cfg.NoSpeechTimeout),
			),
		)
	}
	if tts != nil {
		opts = append(opts, orchestration.WithTextToSpeechClient(tts))
	}
	return speech{options: opts, close: device.Close}
}

var errUnknownVoice = errors.New("unknown voice")

func newTextToSpeech(cfg config.SpeechConfig, playback audio.Playback) (*ttsdeepgram.TextToSpeechClient, error) {
	for _, voice := range ttsdeepgram.GetAvailableVoices() {
		if string(voice) == cfg.Voice || cfg.Voice == "" {
			return ttsdeepgram.NewTextToSpeechClient(cfg.DeepgramAPIKey, voice, playback)
		}
	}
	return nil, fmt.Errorf("%w %q", errUnknownVoice, cfg.Voice)
}

// companionOptions maps the config onto orchestrator options.
func companionOptions(cfg *config.Config, ask, remark llms.InferenceClient, store *history.Store) []orchestration.OrchestratorOption {
	opts := []orchestration.OrchestratorOption{
		orchestration.WithInferenceClient(ask),
		orchestration.WithRemarkClient(remark),
		orchestration.WithInferenceTimeout(cfg.Inference.Timeout),
		orchestration.WithHistory(store),
		orchestration.WithHandsFree(cfg.Companion.HandsFree),
		orchestration.WithPlayback(cfg.Companion.Playback),
		orchestration.WithContextWindow(cfg.Companion.ContextWindow),
		orchestration.WithAutoResumeDelay(cfg.Companion.AutoResumeDelay),
		orchestration.WithStartupCaptureDelay(cfg.Companion.StartupCaptureDelay),
		orchestration.WithStatusPhrases(cfg.Companion.Status),
	}

	if !cfg.Ambient.Enabled {
		return append(opts, orchestration.WithoutAmbient())
	}
	opts = append(opts,
		orchestration.WithDecorationCapacity(cfg.Ambient.DecorationCapacity),
		orchestration.WithAmbientSchedule(
			ambient.WithDecorationInterval(cfg.Ambient.DecorationMin, cfg.Ambient.DecorationMax),
			ambient.WithRemarkInterval(cfg.Ambient.RemarkMin, cfg.Ambient.RemarkMax),
		),
	)
	if len(cfg.Ambient.Topics) > 0 {
		opts = append(opts, orchestration.WithRemarkTopics(cfg.Ambient.Topics...))
	}
	return opts
}
