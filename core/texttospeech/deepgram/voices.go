package deepgram

type deepgramVoice string

const (
	VoiceAsteria deepgramVoice = "aura-2-asteria-en"
	VoiceLuna    deepgramVoice = "aura-2-luna-en"
	VoiceStella  deepgramVoice = "aura-2-stella-en"
	VoiceAthena  deepgramVoice = "aura-2-athena-en"
	VoiceOrion   deepgramVoice = "aura-2-orion-en"
	VoiceArcas   deepgramVoice = "aura-2-arcas-en"

	defaultVoice = VoiceAsteria
)

func GetAvailableVoices() []deepgramVoice {
	return []deepgramVoice{VoiceAsteria, VoiceLuna, VoiceStella, VoiceAthena, VoiceOrion, VoiceArcas}
}
