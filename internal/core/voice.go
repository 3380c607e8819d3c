package core

// Voice names a speech synthesis voice. Only members of AllowedVoices are ever
// forwarded to a SpeechSynthesizer.
type Voice string

// Supported synthesis voices.
const (
	VoiceAlloy   Voice = "alloy"
	VoiceAsh     Voice = "ash"
	VoiceCoral   Voice = "coral"
	VoiceEcho    Voice = "echo"
	VoiceFable   Voice = "fable"
	VoiceOnyx    Voice = "onyx"
	VoiceNova    Voice = "nova"
	VoiceSage    Voice = "sage"
	VoiceShimmer Voice = "shimmer"
)

// AllowedVoices returns the closed set of voices in display order.
func AllowedVoices() []Voice {
	return []Voice{
		VoiceAlloy,
		VoiceAsh,
		VoiceCoral,
		VoiceEcho,
		VoiceFable,
		VoiceOnyx,
		VoiceNova,
		VoiceSage,
		VoiceShimmer,
	}
}

// Valid reports whether v is a member of the allowed set.
func (v Voice) Valid() bool {
	switch v {
	case VoiceAlloy, VoiceAsh, VoiceCoral, VoiceEcho, VoiceFable,
		VoiceOnyx, VoiceNova, VoiceSage, VoiceShimmer:
		return true
	default:
		return false
	}
}

func (v Voice) String() string {
	return string(v)
}
