package constants

// Database table names
const (
	TABLE_CALLS         = "calls"
	TABLE_CONVERSATIONS = "conversations"
	TABLE_QA_PAIRS      = "qa_pairs"
)

// Language codes used across speech and lookup services
const (
	LANG_TWI     = "tw"
	LANG_ENGLISH = "en"
)

// Canonical audio format: every clip entering or leaving the pipeline
// is converted to this format before any service touches it.
const (
	AUDIO_SAMPLE_RATE = 16000
	AUDIO_CHANNELS    = 1
	AUDIO_BIT_DEPTH   = 16
)

// Artifact file names written under the recordings directory
const (
	FILE_LAST_CALL_LOG = "last_call_log.txt"
	FILE_LAST_QUESTION = "last_question.txt"
	FILE_LIVE_LOG      = "live_log.txt"
	FILE_RESPONSE_WAV  = "response.wav"
	FILE_FALLBACK_WAV  = "fallback.wav"
)

// Transcript markers recorded when a pipeline stage produced no usable text
const (
	MARKER_NO_SPEECH  = "[NO_SPEECH]"
	MARKER_STT_FAILED = "[STT_FAILED]"
	MARKER_TTS_FAILED = "[TTS_FAILED]"
)
