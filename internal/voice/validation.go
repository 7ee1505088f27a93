package voice

import (
	"fmt"
	"strings"

	"fixmate_backend/platform/apperr"
)

// MaxAudioBytes caps what is downloaded and sent for transcription.
const MaxAudioBytes = 16 << 20

var allowedAudioTypes = map[string]string{
	"audio/ogg":  ".ogg",
	"audio/opus": ".opus",
	"audio/mpeg": ".mp3",
	"audio/mp4":  ".m4a",
	"audio/aac":  ".aac",
	"audio/amr":  ".amr",
	"audio/wav":  ".wav",
	"audio/webm": ".webm",
}

// baseMimeType strips parameters such as "; codecs=opus".
func baseMimeType(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(ct, ";"); idx >= 0 {
		ct = strings.TrimSpace(ct[:idx])
	}
	return ct
}

// ValidateAudio checks the content type and size of a downloaded note.
func ValidateAudio(contentType string, size int) error {
	if _, ok := allowedAudioTypes[baseMimeType(contentType)]; !ok {
		return apperr.Validation(fmt.Sprintf("unsupported audio type %q", contentType))
	}
	if size == 0 {
		return apperr.Validation("voice note is empty")
	}
	if size > MaxAudioBytes {
		return apperr.Validation(fmt.Sprintf("voice note exceeds %d bytes", MaxAudioBytes))
	}
	return nil
}

func extensionFor(contentType string) string {
	if ext, ok := allowedAudioTypes[baseMimeType(contentType)]; ok {
		return ext
	}
	return ".bin"
}
