package speech

import "io"

// ASRRequest asks for one utterance to be transcribed.
type ASRRequest struct {
	SessionID string    `json:"sessionId"`
	AudioData io.Reader `json:"-"`
	Format    string    `json:"format"`   // wav, mp3, webm, ...
	Language  string    `json:"language"` // en-US, zh-CN, ...
}
