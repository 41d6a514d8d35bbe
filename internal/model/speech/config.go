package speech

// SpeechConfig configures the Volcengine ASR backend.
type SpeechConfig struct {
	AppID          string `json:"appId"`
	AccessToken    string `json:"accessToken"`
	APIKey         string `json:"apiKey,omitempty"` // legacy alias of AccessToken
	Region         string `json:"region"`
	BaseURL        string `json:"baseUrl"`
	ConcurrentMode bool   `json:"concurrentMode"` // concurrent resource instead of the hourly one

	ASRModel    string `json:"asrModel"`
	ASRLanguage string `json:"asrLanguage"`

	Timeout int `json:"timeout"` // seconds
}
