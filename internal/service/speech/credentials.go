package speech

import (
	"errors"
	"strings"

	speechmodel "github.com/smartbite/assistant/backend/internal/model/speech"
)

var ErrNotConfigured = errors.New("speech recognition is not configured")

// credentials returns the app id and access token; APIKey is accepted as a
// legacy alias for the token.
func credentials(cfg *speechmodel.SpeechConfig) (appID, token string, err error) {
	if cfg == nil {
		return "", "", ErrNotConfigured
	}
	appID = strings.TrimSpace(cfg.AppID)
	token = strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		token = strings.TrimSpace(cfg.APIKey)
	}
	if appID == "" || token == "" {
		return "", "", ErrNotConfigured
	}
	return appID, token, nil
}
