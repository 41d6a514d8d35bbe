package speech

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/smartbite/assistant/backend/internal/logger"
	speechmodel "github.com/smartbite/assistant/backend/internal/model/speech"
)

const (
	defaultASREndpoint = "wss://openspeech.bytedance.com/api/v3/sauc/bigmodel_nostream"

	resourceHourly     = "volc.bigasr.sauc.duration"
	resourceConcurrent = "volc.bigasr.sauc.concurrent"

	// 200ms of 16kHz 16-bit mono PCM.
	defaultPacketSize = 6400
	successCode       = 20000000
)

var ErrNoAudio = errors.New("no audio to transcribe")

// ASRClient transcribes one utterance per websocket session.
type ASRClient struct {
	config     *speechmodel.SpeechConfig
	dialer     *websocket.Dialer
	endpoint   string
	packetSize int
	pace       time.Duration
	log        *logger.Logger
}

// NewASRClient builds a client; cfg.BaseURL overrides the public endpoint.
func NewASRClient(cfg *speechmodel.SpeechConfig, log *logger.Logger) *ASRClient {
	endpoint := defaultASREndpoint
	if cfg != nil && strings.TrimSpace(cfg.BaseURL) != "" {
		endpoint = strings.TrimSpace(cfg.BaseURL)
	}
	return &ASRClient{
		config:     cfg,
		dialer:     &websocket.Dialer{HandshakeTimeout: 30 * time.Second},
		endpoint:   endpoint,
		packetSize: defaultPacketSize,
		pace:       200 * time.Millisecond,
		log:        log.With("component", "ASRClient"),
	}
}

type asrSessionRequest struct {
	User struct {
		UID string `json:"uid,omitempty"`
	} `json:"user"`
	Audio struct {
		Language string `json:"language,omitempty"`
		Format   string `json:"format"`
		Codec    string `json:"codec,omitempty"`
		Rate     int    `json:"rate,omitempty"`
		Bits     int    `json:"bits,omitempty"`
		Channel  int    `json:"channel,omitempty"`
	} `json:"audio"`
	Request struct {
		ModelName      string `json:"model_name"`
		EnableITN      bool   `json:"enable_itn,omitempty"`
		EnablePunc     bool   `json:"enable_punc,omitempty"`
		ShowUtterances bool   `json:"show_utterances,omitempty"`
		ResultType     string `json:"result_type,omitempty"`
		EndWindowSize  int    `json:"end_window_size,omitempty"`
	} `json:"request"`
}

type asrUtterance struct {
	Text     string `json:"text"`
	Definite bool   `json:"definite"`
}

type asrServerMessage struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Sequence int    `json:"sequence"`
	Result   struct {
		Text       string         `json:"text"`
		Utterances []asrUtterance `json:"utterances,omitempty"`
	} `json:"result"`
	AudioInfo struct {
		Duration int64 `json:"duration"`
	} `json:"audio_info"`
}

// Transcribe sends the whole request audio and waits for the final result.
func (c *ASRClient) Transcribe(ctx context.Context, req *speechmodel.ASRRequest) (*speechmodel.ASRResponse, error) {
	appID, token, err := credentials(c.config)
	if err != nil {
		return nil, err
	}
	if req == nil || req.AudioData == nil {
		return nil, ErrNoAudio
	}
	audio, err := io.ReadAll(req.AudioData)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, ErrNoAudio
	}

	header := http.Header{}
	header.Set("X-Api-App-Key", appID)
	header.Set("X-Api-Access-Key", token)
	header.Set("X-Api-Resource-Id", c.resourceID())
	header.Set("X-Api-Connect-Id", req.SessionID)

	conn, resp, err := c.dialer.DialContext(ctx, c.endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("dial asr endpoint: %w", err)
	}
	defer conn.Close()
	if resp != nil {
		c.log.Debug("asr connected", "session", req.SessionID, "logid", resp.Header.Get("X-Tt-Logid"))
	}

	if err := c.sendConfig(conn, req); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Closing the socket unblocks ReadMessage when ctx ends first.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	sendErr := make(chan error, 1)
	go func() { sendErr <- c.sendAudio(ctx, conn, audio) }()

	result, recvErr := c.receive(conn, req.SessionID)
	if recvErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, recvErr
	}
	cancel()
	if err := <-sendErr; err != nil && !errors.Is(err, context.Canceled) {
		c.log.Debug("asr audio upload ended early", "session", req.SessionID, "error", err)
	}
	return result, nil
}

func (c *ASRClient) resourceID() string {
	if c.config.ConcurrentMode {
		return resourceConcurrent
	}
	return resourceHourly
}

func (c *ASRClient) sessionRequest(req *speechmodel.ASRRequest) asrSessionRequest {
	var r asrSessionRequest
	r.User.UID = req.SessionID

	r.Audio.Format = req.Format
	if r.Audio.Format == "" {
		r.Audio.Format = "wav"
	}
	r.Audio.Language = req.Language
	if r.Audio.Language == "" {
		r.Audio.Language = c.config.ASRLanguage
	}
	r.Audio.Codec = "raw"
	r.Audio.Rate = 16000
	r.Audio.Bits = 16
	r.Audio.Channel = 1

	r.Request.ModelName = c.config.ASRModel
	if r.Request.ModelName == "" {
		r.Request.ModelName = "bigmodel"
	}
	r.Request.EnableITN = true
	r.Request.EnablePunc = true
	r.Request.ShowUtterances = true
	r.Request.ResultType = "full"
	r.Request.EndWindowSize = 800
	return r
}

func (c *ASRClient) sendConfig(conn *websocket.Conn, req *speechmodel.ASRRequest) error {
	payload, err := json.Marshal(c.sessionRequest(req))
	if err != nil {
		return fmt.Errorf("marshal asr request: %w", err)
	}
	payload, err = compress(payload, GzipCompression)
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, configFrame(payload).Encode()); err != nil {
		return fmt.Errorf("send asr request: %w", err)
	}
	return nil
}

func (c *ASRClient) sendAudio(ctx context.Context, conn *websocket.Conn, audio []byte) error {
	// the config frame takes sequence 1
	seq := int32(2)
	for start := 0; start < len(audio); start += c.packetSize {
		end := min(start+c.packetSize, len(audio))
		last := end == len(audio)

		packet, err := compress(audio[start:end], GzipCompression)
		if err != nil {
			return err
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, audioFrame(packet, seq, last).Encode()); err != nil {
			return fmt.Errorf("send audio packet %d: %w", seq, err)
		}
		seq++
		if last {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.pace):
		}
	}
	return nil
}

func (c *ASRClient) receive(conn *websocket.Conn, sessionID string) (*speechmodel.ASRResponse, error) {
	var (
		text     string
		duration int64
	)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("read asr response: %w", err)
		}
		frame, err := DecodeFrame(data)
		if err != nil {
			return nil, fmt.Errorf("decode asr frame: %w", err)
		}

		switch frame.Header.Type {
		case ErrorMessage:
			payload, _ := decompress(frame.Payload, frame.Header.Compression)
			return nil, fmt.Errorf("asr error %d: %s", frame.ErrorCode, string(payload))

		case FullServerResponse:
			payload, err := decompress(frame.Payload, frame.Header.Compression)
			if err != nil {
				return nil, fmt.Errorf("decompress asr payload: %w", err)
			}
			var msg asrServerMessage
			if err := json.Unmarshal(payload, &msg); err != nil {
				c.log.Warn("skipping unreadable asr payload", "session", sessionID, "error", err)
				continue
			}
			if msg.Code != 0 && msg.Code != successCode {
				return nil, fmt.Errorf("asr api error %d: %s", msg.Code, msg.Message)
			}

			if candidate := resultText(msg); candidate != "" {
				text = candidate
			}
			if msg.AudioInfo.Duration > 0 {
				duration = msg.AudioInfo.Duration
			}
			if frame.Last() || msg.Sequence < 0 {
				return &speechmodel.ASRResponse{
					SessionID:  sessionID,
					Text:       text,
					Confidence: confidence(text),
					Duration:   duration,
					RequestID:  sessionID,
					CreatedAt:  time.Now().UTC(),
				}, nil
			}
		}
	}
}

func resultText(msg asrServerMessage) string {
	if msg.Result.Text != "" {
		return msg.Result.Text
	}
	parts := make([]string, 0, len(msg.Result.Utterances))
	for _, u := range msg.Result.Utterances {
		if u.Text != "" {
			parts = append(parts, u.Text)
		}
	}
	return strings.Join(parts, " ")
}

// The endpoint reports no score; anything non-empty is treated as confident.
func confidence(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	return 0.95
}
