package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/smartbite/assistant/backend/internal/analysis/intent"
	"github.com/smartbite/assistant/backend/internal/config"
	"github.com/smartbite/assistant/backend/internal/logger"
	"github.com/smartbite/assistant/backend/internal/service/chat"
	"github.com/smartbite/assistant/backend/internal/service/speech"
)

func main() {
	mode := flag.String("mode", "classify", "classify, reply or asr")
	text := flag.String("text", "", "message to classify or answer")
	audioPath := flag.String("audio", "", "audio file for -mode=asr")
	format := flag.String("format", "", "audio format, defaults to the file extension")
	language := flag.String("lang", "", "recognition language, defaults to SPEECH_ASR_LANGUAGE")
	timeout := flag.Duration("timeout", 45*time.Second, "request timeout")
	flag.Parse()

	_ = godotenv.Load()

	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		fail("build logger: %v", err)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch *mode {
	case "classify":
		requireText(*text)
		printJSON(intent.Classify(*text))

	case "reply":
		requireText(*text)
		pipeline, err := chat.NewRulePipeline(ctx, nil)
		if err != nil {
			fail("build reply pipeline: %v", err)
		}
		reply, err := pipeline.Reply(ctx, *text)
		if err != nil {
			fail("reply: %v", err)
		}
		fmt.Println(reply)

	case "asr":
		runASR(ctx, log, *audioPath, *format, *language)

	default:
		flag.Usage()
		fail("unknown mode %q", *mode)
	}
}

func runASR(ctx context.Context, log *logger.Logger, audioPath, format, language string) {
	if audioPath == "" {
		fail("-audio is required for -mode=asr")
	}
	cfg, err := config.Load()
	if err != nil {
		fail("load configuration: %v", err)
	}
	svc := speech.NewService(cfg.Speech.Model(), log)
	if !svc.Enabled() {
		fail("speech credentials missing: set SPEECH_APP_ID and SPEECH_ACCESS_TOKEN")
	}

	data, err := os.ReadFile(audioPath)
	if err != nil {
		fail("read audio: %v", err)
	}
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(audioPath)), ".")
	}

	start := time.Now()
	resp, err := svc.TranscribeBuffer(ctx, fmt.Sprintf("probe-%d", start.UnixNano()), data, format, language)
	if err != nil {
		fail("transcribe: %v", err)
	}
	log.Info("transcribed", "bytes", len(data), "elapsed", time.Since(start))

	printJSON(map[string]any{
		"transcript": resp,
		"decision":   intent.Classify(resp.Text),
	})
}

func requireText(text string) {
	if strings.TrimSpace(text) == "" {
		fail("-text is required")
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fail("encode output: %v", err)
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
