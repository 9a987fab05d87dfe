package main

import (
	"cmp"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/labstack/gommon/log"

	"marquee/pkg/inference"
	"marquee/pkg/schema"
	"marquee/pkg/server"
	"marquee/pkg/utils"
)

func main() {
	ctx, done := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	settings, err := utils.Load[schema.Settings]("Settings.json")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("Failed to load Settings.json: %v", err)
	}
	if settings.APIKey == "" {
		settings.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	settings.Model = cmp.Or(settings.Model, os.Getenv("MARQUEE_MODEL"), schema.DefaultModel)

	build := func(st schema.Settings) inference.Inferencer {
		if st.APIKey == "" {
			if key := os.Getenv("OPENAI_API_KEY"); key != "" {
				log.Info("no Gemini key configured, using OpenAI-compatible endpoint")
				return inference.NewOpenAIInferencer(key, os.Getenv("OPENAI_MODEL"))
			}
		}
		return inference.NewGeminiInferencer(st.APIKey, st.Model)
	}

	srv := server.NewServer(ctx, settings, build)
	srv.Echo.Logger.SetLevel(log.INFO)

	conv, err := utils.Load[schema.Conversation]("Conversation.json")
	if err == nil && len(conv.Messages) > 0 {
		srv.SetConversation(conv)
		log.Infof("Loaded %d messages", len(conv.Messages))
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("Failed to load Conversation.json: %v", err)
	}

	addr := ":8080"
	if envAddr := os.Getenv("PORT"); envAddr != "" {
		addr = ":" + envAddr
	}

	finishedShutDown := make(chan struct{})
	go func() {
		<-ctx.Done()
		if err := srv.Shutdown(ctx); err != nil {
			log.Fatal(err)
		}
		done()
		close(finishedShutDown)
	}()

	if err := srv.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error(err)
	}
	<-finishedShutDown
}
