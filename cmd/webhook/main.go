// Command webhook registers, removes, or inspects the Telegram bot webhook.
//
//	go run ./cmd/webhook setup|delete|info
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"

	"parking_backend/internal/feature/platedetection/transport/telegram"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[INFO] .env not found; using system environment variables")
	}
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: webhook setup|delete|info")
		os.Exit(2)
	}

	cfg, err := telegram.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatalf("failed to connect to Telegram: %v", err)
	}
	log.Printf("bot: @%s", bot.Self.UserName)

	switch os.Args[1] {
	case "setup":
		if cfg.WebhookURL == "" {
			log.Fatal("WEBHOOK_URL is not set (e.g. https://your-domain/telegram-webhook)")
		}
		wh, err := tgbotapi.NewWebhook(cfg.WebhookURL)
		if err != nil {
			log.Fatalf("invalid WEBHOOK_URL: %v", err)
		}
		if _, err := bot.Request(wh); err != nil {
			log.Fatalf("setWebhook failed: %v", err)
		}
		log.Println("webhook set")
		printInfo(bot)
	case "delete":
		if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			log.Fatalf("deleteWebhook failed: %v", err)
		}
		log.Println("webhook removed")
	case "info":
		printInfo(bot)
	default:
		log.Fatalf("unknown command %q (want setup, delete or info)", os.Args[1])
	}
}

func printInfo(bot *tgbotapi.BotAPI) {
	info, err := bot.GetWebhookInfo()
	if err != nil {
		log.Fatalf("getWebhookInfo failed: %v", err)
	}
	fmt.Printf("URL:              %s\n", info.URL)
	fmt.Printf("Pending updates:  %d\n", info.PendingUpdateCount)
	if info.LastErrorDate != 0 {
		fmt.Printf("Last error:       %s (%s)\n", info.LastErrorMessage, time.Unix(int64(info.LastErrorDate), 0).UTC().Format(time.RFC3339))
	}
}
