package syncing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/contre95/plexify/src/music"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramHandler handles Telegram commands for the syncing feature
type TelegramHandler struct {
	service *Service
}

// NewTelegramHandler creates a new Telegram handler for the syncing feature
func NewTelegramHandler(service *Service) *TelegramHandler {
	return &TelegramHandler{service: service}
}

// HandleCommand processes syncing-related Telegram commands
func (h *TelegramHandler) HandleCommand(bot *tgbotapi.BotAPI, chatID int64, command string, args string) error {
	switch command {
	case "status":
		return h.send(bot, chatID, FormatStatus(h.service.Status()))
	case "sync":
		if h.service.Trigger() {
			return h.send(bot, chatID, "🔄 Sync cycle queued")
		}
		return h.send(bot, chatID, "⏳ A sync cycle is already queued")
	case "history":
		return h.handleHistory(bot, chatID)
	default:
		return h.send(bot, chatID, "❌ Unknown command. Use /status, /sync or /history")
	}
}

// GetCommands returns the available commands for this handler
func (h *TelegramHandler) GetCommands() map[string]string {
	return map[string]string{
		"status":  "Shows the sync loop state and the last cycle",
		"sync":    "Starts a sync cycle now",
		"history": "Lists the last cycles",
	}
}

// HandleCallback handles callback queries for this feature (syncing has no callbacks)
func (h *TelegramHandler) HandleCallback(bot *tgbotapi.BotAPI, callback *tgbotapi.CallbackQuery) bool {
	return false
}

func (h *TelegramHandler) handleHistory(bot *tgbotapi.BotAPI, chatID int64) error {
	history := h.service.History()
	if history == nil {
		return h.send(bot, chatID, "📭 Cycle history is disabled")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	reports, err := history.List(ctx, 5)
	if err != nil {
		return h.send(bot, chatID, fmt.Sprintf("❌ Failed to load history: %v", err))
	}
	if len(reports) == 0 {
		return h.send(bot, chatID, "📭 No cycle has run yet")
	}
	var b strings.Builder
	b.WriteString("🗂 *Last cycles*\n\n")
	for _, r := range reports {
		icon := "✅"
		if r.Failed() {
			icon = "❌"
		}
		fmt.Fprintf(&b, "%s %s (%s): %d downloaded, %d failed, %d deleted\n",
			icon, r.StartedAt.Format("2006-01-02 15:04"), r.Duration().Round(time.Second),
			r.Stats.DownloadsSucceeded, r.Stats.DownloadsFailed, r.Stats.DeletionsSucceeded)
	}
	return h.send(bot, chatID, b.String())
}

func (h *TelegramHandler) send(bot *tgbotapi.BotAPI, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := bot.Send(msg)
	return err
}

// FormatReport renders a cycle report as a Telegram message.
func FormatReport(r music.CycleReport) string {
	var b strings.Builder
	if r.Failed() {
		fmt.Fprintf(&b, "❌ *Sync cycle failed* after %s\n`%s`\n\n", r.Duration().Round(time.Second), r.Error)
	} else {
		fmt.Fprintf(&b, "✅ *Sync cycle finished* in %s\n\n", r.Duration().Round(time.Second))
	}
	s := r.Stats
	fmt.Fprintf(&b, "📋 Playlists: %d (failed %d)\n", s.PlaylistsProcessed, s.PlaylistsFailed)
	fmt.Fprintf(&b, "⬇️ Downloads: %d attempted, %d succeeded, %d failed, %d already present\n",
		s.DownloadsAttempted, s.DownloadsSucceeded, s.DownloadsFailed, s.DownloadsSkipped)
	fmt.Fprintf(&b, "🗑 Deletions: %d succeeded, %d failed", s.DeletionsSucceeded, s.DeletionsFailed)
	return b.String()
}

// FormatStatus renders the loop state as a Telegram message.
func FormatStatus(st Status) string {
	var b strings.Builder
	if st.Running {
		b.WriteString("🔄 *A sync cycle is running*\n")
	} else if !st.NextRun.IsZero() {
		fmt.Fprintf(&b, "⏱ Next cycle at %s\n", st.NextRun.Format("15:04:05"))
	}
	if st.Last == nil {
		b.WriteString("No cycle has finished yet")
		return b.String()
	}
	b.WriteString("\n")
	b.WriteString(FormatReport(*st.Last))
	return b.String()
}
