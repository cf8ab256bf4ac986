package hosting

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/contre95/plexify/src/features/config"
	"github.com/contre95/plexify/src/features/syncing"
	"github.com/contre95/plexify/src/music"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramCommandHandler interface that each feature implements
type TelegramCommandHandler interface {
	HandleCommand(bot *tgbotapi.BotAPI, chatID int64, command string, args string) error
	GetCommands() map[string]string                                             // Returns command -> description mapping
	HandleCallback(bot *tgbotapi.BotAPI, callback *tgbotapi.CallbackQuery) bool // Handle feature-specific callbacks
}

// TelegramBot answers commands from allowed users and posts cycle reports.
type TelegramBot struct {
	bot      *tgbotapi.BotAPI
	config   *config.Manager
	handlers map[string]TelegramCommandHandler
	commands map[string]string // command -> feature
	updates  tgbotapi.UpdatesChannel
	stopChan chan struct{}
}

// NewTelegramBot creates a new Telegram bot instance
func NewTelegramBot(cfg *config.Manager, syncService *syncing.Service) (*TelegramBot, error) {
	telegramConfig := cfg.Get().Telegram

	if !telegramConfig.Enabled {
		return nil, fmt.Errorf("telegram bot is disabled in configuration")
	}

	if telegramConfig.Token == "" {
		return nil, fmt.Errorf("telegram bot token is not configured")
	}

	bot, err := tgbotapi.NewBotAPI(telegramConfig.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	slog.Info("Telegram bot initialized", "username", bot.Self.UserName)

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30

	telegramBot := &TelegramBot{
		bot:      bot,
		config:   cfg,
		handlers: make(map[string]TelegramCommandHandler),
		commands: make(map[string]string),
		updates:  bot.GetUpdatesChan(updateConfig),
		stopChan: make(chan struct{}),
	}

	telegramBot.RegisterHandler("syncing", syncing.NewTelegramHandler(syncService))
	telegramBot.RegisterHandler("config", config.NewTelegramHandler(cfg))

	return telegramBot, nil
}

// RegisterHandler registers a feature's command handler
func (t *TelegramBot) RegisterHandler(feature string, handler TelegramCommandHandler) {
	t.handlers[feature] = handler
	for command := range handler.GetCommands() {
		t.commands[command] = feature
	}
	slog.Debug("Registered Telegram handler", "feature", feature)
}

// Start begins listening for Telegram updates
func (t *TelegramBot) Start() {
	slog.Info("Starting Telegram bot listener")

	for {
		select {
		case update := <-t.updates:
			if update.Message != nil {
				go t.handleMessage(update)
			}
			if update.CallbackQuery != nil {
				go t.handleCallbackQuery(update)
			}
		case <-t.stopChan:
			slog.Info("Stopping Telegram bot listener")
			return
		}
	}
}

// Stop gracefully stops the bot
func (t *TelegramBot) Stop() {
	t.bot.StopReceivingUpdates()
	close(t.stopChan)
}

// Observe posts a finished cycle to the configured chat.
func (t *TelegramBot) Observe(report music.CycleReport) {
	chatID := t.config.Get().Telegram.ChatID
	if chatID == 0 {
		return
	}
	t.sendMessage(chatID, syncing.FormatReport(report))
}

// handleMessage processes incoming messages
func (t *TelegramBot) handleMessage(update tgbotapi.Update) {
	message := update.Message
	chatID := message.Chat.ID

	allowedUsers := t.config.Get().Telegram.AllowedUsers
	if len(allowedUsers) == 0 {
		slog.Warn("No allowed users configured", "chat_id", chatID)
		t.sendMessage(chatID, "❌ Access denied: No users configured. Please add users to the config.")
		return
	}

	username := displayName(message.From)
	if !slices.Contains(allowedUsers, username) {
		slog.Warn("Unauthorized user", "username", username, "chat_id", chatID)
		t.sendMessage(chatID, "Unknown user, please add your user to the config")
		return
	}

	if message.IsCommand() {
		t.handleCommand(message.Command(), message.CommandArguments(), chatID)
		return
	}

	t.sendMessage(chatID, "🤖 Send /menu or /help to see available options")
}

// displayName returns the username, falling back to the full name.
func displayName(user *tgbotapi.User) string {
	if user == nil {
		return ""
	}
	if user.UserName != "" {
		return user.UserName
	}
	name := user.FirstName
	if user.LastName != "" {
		name += " " + user.LastName
	}
	return name
}

// handleCommand processes bot commands
func (t *TelegramBot) handleCommand(command, args string, chatID int64) {
	slog.Debug("Processing command", "command", command, "args", args, "chat_id", chatID)

	switch command {
	case "help", "start", "menu":
		t.handleHelp(chatID)
	default:
		if err := t.routeCommand(command, args, chatID); err != nil {
			slog.Error("Failed to handle command", "command", command, "error", err)
			t.sendMessage(chatID, "❌ Failed to process command")
		}
	}
}

// routeCommand routes commands to the appropriate feature handler
func (t *TelegramBot) routeCommand(command, args string, chatID int64) error {
	feature, exists := t.commands[command]
	if !exists {
		t.sendMessage(chatID, "❌ Unknown command. Send /help to see available commands.")
		return nil
	}

	handler, exists := t.handlers[feature]
	if !exists {
		t.sendMessage(chatID, fmt.Sprintf("❌ %s feature not available", escapeMarkdown(feature)))
		return nil
	}

	return handler.HandleCommand(t.bot, chatID, command, args)
}

// escapeMarkdown escapes special characters for safe Markdown usage
func escapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"`", "\\`", "*", "\\*", "_", "\\_", "[", "\\[", "]", "\\]",
	)
	return replacer.Replace(text)
}

// sendMessage sends a message to the specified chat
func (t *TelegramBot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := t.bot.Send(msg)
	if err != nil {
		slog.Error("Failed to send message", "error", err, "chat_id", chatID)
	}
}

// handleCallbackQuery handles callback queries from inline keyboards
func (t *TelegramBot) handleCallbackQuery(update tgbotapi.Update) {
	callback := update.CallbackQuery

	if !slices.Contains(t.config.Get().Telegram.AllowedUsers, displayName(callback.From)) {
		t.bot.Request(tgbotapi.NewCallback(callback.ID, "Unknown user"))
		return
	}

	if command, ok := strings.CutPrefix(callback.Data, "menu_"); ok {
		t.bot.Request(tgbotapi.NewCallback(callback.ID, ""))
		t.handleCommand(command, "", callback.Message.Chat.ID)
		return
	}

	for _, handler := range t.handlers {
		if handler.HandleCallback(t.bot, callback) {
			break
		}
	}

	// Answer callback to remove loading state
	t.bot.Request(tgbotapi.NewCallback(callback.ID, ""))
}

// handleHelp shows the command list with a shortcut keyboard
func (t *TelegramBot) handleHelp(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, helpText(t.handlers))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Status", "menu_status"),
			tgbotapi.NewInlineKeyboardButtonData("🔄 Sync now", "menu_sync"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗂 History", "menu_history"),
			tgbotapi.NewInlineKeyboardButtonData("⚙️ Config", "menu_config"),
		),
	)
	if _, err := t.bot.Send(msg); err != nil {
		slog.Error("Failed to send menu", "error", err, "chat_id", chatID)
	}
}

func helpText(handlers map[string]TelegramCommandHandler) string {
	var lines []string
	for _, h := range handlers {
		for command, description := range h.GetCommands() {
			lines = append(lines, fmt.Sprintf("/%s - %s", command, description))
		}
	}
	sort.Strings(lines)
	return "*🤖 Plexify*\n\n" + strings.Join(lines, "\n")
}
