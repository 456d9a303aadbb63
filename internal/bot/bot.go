package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/example/dailylove/internal/apperr"
	"github.com/example/dailylove/internal/daily"
	"github.com/example/dailylove/internal/logger"
	"github.com/example/dailylove/internal/quiz"
	"github.com/example/dailylove/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// API is the part of the Telegram client the bot uses. *tgbotapi.BotAPI implements it.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Subscribers stores chats and their settings
type Subscribers interface {
	GetByChatID(ctx context.Context, chatID int64) (*models.Subscriber, error)
	Create(ctx context.Context, sub *models.Subscriber) error
	Update(ctx context.Context, sub *models.Subscriber) error
}

// PersonalizationStore keeps quiz results
type PersonalizationStore interface {
	Save(ctx context.Context, result models.PersonalizationResult) error
}

// SubscriberCounter reports how many subjects started each track
type SubscriberCounter interface {
	CountSubjects(ctx context.Context) (map[string]int, error)
}

// Deps are the services the bot talks to
type Deps struct {
	Service         *daily.Service
	Subscribers     Subscribers
	Personalization PersonalizationStore
	Counter         SubscriberCounter // optional, for /admin_stats
	Quiz            *quiz.Quiz
}

// Bot represents the Telegram bot application
type Bot struct {
	api      API
	service  *daily.Service
	subs     Subscribers
	prefs    PersonalizationStore
	counter  SubscriberCounter
	quiz     *quiz.Quiz
	sessions *quiz.Sessions
	config   *Config
	log      *logger.Logger
	now      func() time.Time
	wg       sync.WaitGroup
}

// NewAPI authorizes a Telegram client
func NewAPI(token string) (*tgbotapi.BotAPI, error) {
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable is not set")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("unable to create bot: %w", err)
	}
	return api, nil
}

// New creates a new bot instance
func New(api API, deps Deps, config *Config, log *logger.Logger) (*Bot, error) {
	if api == nil || deps.Service == nil || deps.Subscribers == nil {
		return nil, apperr.Invalid("bot needs an API client, a service and a subscriber store")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if deps.Quiz == nil {
		deps.Quiz = quiz.Default()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Bot{
		api:      api,
		service:  deps.Service,
		subs:     deps.Subscribers,
		prefs:    deps.Personalization,
		counter:  deps.Counter,
		quiz:     deps.Quiz,
		sessions: quiz.NewSessions(deps.Quiz),
		config:   config,
		log:      log.With("component", "bot"),
		now:      time.Now,
	}, nil
}

// Start handles updates until ctx is cancelled, then waits for in-flight handlers
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = b.config.UpdateTimeout
	updates := b.api.GetUpdatesChan(updateConfig)
	b.log.Info("bot started")

	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.wg.Add(1)
			go func(update tgbotapi.Update) {
				defer b.wg.Done()
				if err := b.HandleUpdate(ctx, update); err != nil {
					b.log.Error("failed to handle update", "update_id", update.UpdateID, "error", err)
				}
			}(update)
		}
	}
}

// HandleUpdate dispatches one update
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	switch {
	case update.CallbackQuery != nil:
		return b.HandleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		return b.HandleCommand(ctx, update.Message)
	case update.Message != nil && update.Message.Chat != nil:
		return b.reply(update.Message.Chat.ID, "I don't understand. Use /help to see what I can do.")
	}
	return nil
}

// SendReminder sends the day's content as a reminder. It implements scheduler.Notifier.
func (b *Bot) SendReminder(ctx context.Context, sub models.Subscriber, entry daily.Entry) error {
	track, err := b.service.Catalog().Track(entry.Track)
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(sub.ChatID, "⏰ Reminder\n\n"+formatEntry(entry, track.Title, sub.Locale))
	msg.ReplyMarkup = createKeyboard(entryButtons(entry, track.Policy))
	return b.sendMessage(msg)
}

// subscriber loads the chat's subscriber, registering it on first contact
func (b *Bot) subscriber(ctx context.Context, chat *tgbotapi.Chat, from *tgbotapi.User) (*models.Subscriber, error) {
	sub, err := b.subs.GetByChatID(ctx, chat.ID)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	sub = &models.Subscriber{
		ChatID:              chat.ID,
		SubjectID:           subjectID(chat.ID),
		Track:               b.config.DefaultTrack,
		NotificationEnabled: true,
		NotificationHour:    b.config.DefaultReminderHour,
	}
	if from != nil {
		sub.Username = from.UserName
		sub.FirstName = from.FirstName
		sub.Locale = from.LanguageCode
	}
	if err := b.subs.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to create subscriber: %w", err)
	}
	b.log.Info("subscriber registered", "chat_id", chat.ID, "track", sub.Track)
	return sub, nil
}

// localNow is the current time in the subscriber's zone
func (b *Bot) localNow(sub *models.Subscriber) time.Time {
	return b.now().In(sub.Location(b.config.Location))
}

func subjectID(chatID int64) string {
	return "tg:" + strconv.FormatInt(chatID, 10)
}

func (b *Bot) reply(chatID int64, text string) error {
	return b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) sendMessage(msg tgbotapi.MessageConfig) error {
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// replyError shows invalid-argument errors to the user and hides everything else
func (b *Bot) replyError(chatID int64, err error) error {
	if errors.Is(err, apperr.ErrInvalidArgument) {
		return b.reply(chatID, "⚠️ "+err.Error())
	}
	b.log.Error("request failed", "chat_id", chatID, "error", err)
	return b.reply(chatID, "❌ Something went wrong. Please try again later.")
}
