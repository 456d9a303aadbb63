package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/dailylove/internal/apperr"
	"github.com/example/dailylove/internal/daily"
	"github.com/example/dailylove/internal/quiz"
	"github.com/example/dailylove/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// HandleCommand handles bot commands
func (b *Bot) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	if message == nil || message.Chat == nil {
		return fmt.Errorf("invalid message: required fields are missing")
	}
	chatID := message.Chat.ID

	if message.Command() == "help" {
		return b.reply(chatID, helpText)
	}

	sub, err := b.subscriber(ctx, message.Chat, message.From)
	if err != nil {
		return b.replyError(chatID, err)
	}

	args := message.CommandArguments()
	switch message.Command() {
	case "start":
		err = b.handleStart(ctx, sub)
	case "today":
		err = b.handleToday(ctx, sub)
	case "done":
		err = b.handleDone(ctx, sub, sub.Track)
	case "tomorrow":
		err = b.handleTomorrow(ctx, sub)
	case "day":
		err = b.handleDay(ctx, sub, args)
	case "tracks":
		err = b.reply(chatID, formatTracks(b.service.Catalog().Tracks(), sub.Track))
	case "track":
		err = b.handleTrack(ctx, sub, args)
	case "quiz":
		err = b.handleQuizStart(sub)
	case "remind":
		err = b.handleRemind(ctx, sub, args)
	case "timezone":
		err = b.handleTimezone(ctx, sub, args)
	case "stats":
		err = b.handleStats(ctx, sub)
	case "admin_stats":
		err = b.handleAdminStats(ctx, message)
	default:
		err = b.reply(chatID, "Unknown command. Use /help to see what I can do.")
	}
	if err != nil {
		return b.replyError(chatID, err)
	}
	return nil
}

// HandleCallback handles inline button presses
func (b *Bot) HandleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	if callback == nil || callback.Message == nil || callback.Message.Chat == nil {
		return fmt.Errorf("invalid callback data: required fields are missing")
	}

	// Always send an answer to the callback query to remove the loading state
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.log.Warn("failed to answer callback", "error", err)
	}

	chatID := callback.Message.Chat.ID
	sub, err := b.subscriber(ctx, callback.Message.Chat, callback.From)
	if err != nil {
		return b.replyError(chatID, err)
	}

	data := callback.Data
	switch {
	case data == callbackToday:
		err = b.handleToday(ctx, sub)
	case data == callbackTomorrow:
		err = b.handleTomorrow(ctx, sub)
	case data == callbackQuizGo:
		err = b.handleQuizStart(sub)
	case strings.HasPrefix(data, callbackDone):
		err = b.handleDone(ctx, sub, strings.TrimPrefix(data, callbackDone))
	case strings.HasPrefix(data, callbackQuiz):
		question, option, ok := parseQuizCallback(data)
		if !ok {
			return fmt.Errorf("malformed quiz callback %q", data)
		}
		err = b.handleQuizAnswer(ctx, sub, question, option)
	default:
		err = b.reply(chatID, "⚠️ Unknown action")
	}
	if err != nil {
		return b.replyError(chatID, err)
	}
	return nil
}

func (b *Bot) handleStart(ctx context.Context, sub *models.Subscriber) error {
	name := sub.FirstName
	if name == "" {
		name = "there"
	}
	text := fmt.Sprintf("👋 Hi %s!\n\n"+
		"Every day I'll give you one small action for your relationship.\n"+
		"Mark it with /done and the next one unlocks tomorrow.\n\n"+
		"Take the /quiz to lean the actions toward your love languages.", name)
	msg := tgbotapi.NewMessage(sub.ChatID, text)
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "💌 Today's action", CallbackData: callbackToday}},
		{{Text: "❓ Take the quiz", CallbackData: callbackQuizGo}},
	})
	return b.sendMessage(msg)
}

func (b *Bot) handleToday(ctx context.Context, sub *models.Subscriber) error {
	track, err := b.service.Catalog().Track(sub.Track)
	if err != nil {
		return err
	}
	entry, err := b.service.Today(ctx, sub.SubjectID, track.Name, b.localNow(sub))
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(sub.ChatID, formatEntry(entry, track.Title, sub.Locale))
	msg.ReplyMarkup = createKeyboard(entryButtons(entry, track.Policy))
	return b.sendMessage(msg)
}

func (b *Bot) handleDone(ctx context.Context, sub *models.Subscriber, trackName string) error {
	track, err := b.service.Catalog().Track(trackName)
	if err != nil {
		return err
	}
	if track.Policy != daily.PolicyExplicit {
		return b.reply(sub.ChatID, "📅 This track opens a new day on its own, there is nothing to mark.")
	}

	rec, advanced, err := b.service.Complete(ctx, sub.SubjectID, track.Name, b.localNow(sub))
	if err != nil {
		return err
	}
	if !advanced {
		return b.reply(sub.ChatID, "✅ You already completed today's action. Come back tomorrow!")
	}
	return b.reply(sub.ChatID, fmt.Sprintf("🎉 Done! Day %d unlocks tomorrow.", rec.CurrentDay))
}

func (b *Bot) handleTomorrow(ctx context.Context, sub *models.Subscriber) error {
	track, err := b.service.Catalog().Track(sub.Track)
	if err != nil {
		return err
	}
	entry, err := b.service.PreviewNext(ctx, sub.SubjectID, track.Name, b.localNow(sub))
	if errors.Is(err, apperr.ErrNotFound) {
		return b.reply(sub.ChatID, "🎉 Every day of this track is already open.")
	}
	if err != nil {
		return err
	}
	return b.reply(sub.ChatID, formatPreview(entry, track.Title, sub.Locale))
}

func (b *Bot) handleDay(ctx context.Context, sub *models.Subscriber, arg string) error {
	day, err := parseDayArg(arg)
	if err != nil {
		return b.reply(sub.ChatID, err.Error())
	}
	track, err := b.service.Catalog().Track(sub.Track)
	if err != nil {
		return err
	}
	entry, err := b.service.Archive(ctx, sub.SubjectID, track.Name, day, b.localNow(sub))
	if err != nil {
		return err
	}
	return b.reply(sub.ChatID, formatArchive(entry, track.Title, sub.Locale))
}

func (b *Bot) handleTrack(ctx context.Context, sub *models.Subscriber, arg string) error {
	name := strings.TrimSpace(arg)
	if name == "" {
		return b.reply(sub.ChatID, formatTracks(b.service.Catalog().Tracks(), sub.Track))
	}
	track, err := b.service.Catalog().Track(name)
	if err != nil {
		return b.reply(sub.ChatID, fmt.Sprintf("Unknown track %q. Use /tracks to list them.", name))
	}

	sub.Track = track.Name
	if err := b.subs.Update(ctx, sub); err != nil {
		return err
	}
	if err := b.reply(sub.ChatID, fmt.Sprintf("📚 Switched to %s.", track.Title)); err != nil {
		return err
	}
	return b.handleToday(ctx, sub)
}

func (b *Bot) handleQuizStart(sub *models.Subscriber) error {
	q := b.sessions.Start(sub.ChatID)
	return b.sendQuestion(sub.ChatID, 0, q)
}

func (b *Bot) sendQuestion(chatID int64, index int, q quiz.Question) error {
	msg := tgbotapi.NewMessage(chatID, formatQuestion(index, b.quiz.Len(), q))
	msg.ReplyMarkup = createKeyboard(quizButtons(index, q))
	return b.sendMessage(msg)
}

func (b *Bot) handleQuizAnswer(ctx context.Context, sub *models.Subscriber, question, option int) error {
	step, accepted, err := b.sessions.Answer(sub.ChatID, question, option)
	if err != nil {
		return err
	}
	if !accepted {
		return nil
	}
	if step.Next != nil {
		return b.sendQuestion(sub.ChatID, step.Index, *step.Next)
	}

	if b.prefs != nil {
		err := b.prefs.Save(ctx, models.PersonalizationResult{
			SubjectID: sub.SubjectID,
			Context:   *step.Result,
			Source:    quiz.Source,
			UpdatedAt: b.now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("failed to save quiz result: %w", err)
		}
	}
	b.log.Info("quiz completed", "subject_id", sub.SubjectID, "ranked_tags", step.Result.RankedTags)
	return b.reply(sub.ChatID, formatQuizResult(step.Result))
}

func (b *Bot) handleRemind(ctx context.Context, sub *models.Subscriber, arg string) error {
	hour, enabled, err := parseHourArg(arg)
	if err != nil {
		return b.reply(sub.ChatID, err.Error())
	}
	sub.NotificationEnabled = enabled
	if enabled {
		sub.NotificationHour = hour
	}
	if err := b.subs.Update(ctx, sub); err != nil {
		return err
	}
	if !enabled {
		return b.reply(sub.ChatID, "🔕 Reminders are off.")
	}
	return b.reply(sub.ChatID, fmt.Sprintf("🔔 I'll remind you at %02d:00 (%s).", hour, sub.Location(b.config.Location)))
}

func (b *Bot) handleTimezone(ctx context.Context, sub *models.Subscriber, arg string) error {
	zone := strings.TrimSpace(arg)
	if zone == "" {
		return b.reply(sub.ChatID, fmt.Sprintf("🌍 Your time zone is %s. Change it with /timezone ZONE, e.g. /timezone Europe/Madrid.",
			sub.Location(b.config.Location)))
	}
	if _, err := time.LoadLocation(zone); err != nil {
		return b.reply(sub.ChatID, fmt.Sprintf("Unknown time zone %q.", zone))
	}
	sub.Timezone = zone
	if err := b.subs.Update(ctx, sub); err != nil {
		return err
	}
	return b.reply(sub.ChatID, fmt.Sprintf("🌍 Time zone set to %s.", zone))
}

func (b *Bot) handleStats(ctx context.Context, sub *models.Subscriber) error {
	track, err := b.service.Catalog().Track(sub.Track)
	if err != nil {
		return err
	}
	now := b.localNow(sub)
	rec, err := b.service.Progress(ctx, sub.SubjectID, track.Name, now)
	if err != nil {
		return err
	}
	stats, err := b.service.Stats(ctx, sub.SubjectID, track.Name, now)
	if err != nil {
		return err
	}
	return b.reply(sub.ChatID, formatStats(stats, track.Title, rec))
}

func (b *Bot) handleAdminStats(ctx context.Context, message *tgbotapi.Message) error {
	if message.From == nil || !b.config.isAdmin(message.From.ID) || b.counter == nil {
		return b.reply(message.Chat.ID, "This command is only available for administrators.")
	}
	counts, err := b.counter.CountSubjects(ctx)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("📈 Subjects per track\n")
	for _, name := range names {
		fmt.Fprintf(&sb, "\n%s: %d", name, counts[name])
	}
	return b.reply(message.Chat.ID, sb.String())
}
