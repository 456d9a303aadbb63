package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/dailylove/internal/apperr"
	"github.com/example/dailylove/internal/daily"
	"github.com/example/dailylove/internal/logger"
	"github.com/example/dailylove/internal/progress"
	"github.com/example/dailylove/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var t0 = time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.MessageConfig
	requests int
	updates  chan tgbotapi.Update
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {}

func (f *fakeAPI) last(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

func (f *fakeAPI) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type memorySubscribers struct {
	mu   sync.Mutex
	subs map[int64]models.Subscriber
}

func (m *memorySubscribers) GetByChatID(_ context.Context, chatID int64) (*models.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[chatID]
	if !ok {
		return nil, fmt.Errorf("subscriber %d: %w", chatID, apperr.ErrNotFound)
	}
	return &sub, nil
}

func (m *memorySubscribers) Create(_ context.Context, sub *models.Subscriber) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[sub.ChatID] = *sub
	return nil
}

func (m *memorySubscribers) Update(ctx context.Context, sub *models.Subscriber) error {
	return m.Create(ctx, sub)
}

type memoryPrefs struct {
	saved []models.PersonalizationResult
}

func (m *memoryPrefs) Save(_ context.Context, result models.PersonalizationResult) error {
	m.saved = append(m.saved, result)
	return nil
}

type fixture struct {
	bot   *Bot
	api   *fakeAPI
	subs  *memorySubscribers
	prefs *memoryPrefs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	catalog, err := daily.DefaultCatalog()
	require.NoError(t, err)
	store := progress.NewMemoryStore()
	svc, err := daily.NewService(daily.ServiceConfig{
		Catalog:     catalog,
		Tracker:     progress.NewTracker(store, logger.NewNop()),
		Completions: store,
	})
	require.NoError(t, err)

	f := &fixture{
		api:   &fakeAPI{updates: make(chan tgbotapi.Update)},
		subs:  &memorySubscribers{subs: make(map[int64]models.Subscriber)},
		prefs: &memoryPrefs{},
	}
	cfg := DefaultConfig()
	cfg.AdminUserIDs = []int64{1}
	f.bot, err = New(f.api, Deps{Service: svc, Subscribers: f.subs, Personalization: f.prefs}, cfg, logger.NewNop())
	require.NoError(t, err)
	f.bot.now = func() time.Time { return t0 }
	return f
}

func (f *fixture) command(t *testing.T, chatID int64, text string) tgbotapi.MessageConfig {
	t.Helper()
	cmd := strings.Fields(text)[0]
	msg := &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		From:     &tgbotapi.User{ID: chatID, FirstName: "Ana", LanguageCode: "en"},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}
	require.NoError(t, f.bot.HandleUpdate(context.Background(), tgbotapi.Update{Message: msg}))
	return f.api.last(t)
}

func (f *fixture) press(t *testing.T, chatID int64, data string) {
	t.Helper()
	cb := &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: chatID},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}},
		Data:    data,
	}
	require.NoError(t, f.bot.HandleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: cb}))
}

func buttons(msg tgbotapi.MessageConfig) []string {
	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		return nil
	}
	var out []string
	for _, row := range markup.InlineKeyboard {
		for _, b := range row {
			if b.CallbackData != nil {
				out = append(out, *b.CallbackData)
			}
		}
	}
	return out
}

func TestStartRegistersSubscriber(t *testing.T) {
	f := newFixture(t)
	msg := f.command(t, 42, "/start")
	assert.Contains(t, msg.Text, "Hi Ana")
	assert.Equal(t, []string{callbackToday, callbackQuizGo}, buttons(msg))

	sub, err := f.subs.GetByChatID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "tg:42", sub.SubjectID)
	assert.Equal(t, "love-actions", sub.Track)
	assert.Equal(t, "en", sub.Locale)
	assert.True(t, sub.NotificationEnabled)
	assert.Equal(t, 9, sub.NotificationHour)
}

func TestTodayAndDone(t *testing.T) {
	f := newFixture(t)

	msg := f.command(t, 42, "/today")
	assert.Contains(t, msg.Text, "Day 1")
	assert.Contains(t, msg.Text, "Morning note")
	assert.Equal(t, []string{"done:love-actions", callbackTomorrow}, buttons(msg))

	msg = f.command(t, 42, "/done")
	assert.Contains(t, msg.Text, "Day 2 unlocks tomorrow")

	f.press(t, 42, "done:love-actions")
	assert.Contains(t, f.api.last(t).Text, "already completed")

	msg = f.command(t, 42, "/today")
	assert.Contains(t, msg.Text, "Day 1")
	assert.Contains(t, msg.Text, "Completed today")
	assert.Equal(t, []string{callbackTomorrow}, buttons(msg))

	msg = f.command(t, 42, "/tomorrow")
	assert.Contains(t, msg.Text, "Day 2")

	f.bot.now = func() time.Time { return t0.AddDate(0, 0, 1) }
	msg = f.command(t, 42, "/today")
	assert.Contains(t, msg.Text, "Day 2")
	assert.NotContains(t, msg.Text, "Completed today")
}

func TestLocalizedContent(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.subs.Create(context.Background(), &models.Subscriber{
		ChatID: 7, SubjectID: "tg:7", Track: "love-actions", Locale: "es-MX",
	}))
	msg := f.command(t, 7, "/today")
	assert.Contains(t, msg.Text, "Nota matutina")
}

func TestTomorrowAndDay(t *testing.T) {
	f := newFixture(t)

	msg := f.command(t, 42, "/tomorrow")
	assert.Contains(t, msg.Text, "Day 2")

	msg = f.command(t, 42, "/day 5")
	assert.Contains(t, msg.Text, "Day 5 is still locked (4 more days)")

	msg = f.command(t, 42, "/day 1")
	assert.Contains(t, msg.Text, "Day 1")
	assert.NotContains(t, msg.Text, "locked")

	msg = f.command(t, 42, "/day abc")
	assert.Contains(t, msg.Text, "not a day number")

	msg = f.command(t, 42, "/day 999")
	assert.Contains(t, msg.Text, "⚠️")
}

func TestSwitchTrack(t *testing.T) {
	f := newFixture(t)

	msg := f.command(t, 42, "/tracks")
	assert.Contains(t, msg.Text, "▶ 365 Days of Love")

	msg = f.command(t, 42, "/track nope")
	assert.Contains(t, msg.Text, "Unknown track")

	msg = f.command(t, 42, "/track devotional")
	assert.Contains(t, msg.Text, "Couples Devotional")
	sub, err := f.subs.GetByChatID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "devotional", sub.Track)

	msg = f.command(t, 42, "/done")
	assert.Contains(t, msg.Text, "nothing to mark")
}

func TestRemindAndTimezone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	msg := f.command(t, 42, "/remind 20")
	assert.Contains(t, msg.Text, "20:00")
	sub, err := f.subs.GetByChatID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 20, sub.NotificationHour)
	assert.True(t, sub.NotificationEnabled)

	msg = f.command(t, 42, "/remind off")
	assert.Contains(t, msg.Text, "off")
	sub, err = f.subs.GetByChatID(ctx, 42)
	require.NoError(t, err)
	assert.False(t, sub.NotificationEnabled)
	assert.Equal(t, 20, sub.NotificationHour)

	msg = f.command(t, 42, "/remind 25")
	assert.Contains(t, msg.Text, "between 0 and 23")

	msg = f.command(t, 42, "/timezone Not/AZone")
	assert.Contains(t, msg.Text, "Unknown time zone")
	msg = f.command(t, 42, "/timezone UTC")
	assert.Contains(t, msg.Text, "set to UTC")
}

func TestQuizFlow(t *testing.T) {
	f := newFixture(t)
	f.press(t, 42, callbackQuizGo)
	first := f.api.last(t)
	assert.Contains(t, first.Text, "1/5")

	f.press(t, 42, "quiz:0:9")
	assert.Contains(t, f.api.last(t).Text, "has no option")

	for q := 0; q < f.bot.quiz.Len(); q++ {
		f.press(t, 42, fmt.Sprintf("quiz:%d:0", q))
	}
	assert.Contains(t, f.api.last(t).Text, "love languages")
	require.Len(t, f.prefs.saved, 1)
	assert.Equal(t, "tg:42", f.prefs.saved[0].SubjectID)
	assert.NotEmpty(t, f.prefs.saved[0].Context.RankedTags)

	// stale button presses are ignored
	n := f.api.count()
	f.press(t, 42, "quiz:2:1")
	assert.Equal(t, n, f.api.count())
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	f.command(t, 42, "/done")
	msg := f.command(t, 42, "/stats")
	assert.Contains(t, msg.Text, "Current day: 2")
	assert.Contains(t, msg.Text, "Days completed: 1")
	assert.Contains(t, msg.Text, "Streak: 1")
}

func TestAdminStatsRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	msg := f.command(t, 2, "/admin_stats")
	assert.Contains(t, msg.Text, "only available for administrators")
}

func TestHelpAndUnknown(t *testing.T) {
	f := newFixture(t)
	assert.Contains(t, f.command(t, 42, "/help").Text, "/remind HOUR|off")
	assert.Contains(t, f.command(t, 42, "/bogus").Text, "Unknown command")
}

func TestSendReminder(t *testing.T) {
	f := newFixture(t)
	entry, err := f.bot.service.Today(context.Background(), "tg:5", "love-actions", t0)
	require.NoError(t, err)

	require.NoError(t, f.bot.SendReminder(context.Background(), models.Subscriber{ChatID: 5, Locale: "en"}, entry))
	msg := f.api.last(t)
	assert.Equal(t, int64(5), msg.ChatID)
	assert.Contains(t, msg.Text, "Reminder")
	assert.Contains(t, msg.Text, "Morning note")
}

func TestStartStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.bot.Start(ctx) }()

	f.api.updates <- tgbotapi.Update{UpdateID: 1, Message: &tgbotapi.Message{
		Text:     "/help",
		Chat:     &tgbotapi.Chat{ID: 3},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Length: 5}},
	}}
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, 1, f.api.count())
}

func TestParseHelpers(t *testing.T) {
	q, o, ok := parseQuizCallback("quiz:3:1")
	assert.True(t, ok)
	assert.Equal(t, 3, q)
	assert.Equal(t, 1, o)
	for _, bad := range []string{"quiz:", "quiz:1", "quiz:a:1", "quiz:1:-1", "done:x"} {
		_, _, ok := parseQuizCallback(bad)
		assert.False(t, ok, bad)
	}

	hour, enabled, err := parseHourArg(" 7:00 ")
	require.NoError(t, err)
	assert.True(t, enabled)
	assert.Equal(t, 7, hour)
	_, enabled, err = parseHourArg("OFF")
	require.NoError(t, err)
	assert.False(t, enabled)
	_, _, err = parseHourArg("")
	assert.Error(t, err)

	day, err := parseDayArg(" 12")
	require.NoError(t, err)
	assert.Equal(t, 12, day)
}
