package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/example/dailylove/internal/content"
	"github.com/example/dailylove/internal/daily"
	"github.com/example/dailylove/internal/quiz"
	"github.com/example/dailylove/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback data prefixes
const (
	callbackDone     = "done:"
	callbackQuiz     = "quiz:"
	callbackToday    = "today"
	callbackTomorrow = "tomorrow"
	callbackQuizGo   = "quiz_start"
)

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

func entryButtons(entry daily.Entry, policy daily.Policy) [][]MenuButton {
	var rows [][]MenuButton
	if policy == daily.PolicyExplicit && !entry.Completed {
		rows = append(rows, []MenuButton{{Text: "✅ Done", CallbackData: callbackDone + entry.Track}})
	}
	rows = append(rows, []MenuButton{{Text: "👀 Tomorrow", CallbackData: callbackTomorrow}})
	return rows
}

func quizButtons(index int, q quiz.Question) [][]MenuButton {
	rows := make([][]MenuButton, 0, len(q.Options))
	for i, opt := range q.Options {
		rows = append(rows, []MenuButton{{
			Text:         opt.Text,
			CallbackData: fmt.Sprintf("%s%d:%d", callbackQuiz, index, i),
		}})
	}
	return rows
}

// parseQuizCallback decodes "quiz:<question>:<option>"
func parseQuizCallback(data string) (question, option int, ok bool) {
	rest, found := strings.CutPrefix(data, callbackQuiz)
	if !found {
		return 0, 0, false
	}
	q, o, found := strings.Cut(rest, ":")
	if !found {
		return 0, 0, false
	}
	question, err := strconv.Atoi(q)
	if err != nil || question < 0 {
		return 0, 0, false
	}
	option, err = strconv.Atoi(o)
	if err != nil || option < 0 {
		return 0, 0, false
	}
	return question, option, true
}

// parseHourArg parses the argument of /remind: an hour 0-23, or "off"
func parseHourArg(arg string) (hour int, enabled bool, err error) {
	arg = strings.ToLower(strings.TrimSpace(arg))
	switch arg {
	case "":
		return 0, false, fmt.Errorf("usage: /remind HOUR (0-23) or /remind off")
	case "off":
		return 0, false, nil
	}
	arg = strings.TrimSuffix(arg, ":00")
	hour, err = strconv.Atoi(arg)
	if err != nil || hour < 0 || hour > 23 {
		return 0, false, fmt.Errorf("%q is not an hour between 0 and 23", arg)
	}
	return hour, true, nil
}

// parseDayArg parses the argument of /day
func parseDayArg(arg string) (int, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return 0, fmt.Errorf("usage: /day N")
	}
	day, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("%q is not a day number", arg)
	}
	return day, nil
}

func formatItem(b *strings.Builder, item models.ContentItem, locale string) {
	r := content.Render(item, locale)
	if r.Title != "" {
		b.WriteString(r.Title)
		b.WriteString("\n\n")
	}
	b.WriteString(r.Body)
	if r.Minutes > 0 {
		fmt.Fprintf(b, "\n\n⏱ %d min", r.Minutes)
	}
}

func formatEntry(entry daily.Entry, trackTitle, locale string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💌 %s · Day %d\n\n", trackTitle, entry.Day)
	formatItem(&b, entry.Item, locale)
	if entry.Completed {
		b.WriteString("\n\n✅ Completed today")
	}
	return b.String()
}

func formatPreview(entry daily.Entry, trackTitle, locale string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👀 Coming up in %s · Day %d\n\n", trackTitle, entry.Day)
	formatItem(&b, entry.Item, locale)
	return b.String()
}

func formatArchive(entry daily.ArchiveEntry, trackTitle, locale string) string {
	if !entry.Locked {
		return formatEntry(entry.Entry, trackTitle, locale)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🔒 Day %d is still locked", entry.Requested)
	switch entry.DaysUntilUnlock {
	case 1:
		b.WriteString(" (1 more day)")
	default:
		if entry.DaysUntilUnlock > 1 {
			fmt.Fprintf(&b, " (%d more days)", entry.DaysUntilUnlock)
		}
	}
	fmt.Fprintf(&b, ". Here is day %d:\n\n", entry.Day)
	formatItem(&b, entry.Item, locale)
	return b.String()
}

func formatStats(stats models.Statistics, trackTitle string, rec models.ProgressRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 %s\n\n", trackTitle)
	fmt.Fprintf(&b, "Current day: %d\n", rec.CurrentDay)
	fmt.Fprintf(&b, "Days completed: %d\n", stats.TotalCompletions)
	fmt.Fprintf(&b, "Streak: %d\n", stats.CurrentStreak)
	if stats.LastCompletedOn != "" {
		fmt.Fprintf(&b, "Last completed: %s\n", stats.LastCompletedOn)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatTracks(tracks []*daily.Track, current string) string {
	var b strings.Builder
	b.WriteString("📚 Tracks\n")
	for _, t := range tracks {
		marker := "•"
		if t.Name == current {
			marker = "▶"
		}
		fmt.Fprintf(&b, "\n%s %s (%s), %d days", marker, t.Title, t.Name, t.MaxDay)
	}
	b.WriteString("\n\nSwitch with /track NAME")
	return b.String()
}

func formatQuestion(index, total int, q quiz.Question) string {
	return fmt.Sprintf("❓ %d/%d\n\n%s", index+1, total, q.Prompt)
}

func formatQuizResult(result *models.PersonalizationContext) string {
	if result == nil || len(result.RankedTags) == 0 {
		return "🎉 Thanks! Your daily actions stay as they are."
	}
	return fmt.Sprintf("🎉 Your top love languages: %s.\nYour daily actions will lean toward them.",
		strings.Join(result.RankedTags, ", "))
}

const helpText = "📖 Daily Love\n\n" +
	"/today - Today's action\n" +
	"/done - Mark today's action as done\n" +
	"/tomorrow - Peek at the next day\n" +
	"/day N - Open day N\n" +
	"/tracks - List tracks\n" +
	"/track NAME - Switch track\n" +
	"/quiz - Love-language quiz to personalize your actions\n" +
	"/remind HOUR|off - Daily reminder hour\n" +
	"/timezone ZONE - Your time zone, e.g. Europe/Madrid\n" +
	"/stats - Your progress"
