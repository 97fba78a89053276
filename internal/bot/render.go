package bot

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"chore-tracker/internal/model"
	"chore-tracker/internal/schedule"
	"chore-tracker/internal/service"
)

func (b *Bot) sendTaskList(ctx context.Context, chatID int64, user *model.User) error {
	statuses, err := b.taskSvc.ListWithUrgency(ctx, user)
	if err != nil {
		return b.sendText(chatID, userMessage(err))
	}
	if len(statuses) == 0 {
		return b.sendText(chatID, "No active tasks. Add one with /newtask.")
	}

	// Group by category; inside a group the anchor order from the service is
	// preserved.
	groups := make(map[string][]service.TaskStatus)
	var names []string
	for _, st := range statuses {
		key := strings.ToLower(st.Task.Category)
		if _, ok := groups[key]; !ok {
			names = append(names, key)
		}
		groups[key] = append(groups[key], st)
	}
	sort.Strings(names)

	var builder strings.Builder
	builder.WriteString("📋 <b>Your tasks</b>\n")
	builder.WriteString("Tap a button to record a completion or delete a task.\n\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, name := range names {
		builder.WriteString(fmt.Sprintf("<b>%s</b>\n", escape(categoryLabel(name))))
		for _, st := range groups[name] {
			builder.WriteString(formatTaskStatus(st))
			buttons = append(buttons, []tgbotapi.InlineKeyboardButton{
				tgbotapi.NewInlineKeyboardButtonData(
					fmt.Sprintf("✅ #%d · %s", st.Task.ID, shortTitle(st.Task.Title, 20)),
					fmt.Sprintf("%s%d", cbCompletePrefix, st.Task.ID),
				),
				tgbotapi.NewInlineKeyboardButtonData("🗑 Delete", fmt.Sprintf("%s%d", cbDeletePrefix, st.Task.ID)),
			})
		}
		builder.WriteByte('\n')
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(msg)
	return err
}

func formatTaskStatus(st service.TaskStatus) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s <b>#%d</b> %s · %s\n",
		service.BandIcon(st.Band), st.Task.ID, escape(st.Task.Title), st.Task.Cadence))

	local := st.Deadline.Local()
	if st.Band == schedule.BandOverdue {
		sb.WriteString(fmt.Sprintf("   ⏰ was due %s — <b>overdue</b>\n", local.Format("2006-01-02 15:04")))
	} else {
		sb.WriteString(fmt.Sprintf("   ⏰ due %s · %s\n", local.Format("2006-01-02 15:04"), remainingLabel(st.HoursRemaining)))
	}
	if st.Task.Details != "" {
		sb.WriteString(fmt.Sprintf("   📝 %s\n", escape(st.Task.Details)))
	}
	return sb.String()
}

// formatTaskLine renders a task without classification detail, for the /due
// view.
func formatTaskLine(task model.Task, now time.Time) string {
	c := schedule.Classify(task.Anchor, task.WindowDays, now)
	return fmt.Sprintf("%s <b>#%d</b> %s — due by %s\n",
		service.BandIcon(c.Band), task.ID, escape(task.Title), c.Deadline.In(now.Location()).Format("2006-01-02 15:04"))
}

func formatUserStats(stats service.UserStats) string {
	var sb strings.Builder
	sb.WriteString("📊 <b>Your completions</b>\n")
	sb.WriteString(fmt.Sprintf("• Total: %d\n", stats.TotalCompletions))
	sb.WriteString(fmt.Sprintf("• On time: %d\n", stats.OnTimeCompletions))
	if stats.TotalCompletions > 0 {
		pct := float64(stats.OnTimeCompletions) / float64(stats.TotalCompletions) * 100
		sb.WriteString(fmt.Sprintf("• On-time rate: %.0f%%\n", pct))
	}
	sb.WriteString("\nUse /stats &lt;id&gt; for a single task.")
	return sb.String()
}

func formatTaskStats(stats *service.TaskStats) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📊 <b>%s</b> (#%d)\n", escape(stats.Title), stats.TaskID))
	sb.WriteString(fmt.Sprintf("• Completions: %d\n", stats.TotalCompletions))
	sb.WriteString(fmt.Sprintf("• On time: %d · late: %d (%.0f%% on time)\n", stats.OnTime, stats.Late, stats.OnTimePercentage))
	if stats.AverageMinutes > 0 {
		sb.WriteString(fmt.Sprintf("• Average duration: %.0f min\n", stats.AverageMinutes))
	}
	if stats.LastCompletedAt != nil {
		sb.WriteString(fmt.Sprintf("• Last done: %s\n", stats.LastCompletedAt.Local().Format("2006-01-02 15:04")))
	}
	sb.WriteString(fmt.Sprintf("• Next due from: %s\n", stats.NextDue.Local().Format("2006-01-02 15:04")))
	return strings.TrimSpace(sb.String())
}

func formatHistory(taskID uint, records []model.CompletionRecord) string {
	if len(records) == 0 {
		return fmt.Sprintf("No completions recorded for task #%d yet.", taskID)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🗂 <b>Recent completions of #%d</b>\n", taskID))
	for _, rec := range records {
		mark := "✅"
		suffix := "on time"
		if !rec.OnTime {
			mark = "⚠️"
			suffix = lateLabel(rec.DaysFromDue) + " late"
		}
		sb.WriteString(fmt.Sprintf("%s %s — %s", mark, rec.CompletedAt.Local().Format("2006-01-02 15:04"), suffix))
		if rec.Minutes != nil {
			sb.WriteString(fmt.Sprintf(" · %d min", *rec.Minutes))
		}
		if rec.Note != "" {
			sb.WriteString(fmt.Sprintf(" · %s", escape(rec.Note)))
		}
		sb.WriteByte('\n')
	}
	return strings.TrimSpace(sb.String())
}

func (b *Bot) sendChecklist(ctx context.Context, chatID int64, user *model.User, taskID uint) error {
	task, err := b.taskSvc.Get(ctx, user, taskID)
	if err != nil {
		return b.sendText(chatID, userMessage(err))
	}
	subtasks, err := b.subtaskSvc.List(ctx, user, taskID)
	if err != nil {
		return b.sendText(chatID, userMessage(err))
	}
	if len(subtasks) == 0 {
		return b.sendText(chatID, fmt.Sprintf("No subtasks under “%s” yet. Add one: /addsub %d title", escape(task.Title), task.ID))
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("☑️ <b>Checklist for “%s”</b> (#%d)\nTap an item to toggle it.\n\n", escape(task.Title), task.ID))

	var buttons [][]tgbotapi.InlineKeyboardButton
	done := 0
	for _, st := range subtasks {
		box := "☐"
		if st.Done {
			box = "☑"
			done++
		}
		sb.WriteString(fmt.Sprintf("%s %s\n", box, escape(st.Title)))
		buttons = append(buttons, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%s %s", box, shortTitle(st.Title, 24)),
				fmt.Sprintf("%s%d", cbSubtaskPrefix, st.ID),
			),
		})
	}
	sb.WriteString(fmt.Sprintf("\n%d of %d done", done, len(subtasks)))

	msg := tgbotapi.NewMessage(chatID, sb.String())
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(msg)
	return err
}

func remainingLabel(hours float64) string {
	switch {
	case hours >= 48:
		return fmt.Sprintf("%.0f days left", hours/24)
	case hours >= 1:
		return fmt.Sprintf("%.0f h left", hours)
	default:
		return "less than an hour left"
	}
}

func categoryLabel(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = model.DefaultCategory
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func escape(s string) string {
	return html.EscapeString(s)
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNew),
			tgbotapi.NewKeyboardButton(menuLabelTasks),
			tgbotapi.NewKeyboardButton(menuLabelDue),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelStats),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func skipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func confirmKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnConfirm),
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func cadenceKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("daily"),
			tgbotapi.NewKeyboardButton("weekly"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("monthly"),
			tgbotapi.NewKeyboardButton("yearly"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func categoryKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("home"),
			tgbotapi.NewKeyboardButton("health"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("finance"),
			tgbotapi.NewKeyboardButton("work"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}
