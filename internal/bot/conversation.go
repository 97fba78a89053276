package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"chore-tracker/internal/model"
	"chore-tracker/internal/schedule"
	"chore-tracker/internal/service"
)

type newTaskStage int

const (
	stageTitle newTaskStage = iota
	stageDetails
	stageCategory
	stageCadence
	stageWindow
)

type newTaskState struct {
	stage newTaskStage
	input service.TaskInput
}

type completionStage int

const (
	stageMinutes completionStage = iota
	stageNote
)

type completionState struct {
	stage   completionStage
	taskID  uint
	minutes *int
}

// --- new-task dialog ---

func (b *Bot) startNewTask(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	b.setConversation(msg.From.ID, &newTaskState{stage: stageTitle})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 New recurring task.\n<b>Step 1:</b> what should I call it?", cancelKeyboard())
}

func (b *Bot) continueNewTask(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageTitle:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "The title can't be empty. What should I call the task?", cancelKeyboard())
		}
		state.input.Title = text
		state.stage = stageDetails
		return b.sendWithReplyMarkup(msg.Chat.ID, "✏️ Add a short description (or press Skip).", skipKeyboard())
	case stageDetails:
		if !isSkipInput(text) {
			state.input.Details = text
		}
		state.stage = stageCategory
		return b.sendWithReplyMarkup(msg.Chat.ID, "🏷 Pick a category or type your own (or Skip for “general”).", categoryKeyboard())
	case stageCategory:
		if !isSkipInput(text) {
			state.input.Category = text
		}
		state.stage = stageCadence
		return b.sendWithReplyMarkup(msg.Chat.ID, "🔁 How often does it repeat?", cadenceKeyboard())
	case stageCadence:
		if _, err := parseCadenceInput(text); err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Pick one of: daily, weekly, monthly, yearly.", cadenceKeyboard())
		}
		cadence, _ := parseCadenceInput(text)
		state.input.Cadence = cadence
		state.stage = stageWindow
		return b.sendWithReplyMarkup(msg.Chat.ID, "⏳ How many days do you give yourself to finish each round? (e.g. 2)", tgbotapi.NewRemoveKeyboard(true))
	case stageWindow:
		window, err := strconv.Atoi(text)
		if err != nil || window < 1 || window > 365 {
			return b.sendText(msg.Chat.ID, "The window must be a number of days from 1 to 365.")
		}
		state.input.WindowDays = window
		err = b.finishNewTask(ctx, msg.From, state.input, msg.Chat.ID)
		b.clearConversation(msg.From.ID)
		return err
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Dialog reset. Start over with /newtask.")
	}
}

func (b *Bot) finishNewTask(ctx context.Context, from *tgbotapi.User, input service.TaskInput, chatID int64) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	task, err := b.taskSvc.Create(ctx, user, input)
	if err != nil {
		return b.sendText(chatID, userMessage(err))
	}

	b.log.Info("task created",
		zap.Uint("task", task.ID),
		zap.Uint("user", user.ID),
		zap.String("cadence", task.Cadence.String()),
	)

	var summary strings.Builder
	summary.WriteString("✅ <b>Task saved</b>\n")
	summary.WriteString(fmt.Sprintf("• <b>ID:</b> %d\n", task.ID))
	summary.WriteString(fmt.Sprintf("• <b>Title:</b> %s\n", escape(task.Title)))
	if task.Details != "" {
		summary.WriteString(fmt.Sprintf("• <b>Details:</b> %s\n", escape(task.Details)))
	}
	summary.WriteString(fmt.Sprintf("• <b>Category:</b> %s\n", escape(task.Category)))
	summary.WriteString(fmt.Sprintf("• <b>Repeats:</b> %s, %d-day window\n", task.Cadence, task.WindowDays))

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(summary.String()))
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, user)
}

// --- completion dialog ---

func (b *Bot) startCompletion(ctx context.Context, chatID int64, user *model.User, taskID uint) error {
	task, err := b.taskSvc.Get(ctx, user, taskID)
	if err != nil {
		return b.sendText(chatID, userMessage(err))
	}

	b.setCompletion(user.TelegramID, &completionState{stage: stageMinutes, taskID: task.ID})
	text := fmt.Sprintf("Completing “%s” (#%d).\n⏱ How many minutes did it take? (or Skip)", escape(task.Title), task.ID)
	return b.sendWithReplyMarkup(chatID, text, skipKeyboard())
}

func (b *Bot) continueCompletion(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getCompletion(msg.From.ID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageMinutes:
		if !isSkipInput(text) {
			minutes, err := strconv.Atoi(text)
			if err != nil || minutes < 0 {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Minutes must be a non-negative number (or Skip).", skipKeyboard())
			}
			state.minutes = &minutes
		}
		state.stage = stageNote
		return b.sendWithReplyMarkup(msg.Chat.ID, "📝 Any note for this completion? (or Skip)", skipKeyboard())
	case stageNote:
		note := ""
		if !isSkipInput(text) {
			note = text
		}
		err := b.finishCompletion(ctx, msg.From, state.taskID, state.minutes, note, msg.Chat.ID)
		b.clearCompletion(msg.From.ID)
		return err
	default:
		b.clearCompletion(msg.From.ID)
		return nil
	}
}

func (b *Bot) finishCompletion(ctx context.Context, from *tgbotapi.User, taskID uint, minutes *int, note string, chatID int64) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	record, task, err := b.completeSvc.Complete(ctx, user, taskID, minutes, note)
	if err != nil {
		return b.sendText(chatID, userMessage(err))
	}

	b.log.Info("task completed",
		zap.Uint("task", task.ID),
		zap.Uint("user", user.ID),
		zap.Bool("on_time", record.OnTime),
	)

	var sb strings.Builder
	if record.OnTime {
		sb.WriteString(fmt.Sprintf("✅ “%s” done, on time!\n", escape(task.Title)))
	} else {
		sb.WriteString(fmt.Sprintf("✅ “%s” done — %s late.\n", escape(task.Title), lateLabel(record.DaysFromDue)))
	}
	sb.WriteString(fmt.Sprintf("Next round starts now; due again by %s.", schedule.Deadline(task.Anchor, task.WindowDays).Local().Format("2006-01-02 15:04")))

	msg := tgbotapi.NewMessage(chatID, sb.String())
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, user)
}

// --- delete confirmation ---

func (b *Bot) askDeleteConfirmation(ctx context.Context, chatID int64, user *model.User, taskID uint) error {
	task, err := b.taskSvc.Get(ctx, user, taskID)
	if err != nil {
		return b.sendText(chatID, userMessage(err))
	}

	b.setDeletion(user.TelegramID, task.ID)
	text := fmt.Sprintf("Delete “%s” (#%d) together with its completion history?", escape(task.Title), task.ID)
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) continueDeletion(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, ok := b.pendingDeletion(msg.From.ID)
	if !ok {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearDeletion(msg.From.ID)
		user, err := b.ensureUser(ctx, msg.From)
		if err != nil {
			return err
		}
		if err := b.taskSvc.Delete(ctx, user, taskID); err != nil {
			return b.sendText(msg.Chat.ID, userMessage(err))
		}
		b.log.Info("task deleted", zap.Uint("task", taskID), zap.Uint("user", user.ID))
		if err := b.sendText(msg.Chat.ID, "🗑 Task deleted, history included."); err != nil {
			return err
		}
		return b.sendTaskList(ctx, msg.Chat.ID, user)
	default:
		b.clearDeletion(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Deletion cancelled.")
	}
}

// --- dialog state ---

func (b *Bot) setConversation(userID int64, state *newTaskState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *newTaskState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) hasConversation(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[userID]
	return ok
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}

func (b *Bot) setCompletion(userID int64, state *completionState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.completions[userID] = state
}

func (b *Bot) getCompletion(userID int64) *completionState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.completions[userID]
}

func (b *Bot) hasCompletion(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.completions[userID]
	return ok
}

func (b *Bot) clearCompletion(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.completions, userID)
}

func (b *Bot) setDeletion(userID int64, taskID uint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deletions[userID] = taskID
}

func (b *Bot) pendingDeletion(userID int64) (uint, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	taskID, ok := b.deletions[userID]
	return taskID, ok
}

func (b *Bot) clearDeletion(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.deletions, userID)
}

func (b *Bot) clearDialogs(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
	delete(b.completions, userID)
	delete(b.deletions, userID)
}

func parseCadenceInput(text string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(text))
	switch value {
	case "daily", "weekly", "monthly", "yearly":
		return value, nil
	}
	return "", fmt.Errorf("unknown cadence %q", text)
}

func isSkipInput(text string) bool {
	value := strings.ToLower(strings.TrimSpace(text))
	return value == "-" || value == strings.ToLower(btnSkip) || value == "skip"
}

func isConfirmInput(text string) bool {
	value := strings.ToLower(strings.TrimSpace(text))
	return value == strings.ToLower(btnConfirm) || value == "confirm" || value == "yes"
}

func isCancelInput(text string) bool {
	value := strings.ToLower(strings.TrimSpace(text))
	return value == strings.ToLower(btnCancel) || value == "cancel"
}

func lateLabel(days int) string {
	if days < 1 {
		return "a little"
	}
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}
