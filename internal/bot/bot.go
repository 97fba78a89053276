package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"chore-tracker/internal/model"
	"chore-tracker/internal/repository"
	"chore-tracker/internal/service"
)

const (
	cbCompletePrefix = "complete:"
	cbDeletePrefix   = "delete:"
	cbSubtaskPrefix  = "subtask:"
)

const (
	btnSkip         = "⏭️ Skip"
	btnConfirm      = "✅ Confirm"
	btnCancel       = "↩️ Cancel"
	menuLabelNew    = "➕ New task"
	menuLabelTasks  = "📋 Tasks"
	menuLabelDue    = "⏰ Due"
	menuLabelStats  = "📊 Stats"
	menuLabelHelp   = "ℹ️ Help"
)

// Bot wires the Telegram API to the tracker services.
type Bot struct {
	api         *tgbotapi.BotAPI
	log         *zap.Logger
	userRepo    *repository.UserRepository
	taskSvc     *service.TaskService
	completeSvc *service.CompletionService
	statsSvc    *service.StatsService
	subtaskSvc  *service.SubtaskService
	digestSvc   *service.DigestService

	mu            sync.Mutex
	conversations map[int64]*newTaskState
	completions   map[int64]*completionState
	deletions     map[int64]uint
}

func New(
	token string,
	log *zap.Logger,
	userRepo *repository.UserRepository,
	taskSvc *service.TaskService,
	completeSvc *service.CompletionService,
	statsSvc *service.StatsService,
	subtaskSvc *service.SubtaskService,
	digestSvc *service.DigestService,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Info("bot authorized", zap.String("account", api.Self.UserName))

	return &Bot{
		api:           api,
		log:           log,
		userRepo:      userRepo,
		taskSvc:       taskSvc,
		completeSvc:   completeSvc,
		statsSvc:      statsSvc,
		subtaskSvc:    subtaskSvc,
		digestSvc:     digestSvc,
		conversations: make(map[int64]*newTaskState),
		completions:   make(map[int64]*completionState),
		deletions:     make(map[int64]uint),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.log.Warn("handle callback", zap.Error(err))
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.log.Warn("handle message", zap.Error(err))
			}
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && isCancelInput(msg.Text) {
		b.clearDialogs(msg.From.ID)
		return b.sendText(msg.Chat.ID, "↩️ Dialog cancelled.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		b.log.Debug("command",
			zap.Int64("from", msg.From.ID),
			zap.String("command", msg.Command()),
		)
		return b.handleCommand(ctx, msg)
	}

	if b.hasCompletion(msg.From.ID) {
		return b.continueCompletion(ctx, msg)
	}
	if _, ok := b.pendingDeletion(msg.From.ID); ok {
		return b.continueDeletion(ctx, msg)
	}
	if b.hasConversation(msg.From.ID) {
		return b.continueNewTask(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, "I didn't catch that. Try /newtask to add a task or /help for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "newtask":
		return b.startNewTask(ctx, msg)
	case "tasks":
		return b.handleListTasks(ctx, msg)
	case "due":
		return b.handleDue(ctx, msg)
	case "complete":
		return b.handleComplete(ctx, msg)
	case "delete":
		return b.handleDelete(ctx, msg)
	case "pause":
		return b.handlePause(ctx, msg)
	case "stats":
		return b.handleStats(ctx, msg)
	case "history":
		return b.handleHistory(ctx, msg)
	case "subtasks":
		return b.handleSubtasks(ctx, msg)
	case "addsub":
		return b.handleAddSubtask(ctx, msg)
	case "report":
		return b.handleReport(ctx, msg)
	case "cancel":
		b.clearDialogs(msg.From.ID)
		return b.sendText(msg.Chat.ID, "↩️ Dialog cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}

	text := fmt.Sprintf(
		"👋 Hi, %s!\n<b>I track recurring chores and how promptly you finish them.</b>\n\n"+
			"Every task repeats on a cadence (daily, weekly, monthly or yearly) and gives you "+
			"a window of days to finish each round. I color tasks by urgency and keep your "+
			"on-time statistics.\n\nStart with /newtask, or see /help for everything I can do.",
		escape(name),
	)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Commands</b>\n" +
		"• /newtask — add a recurring task step by step\n" +
		"• /tasks — list tasks with urgency colors\n" +
		"• /due — only tasks whose round has started\n" +
		"• /complete &lt;id&gt; — record a completion (asks for minutes spent and a note)\n" +
		"• /stats — your overall on-time numbers, /stats &lt;id&gt; for one task\n" +
		"• /history &lt;id&gt; — recent completions of a task\n" +
		"• /subtasks &lt;id&gt; — checklist under a task, /addsub &lt;id&gt; &lt;title&gt; to extend it\n" +
		"• /pause &lt;id&gt; — hide a task without losing its history\n" +
		"• /delete &lt;id&gt; — remove a task and its history\n" +
		"• /report — send the task digest now\n" +
		"• /cancel — abort the current dialog"
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	text, err := b.digestSvc.DailySummary(ctx, *user, time.Now())
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleListTasks(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.sendTaskList(ctx, msg.Chat.ID, user)
}

func (b *Bot) handleDue(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	tasks, err := b.taskSvc.ListDue(ctx, user)
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}
	if len(tasks) == 0 {
		return b.sendText(msg.Chat.ID, "Nothing is due right now. 🎉")
	}

	var sb strings.Builder
	sb.WriteString("⏰ <b>Due now</b>\n\n")
	now := time.Now()
	for _, task := range tasks {
		sb.WriteString(formatTaskLine(task, now))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(sb.String()))
}

func (b *Bot) handleComplete(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, err := parseIDArgument(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Give me a task id: /complete 12")
	}

	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.startCompletion(ctx, msg.Chat.ID, user, taskID)
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, err := parseIDArgument(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Give me a task id: /delete 12")
	}

	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.askDeleteConfirmation(ctx, msg.Chat.ID, user, taskID)
}

func (b *Bot) handlePause(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, err := parseIDArgument(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Give me a task id: /pause 12")
	}

	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	task, err := b.taskSvc.Deactivate(ctx, user, taskID)
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}
	b.log.Info("task paused", zap.Uint("task", task.ID), zap.Uint("user", user.ID))
	return b.sendText(msg.Chat.ID, fmt.Sprintf("⏸ Task “%s” is paused. Its history stays.", escape(task.Title)))
}

func (b *Bot) handleStats(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		stats, err := b.statsSvc.UserStatistics(ctx, user)
		if err != nil {
			return b.sendText(msg.Chat.ID, userMessage(err))
		}
		return b.sendText(msg.Chat.ID, formatUserStats(stats))
	}

	taskID, err := parseIDArgument(args)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Task id must be a number: /stats 12")
	}
	stats, err := b.statsSvc.TaskStatistics(ctx, user, taskID)
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}
	return b.sendText(msg.Chat.ID, formatTaskStats(stats))
}

func (b *Bot) handleHistory(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, err := parseIDArgument(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Give me a task id: /history 12")
	}

	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	records, err := b.statsSvc.History(ctx, user, taskID, 10)
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}
	return b.sendText(msg.Chat.ID, formatHistory(taskID, records))
}

func (b *Bot) handleSubtasks(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, err := parseIDArgument(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Give me a task id: /subtasks 12")
	}

	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.sendChecklist(ctx, msg.Chat.ID, user, taskID)
}

func (b *Bot) handleAddSubtask(ctx context.Context, msg *tgbotapi.Message) error {
	parts := strings.SplitN(strings.TrimSpace(msg.CommandArguments()), " ", 2)
	if len(parts) < 2 {
		return b.sendText(msg.Chat.ID, "Usage: /addsub 12 buy filters")
	}
	taskID, err := parseIDArgument(parts[0])
	if err != nil {
		return b.sendText(msg.Chat.ID, "Task id must be a number: /addsub 12 buy filters")
	}

	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	existing, err := b.subtaskSvc.List(ctx, user, taskID)
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}
	if _, err := b.subtaskSvc.Add(ctx, user, taskID, parts[1], len(existing)); err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}
	return b.sendChecklist(ctx, msg.Chat.ID, user, taskID)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Warn("callback ack", zap.Error(err))
	}

	user, err := b.ensureUser(ctx, cb.From)
	if err != nil {
		return err
	}
	chatID := cb.Message.Chat.ID
	data := cb.Data

	switch {
	case strings.HasPrefix(data, cbCompletePrefix):
		taskID, err := parseID(strings.TrimPrefix(data, cbCompletePrefix))
		if err != nil {
			return nil
		}
		return b.startCompletion(ctx, chatID, user, taskID)
	case strings.HasPrefix(data, cbDeletePrefix):
		taskID, err := parseID(strings.TrimPrefix(data, cbDeletePrefix))
		if err != nil {
			return nil
		}
		return b.askDeleteConfirmation(ctx, chatID, user, taskID)
	case strings.HasPrefix(data, cbSubtaskPrefix):
		subtaskID, err := parseID(strings.TrimPrefix(data, cbSubtaskPrefix))
		if err != nil {
			return nil
		}
		subtask, err := b.subtaskSvc.Toggle(ctx, user, subtaskID)
		if err != nil {
			return b.sendText(chatID, userMessage(err))
		}
		return b.sendChecklist(ctx, chatID, user, subtask.TaskID)
	default:
		return nil
	}
}

// SendDailyDigests pushes the digest to every known user. Invoked by the
// cron job and by /report.
func (b *Bot) SendDailyDigests(ctx context.Context) error {
	users, err := b.userRepo.ListAll(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		text, err := b.digestSvc.DailySummary(ctx, user, now)
		if err != nil {
			b.log.Warn("build digest", zap.Int64("telegram_id", user.TelegramID), zap.Error(err))
			continue
		}
		if err := b.sendText(user.TelegramID, text); err != nil {
			b.log.Warn("send digest", zap.Int64("telegram_id", user.TelegramID), zap.Error(err))
		}
	}
	return nil
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	switch strings.TrimSpace(msg.Text) {
	case menuLabelNew:
		return true, b.startNewTask(ctx, msg)
	case menuLabelTasks:
		return true, b.handleListTasks(ctx, msg)
	case menuLabelDue:
		return true, b.handleDue(ctx, msg)
	case menuLabelStats:
		return true, b.handleStats(ctx, msg)
	case menuLabelHelp:
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	return b.userRepo.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName, from.UserName)
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

// userMessage maps engine errors to something safe to show. Internal detail
// stays in the logs.
func userMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return "Task not found."
	case errors.Is(err, service.ErrForbidden):
		return "That task belongs to someone else."
	case errors.Is(err, service.ErrInvalid):
		return fmt.Sprintf("That doesn't look right: %s.", escape(trimErrKind(err, service.ErrInvalid)))
	case errors.Is(err, service.ErrStorage):
		return "Storage hiccup — nothing was saved. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}

func trimErrKind(err error, kind error) string {
	return strings.TrimPrefix(strings.TrimPrefix(err.Error(), kind.Error()), ": ")
}

func parseIDArgument(args string) (uint, error) {
	return parseID(strings.TrimSpace(args))
}

func parseID(raw string) (uint, error) {
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(value), nil
}
