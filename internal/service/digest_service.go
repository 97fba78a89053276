package service

import (
	"context"
	"fmt"
	"html"
	"math"
	"sort"
	"strings"
	"time"

	"chore-tracker/internal/model"
	"chore-tracker/internal/repository"
	"chore-tracker/internal/schedule"
)

// DigestService builds the human-readable task digest sent with the periodic
// report. Due-ness is computed lazily against the clock reading passed in;
// nothing here runs on its own schedule.
type DigestService struct {
	tasks *repository.TaskRepository
}

func NewDigestService(tasks *repository.TaskRepository) *DigestService {
	return &DigestService{tasks: tasks}
}

// DailySummary renders the user's active tasks grouped by category, each with
// its urgency band and deadline. Tasks keep ascending anchor order inside a
// group.
func (s *DigestService) DailySummary(ctx context.Context, user model.User, now time.Time) (string, error) {
	tasks, err := s.tasks.ListByUser(ctx, user.ID, false)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Task digest</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("Mon, 02 Jan 2006")))

	if len(tasks) == 0 {
		builder.WriteString("No active tasks. Add one with /newtask.")
		return builder.String(), nil
	}

	groups := make(map[string][]model.Task)
	var names []string
	for _, task := range tasks {
		key := strings.ToLower(task.Category)
		if _, ok := groups[key]; !ok {
			names = append(names, key)
		}
		groups[key] = append(groups[key], task)
	}
	sort.Strings(names)

	for _, name := range names {
		builder.WriteString(fmt.Sprintf("<b>%s</b>\n", html.EscapeString(titleCase(name))))
		for _, task := range groups[name] {
			builder.WriteString(formatDigestLine(task, now))
		}
		builder.WriteByte('\n')
	}

	return strings.TrimSpace(builder.String()), nil
}

func formatDigestLine(task model.Task, now time.Time) string {
	c := schedule.Classify(task.Anchor, task.WindowDays, now)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s <b>#%d</b> %s\n", BandIcon(c.Band), task.ID, html.EscapeString(strings.TrimSpace(task.Title))))

	if c.Band == schedule.BandOverdue {
		sb.WriteString(fmt.Sprintf("   ⏰ was due %s — <b>overdue</b>\n", c.Deadline.In(now.Location()).Format("2006-01-02 15:04")))
	} else {
		sb.WriteString(fmt.Sprintf("   ⏰ due %s · about %s left\n",
			c.Deadline.In(now.Location()).Format("2006-01-02 15:04"), humanHours(c.HoursRemaining)))
	}
	if task.Details != "" {
		sb.WriteString(fmt.Sprintf("   📝 %s\n", html.EscapeString(strings.TrimSpace(task.Details))))
	}
	return sb.String()
}

// BandIcon maps an urgency band to the marker shown in lists and digests.
func BandIcon(band schedule.Band) string {
	switch band {
	case schedule.BandOverdue:
		return "⚠️"
	case schedule.BandRed:
		return "🔴"
	case schedule.BandYellow:
		return "🟡"
	default:
		return "🟢"
	}
}

func humanHours(hours float64) string {
	if hours >= 48 {
		return fmt.Sprintf("%d days", int(math.Round(hours/24)))
	}
	if hours >= 1 {
		return fmt.Sprintf("%d h", int(math.Round(hours)))
	}
	return fmt.Sprintf("%d min", int(math.Round(hours*60)))
}

func titleCase(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
