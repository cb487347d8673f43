package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"remindbot/internal/admin"
	"remindbot/internal/domain"
	"remindbot/internal/store"
	"remindbot/pkg/logx"
)

const welcomeText = `👋 <b>Welcome!</b> I track your tasks and nudge you about them during your working hours.

/mytasks — your task list with toggle buttons
/hours &lt;start&gt; &lt;end&gt; — working hours (0–23, end exclusive; equal = always)
/mute, /unmute — pause or resume reminders`

func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.handleStart)
	b.bot.Handle("/mytasks", b.handleMyTasks)
	b.bot.Handle("/mute", b.handleSetMute(true))
	b.bot.Handle("/unmute", b.handleSetMute(false))
	b.bot.Handle("/hours", b.handleHours)

	b.bot.Handle("/addtask", b.adminOnly(b.handleAddTask))
	b.bot.Handle("/deltask", b.adminOnly(b.handleDelTask))
	b.bot.Handle("/daily", b.adminOnly(b.handleDaily))
	b.bot.Handle("/users", b.adminOnly(b.handleUsers))
	b.bot.Handle("/stats", b.adminOnly(b.handleStats))
	b.bot.Handle("/grant", b.adminOnly(b.handleGrant))
	b.bot.Handle("/revoke", b.adminOnly(b.handleRevoke))

	b.bot.Handle(&tele.Btn{Unique: "toggle"}, b.handleToggle)
}

func handlerContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), handlerTimeout)
}

// adminOnly rejects non-admin senders before running h.
func (b *Bot) adminOnly(h tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		s := c.Sender()
		if s == nil || !b.admins.IsAdmin(s.ID, s.Username) {
			return b.reply(c, "This command is for admins only.")
		}
		return h(c)
	}
}

func (b *Bot) handleStart(c tele.Context) error {
	s := c.Sender()
	if s == nil {
		return nil
	}
	ctx, cancel := handlerContext()
	defer cancel()

	err := b.store.UpsertUser(ctx, domain.User{
		ID:        s.ID,
		Username:  s.Username,
		FirstName: s.FirstName,
	})
	if err != nil {
		b.log.Error("register user", logx.Int64("user_id", s.ID), logx.Err(err))
		return b.reply(c, "Something went wrong, try again later.")
	}
	b.log.Info("user registered", logx.Int64("user_id", s.ID))
	return b.reply(c, welcomeText)
}

func (b *Bot) handleMyTasks(c tele.Context) error {
	ctx, cancel := handlerContext()
	defer cancel()

	text, markup, err := b.taskListView(ctx, c.Sender().ID)
	if err != nil {
		b.log.Error("list tasks", logx.Int64("user_id", c.Sender().ID), logx.Err(err))
		return b.reply(c, "Could not load your tasks, try again later.")
	}
	if markup == nil {
		return b.reply(c, text)
	}
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	return c.Send(text, markup, tele.ModeHTML)
}

// taskListView builds the /mytasks message: one toggle button per task,
// capped so the markup stays within Telegram's limits.
func (b *Bot) taskListView(ctx context.Context, userID int64) (string, *tele.ReplyMarkup, error) {
	tasks, err := b.store.ListTasks(ctx, userID)
	if err != nil {
		return "", nil, err
	}
	if len(tasks) == 0 {
		return "You have no tasks. 🎉", nil, nil
	}

	const maxButtons = 50
	markup := &tele.ReplyMarkup{}
	var rows []tele.Row
	for i, t := range tasks {
		if i == maxButtons {
			break
		}
		label := "✅ " + truncate(t.Text, 30)
		if !t.Done {
			label = "⬜ " + truncate(t.Text, 30)
		}
		rows = append(rows, markup.Row(
			markup.Data(label, "toggle", strconv.FormatInt(t.ID, 10))))
	}
	markup.Inline(rows...)
	return formatTaskList("📋 <b>Your tasks</b>", tasks), markup, nil
}

func (b *Bot) handleToggle(c tele.Context) error {
	s := c.Sender()
	taskID, err := strconv.ParseInt(strings.TrimSpace(c.Data()), 10, 64)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Bad button."})
	}

	ctx, cancel := handlerContext()
	defer cancel()

	// Ownership check lives in the query: toggling is scoped to the sender.
	done, err := b.store.ToggleTask(ctx, taskID, s.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return c.Respond(&tele.CallbackResponse{Text: "Not your task."})
	case err != nil:
		b.log.Error("toggle task", logx.Int64("task_id", taskID), logx.Err(err))
		return c.Respond(&tele.CallbackResponse{Text: "Failed, try again."})
	}

	note := "Marked pending."
	if done {
		note = "Done! 🎉"
	}
	if err := c.Respond(&tele.CallbackResponse{Text: note}); err != nil {
		return err
	}

	text, markup, err := b.taskListView(ctx, s.ID)
	if err != nil {
		return nil
	}
	if markup == nil {
		return c.Edit(text, tele.ModeHTML)
	}
	return c.Edit(text, markup, tele.ModeHTML)
}

func (b *Bot) handleSetMute(mute bool) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx, cancel := handlerContext()
		defer cancel()

		if err := b.store.SetMute(ctx, c.Sender().ID, mute); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return b.reply(c, "Please /start first.")
			}
			b.log.Error("set mute", logx.Int64("user_id", c.Sender().ID), logx.Err(err))
			return b.reply(c, "Failed, try again later.")
		}
		if mute {
			return b.reply(c, "🔕 Reminders muted. Daily reports still arrive.")
		}
		return b.reply(c, "🔔 Reminders back on.")
	}
}

func (b *Bot) handleHours(c tele.Context) error {
	args := c.Args()
	if len(args) != 2 {
		return b.reply(c, "Usage: /hours &lt;start&gt; &lt;end&gt; — e.g. <code>/hours 9 21</code>, or <code>/hours 21 6</code> for an overnight window.")
	}
	start, err1 := strconv.Atoi(args[0])
	end, err2 := strconv.Atoi(args[1])
	if err1 != nil || err2 != nil {
		return b.reply(c, "Hours must be whole numbers between 0 and 23.")
	}

	ctx, cancel := handlerContext()
	defer cancel()

	if err := b.store.SetWorkHours(ctx, c.Sender().ID, start, end); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return b.reply(c, "Please /start first.")
		case errors.Is(err, domain.ErrInvalidHour):
			return b.reply(c, "Hours must be between 0 and 23.")
		}
		b.log.Error("set hours", logx.Int64("user_id", c.Sender().ID), logx.Err(err))
		return b.reply(c, "Failed, try again later.")
	}

	switch {
	case start == end:
		return b.reply(c, "⏰ Reminders enabled around the clock.")
	case start < end:
		return b.reply(c, fmt.Sprintf("⏰ Reminders between %02d:00 and %02d:00.", start, end))
	default:
		return b.reply(c, fmt.Sprintf("⏰ Overnight window: %02d:00 until %02d:00 the next day.", start, end))
	}
}

func (b *Bot) handleAddTask(c tele.Context) error {
	args := c.Args()
	if len(args) < 2 {
		return b.reply(c, "Usage: /addtask &lt;user_id&gt; &lt;text&gt;")
	}
	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return b.reply(c, "First argument must be a numeric user id.")
	}
	text := strings.TrimSpace(strings.Join(args[1:], " "))
	if text == "" {
		return b.reply(c, "Task text is empty.")
	}

	ctx, cancel := handlerContext()
	defer cancel()

	task, err := b.store.AddTask(ctx, userID, c.Sender().ID, text)
	if err != nil {
		b.log.Error("add task", logx.Int64("user_id", userID), logx.Err(err))
		return b.reply(c, "Could not add the task. Has that user sent /start?")
	}
	return b.reply(c, fmt.Sprintf("Added task <code>%d</code> for user <code>%d</code>.", task.ID, userID))
}

func (b *Bot) handleDelTask(c tele.Context) error {
	taskID, ok := singleID(c)
	if !ok {
		return b.reply(c, "Usage: /deltask &lt;task_id&gt;")
	}
	ctx, cancel := handlerContext()
	defer cancel()

	if err := b.store.DeleteTask(ctx, taskID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return b.reply(c, "No such task.")
		}
		b.log.Error("delete task", logx.Int64("task_id", taskID), logx.Err(err))
		return b.reply(c, "Failed, try again later.")
	}
	return b.reply(c, fmt.Sprintf("Task <code>%d</code> deleted.", taskID))
}

func (b *Bot) handleDaily(c tele.Context) error {
	taskID, ok := singleID(c)
	if !ok {
		return b.reply(c, "Usage: /daily &lt;task_id&gt;")
	}
	ctx, cancel := handlerContext()
	defer cancel()

	if err := b.store.SetTaskDaily(ctx, taskID, true); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return b.reply(c, "No such task.")
		}
		b.log.Error("set daily", logx.Int64("task_id", taskID), logx.Err(err))
		return b.reply(c, "Failed, try again later.")
	}
	return b.reply(c, fmt.Sprintf("Task <code>%d</code> now repeats daily. 🔁", taskID))
}

func (b *Bot) handleUsers(c tele.Context) error {
	ctx, cancel := handlerContext()
	defer cancel()

	stats, err := b.store.ListUserStats(ctx)
	if err != nil {
		b.log.Error("user stats", logx.Err(err))
		return b.reply(c, "Failed, try again later.")
	}
	return b.reply(c, formatUserStats(stats))
}

func (b *Bot) handleStats(c tele.Context) error {
	ctx, cancel := handlerContext()
	defer cancel()

	g, err := b.store.GlobalStats(ctx)
	if err != nil {
		b.log.Error("global stats", logx.Err(err))
		return b.reply(c, "Failed, try again later.")
	}
	return b.reply(c, formatGlobalStats(g))
}

func (b *Bot) handleGrant(c tele.Context) error {
	userID, ok := singleID(c)
	if !ok {
		return b.reply(c, "Usage: /grant &lt;user_id&gt;")
	}
	ctx, cancel := handlerContext()
	defer cancel()

	if err := b.admins.Grant(ctx, userID, c.Sender().ID); err != nil {
		if errors.Is(err, admin.ErrAlreadyAdmin) {
			return b.reply(c, "Already an admin.")
		}
		b.log.Error("grant admin", logx.Int64("user_id", userID), logx.Err(err))
		return b.reply(c, "Failed, try again later.")
	}
	return b.reply(c, fmt.Sprintf("User <code>%d</code> is now an admin.", userID))
}

func (b *Bot) handleRevoke(c tele.Context) error {
	userID, ok := singleID(c)
	if !ok {
		return b.reply(c, "Usage: /revoke &lt;user_id&gt;")
	}
	ctx, cancel := handlerContext()
	defer cancel()

	if err := b.admins.Revoke(ctx, userID); err != nil {
		switch {
		case errors.Is(err, admin.ErrProtected):
			return b.reply(c, "That admin is protected and cannot be revoked.")
		case errors.Is(err, admin.ErrNotAdmin):
			return b.reply(c, "Not an admin.")
		}
		b.log.Error("revoke admin", logx.Int64("user_id", userID), logx.Err(err))
		return b.reply(c, "Failed, try again later.")
	}
	return b.reply(c, fmt.Sprintf("Admin rights revoked for <code>%d</code>.", userID))
}

func singleID(c tele.Context) (int64, bool) {
	args := c.Args()
	if len(args) != 1 {
		return 0, false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	return id, err == nil
}

func truncate(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n-1]) + "…"
}
