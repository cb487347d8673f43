package telegram

import (
	"fmt"
	"strings"

	"remindbot/internal/domain"
)

const textLimit = 4000

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// splitText chunks a long message for Telegram, preferring newline boundaries
// so a task list never breaks mid-line.
func splitText(s string, limit int) []string {
	if limit <= 0 {
		limit = textLimit
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}

	var out []string
	start := 0
	for start < len(rs) {
		end := start + limit
		if end >= len(rs) {
			out = append(out, strings.TrimRight(string(rs[start:]), "\n"))
			break
		}
		cut := end
		for i := end - 1; i > start; i-- {
			if rs[i] == '\n' && i-start >= limit/3 {
				cut = i
				break
			}
		}
		out = append(out, strings.TrimRight(string(rs[start:cut]), "\n"))
		start = cut
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}

func taskLine(t domain.Task) string {
	mark := "⬜"
	if t.Done {
		mark = "✅"
	}
	suffix := ""
	if t.Daily {
		suffix = " 🔁"
	}
	return fmt.Sprintf("%s <code>%d</code> %s%s", mark, t.ID, escapeHTML(t.Text), suffix)
}

func formatTaskList(header string, tasks []domain.Task) string {
	var sb strings.Builder
	sb.WriteString(header)
	for _, t := range tasks {
		sb.WriteString("\n")
		sb.WriteString(taskLine(t))
	}
	return sb.String()
}

func formatReminder(tasks []domain.Task) string {
	return formatTaskList(
		fmt.Sprintf("⏰ <b>You have %d open task(s):</b>", len(tasks)), tasks)
}

func formatDailyReport(r domain.PerformanceReport) string {
	var sb strings.Builder
	sb.WriteString("🌅 <b>Daily report</b>\n")
	fmt.Fprintf(&sb, "Completed yesterday: <b>%d</b>\n", r.CompletedYesterday)
	fmt.Fprintf(&sb, "Daily tasks back on your plate: <b>%d</b>", r.TotalDaily)
	if r.CompletedYesterday == 0 && r.TotalDaily == 0 {
		sb.WriteString("\nNothing tracked yesterday. Add tasks to get going!")
	}
	return sb.String()
}

func formatUserStats(stats []domain.UserStats) string {
	if len(stats) == 0 {
		return "No users registered yet."
	}
	var sb strings.Builder
	sb.WriteString("👥 <b>Users</b>")
	for _, st := range stats {
		name := st.User.FirstName
		if st.User.Username != "" {
			name = "@" + st.User.Username
		}
		fmt.Fprintf(&sb, "\n<code>%d</code> %s — %d/%d done",
			st.User.ID, escapeHTML(name), st.DoneCount, st.TaskCount)
	}
	return sb.String()
}

func formatGlobalStats(g domain.GlobalStats) string {
	return fmt.Sprintf(
		"📊 <b>Totals</b>\nUsers: %d\nTasks: %d\nDone: %d\nPending: %d",
		g.Users, g.Tasks, g.Done, g.Tasks-g.Done)
}
