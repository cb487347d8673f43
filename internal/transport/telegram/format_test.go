package telegram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remindbot/internal/domain"
)

func TestSplitTextShortPassthrough(t *testing.T) {
	chunks := splitText("hello", 100)
	assert.Equal(t, []string{"hello"}, chunks)
}

func TestSplitTextPrefersNewlines(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		sb.WriteString("line with some task text in it\n")
	}
	chunks := splitText(sb.String(), 500)

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 500)
		assert.False(t, strings.HasPrefix(c, "\n"))
		assert.True(t, strings.HasSuffix(c, "it"), "chunk should end on a line boundary")
	}
	joined := strings.Join(chunks, "\n") + "\n"
	assert.Equal(t, sb.String(), joined)
}

func TestSplitTextHandlesNoNewlines(t *testing.T) {
	s := strings.Repeat("x", 1200)
	chunks := splitText(s, 500)
	require.Len(t, chunks, 3)
	assert.Equal(t, s, strings.Join(chunks, ""))
}

func TestEscapeHTML(t *testing.T) {
	assert.Equal(t, "a &amp;&amp; b &lt;c&gt;", escapeHTML("a && b <c>"))
}

func TestFormatReminderEscapesTaskText(t *testing.T) {
	got := formatReminder([]domain.Task{
		{ID: 1, Text: "review <PR> & merge"},
	})
	assert.Contains(t, got, "review &lt;PR&gt; &amp; merge")
	assert.NotContains(t, got, "<PR>")
}

func TestFormatDailyReportEmpty(t *testing.T) {
	got := formatDailyReport(domain.PerformanceReport{})
	assert.Contains(t, got, "Completed yesterday: <b>0</b>")
	assert.Contains(t, got, "Nothing tracked yesterday")
}

func TestFormatTaskListMarks(t *testing.T) {
	got := formatTaskList("header", []domain.Task{
		{ID: 1, Text: "a", Done: true},
		{ID: 2, Text: "b", Daily: true},
	})
	assert.Contains(t, got, "✅ <code>1</code> a")
	assert.Contains(t, got, "⬜ <code>2</code> b 🔁")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactlyten", truncate("exactlyten", 10))
	got := truncate("a very long task description", 10)
	assert.Len(t, []rune(got), 10)
	assert.True(t, strings.HasSuffix(got, "…"))
}
