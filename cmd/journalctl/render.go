package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/journal-submission-api/internal/lifecycle"
	"github.com/journal-submission-api/internal/models"
	"github.com/mattn/go-isatty"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range headers {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func shouldColorize(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func statusColors(s models.Status) text.Colors {
	switch s {
	case models.StatusDraft:
		return text.Colors{text.FgHiBlack}
	case models.StatusSubmitted:
		return text.Colors{text.FgBlue}
	case models.StatusUnderReview:
		return text.Colors{text.FgYellow}
	case models.StatusAccepted:
		return text.Colors{text.FgCyan}
	case models.StatusPublished:
		return text.Colors{text.FgGreen, text.Bold}
	case models.StatusRejected:
		return text.Colors{text.FgRed}
	case models.StatusWithdrawn:
		return text.Colors{text.FgMagenta}
	}
	return nil
}

func renderStatus(s models.Status, colorize bool) string {
	if !colorize {
		return string(s)
	}
	return statusColors(s).Sprint(string(s))
}

// renderLabel is renderStatus for prose, e.g. "UNDER REVIEW".
func renderLabel(s models.Status, colorize bool) string {
	if !colorize {
		return s.Label()
	}
	return statusColors(s).Sprint(s.Label())
}

func renderSubmissions(subs []*models.Submission, colorize bool) string {
	if len(subs) == 0 {
		return "No submissions found"
	}
	rows := make([][]string, 0, len(subs))
	for _, s := range subs {
		rows = append(rows, []string{
			strconv.FormatInt(s.ID, 10),
			truncate(s.Title, 48),
			s.JournalSlug,
			s.AuthorName,
			renderStatus(s.Status, colorize),
			strconv.Itoa(s.PageCount),
			formatTime(s.UpdatedAt),
		})
	}
	return renderTable(
		[]string{"ID", "Title", "Journal", "Author", "Status", "Pages", "Updated"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func renderSubmission(s *models.Submission, actor lifecycle.Actor, colorize bool) string {
	rows := [][]string{
		{"ID", strconv.FormatInt(s.ID, 10)},
		{"Title", s.Title},
		{"Status", renderStatus(s.Status, colorize)},
		{"Journal", strings.TrimSpace(s.JournalName + " (" + s.JournalSlug + ")")},
		{"Author", s.AuthorName},
		{"Language", s.Language},
		{"Pages", strconv.Itoa(s.PageCount)},
		{"Keywords", strings.Join(s.KeywordList(), ", ")},
		{"Manuscript", s.ManuscriptFile},
	}
	if s.SubmittedAt != nil {
		rows = append(rows, []string{"Submitted", formatTime(*s.SubmittedAt)})
	}
	rows = append(rows, []string{"Updated", formatTime(s.UpdatedAt)})
	if s.Status == models.StatusRejected && s.RejectionReason != "" {
		rows = append(rows, []string{"Rejection reason", s.RejectionReason})
	}

	if next := lifecycle.AvailableTransitions(actor, s); len(next) > 0 {
		rows = append(rows, []string{"Available actions", joinStatuses(next)})
	}

	out := renderTable([]string{"Field", "Value"}, rows, nil)
	if s.Abstract != "" {
		out += "\n\n" + s.Abstract
	}
	return out
}

func renderJournals(journals []*models.Journal, lang string) string {
	if len(journals) == 0 {
		return "No journals found"
	}
	rows := make([][]string, 0, len(journals))
	for _, j := range journals {
		price := "free"
		if j.IsPaid {
			price = "$" + j.PricePerPage.StringFixed(2) + "/page"
		}
		rows = append(rows, []string{strconv.FormatInt(j.ID, 10), j.Slug, j.Name(lang), price})
	}
	return renderTable([]string{"ID", "Slug", "Name", "Price"}, rows, []columnAlignment{alignRight})
}

func renderQuote(q lifecycle.Quote) string {
	switch {
	case q.CoveredBySubscription:
		return "Covered by your subscription"
	case q.Free():
		return "Free"
	default:
		return fmt.Sprintf("$%s", q.Fee.StringFixed(2))
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

func joinStatuses(statuses []models.Status) string {
	parts := make([]string, len(statuses))
	for i, s := range statuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

// formatError renders err for the terminal. Server messages are shown as is.
func formatError(err error) string {
	var le *lifecycle.Error
	if !errors.As(err, &le) {
		return "Error: " + err.Error()
	}
	msg := "Error: " + le.Message
	if le.Kind == lifecycle.KindInsufficientBalance {
		msg += "\nTop up your balance or subscribe to a plan (`journalctl subscription`), then try again."
	}
	return msg
}
