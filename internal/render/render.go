// Package render draws the tracker's screens as terminal text.
package render

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"

	"tracker/internal/core"
	"tracker/internal/services"
)

// EmptyPlaceholder is shown in place of rows when the list is empty.
const EmptyPlaceholder = "No transactions yet. Add your first transaction above!"

var (
	green  = lipgloss.Color("#22C55E")
	red    = lipgloss.Color("#EF4444")
	muted  = lipgloss.Color("#9CA3AF")
	accent = lipgloss.Color("#87CEEB")

	titleStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(muted)
	labelStyle  = lipgloss.NewStyle().Foreground(muted)
	cardStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 2).Width(22)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	noticeStyle = lipgloss.NewStyle().Foreground(red)
)

// Money formats d as rupees with Indian digit grouping.
func Money(d decimal.Decimal) string {
	return "₹" + core.FormatNumber(d)
}

// Summary renders the income, expense and balance cards side by side.
func Summary(s core.Summary) string {
	balanceColor := green
	if !s.Positive() {
		balanceColor = red
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		card("Total Income", Money(s.TotalIncome), green),
		card("Total Expense", Money(s.TotalExpense), red),
		card("Balance", Money(s.Balance), balanceColor),
	)
}

func card(label, value string, color lipgloss.Color) string {
	body := lipgloss.JoinVertical(lipgloss.Left,
		labelStyle.Render(label),
		lipgloss.NewStyle().Foreground(color).Bold(true).Render(value),
	)
	return cardStyle.BorderForeground(color).Render(body)
}

// Table renders the list newest first. The last column holds the id to pass
// to the delete command.
func Table(list []core.Transaction) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers("Amount", "Type", "Date", "Delete")

	if len(list) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, t.String(), mutedStyle.Render(EmptyPlaceholder))
	}

	rows := make([]core.Transaction, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		rows = append(rows, list[i])
	}
	for _, tx := range rows {
		t.Row(Money(tx.Amount.Decimal), tx.Type.Title(), tx.FormattedDate, strconv.FormatInt(tx.ID, 10))
	}

	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		if col == 1 && row >= 0 && row < len(rows) {
			return cellStyle.Foreground(typeColor(rows[row].Type))
		}
		return cellStyle
	})
	return t.String()
}

func typeColor(t core.TransactionType) lipgloss.Color {
	if t == core.Income {
		return green
	}
	return red
}

// Banner renders the heading for the current view, followed by any notice.
func Banner(v services.View) string {
	var out string
	switch v.State {
	case services.TrackerView:
		out = lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render(fmt.Sprintf("Welcome %s!", v.User)),
			mutedStyle.Render("Expense Tracker"),
		)
	default:
		out = lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("Expense Tracker"),
			mutedStyle.Render("Please enter your name to continue (tracker login NAME)."),
		)
	}
	if v.Notice != "" {
		out = lipgloss.JoinVertical(lipgloss.Left, out, noticeStyle.Render(v.Notice))
	}
	return out
}

// Screen renders the full tracker view: banner, summary cards and table.
func Screen(v services.View, s core.Summary, list []core.Transaction) string {
	if v.State != services.TrackerView {
		return Banner(v)
	}
	return lipgloss.JoinVertical(lipgloss.Left, Banner(v), "", Summary(s), "", Table(list))
}
