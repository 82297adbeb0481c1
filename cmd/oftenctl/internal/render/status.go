// Package render formats gateway API responses for the terminal, grounded
// on lnilluv-openai-accounts-cli's internal/adapters/render/status package
// (same lipgloss palette: bold account header, faint detail rows).
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/oftenai/often-gateway/cmd/oftenctl/internal/client"
	"github.com/oftenai/often-gateway/internal/domain"
)

type styles struct {
	title   lipgloss.Style
	account lipgloss.Style
	key     lipgloss.Style
	value   lipgloss.Style
	warning lipgloss.Style
	faint   lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true),
		account: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		key:     lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		value:   lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		warning: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		faint:   lipgloss.NewStyle().Faint(true),
	}
}

// Account renders an account's balances as a status table.
func Account(a client.Account) string {
	s := newStyles()
	var b strings.Builder

	fmt.Fprintln(&b, s.account.Render(a.UID))
	if a.Email != "" {
		fmt.Fprintln(&b, s.faint.Render(a.Email))
	}
	fmt.Fprintln(&b, s.title.Render("balances"))

	currencies := a.SupportedCurrencies
	if len(currencies) == 0 {
		for c := range a.Balances {
			currencies = append(currencies, c)
		}
		sort.Strings(currencies)
	}
	for _, c := range currencies {
		amount := a.Balances[c]
		line := fmt.Sprintf("  %s %s", s.key.Render(pad(c, 5)), s.value.Render(formatAmount(c, amount)))
		if amount == 0 {
			line = s.faint.Render(line)
		}
		fmt.Fprintln(&b, line)
	}

	return strings.TrimRight(b.String(), "\n")
}

// Transactions renders a journal entry list, newest first.
func Transactions(txs []client.Transaction) string {
	s := newStyles()
	if len(txs) == 0 {
		return s.faint.Render("no transactions")
	}

	var b strings.Builder
	fmt.Fprintln(&b, s.title.Render(fmt.Sprintf("%d transaction(s)", len(txs))))
	for _, tx := range txs {
		sign := "+"
		if tx.Type == "deposit" || tx.Type == "transfer_in" {
			sign = "+"
		} else if tx.Type == "llm_usage" || tx.Type == "transfer_out" {
			sign = "-"
		}
		fmt.Fprintf(&b, "  %s  %-14s %s%s %s  %s\n",
			s.faint.Render(tx.CreatedAt),
			s.key.Render(tx.Type),
			sign, formatAmount(tx.Currency, tx.Amount), tx.Currency,
			s.faint.Render(tx.Description),
		)
	}
	return strings.TrimRight(b.String(), "\n")
}

func pad(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}

// formatAmount renders a smallest-unit integer amount as a decimal string
// scaled by currency's own smallest-unit factor (micros for USD/USDC,
// nano for ETH/SOL, satoshis for BTC).
func formatAmount(currency string, amount int64) string {
	unit := domain.SmallestUnitPerWhole(domain.Currency(currency))
	if unit == 0 {
		unit = 1_000_000
	}
	whole := amount / unit
	frac := amount % unit
	if frac < 0 {
		frac = -frac
	}
	digits := len(fmt.Sprintf("%d", unit)) - 1
	return fmt.Sprintf("%d.%0*d", whole, digits, frac)
}
