// Package ledger implements the business logic over the account data
// model: the atomic balance-changing operations (LLM usage debit,
// transfer, conversion, deposit) that are the core of the gateway. The
// data model itself lives in internal/domain, which internal/store also
// depends on; the aliases below let the rest of this package (and its
// callers) keep writing ledger.Currency, ledger.Entry, etc.
package ledger

import (
	"time"

	"github.com/oftenai/often-gateway/internal/domain"
)

type Currency = domain.Currency

const (
	USD  = domain.USD
	USDC = domain.USDC
	ETH  = domain.ETH
	BTC  = domain.BTC
	SOL  = domain.SOL
)

// SupportedCurrencies is bit-exact to the client-facing enumeration.
var SupportedCurrencies = domain.SupportedCurrencies

// IsSupported reports whether c is one of the closed currency set.
func IsSupported(c Currency) bool { return domain.IsSupported(c) }

// SmallestUnitPerWhole returns the smallest-unit factor for c, or 0 if c is
// not supported.
func SmallestUnitPerWhole(c Currency) int64 { return domain.SmallestUnitPerWhole(c) }

type AccountStatus = domain.AccountStatus

const StatusActive = domain.StatusActive

type Account = domain.Account

// NewAccount creates an account with all supported balances at zero.
func NewAccount(id, email string, now time.Time) Account { return domain.NewAccount(id, email, now) }

type EntryType = domain.EntryType

const (
	EntryDeposit     = domain.EntryDeposit
	EntryLLMUsage    = domain.EntryLLMUsage
	EntryTransferOut = domain.EntryTransferOut
	EntryTransferIn  = domain.EntryTransferIn
	EntryConversion  = domain.EntryConversion
)

type Entry = domain.Entry
