package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	AccountActive   AccountStatus = "ACTIVE"
	AccountDisabled AccountStatus = "DISABLED"
)

// FixedTermDepositType is the deposit type tag that marks fixed-term
// deposits. Kept byte-identical to the stored data so maturity filtering
// keeps matching historical rows.
const FixedTermDepositType = "定期"

type (
	AccountStatus string

	Account struct {
		ID        int64
		UserID    int64
		Name      string
		Type      string
		Note      string
		Status    AccountStatus
		CreatedAt Date
	}

	// Deposit is one line of a reconciliation: an amount held on an
	// account, filed under ReconciliationDate. DepositTime is the date
	// the money was actually deposited, which drives maturity math.
	Deposit struct {
		ID                 int64
		UserID             int64
		AccountID          int64
		DepositType        string
		DepositTime        Date
		Amount             decimal.Decimal
		InterestRate       *decimal.Decimal
		Term               *decimal.Decimal // years, fractional allowed
		Note               *string
		ReconciliationDate Date
	}

	// Snapshot records that a reconciliation happened on a date. Its
	// existence is the only fact that makes a date "reconciled";
	// deposits without a snapshot row are orphans.
	Snapshot struct {
		ID                 int64
		UserID             int64
		ReconciliationDate Date
		TotalAmount        decimal.Decimal
		Note               *string
	}
)

var (
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrSnapshotNotFound = errors.New("reconciliation snapshot not found")
	ErrSnapshotExists   = errors.New("reconciliation snapshot already exists")
	ErrAccountNotOwned  = errors.New("account does not belong to user")
	ErrAccountNotFound  = errors.New("account not found")
	ErrAccountNameTaken = errors.New("account name already exists")
	ErrDepositNotFound  = errors.New("deposit not found")
	ErrEmptyName        = errors.New("empty name")
)

func (a Account) Validate() error {
	if len(strings.TrimSpace(a.Name)) == 0 {
		return ErrEmptyName
	}
	if len(a.Name) > 100 {
		return errors.New("name too long (max 100 characters)")
	}
	return nil
}

func (d Deposit) Validate() error {
	if d.AccountID <= 0 {
		return ErrAccountNotFound
	}
	if err := d.DepositTime.Validate(); err != nil {
		return err
	}
	if err := d.ReconciliationDate.Validate(); err != nil {
		return err
	}
	if !d.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// IsFixedTerm reports whether the deposit participates in maturity
// statistics: it carries the fixed-term type tag and has a term set.
func (d Deposit) IsFixedTerm() bool {
	return d.DepositType == FixedTermDepositType && d.Term != nil
}

// MaturityDate is DepositTime plus round(term * 365) days. Callers must
// check IsFixedTerm first.
func (d Deposit) MaturityDate() Date {
	days := d.Term.Mul(decimal.NewFromInt(365)).Round(0).IntPart()
	return d.DepositTime.AddDays(int(days))
}
