package reconciliation

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/OndrejKnedla/SME-financial-os-sub000/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var statementColumns = []string{
	"external_id",
	"date",
	"amount",
	"counterparty_name",
	"counterparty_account",
	"variable_symbol",
	"description",
}

var requiredStatementColumns = []string{"external_id", "date", "amount"}

// ErrInvalidStatement is returned when the uploaded statement cannot be read at all.
var ErrInvalidStatement = errors.New("invalid bank statement")

type ImportResult struct {
	Rows       int `json:"rows"`
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"`
}

// ImportTransactions loads a bank statement CSV into one bank account.
// Rows already present for the account (same external id) are left untouched
// and counted as duplicates; malformed rows are skipped.
func (s *ReconciliationService) ImportTransactions(ctx context.Context, scope Scope, accountID uuid.UUID, currency string, r io.Reader) (*ImportResult, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return nil, fmt.Errorf("%w: currency %q", ErrInvalidStatement, currency)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read CSV header: %v", ErrInvalidStatement, err)
	}
	idx := make(map[string]int, len(statementColumns))
	for _, name := range statementColumns {
		idx[name] = -1
	}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, ok := idx[key]; ok {
			idx[key] = i
		}
	}
	for _, name := range requiredStatementColumns {
		if idx[name] < 0 {
			return nil, fmt.Errorf("%w: missing required column %q", ErrInvalidStatement, name)
		}
	}

	result := &ImportResult{}
	var txns []models.BankTransaction
	now := s.now()
	rowNum := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++
		if err != nil {
			s.logger.Printf("import: row %d unreadable: %v", rowNum, err)
			result.Rows++
			result.Skipped++
			continue
		}
		if len(record) == 0 || strings.TrimSpace(strings.Join(record, "")) == "" {
			continue
		}
		result.Rows++

		txn, err := parseStatementRow(record, idx)
		if err != nil {
			s.logger.Printf("import: skipping row %d: %v", rowNum, err)
			result.Skipped++
			continue
		}
		txn.ID = uuid.New()
		txn.OrganizationID = scope.OrganizationID
		txn.BankAccountID = accountID
		txn.Currency = currency
		txn.CreatedAt = now
		txns = append(txns, *txn)
	}

	inserted, err := s.transactionRepo.InsertNew(ctx, txns)
	if err != nil {
		return nil, fmt.Errorf("insert transactions: %w", err)
	}
	result.Inserted = int(inserted)
	result.Duplicates = len(txns) - result.Inserted
	return result, nil
}

func parseStatementRow(record []string, idx map[string]int) (*models.BankTransaction, error) {
	field := func(name string) string {
		i := idx[name]
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	optional := func(name string) *string {
		v := field(name)
		if v == "" {
			return nil
		}
		return &v
	}

	externalID := field("external_id")
	if externalID == "" {
		return nil, errors.New("empty external_id")
	}
	date, err := parseStatementDate(field("date"))
	if err != nil {
		return nil, err
	}
	amount, err := parseMinorUnits(field("amount"))
	if err != nil {
		return nil, err
	}

	return &models.BankTransaction{
		ExternalID:          externalID,
		Date:                date,
		Amount:              amount,
		CounterpartyName:    optional("counterparty_name"),
		CounterpartyAccount: optional("counterparty_account"),
		VariableSymbol:      optional("variable_symbol"),
		Description:         optional("description"),
	}, nil
}

func parseStatementDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "02-01-2006", "02.01.2006", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

var (
	maxMinorUnits = decimal.NewFromInt(math.MaxInt64)
	minMinorUnits = decimal.NewFromInt(math.MinInt64)
)

// parseMinorUnits converts a decimal major-unit amount ("-1210.50") to minor units.
func parseMinorUnits(s string) (int64, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	minor := d.Shift(2)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, fmt.Errorf("amount %q has more than two decimals", s)
	}
	if minor.GreaterThan(maxMinorUnits) || minor.LessThan(minMinorUnits) {
		return 0, fmt.Errorf("amount %q out of range", s)
	}
	return minor.IntPart(), nil
}
