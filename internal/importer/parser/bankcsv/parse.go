// Package bankcsv parses CSV account statements as exported by German banks.
package bankcsv

import (
	"crypto/sha256"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/immoledger/backend/internal/models"
	"github.com/shopspring/decimal"
)

// Column names as used in the header row. Every column can have several names
// since banks do not agree on them.
var columns = map[string][]string{
	date:           {"Buchungstag", "Buchungsdatum", "Datum"},
	senderReceiver: {"Empfänger/Auftraggeber", "Auftraggeber / Empfänger", "Name Zahlungsbeteiligter", "Beguenstigter/Zahlungspflichtiger"},
	description:    {"Verwendungszweck"},
	reference:      {"Referenz", "Kundenreferenz", "Mandatsreferenz"},
	iban:           {"IBAN", "IBAN Zahlungsbeteiligter", "Kontonummer/IBAN"},
	amount:         {"Betrag", "Betrag (EUR)", "Umsatz"},
	currency:       {"Währung", "Waehrung"},
}

const (
	date           = "date"
	senderReceiver = "senderReceiver"
	description    = "description"
	reference      = "reference"
	iban           = "iban"
	amount         = "amount"
	currency       = "currency"
)

var (
	ErrMissingColumn = errors.New("the CSV file is missing a required column")
	ErrAmountZero    = errors.New("the amount for a transaction must not be 0")
)

// Parse parses a semicolon separated account statement with a header row.
//
// Dates are expected as DD.MM.YYYY, amounts in German notation (1.234,56).
// Every transaction gets the SHA256 hash of its line as import hash.
func Parse(f io.Reader) ([]models.BankTransaction, error) {
	reader := csv.NewReader(f)
	reader.Comma = ';'
	reader.LazyQuotes = true

	transactions := make([]models.BankTransaction, 0)

	header, err := reader.Read()
	if err == io.EOF {
		return transactions, nil
	}
	if err != nil {
		return nil, readError(err)
	}

	index, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	occurrences := make(map[string]int)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, readError(err)
		}

		// Skip empty lines at the end of an export
		if strings.TrimSpace(strings.Join(record, "")) == "" {
			continue
		}

		field := func(name string) string {
			i, ok := index[name]
			if !ok {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		transactionDate, err := time.Parse("02.01.2006", field(date))
		if err != nil {
			return csvReadError(reader, fmt.Errorf("could not parse time: %w", err))
		}

		value, err := ParseAmount(field(amount))
		if err != nil {
			return csvReadError(reader, err)
		}

		if value.IsZero() {
			return csvReadError(reader, ErrAmountZero)
		}

		// Identical lines are distinct transfers, the repetition is part of the hash
		line := strings.Join(record, ";")
		n := occurrences[line]
		occurrences[line]++
		if n > 0 {
			line = fmt.Sprintf("%s;#%d", line, n)
		}
		hash := fmt.Sprintf("%x", sha256.Sum256([]byte(line)))

		transactions = append(transactions, models.BankTransaction{
			TransactionDate: transactionDate,
			Amount:          value,
			SenderReceiver:  field(senderReceiver),
			Description:     field(description),
			Reference:       field(reference),
			IBAN:            strings.ReplaceAll(field(iban), " ", ""),
			Currency:        field(currency),
			ImportHash:      &hash,
		})
	}

	return transactions, nil
}

// ParseAmount parses an amount in German notation.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "€"))
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount '%s' could not be parsed to a decimal", s)
	}

	return d, nil
}

// columnIndex maps the known columns to their position in the header.
func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int)

	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))

		for column, names := range columns {
			for _, n := range names {
				if strings.EqualFold(n, name) {
					if _, ok := index[column]; !ok {
						index[column] = i
					}
				}
			}
		}
	}

	for _, required := range []string{date, amount} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, columns[required][0])
		}
	}

	return index, nil
}

// readError adds the line to errors of the CSV reader.
func readError(err error) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return fmt.Errorf("error in line %d of the CSV: %w", parseErr.Line, parseErr.Err)
	}

	return fmt.Errorf("could not read CSV: %w", err)
}

// csvReadError returns an error with the line of the input the error occurred in.
func csvReadError(r *csv.Reader, err error) ([]models.BankTransaction, error) {
	line, _ := r.FieldPos(0)

	return nil, fmt.Errorf("error in line %d of the CSV: %w", line, err)
}
