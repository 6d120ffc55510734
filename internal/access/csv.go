package access

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"employee-timesheet/internal/storage"
)

// Roster import: HR exports the employee list as CSV or tab separated text,
// often UTF-16 with a BOM when it comes out of a spreadsheet.

var ErrRosterHeader = errors.New("roster is missing required columns")

// RosterDefinition names the roster columns in one language.
type RosterDefinition struct {
	UsernameField  string
	EmailField     string
	FirstNameField string
	LastNameField  string

	Language string // Language code, e.g. "en", "fi"
}

// Known roster headers. Username is optional; the local part of the email is
// used when it is missing.
var RosterDefinitions = []RosterDefinition{
	{
		UsernameField:  "USERNAME",
		EmailField:     "EMAIL",
		FirstNameField: "FIRST NAME",
		LastNameField:  "LAST NAME",
		Language:       "en",
	},
	{
		UsernameField:  "KÄYTTÄJÄTUNNUS",
		EmailField:     "SÄHKÖPOSTI",
		FirstNameField: "ETUNIMI",
		LastNameField:  "SUKUNIMI",
		Language:       "fi",
	},
}

// RosterEntry is one employee row.
type RosterEntry struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
}

// ParseRoster reads a roster. UTF-8 and UTF-16 (with BOM) input are accepted,
// and the delimiter is a tab when the header line contains one, otherwise a comma.
func ParseRoster(r io.Reader) ([]RosterEntry, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	br := bufio.NewReader(decoded)

	reader := csv.NewReader(br)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	if head, _ := br.Peek(4096); bytes.ContainsRune(firstLine(head), '\t') {
		reader.Comma = '\t'
	}

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read roster header: %w", err)
	}

	def, idx, ok := matchRosterHeader(headers)
	if !ok {
		return nil, fmt.Errorf("%w: need at least %q", ErrRosterHeader, RosterDefinitions[0].EmailField)
	}
	slog.Debug("Roster header matched", "language", def.Language)

	field := func(record []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var entries []RosterEntry
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("roster line %d: %w", line, err)
		}

		entry := RosterEntry{
			Username:  field(record, def.UsernameField),
			Email:     field(record, def.EmailField),
			FirstName: field(record, def.FirstNameField),
			LastName:  field(record, def.LastNameField),
		}
		if entry.Email == "" && entry.Username == "" {
			continue
		}
		if entry.Email != "" {
			if err := ValidEmail(entry.Email); err != nil {
				return nil, fmt.Errorf("roster line %d: %q: %w", line, entry.Email, err)
			}
		}
		if entry.Username == "" {
			entry.Username = strings.ToLower(entry.Email[:strings.Index(entry.Email, "@")])
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func firstLine(b []byte) []byte {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		return b[:i]
	}
	return b
}

func matchRosterHeader(headers []string) (RosterDefinition, map[string]int, bool) {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToUpper(strings.TrimSpace(h))] = i
	}
	for _, def := range RosterDefinitions {
		if _, ok := idx[def.EmailField]; ok {
			return def, idx, true
		}
	}
	return RosterDefinition{}, nil, false
}

// UserCreator is the storage used by ImportRoster.
type UserCreator interface {
	CreateUser(ctx context.Context, user *storage.User) error
}

// ImportResult counts what ImportRoster did.
type ImportResult struct {
	Created  int
	Existing int
}

// ImportRoster creates an active employee account for every entry. Accounts
// that already exist are left alone. New accounts have no password until one
// is set.
func ImportRoster(ctx context.Context, users UserCreator, entries []RosterEntry) (ImportResult, error) {
	var result ImportResult
	for _, e := range entries {
		err := users.CreateUser(ctx, &storage.User{
			Username:  e.Username,
			Email:     e.Email,
			FirstName: e.FirstName,
			LastName:  e.LastName,
			IsActive:  true,
		})
		switch {
		case errors.Is(err, storage.ErrDuplicate):
			result.Existing++
		case err != nil:
			return result, fmt.Errorf("failed to create %s: %w", e.Username, err)
		default:
			result.Created++
		}
	}
	return result, nil
}
