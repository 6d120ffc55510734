package access

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"

	"employee-timesheet/internal/storage"
)

func TestParseRoster_CommaUTF8(t *testing.T) {
	input := "Email,First name,Last name\n" +
		"Dana.Scully@example.com,Dana,Scully\n" +
		",,\n" +
		"fox@example.com,Fox,Mulder\n"

	entries, err := ParseRoster(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, RosterEntry{Username: "dana.scully", Email: "Dana.Scully@example.com", FirstName: "Dana", LastName: "Scully"}, entries[0])
	assert.Equal(t, "fox", entries[1].Username)
}

func TestParseRoster_UTF16TabFinnish(t *testing.T) {
	input := "Käyttäjätunnus\tSähköposti\tEtunimi\tSukunimi\r\n" +
		"mvirtanen\tmatti.virtanen@example.com\tMatti\tVirtanen\r\n"

	encoded, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String(input)
	require.NoError(t, err)

	entries, err := ParseRoster(strings.NewReader(encoded))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, RosterEntry{Username: "mvirtanen", Email: "matti.virtanen@example.com", FirstName: "Matti", LastName: "Virtanen"}, entries[0])
}

func TestParseRoster_Errors(t *testing.T) {
	_, err := ParseRoster(strings.NewReader("Name,Phone\nDana,555\n"))
	assert.ErrorIs(t, err, ErrRosterHeader)

	_, err = ParseRoster(strings.NewReader("Email\nnot-an-address\n"))
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = ParseRoster(bytes.NewReader(nil))
	assert.Error(t, err)
}

type memUsers struct {
	users map[string]storage.User
}

func (m *memUsers) CreateUser(ctx context.Context, u *storage.User) error {
	if _, ok := m.users[u.Username]; ok {
		return storage.ErrDuplicate
	}
	m.users[u.Username] = *u
	return nil
}

func TestImportRoster(t *testing.T) {
	users := &memUsers{users: map[string]storage.User{"fox": {Username: "fox"}}}
	entries := []RosterEntry{
		{Username: "dana", Email: "dana@example.com", FirstName: "Dana"},
		{Username: "fox", Email: "fox@example.com"},
	}

	res, err := ImportRoster(context.Background(), users, entries)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Created: 1, Existing: 1}, res)
	assert.True(t, users.users["dana"].IsActive)
	assert.False(t, users.users["dana"].IsAdmin)
}
