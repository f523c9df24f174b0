package beanledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := OpenLedger(t.TempDir())
	require.NoError(t, err)
	return l
}

func TestOpenAccount(t *testing.T) {
	l := testLedger(t)
	id, err := l.OpenAccount("Assets:Bank:Checking", NewDate(2024, time.January, 15), []string{"EUR"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	acc, ok := l.FindAccount("Assets:Bank:Checking")
	require.True(t, ok)
	assert.Equal(t, id, acc.ID)
	assert.Equal(t, []string{"EUR"}, acc.Currencies)

	// The accounts file exists and is reachable from the main file.
	require.True(t, l.Store().Exists(MainFile))
	main, err := l.Store().Read(MainFile)
	require.NoError(t, err)
	require.Len(t, main.Directives, 1)
	assert.True(t, Include{Path: AccountsFile}.Equal(main.Directives[0]))
}

func TestOpenAccountRejects(t *testing.T) {
	l := testLedger(t)
	_, err := l.OpenAccount("Assets:Cash", NewDate(2024, time.January, 1), nil)
	require.NoError(t, err)

	_, err = l.OpenAccount("Assets:Cash", NewDate(2024, time.February, 1), nil)
	var dup *DuplicateAccountError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "Assets:Cash", dup.Name)

	_, err = l.OpenAccount("noseparator", NewDate(2024, time.January, 1), nil)
	assert.Error(t, err)

	_, err = l.OpenAccount("Assets:Cash2", Date{}, nil)
	var bad *InvalidDateError
	assert.ErrorAs(t, err, &bad)

	_, err = l.OpenAccount("Assets:Cash3", NewDate(2024, time.January, 1), []string{"not a currency"})
	assert.Error(t, err)
}

func TestCloseAccount(t *testing.T) {
	l := testLedger(t)
	id, err := l.OpenAccount("Assets:Cash", NewDate(2024, time.January, 1), nil)
	require.NoError(t, err)

	require.NoError(t, l.CloseAccount(id, NewDate(2024, time.December, 31)))

	acc, ok := l.FindAccount("Assets:Cash")
	require.True(t, ok)
	assert.Equal(t, NewDate(2024, time.December, 31), acc.Closed)
	assert.True(t, acc.IsOpen(NewDate(2024, time.June, 1)))
	assert.False(t, acc.IsOpen(NewDate(2025, time.January, 1)))

	var closed *AlreadyClosedError
	require.ErrorAs(t, l.CloseAccount(id, NewDate(2025, time.January, 1)), &closed)

	var notFound *NotFoundError
	require.ErrorAs(t, l.CloseAccount("no-such-id", NewDate(2024, time.June, 1)), &notFound)
}

func TestCloseBeforeOpen(t *testing.T) {
	l := testLedger(t)
	id, err := l.OpenAccount("Assets:Cash", NewDate(2024, time.June, 1), nil)
	require.NoError(t, err)
	var bad *InvalidDateError
	require.ErrorAs(t, l.CloseAccount(id, NewDate(2024, time.January, 1)), &bad)
}

func TestUpdateAccount(t *testing.T) {
	l := testLedger(t)
	id, err := l.OpenAccount("Assets:Cash", NewDate(2024, time.January, 1), []string{"EUR"})
	require.NoError(t, err)

	err = l.UpdateAccount(id, []string{"EUR", "USD"}, Metadata{"bank": "ACME", MetaID: "must-not-overwrite"})
	require.NoError(t, err)

	acc, ok := l.AccountByID(id)
	require.True(t, ok)
	assert.Equal(t, []string{"EUR", "USD"}, acc.Currencies)
	assert.Equal(t, "ACME", acc.Metadata["bank"])
	assert.Equal(t, id, acc.ID)
}

func TestDeleteAccountInUse(t *testing.T) {
	l := testLedger(t)
	id, err := l.OpenAccount("Expenses:Food", NewDate(2024, time.January, 1), nil)
	require.NoError(t, err)
	_, err = l.OpenAccount("Assets:Cash", NewDate(2024, time.January, 1), nil)
	require.NoError(t, err)

	_, err = l.AddTransaction(Transaction{
		Date:      NewDate(2024, time.January, 20),
		Narration: "lunch",
		Postings: []Posting{
			{Account: "Expenses:Food", Amount: amountPtr(A(10, "EUR"))},
			{Account: "Assets:Cash"},
		},
	})
	require.NoError(t, err)

	var inUse *AccountInUseError
	require.ErrorAs(t, l.DeleteAccount(id, false), &inUse)
	assert.Equal(t, 1, inUse.Postings)

	require.NoError(t, l.DeleteAccount(id, true))
	_, ok := l.FindAccount("Expenses:Food")
	assert.False(t, ok)
}

func TestDeleteAccountUnused(t *testing.T) {
	l := testLedger(t)
	id, err := l.OpenAccount("Assets:Cash", NewDate(2024, time.January, 1), nil)
	require.NoError(t, err)
	require.NoError(t, l.DeleteAccount(id, false))

	file, err := l.Store().Read(AccountsFile)
	require.NoError(t, err)
	assert.Empty(t, file.Directives)
}

func TestAccountsIterator(t *testing.T) {
	l := testLedger(t)
	_, err := l.OpenAccount("Assets:Cash", NewDate(2024, time.January, 1), nil)
	require.NoError(t, err)
	id, err := l.OpenAccount("Assets:Old", NewDate(2020, time.January, 1), nil)
	require.NoError(t, err)
	require.NoError(t, l.CloseAccount(id, NewDate(2021, time.January, 1)))

	all, err := l.Accounts()
	require.NoError(t, err)
	var names []string
	for acc := range all {
		names = append(names, acc.Name)
	}
	assert.Equal(t, []string{"Assets:Cash", "Assets:Old"}, names)

	open, err := l.Accounts(ByOpenOn(NewDate(2024, time.June, 1)))
	require.NoError(t, err)
	names = nil
	for acc := range open {
		names = append(names, acc.Name)
	}
	assert.Equal(t, []string{"Assets:Cash"}, names)
}
