package beanledger

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Concurrent adds into the same monthly file must all land: the per-file
// locking serializes the read-modify-write cycles.
func TestConcurrentAddTransaction(t *testing.T) {
	l := testLedgerWithAccounts(t)

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = l.AddTransaction(lunch(1+i%28, 1))
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		require.NoError(t, err, "add %d", i)
	}

	file, err := l.Store().Read("2024-01.bean")
	require.NoError(t, err)
	assert.Len(t, file.Directives, n)

	findings, err := l.Verify()
	require.NoError(t, err)
	for _, d := range findings {
		assert.NotEqual(t, Error, d.Severity, "unexpected error finding: %s", d)
	}
}

func TestReindexAfterExternalEdit(t *testing.T) {
	l := testLedgerWithAccounts(t)
	id, err := l.AddTransaction(lunch(10, 5))
	require.NoError(t, err)

	// Reopen the directory as a second engine instance: it must see
	// everything the first one wrote.
	l2, err := OpenLedger(l.Store().Dir())
	require.NoError(t, err)
	tx, err := l2.GetTransaction(id)
	require.NoError(t, err)
	assert.Equal(t, "lunch", tx.Narration)

	acc, ok := l2.FindAccount("Assets:Cash")
	require.True(t, ok)
	assert.Equal(t, NewDate(2024, time.January, 1), acc.Opened)
}

func TestFormatKeepsContent(t *testing.T) {
	l := testLedgerWithAccounts(t)
	_, err := l.AddTransaction(lunch(10, 5))
	require.NoError(t, err)

	before, err := l.Store().Read("2024-01.bean")
	require.NoError(t, err)

	require.NoError(t, l.Format())

	after, err := l.Store().Read("2024-01.bean")
	require.NoError(t, err)
	require.Len(t, after.Directives, len(before.Directives))
	for i := range before.Directives {
		assert.True(t, before.Directives[i].Equal(after.Directives[i]))
	}
}
