package cmd

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/beancounters/beanledger"
	"github.com/google/subcommands"
)

type openCmd struct {
	date       string
	currencies string
}

func (*openCmd) Name() string     { return "open" }
func (*openCmd) Synopsis() string { return "open a new account" }
func (*openCmd) Usage() string {
	return `bean open [-d <date>] [-currencies <CUR,...>] <Account:Name>

  Opens an account and prints its id.
`
}

func (c *openCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", beanledger.Today().String(), "Opening date.")
	f.StringVar(&c.currencies, "currencies", "", "Comma-separated currencies the account permits (empty: any).")
}

func (c *openCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usageError("open wants exactly one account name")
	}
	date, err := beanledger.ParseDate(c.date)
	if err != nil {
		return fail(err)
	}
	var currencies []string
	if c.currencies != "" {
		currencies = strings.Split(c.currencies, ",")
	}

	ledger, err := openLedger()
	if err != nil {
		return fail(err)
	}
	id, err := ledger.OpenAccount(f.Arg(0), date, currencies)
	if err != nil {
		return fail(err)
	}
	fmt.Println(id)
	return subcommands.ExitSuccess
}

type closeCmd struct {
	date string
}

func (*closeCmd) Name() string     { return "close" }
func (*closeCmd) Synopsis() string { return "close an account" }
func (*closeCmd) Usage() string {
	return `bean close [-d <date>] <id | Account:Name>

  Records the last date the account accepts postings.
`
}

func (c *closeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", beanledger.Today().String(), "Closing date.")
}

func (c *closeCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usageError("close wants exactly one account id")
	}
	date, err := beanledger.ParseDate(c.date)
	if err != nil {
		return fail(err)
	}
	ledger, err := openLedger()
	if err != nil {
		return fail(err)
	}
	if beanledger.ValidAccountName(f.Arg(0)) {
		err = ledger.CloseAccountByName(f.Arg(0), date)
	} else {
		err = ledger.CloseAccount(f.Arg(0), date)
	}
	if err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

type accountsCmd struct {
	on string
}

func (*accountsCmd) Name() string     { return "accounts" }
func (*accountsCmd) Synopsis() string { return "list accounts" }
func (*accountsCmd) Usage() string {
	return `bean accounts [-on <date>]

  Lists accounts, optionally only those open on a given date.
`
}

func (c *accountsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.on, "on", "", "Only accounts open on this date.")
}

func (c *accountsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ledger, err := openLedger()
	if err != nil {
		return fail(err)
	}
	var filters []func(beanledger.Account) bool
	if c.on != "" {
		on, err := beanledger.ParseDate(c.on)
		if err != nil {
			return fail(err)
		}
		filters = append(filters, beanledger.ByOpenOn(on))
	}
	accounts, err := ledger.Accounts(filters...)
	if err != nil {
		return fail(err)
	}

	var b strings.Builder
	b.WriteString("| Account | Opened | Closed | Currencies | Id |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for acc := range accounts {
		closed := ""
		if !acc.Closed.IsZero() {
			closed = acc.Closed.String()
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			acc.Name, acc.Opened, closed, strings.Join(acc.Currencies, ","), acc.ID)
	}
	printMarkdown(b.String())
	return subcommands.ExitSuccess
}
