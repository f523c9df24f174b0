package cmd

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/beancounters/beanledger"
	"github.com/google/subcommands"
)

// multiFlag collects a repeatable string flag.
type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ", ") }
func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

type addCmd struct {
	date      string
	flag      string
	payee     string
	narration string
	tags      multiFlag
	links     multiFlag
	postings  multiFlag
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "record a transaction" }
func (*addCmd) Usage() string {
	return `bean add [-d <date>] [-payee <payee>] -narration <text> -posting "<Account> [<number> <currency>]" ...

  Records a transaction in the monthly file of its date and prints its id.
  One -posting may omit its amount; it receives the balancing remainder.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", beanledger.Today().String(), "Transaction date.")
	f.StringVar(&c.flag, "flag", beanledger.FlagCleared, "Transaction flag, '*' cleared or '!' pending.")
	f.StringVar(&c.payee, "payee", "", "Payee.")
	f.StringVar(&c.narration, "narration", "", "Narration.")
	f.Var(&c.tags, "tag", "Tag, repeatable.")
	f.Var(&c.links, "link", "Link, repeatable.")
	f.Var(&c.postings, "posting", "Posting \"Account [number currency]\", repeatable.")
}

func (c *addCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if len(c.postings) == 0 {
		return usageError("add wants at least one -posting")
	}
	date, err := beanledger.ParseDate(c.date)
	if err != nil {
		return fail(err)
	}
	tx := beanledger.Transaction{
		Date:      date,
		Flag:      c.flag,
		Payee:     c.payee,
		Narration: c.narration,
		Tags:      c.tags,
		Links:     c.links,
	}
	for _, arg := range c.postings {
		p, err := parsePostingArg(arg)
		if err != nil {
			return fail(err)
		}
		tx.Postings = append(tx.Postings, p)
	}

	ledger, err := openLedger()
	if err != nil {
		return fail(err)
	}
	id, err := ledger.AddTransaction(tx)
	if err != nil {
		return fail(err)
	}
	fmt.Println(id)
	return subcommands.ExitSuccess
}

// parsePostingArg reads "Account", "Account number currency", or "Account
// number" when an operating currency is configured.
func parsePostingArg(arg string) (beanledger.Posting, error) {
	fields := strings.Fields(arg)
	switch len(fields) {
	case 1:
		return beanledger.Posting{Account: fields[0]}, nil
	case 2:
		cur := defaultCurrency()
		if cur == "" {
			return beanledger.Posting{}, fmt.Errorf("posting %q gives no currency and none is configured", arg)
		}
		amount, err := beanledger.ParseAmount(fields[1], cur)
		if err != nil {
			return beanledger.Posting{}, err
		}
		return beanledger.Posting{Account: fields[0], Amount: &amount}, nil
	case 3:
		amount, err := beanledger.ParseAmount(fields[1], fields[2])
		if err != nil {
			return beanledger.Posting{}, err
		}
		return beanledger.Posting{Account: fields[0], Amount: &amount}, nil
	default:
		return beanledger.Posting{}, fmt.Errorf("posting %q: want \"Account\" or \"Account number currency\"", arg)
	}
}

type txCmd struct {
	from    string
	to      string
	account string
	tag     string
}

func (*txCmd) Name() string     { return "tx" }
func (*txCmd) Synopsis() string { return "list transactions" }
func (*txCmd) Usage() string {
	return `bean tx [-from <date>] [-to <date>] [-account <Account>] [-tag <tag>]

  Lists transactions in chronological order, with optional filters.
`
}

func (c *txCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "Start date, inclusive.")
	f.StringVar(&c.to, "to", "", "End date, inclusive.")
	f.StringVar(&c.account, "account", "", "Only transactions posting to this account.")
	f.StringVar(&c.tag, "tag", "", "Only transactions carrying this tag.")
}

func (c *txCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var filter beanledger.TxFilter
	var err error
	if c.from != "" {
		if filter.From, err = beanledger.ParseDate(c.from); err != nil {
			return fail(err)
		}
	}
	if c.to != "" {
		if filter.To, err = beanledger.ParseDate(c.to); err != nil {
			return fail(err)
		}
	}
	filter.Account = c.account
	filter.Tag = c.tag

	ledger, err := openLedger()
	if err != nil {
		return fail(err)
	}
	transactions, err := ledger.Transactions(filter)
	if err != nil {
		return fail(err)
	}

	var b strings.Builder
	for tx := range transactions {
		fmt.Fprintf(&b, "%s %s", tx.Date, tx.Flag)
		if tx.Payee != "" {
			fmt.Fprintf(&b, " %q", tx.Payee)
		}
		fmt.Fprintf(&b, " %q (%s)\n", tx.Narration, tx.ID())
		for _, p := range tx.Postings {
			if p.Amount != nil {
				fmt.Fprintf(&b, "  * %s %s\n", p.Account, p.Amount.Display())
			} else {
				fmt.Fprintf(&b, "  * %s\n", p.Account)
			}
		}
	}
	printMarkdown(b.String())
	return subcommands.ExitSuccess
}

// clearCmd flips a transaction's review flag; registered once per flag.
type clearCmd struct {
	flag string
}

func (c *clearCmd) Name() string {
	if c.flag == beanledger.FlagPending {
		return "unclear"
	}
	return "clear"
}

func (c *clearCmd) Synopsis() string {
	if c.flag == beanledger.FlagPending {
		return "mark a transaction as pending review"
	}
	return "mark a transaction as reviewed"
}

func (c *clearCmd) Usage() string {
	return fmt.Sprintf(`bean %s <id>...

  Sets the transaction flag to %q.
`, c.Name(), c.flag)
}

func (c *clearCmd) SetFlags(f *flag.FlagSet) {}

func (c *clearCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		return usageError(c.Name() + " wants at least one transaction id")
	}
	ledger, err := openLedger()
	if err != nil {
		return fail(err)
	}
	for _, id := range f.Args() {
		op := ledger.Clear
		if c.flag == beanledger.FlagPending {
			op = ledger.Unclear
		}
		if err := op(id); err != nil {
			return fail(err)
		}
	}
	return subcommands.ExitSuccess
}
