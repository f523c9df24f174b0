package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/beancounters/beanledger"
	"github.com/google/subcommands"
)

type verifyCmd struct{}

func (*verifyCmd) Name() string     { return "verify" }
func (*verifyCmd) Synopsis() string { return "check the data directory against the ledger invariants" }
func (*verifyCmd) Usage() string {
	return `bean verify

  Re-reads every file and reports broken invariants. Exits non-zero when
  any error-level finding exists; warnings alone exit zero.
`
}

func (c *verifyCmd) SetFlags(f *flag.FlagSet) {}

func (c *verifyCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ledger, err := openLedger()
	if err != nil {
		return fail(err)
	}
	findings, err := ledger.Verify()
	if err != nil {
		return fail(err)
	}

	errors := 0
	for _, d := range findings {
		fmt.Println(d)
		if d.Severity == beanledger.Error {
			errors++
		}
	}
	if errors > 0 {
		fmt.Printf("%d error(s), %d finding(s)\n", errors, len(findings))
		return subcommands.ExitFailure
	}
	if len(findings) > 0 {
		fmt.Printf("%d warning(s)\n", len(findings))
	}
	return subcommands.ExitSuccess
}

type fmtCmd struct{}

func (*fmtCmd) Name() string     { return "fmt" }
func (*fmtCmd) Synopsis() string { return "rewrite every ledger file in canonical form" }
func (*fmtCmd) Usage() string {
	return `bean fmt

  Normalizes whitespace, aligns postings and sorts metadata. Content is
  untouched.
`
}

func (c *fmtCmd) SetFlags(f *flag.FlagSet) {}

func (c *fmtCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ledger, err := openLedger()
	if err != nil {
		return fail(err)
	}
	if err := ledger.Format(); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}
