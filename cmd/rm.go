package cmd

import (
	"context"
	"flag"

	"github.com/google/subcommands"
)

type rmCmd struct {
	force bool
}

func (*rmCmd) Name() string     { return "rm" }
func (*rmCmd) Synopsis() string { return "delete a transaction or an account" }
func (*rmCmd) Usage() string {
	return `bean rm tx <id>...
bean rm account [-force] <id>

  Deletes transactions, or an account. Deleting an account fails while
  monthly files still post to it, unless -force is given.
`
}

func (c *rmCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.force, "force", false, "Delete the account even when postings reference it.")
}

func (c *rmCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() < 2 {
		return usageError("rm wants a kind (tx or account) and at least one id")
	}
	ledger, err := openLedger()
	if err != nil {
		return fail(err)
	}

	switch f.Arg(0) {
	case "tx":
		for _, id := range f.Args()[1:] {
			if err := ledger.DeleteTransaction(id); err != nil {
				return fail(err)
			}
		}
	case "account":
		if f.NArg() != 2 {
			return usageError("rm account wants exactly one id")
		}
		if err := ledger.DeleteAccount(f.Arg(1), c.force); err != nil {
			return fail(err)
		}
	default:
		return usageError("rm wants a kind: tx or account")
	}
	return subcommands.ExitSuccess
}
