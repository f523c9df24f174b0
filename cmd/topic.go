package cmd

import (
	"context"
	"flag"
	"strings"

	"github.com/beancounters/beanledger/docs"
	"github.com/google/subcommands"
)

type topicCmd struct{}

func (*topicCmd) Name() string     { return "topic" }
func (*topicCmd) Synopsis() string { return "show documentation" }
func (*topicCmd) Usage() string {
	return `bean topic [<topic>...]

  Shows documentation. Without arguments, lists the available topics;
  'bean topic "*"' shows everything.
`
}

func (c *topicCmd) SetFlags(f *flag.FlagSet) {}

func (c *topicCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		readme, err := docs.Readme()
		if err != nil {
			return fail(err)
		}
		printMarkdown(readme)
		return subcommands.ExitSuccess
	}

	var b strings.Builder
	for _, name := range f.Args() {
		content, err := docs.Topic(name)
		if err != nil {
			return fail(err)
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	printMarkdown(b.String())
	return subcommands.ExitSuccess
}
