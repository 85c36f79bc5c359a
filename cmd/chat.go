package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lepinkainen/novelseek/internal/aggregate"
)

const chatPrompt = "> "

const chatHelp = `Commands:
  search <keyword>             search every platform
  browse <platform> <keyword>  search one platform (or: <platform> <keyword>)
  next, prev                   move between result pages
  page <n>                     jump to result page n
  detail <n>                   show the details of result n
  reset                        forget the current search
  quit                         leave`

// ChatCmd reads commands line by line, the way a chat bot receives them.
type ChatCmd struct {
	User string `help:"Session owner" default:"cli"`
}

func (c *ChatCmd) Run() error {
	return withRuntime(func(ctx context.Context, rt *runtime) error {
		return newChat(rt.svc, c.User).serve(ctx, stdin, stdout)
	})
}

type chat struct {
	svc  *aggregate.Service
	user string
}

func newChat(svc *aggregate.Service, user string) *chat {
	return &chat{svc: svc, user: user}
}

func (c *chat) serve(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, chatPrompt)
	for scanner.Scan() {
		reply, quit := c.handle(ctx, scanner.Text())
		if reply != "" {
			fmt.Fprintln(out, strings.TrimRight(reply, "\n"))
		}
		if quit || ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(out, chatPrompt)
	}
	return scanner.Err()
}

// handle runs one command line and returns the reply and whether the
// session should end.
func (c *chat) handle(ctx context.Context, line string) (string, bool) {
	command, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	command = strings.ToLower(strings.TrimPrefix(command, "/"))
	rest = strings.TrimSpace(rest)

	switch command {
	case "":
		return "", false
	case "quit", "exit", "q":
		return "Bye.", true
	case "help", "?":
		return chatHelp, false
	case "reset":
		c.svc.Reset(c.user)
		return "Search cleared.", false
	case "search", "s":
		return c.page(c.svc.Search(ctx, c.user, rest, 1))
	case "browse", "b":
		platform, keyword, _ := strings.Cut(rest, " ")
		return c.page(c.svc.Browse(ctx, c.user, strings.ToLower(platform), strings.TrimSpace(keyword), 1))
	case "next", "n":
		return c.page(c.svc.Next(ctx, c.user))
	case "prev", "p":
		return c.page(c.svc.Prev(ctx, c.user))
	case "page":
		n, err := strconv.Atoi(rest)
		if err != nil {
			return "Usage: page <n>", false
		}
		return c.page(c.svc.GoTo(ctx, c.user, n))
	case "detail", "d":
		n, err := strconv.Atoi(rest)
		if err != nil {
			return "Usage: detail <n>", false
		}
		return c.detail(ctx, n), false
	}

	if _, ok := c.svc.Aggregator().Platform(command); ok {
		return c.page(c.svc.Browse(ctx, c.user, command, rest, 1))
	}
	return fmt.Sprintf("Unknown command %q, type help for a list.", command), false
}

func (c *chat) page(res *aggregate.Result, err error) (string, bool) {
	if err != nil {
		return describeError(err), false
	}
	return formatResultText(res), false
}

func (c *chat) detail(ctx context.Context, n int) string {
	candidate, err := c.svc.DetailByIndex(ctx, c.user, n)
	if err != nil {
		return describeError(err)
	}
	details, err := c.svc.Details(ctx, candidate)
	if err != nil {
		return describeError(err)
	}
	return formatDetailsText(candidate, details)
}
