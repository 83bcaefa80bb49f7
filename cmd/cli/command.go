package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/nomis52/clubsignup/page"
	"github.com/nomis52/clubsignup/render"
)

const (
	cmdList       = "list"
	cmdSignup     = "signup"
	cmdUnregister = "unregister"
)

// errFailed reports that the command ended with an error banner, which has
// already been printed.
var errFailed = errors.New("command failed")

// parseCommand fills the command and its options from the arguments left
// after the global flags. The command defaults to list.
func parseCommand(args *Args, rest []string) error {
	args.Command = cmdList
	if len(rest) == 0 {
		return nil
	}
	args.Command = rest[0]
	switch args.Command {
	case cmdList, cmdSignup, cmdUnregister:
	default:
		return fmt.Errorf("unknown command %q", args.Command)
	}

	fs := flag.NewFlagSet(args.Command, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&args.Activity, "activity", "", "Activity name")
	fs.StringVar(&args.Email, "email", "", "Student email")
	fs.BoolVar(&args.Yes, "yes", false, "Skip the unregister confirmation")
	if err := fs.Parse(rest[1:]); err != nil {
		return fmt.Errorf("parsing %s options: %w", args.Command, err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return nil
}

// execute runs the command against p and prints the outcome.
func execute(ctx context.Context, p *page.Page, args Args, in io.Reader, out, errOut io.Writer) error {
	switch args.Command {
	case cmdSignup:
		return report(p, p.Signup(ctx, args.Email, args.Activity), out, errOut)
	case cmdUnregister:
		confirm := page.Always
		if !args.Yes {
			confirm = promptConfirmer(in, errOut)
		}
		outcome := p.Unregister(ctx, args.Activity, args.Email, confirm)
		if outcome == page.OutcomeDeclined {
			fmt.Fprintln(errOut, "Cancelled.")
			return nil
		}
		return report(p, outcome, out, errOut)
	default:
		return list(ctx, p, out, errOut)
	}
}

func list(ctx context.Context, p *page.Page, out, errOut io.Writer) error {
	if err := p.Load(ctx); err != nil {
		fmt.Fprintln(errOut, render.LoadErrorText)
		return errFailed
	}
	return render.Text(out, p.View().Catalog)
}

// report prints the banner of a finished action and, on success, the reloaded cards.
func report(p *page.Page, outcome page.Outcome, out, errOut io.Writer) error {
	n := p.Notification()
	if outcome.Failed() {
		fmt.Fprintln(errOut, n.Text)
		return errFailed
	}
	fmt.Fprintln(out, n.Text)
	v := p.View()
	if v.LoadFailed {
		fmt.Fprintln(errOut, render.LoadErrorText)
		return nil
	}
	fmt.Fprintln(out)
	return render.Text(out, v.Catalog)
}

// promptConfirmer asks on errOut and reads the answer from in. Only y or yes
// confirms.
func promptConfirmer(in io.Reader, errOut io.Writer) page.Confirmer {
	reader := bufio.NewReader(in)
	return page.ConfirmFunc(func(_ context.Context, prompt string) bool {
		fmt.Fprintf(errOut, "%s [y/N]: ", prompt)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		default:
			return false
		}
	})
}
