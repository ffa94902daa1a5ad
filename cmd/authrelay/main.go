package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/torosent/authrelay/internal/config"
)

// streams are the process's standard files, swapped out in tests.
type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], streams{in: os.Stdin, out: os.Stdout, err: os.Stderr})
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, s streams) error {
	root := newRootCmd(s)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if errors.Is(err, config.ErrHelpRequested) {
		return nil
	}
	return err
}

func newRootCmd(s streams) *cobra.Command {
	root := &cobra.Command{
		Use:   "authrelay",
		Short: "Session-aware API client",
		Long: `authrelay sends requests to an API with the stored session token, refreshes the
token once when the server rejects it and replays the request, and prints every
result in one envelope shape.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(s.in)
	root.SetOut(s.out)
	root.SetErr(s.err)
	config.RegisterFlags(root)

	root.AddCommand(
		newMethodCmd(s, "get", "GET", "Send a GET request", false),
		newMethodCmd(s, "delete", "DELETE", "Send a DELETE request", false),
		newMethodCmd(s, "post", "POST", "Send a POST request with a JSON body", true),
		newMethodCmd(s, "put", "PUT", "Send a PUT request with a JSON body", true),
		newUploadCmd(s),
		newCallCmd(s),
		newLoginCmd(s),
		newLogoutCmd(s),
		newStatusCmd(s),
	)
	return root
}
