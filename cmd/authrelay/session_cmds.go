package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/torosent/authrelay/internal/config"
	"github.com/torosent/authrelay/internal/output"
	"github.com/torosent/authrelay/internal/session"
)

func newLoginCmd(s streams) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a session token (and the --app-url) for later calls",
		Long: `Store a session token. Without --token the token is read from a masked prompt when
stdin is a terminal, otherwise from the first line of stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, s)
			if err != nil {
				return err
			}
			defer a.Close()

			token = strings.TrimSpace(token)
			if token == "" {
				token, err = readToken(s)
				if err != nil {
					return err
				}
			}
			if token == "" {
				return errors.New("no token provided")
			}

			st := a.store.State()
			if st.AppURL == "" {
				a.logger.Warn("no app URL set; relative paths will fail until --app-url is given")
			}
			a.store.Replace(session.State{Token: token, AppURL: st.AppURL})
			fmt.Fprintf(s.err, "Signed in; session saved to %s\n", a.files.Path())
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Session token to store")
	return cmd
}

func newLogoutCmd(s streams) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, s)
			if err != nil {
				return err
			}
			defer a.Close()
			if !a.store.State().SignedIn() {
				fmt.Fprintln(s.err, "Not signed in")
				return nil
			}
			a.store.Logout("logout command")
			return nil
		},
	}
}

// statusView is what status prints. The token is never shown in full.
type statusView struct {
	SignedIn    bool   `json:"signed_in" yaml:"signed_in"`
	Token       string `json:"token,omitempty" yaml:"token,omitempty"`
	AppURL      string `json:"app_url,omitempty" yaml:"app_url,omitempty"`
	SessionFile string `json:"session_file" yaml:"session_file"`
}

func newStatusCmd(s streams) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, s)
			if err != nil {
				return err
			}
			defer a.Close()

			st := a.store.State()
			view := statusView{
				SignedIn:    st.SignedIn(),
				Token:       maskToken(st.Token),
				AppURL:      st.AppURL,
				SessionFile: a.files.Path(),
			}
			return printStatus(s.out, view, a.cfg.Output)
		},
	}
}

func printStatus(w io.Writer, view statusView, format config.OutputFormat) error {
	switch format {
	case config.OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(view); err != nil {
			return err
		}
		return enc.Close()
	case config.OutputTable:
		return output.PrintTable(w, [2]string{"Setting", "Value"}, [][2]string{
			{"Signed In", fmt.Sprintf("%v", view.SignedIn)},
			{"Token", view.Token},
			{"App URL", view.AppURL},
			{"Session File", view.SessionFile},
		})
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}
}

// maskToken keeps the first and last four characters of long tokens.
func maskToken(token string) string {
	switch {
	case token == "":
		return ""
	case len(token) <= 12:
		return strings.Repeat("*", len(token))
	default:
		return token[:4] + "..." + token[len(token)-4:]
	}
}

// readToken prompts on a terminal and otherwise reads one line from stdin.
func readToken(s streams) (string, error) {
	if f, ok := s.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return promptToken(s.in, s.err)
	}
	line, err := bufio.NewReader(s.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}
