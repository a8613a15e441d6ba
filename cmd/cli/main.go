// Command cli is a thin client for the read API served by api-server.
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"avinfo/internal/httpclient"
)

const defaultBaseURL = "http://localhost:8080/api"

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "avinfo:", err)
		os.Exit(1)
	}
}

type api struct {
	base   string
	client *httpclient.Client
}

func (a *api) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := a.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	resp, err := a.client.Get(ctx, u)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &api{}
	root := &cobra.Command{
		Use:           "avinfo",
		Short:         "Browse ingested articles through the read API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			a.base, _ = cmd.Flags().GetString("api")
			a.client = httpclient.New(httpclient.Policy{Retries: 1, Timeout: 15 * time.Second, Backoff: 500 * time.Millisecond})
		},
	}
	root.PersistentFlags().String("api", defaultBaseURL, "API base URL")
	root.SetOut(out)

	root.AddCommand(listCmd(a), showCmd(a), worksCmd(a))
	return root
}

func listCmd(a *api) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List articles, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			typ, _ := cmd.Flags().GetString("type")
			page, _ := cmd.Flags().GetInt("page")
			perPage, _ := cmd.Flags().GetInt("per-page")

			q := url.Values{}
			if typ != "" {
				q.Set("type", typ)
			}
			q.Set("page", strconv.Itoa(page))
			q.Set("per_page", strconv.Itoa(perPage))

			body, err := a.get(cmd.Context(), "/articles", q)
			if err != nil {
				return fmt.Errorf("list failed: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}
	cmd.Flags().String("type", "", "work, actress or topic")
	cmd.Flags().Int("page", 1, "page number")
	cmd.Flags().Int("per-page", 20, "page size")
	return cmd
}

func showCmd(a *api) *cobra.Command {
	return &cobra.Command{
		Use:   "show SLUG",
		Short: "Show one article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := a.get(cmd.Context(), "/articles/"+url.PathEscape(args[0]), nil)
			if err != nil {
				if httpclient.StatusOf(err) == http.StatusNotFound {
					return fmt.Errorf("no article %q", args[0])
				}
				return fmt.Errorf("show failed: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}
}

func worksCmd(a *api) *cobra.Command {
	return &cobra.Command{
		Use:   "works PERFORMER_SLUG",
		Short: "List works linked to a performer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := a.get(cmd.Context(), "/actresses/"+url.PathEscape(args[0])+"/works", nil)
			if err != nil {
				return fmt.Errorf("works failed: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}
}

func printJSON(w io.Writer, raw []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}
