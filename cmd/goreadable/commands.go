package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/goreadable/internal/app"
)

// newApp loads configuration and builds the application for cmd.
func newApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return app.New(cmd.Context(), cfg)
}

func newExtractCmd() *cobra.Command {
	var selector string
	var withTitle bool
	cmd := &cobra.Command{
		Use:   "extract [file]",
		Short: "Extract readable text from an HTML file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			doc, err := a.Extract(in, selector, 0)
			if withTitle && doc.Title != "" {
				fmt.Fprintln(cmd.OutOrStdout(), doc.Title)
			}
			if doc.Text != "" {
				fmt.Fprintln(cmd.OutOrStdout(), doc.Text)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&selector, "selector", "s", "", `descendant selector for the main block, e.g. "#main .post"`)
	cmd.Flags().BoolVar(&withTitle, "title", false, "print the page title on the first line")
	return cmd
}

func newFetchCmd() *cobra.Command {
	var selector string
	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Download one page and print its readable text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			res, err := a.Fetch(cmd.Context(), args[0], selector)
			if err != nil && !errors.Is(err, app.ErrNoReadableContent) {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Reply())
			return err
		},
	}
	cmd.Flags().StringVarP(&selector, "selector", "s", "", "descendant selector for the main block")
	return cmd
}

func newReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <message...>",
		Short: `Answer "read about <subject>", "scrape ..." or "summarize ..."`,
		Example: `  goreadable read about go generics
  goreadable read scrape golang selector: #content
  goreadable read summarize rust ownership`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			ans, err := a.Read(cmd.Context(), asCommand(args))
			if err != nil && !errors.Is(err, app.ErrNoReadableContent) {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ans.Reply())
			return err
		},
	}
}

// asCommand turns the arguments into a read command, so "read go generics"
// and "read summarize go generics" both work.
func asCommand(args []string) string {
	message := strings.Join(args, " ")
	switch strings.ToLower(args[0]) {
	case "read", "scrape", "summarize":
		return message
	case "about":
		return "read " + message
	}
	return "read about " + message
}

func newSearchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "List the search hits a read command would choose from",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			hits, err := a.Search(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			for i, h := range hits {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n   %s (%s)\n", i+1, h.Title, h.URL, h.Source)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "results", "n", 0, "number of hits (default from config)")
	return cmd
}

func newServeCmd() *cobra.Command {
	var listen, apiKey string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve extraction and reading over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("listen") {
				cfg.Listen = listen
			}
			if cmd.Flags().Changed("api-key") {
				cfg.APIKey = apiKey
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			a, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Serve(ctx)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default :8080)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "require this bearer token on /api/*")
	return cmd
}

