package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/debemdeboas/postboard/internal/client"
	"github.com/debemdeboas/postboard/internal/config"
	"github.com/debemdeboas/postboard/internal/form"
	"github.com/debemdeboas/postboard/internal/form/term"
	"github.com/debemdeboas/postboard/internal/logger"
)

// errNotSaved means the controller alerted an error instead of leaving the form.
var errNotSaved = errors.New("request failed")

type options struct {
	configPath string
	baseURL    string
	timeout    time.Duration
	verbose    bool

	id          string
	title       string
	author      string
	content     string
	contentFile string
}

func main() {
	_ = godotenv.Load()

	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		if !errors.Is(err, errNotSaved) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "postsctl",
		Short:         "Create, update and delete posts from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "config.yaml", "path to the YAML configuration file")
	root.PersistentFlags().StringVar(&opts.baseURL, "base-url", "", "posts server URL (defaults to client.base_url)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", -1, "request timeout (defaults to client.timeout, 0 disables)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log requests")

	save := &cobra.Command{
		Use:   "save",
		Short: "Create a post",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), out, opts, form.ButtonSave)
		},
	}
	save.Flags().StringVar(&opts.title, "title", "", "post title")
	save.Flags().StringVar(&opts.author, "author", "", "post author")
	save.Flags().StringVar(&opts.content, "content", "", "post content")
	save.Flags().StringVar(&opts.contentFile, "content-file", "", "read the content from a file, - for stdin")

	update := &cobra.Command{
		Use:   "update",
		Short: "Replace the title and content of a post",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), out, opts, form.ButtonUpdate)
		},
	}
	update.Flags().StringVar(&opts.id, "id", "", "post id")
	update.Flags().StringVar(&opts.title, "title", "", "post title")
	update.Flags().StringVar(&opts.content, "content", "", "post content")
	update.Flags().StringVar(&opts.contentFile, "content-file", "", "read the content from a file, - for stdin")
	_ = update.MarkFlagRequired("id")

	del := &cobra.Command{
		Use:   "delete",
		Short: "Delete a post",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), out, opts, form.ButtonDelete)
		},
	}
	del.Flags().StringVar(&opts.id, "id", "", "post id")
	_ = del.MarkFlagRequired("id")

	root.AddCommand(save, update, del)
	return root
}

func (o *options) requester() (*client.HTTPRequester, error) {
	config.SetLogger(logger.NewWithWriter(io.Discard, "error"))
	if err := config.LoadConfig(o.configPath); err != nil {
		return nil, fmt.Errorf(config.ErrLoadConfigFmt, err)
	}
	cfg := config.AppConfig

	level := "error"
	if o.verbose {
		level = "debug"
	}
	client.SetLogger(logger.New(level))

	baseURL := cfg.Client.BaseURL
	if o.baseURL != "" {
		baseURL = o.baseURL
	}
	timeout := cfg.Client.Timeout
	if o.timeout >= 0 {
		timeout = o.timeout
	}

	return client.NewHTTPRequester(baseURL, timeout)
}

func (o *options) readContent(stdin io.Reader) (string, error) {
	switch o.contentFile {
	case "":
		return o.content, nil
	case "-":
		data, err := io.ReadAll(stdin)
		return string(data), err
	default:
		data, err := os.ReadFile(o.contentFile)
		return string(data), err
	}
}

func run(ctx context.Context, out io.Writer, opts *options, button string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	requester, err := opts.requester()
	if err != nil {
		return err
	}

	content, err := opts.readContent(os.Stdin)
	if err != nil {
		return fmt.Errorf("reading content: %w", err)
	}

	ui := term.New(out)
	ui.SetValue(form.FieldID, opts.id)
	ui.SetValue(form.FieldTitle, opts.title)
	ui.SetValue(form.FieldAuthor, opts.author)
	ui.SetValue(form.FieldContent, content)

	form.NewController(ui, requester).Initialize(ctx)
	ui.Click(button)

	if !ui.Navigated() {
		return errNotSaved
	}
	return nil
}
