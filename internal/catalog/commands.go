package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/kart-io/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/kart-io/catalog-console/internal/catalog/biz"
	"github.com/kart-io/catalog-console/internal/catalog/mockserver"
	"github.com/kart-io/catalog-console/internal/catalog/view"
	"github.com/kart-io/catalog-console/pkg/infra/app"
	"github.com/kart-io/catalog-console/pkg/infra/tracing"
)

// displayError 以可展示的文本作为错误信息，保留原始错误链。
type displayError struct {
	err error
}

func (e *displayError) Error() string { return biz.UIMessage(e.err) }

func (e *displayError) Unwrap() error { return e.err }

type actionFunc func(ctx context.Context, c *Console, cmd *cobra.Command, args []string) error

// action 初始化日志与 Console，并在信号到达时取消上下文。
func action(opts *Options, fn actionFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := initLogger(opts); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		c, err := NewConsole(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer func() {
			if err := c.Close(); err != nil {
				logger.Warnw("failed to close console", "error", err.Error())
			}
		}()

		ctx, span := c.tracing.Tracer().Start(ctx, cmd.CommandPath())
		defer span.End()
		logger.Debugw("running command",
			"command", cmd.CommandPath(),
			"trace_id", tracing.TraceIDFromContext(ctx),
		)

		if err := fn(ctx, c, cmd, args); err != nil {
			tracing.RecordError(ctx, err)
			return &displayError{err: err}
		}
		return nil
	}
}

func initLogger(opts *Options) error {
	opts.Log.AddInitialField("service.name", appName)
	opts.Log.AddInitialField("service.version", app.GetVersion())
	if err := opts.Log.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

func newCommands(opts *Options) []*cobra.Command {
	return []*cobra.Command{
		newProjectsCommand(opts),
		newArtifactsCommand(opts),
		newAdminCommand(opts),
		newMockServerCommand(opts),
	}
}

func newProjectsCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List, create and inspect projects",
	}

	var name string
	list := &cobra.Command{
		Use:   "list",
		Short: "List projects, optionally filtered by name prefix",
		Args:  cobra.NoArgs,
		RunE: action(opts, func(ctx context.Context, c *Console, _ *cobra.Command, _ []string) error {
			projects, err := c.projects.List(ctx, biz.NewProjectsSession(), name)
			if err != nil {
				return err
			}
			return c.printer.Projects(projects)
		}),
	}
	list.Flags().StringVar(&name, "name", "", "Name prefix filter")

	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: action(opts, func(ctx context.Context, c *Console, _ *cobra.Command, args []string) error {
			session := biz.NewProjectsSession()
			p, err := c.projects.Create(ctx, session, args[0])
			if err != nil {
				return err
			}
			if err := c.printer.Success(fmt.Sprintf("Project #%d created.", p.ID)); err != nil {
				return err
			}
			return c.printer.Projects(session.Projects())
		}),
	}

	get := &cobra.Command{
		Use:   "get ID",
		Short: "Show a project",
		Args:  cobra.ExactArgs(1),
		RunE: action(opts, func(ctx context.Context, c *Console, _ *cobra.Command, args []string) error {
			p, err := c.projects.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return c.printer.Project(p)
		}),
	}

	cmd.AddCommand(list, create, get)
	return cmd
}

func newArtifactsCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artifacts",
		Short: "Search, create, edit and review artifacts",
	}
	cmd.AddCommand(
		newSearchCommand(opts),
		newCreateArtifactCommand(opts),
		newGetArtifactCommand(opts),
		newEditArtifactCommand(opts),
		newTransitionCommand(opts, "approve", "Approve a DRAFT artifact", (*biz.ArtifactController).Approve),
		newTransitionCommand(opts, "deprecate", "Deprecate an APPROVED artifact", (*biz.ArtifactController).Deprecate),
	)
	return cmd
}

func newSearchCommand(opts *Options) *cobra.Command {
	form := biz.NewSearchForm("")
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search artifacts of a project",
		Args:  cobra.NoArgs,
		RunE: action(opts, func(ctx context.Context, c *Console, _ *cobra.Command, _ []string) error {
			items, err := c.searcher.Search(ctx, biz.NewSearchSession(form.ProjectID), form)
			if err != nil {
				return err
			}
			return c.printer.SearchResults(items)
		}),
	}

	fs := cmd.Flags()
	fs.StringVar(&form.ProjectID, "project", form.ProjectID, "Project ID")
	fs.StringVarP(&form.Query, "query", "q", form.Query, "Search query")
	fs.StringVar(&form.Status, "status", form.Status, "Artifact status: DRAFT, APPROVED or DEPRECATED")
	fs.StringVar(&form.Type, "type", form.Type, "Artifact type")
	fs.StringVar(&form.Mode, "mode", form.Mode, "Search mode: LIKE, VECTOR or HYBRID (server default when empty)")
	fs.StringVar(&form.TopK, "top-k", form.TopK, "Number of results, clamped to [1, 20]")
	fs.StringVar(&form.MaxSnippetLength, "max-snippet-length", form.MaxSnippetLength, "Snippet length cap")
	return cmd
}

func newCreateArtifactCommand(opts *Options) *cobra.Command {
	var (
		form        biz.CreateArtifactForm
		contentFile string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a DRAFT artifact",
		Args:  cobra.NoArgs,
		RunE: action(opts, func(ctx context.Context, c *Console, cmd *cobra.Command, _ []string) error {
			if contentFile != "" {
				content, err := readContent(cmd.InOrStdin(), contentFile)
				if err != nil {
					return err
				}
				form.Content = content
			}
			res, err := c.creator.Create(ctx, form, opts.maxContentLength())
			if err != nil {
				return err
			}
			if err := c.printer.Success(res.Message); err != nil {
				return err
			}
			return c.printer.Artifact(res.Artifact, biz.ContentRaw)
		}),
	}

	fs := cmd.Flags()
	fs.StringVar(&form.ProjectID, "project", "", "Project ID")
	fs.StringVar(&form.Type, "type", "", "Artifact type")
	fs.StringVar(&form.Title, "title", "", "Artifact title")
	fs.StringVar(&form.Content, "content", "", "Artifact content")
	fs.StringVar(&contentFile, "content-file", "", "Read content from file, - for stdin")
	return cmd
}

func newGetArtifactCommand(opts *Options) *cobra.Command {
	var (
		mode         string
		maxLength    string
		noAutoExpand bool
		html         bool
	)
	cmd := &cobra.Command{
		Use:   "get ID",
		Short: "Show an artifact",
		Args:  cobra.ExactArgs(1),
		RunE: action(opts, func(ctx context.Context, c *Console, cmd *cobra.Command, args []string) error {
			id, err := biz.ParseArtifactID(args[0])
			if err != nil {
				return err
			}
			m, err := biz.ParseContentMode(mode)
			if err != nil {
				return err
			}

			s := c.newArtifactSession()
			s.SetMode(m)
			if cmd.Flags().Changed("max-content-length") {
				s.SetMaxContentLengthInput(maxLength)
			}

			var eff *biz.EffectiveArtifact
			if noAutoExpand {
				eff, err = c.artifacts.LoadExact(ctx, s, id)
			} else {
				eff, err = c.artifacts.Load(ctx, s, id)
			}
			if err != nil {
				return err
			}

			if html {
				out, err := view.MarkdownHTML(eff.Content)
				if err != nil {
					return err
				}
				_, err = io.WriteString(cmd.OutOrStdout(), out)
				return err
			}
			return c.printer.Artifact(eff, s.Mode())
		}),
	}

	fs := cmd.Flags()
	fs.StringVar(&mode, "mode", string(biz.ContentMarkdown), "Content mode: markdown or raw")
	fs.StringVar(&maxLength, "max-content-length", "", "Content length cap, presets 4000, 10000, 50000; invalid means no cap")
	fs.BoolVar(&noAutoExpand, "no-auto-expand", false, "Do not reload truncated content with the full ceiling")
	fs.BoolVar(&html, "html", false, "Print the content rendered as HTML")
	return cmd
}

func newEditArtifactCommand(opts *Options) *cobra.Command {
	var (
		edits       biz.EditFields
		contentFile string
	)
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Edit a DRAFT artifact",
		Args:  cobra.ExactArgs(1),
		RunE: action(opts, func(ctx context.Context, c *Console, cmd *cobra.Command, args []string) error {
			id, err := biz.ParseArtifactID(args[0])
			if err != nil {
				return err
			}

			s := c.newArtifactSession()
			s.SetMode(biz.ContentRaw)
			eff, err := c.artifacts.Load(ctx, s, id)
			if err != nil {
				return err
			}

			fields := biz.FieldsOf(&eff.Artifact)
			fs := cmd.Flags()
			if fs.Changed("type") {
				fields.Type = edits.Type
			}
			if fs.Changed("title") {
				fields.Title = edits.Title
			}
			if fs.Changed("content") {
				fields.Content = edits.Content
			}
			if contentFile != "" {
				content, err := readContent(cmd.InOrStdin(), contentFile)
				if err != nil {
					return err
				}
				fields.Content = content
			}

			res, err := c.artifacts.Save(ctx, s, fields)
			if err != nil {
				return err
			}
			if err := c.printer.Success(res.Message); err != nil {
				return err
			}
			return c.printer.Artifact(res.Artifact, biz.ContentRaw)
		}),
	}

	fs := cmd.Flags()
	fs.StringVar(&edits.Type, "type", "", "New artifact type")
	fs.StringVar(&edits.Title, "title", "", "New artifact title")
	fs.StringVar(&edits.Content, "content", "", "New artifact content")
	fs.StringVar(&contentFile, "content-file", "", "Read new content from file, - for stdin")
	return cmd
}

type transition func(c *biz.ArtifactController, ctx context.Context, s *biz.ArtifactSession) (*biz.ActionResult, error)

func newTransitionCommand(opts *Options, use, short string, fn transition) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: action(opts, func(ctx context.Context, c *Console, _ *cobra.Command, args []string) error {
			id, err := biz.ParseArtifactID(args[0])
			if err != nil {
				return err
			}
			s := c.newArtifactSession()
			if _, err := c.artifacts.Load(ctx, s, id); err != nil {
				return err
			}
			res, err := fn(c.artifacts, ctx, s)
			if err != nil {
				return err
			}
			if err := c.printer.Success(res.Message); err != nil {
				return err
			}
			return c.printer.Artifact(res.Artifact, biz.ContentMarkdown)
		}),
	}
}

func newAdminCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrative operations",
	}

	form := biz.NewReindexForm()
	reindex := &cobra.Command{
		Use:   "reindex PROJECT_ID...",
		Short: "Rebuild the search index of one or more projects",
		Args:  cobra.MinimumNArgs(1),
		RunE: action(opts, func(ctx context.Context, c *Console, _ *cobra.Command, args []string) error {
			if len(args) == 1 {
				res, err := c.reindexer.Reindex(ctx, args[0], form)
				if err != nil {
					return err
				}
				return c.printer.ReindexResult(res)
			}

			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := biz.ParseProjectID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			outcomes, err := c.reindexer.ReindexMany(ctx, ids, form)
			if err != nil {
				return err
			}
			if err := c.printer.ReindexOutcomes(outcomes); err != nil {
				return err
			}
			failed := 0
			for _, o := range outcomes {
				if o.Err != nil {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("reindex failed for %d of %d projects", failed, len(outcomes))
			}
			return nil
		}),
	}

	fs := reindex.Flags()
	fs.StringVar(&form.Status, "status", form.Status, "Artifact status to reindex")
	fs.StringVar(&form.Type, "type", form.Type, "Artifact type to reindex, all when empty")
	fs.StringVar(&form.Limit, "limit", form.Limit, "Maximum artifacts to reindex")

	cmd.AddCommand(reindex)
	return cmd
}

func newMockServerCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "mock-server",
		Short: "Run an in-memory catalog service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := initLogger(opts); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runMockServer(ctx, opts)
		},
	}
}

func runMockServer(ctx context.Context, opts *Options) error {
	s := mockserver.New(
		mockserver.WithPrefix(opts.Catalog.APIPrefix),
		mockserver.WithMetrics(promhttp.Handler()),
	)
	if opts.Mock.Seed {
		if err := s.SeedDemo(); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              opts.Mock.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("mock catalog server listening",
			"addr", opts.Mock.Addr,
			"prefix", opts.Catalog.APIPrefix,
			"seed", opts.Mock.Seed,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("mock server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Infow("shutting down mock catalog server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func readContent(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read content from %s: %w", strconv.Quote(path), err)
	}
	return string(data), nil
}
