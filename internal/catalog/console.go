package catalog

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/kart-io/logger"
	"github.com/prometheus/client_golang/prometheus"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/kart-io/catalog-console/internal/catalog/biz"
	"github.com/kart-io/catalog-console/internal/catalog/gateway"
	"github.com/kart-io/catalog-console/internal/catalog/metrics"
	"github.com/kart-io/catalog-console/internal/catalog/view"
	"github.com/kart-io/catalog-console/pkg/infra/app"
	"github.com/kart-io/catalog-console/pkg/infra/pool"
	"github.com/kart-io/catalog-console/pkg/infra/tracing"
	"github.com/kart-io/catalog-console/pkg/utils/httpclient"
)

// Console 组装目录服务客户端、各业务组件和输出，供子命令使用。
type Console struct {
	opts    *Options
	metrics *metrics.Metrics
	pool    *pool.Pool
	printer *view.Printer
	tracing *tracing.Provider

	projects  *biz.ProjectService
	artifacts *biz.ArtifactController
	creator   *biz.ArtifactCreator
	searcher  *biz.Searcher
	reindexer *biz.Reindexer

	metricsServer *http.Server
}

// NewConsole 根据选项创建 Console，输出写入 out，追踪数据写入 errOut。
func NewConsole(opts *Options, out, errOut io.Writer) (*Console, error) {
	m := metrics.New(prometheus.NewRegistry())

	tp, err := tracing.NewProvider(opts.Tracing,
		tracing.WithWriter(errOut),
		tracing.WithServiceVersion(app.GetVersion()),
	)
	if err != nil {
		return nil, err
	}

	clientOpts := []httpclient.Option{httpclient.WithObserver(m)}
	if opts.Catalog.Token != "" {
		clientOpts = append(clientOpts, httpclient.WithBearerToken(opts.Catalog.Token))
	}
	gw := gateway.New(httpclient.NewClient(opts.Catalog.Endpoint(), clientOpts...))

	p, err := pool.NewPool("reindex", pool.ReindexPoolConfig(opts.Catalog.ReindexConcurrency))
	if err != nil {
		_ = tp.Shutdown(context.Background())
		return nil, err
	}

	c := &Console{
		opts:      opts,
		metrics:   m,
		pool:      p,
		printer:   view.NewPrinter(out),
		tracing:   tp,
		projects:  biz.NewProjectService(gw, m),
		artifacts: biz.NewArtifactController(gw, m),
		creator:   biz.NewArtifactCreator(gw, biz.NewReconciler(gw, m)),
		searcher:  biz.NewSearcher(gw, m),
		reindexer: biz.NewReindexer(gw, p, m),
	}

	if addr := opts.Catalog.MetricsAddr; addr != "" {
		c.metricsServer = &http.Server{
			Addr:              addr,
			Handler:           m.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := c.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warnw("metrics server stopped", "addr", addr, "error", err.Error())
			}
		}()
		logger.Infow("serving metrics", "addr", addr)
	}

	logger.Debugw("console ready", "endpoint", opts.Catalog.Endpoint())
	return c, nil
}

// newArtifactSession 创建使用默认内容上限的详情会话。
func (c *Console) newArtifactSession() *biz.ArtifactSession {
	s := biz.NewArtifactSession()
	s.SetMaxContentLength(c.opts.Catalog.MaxContentLength)
	return s
}

// Close 释放工作池，停止指标服务并导出剩余的追踪数据。
func (c *Console) Close() error {
	c.pool.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	if c.metricsServer != nil {
		errs = append(errs, c.metricsServer.Shutdown(ctx))
	}
	errs = append(errs, c.tracing.Shutdown(ctx))
	return utilerrors.NewAggregate(errs)
}
