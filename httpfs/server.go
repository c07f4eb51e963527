package httpfs

import (
	"context"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmgilman/gitfs"
	"github.com/jmgilman/gitfs/errors"
)

// Server serves a gitfs.FS over HTTP.
type Server struct {
	e   *echo.Echo
	fs  *gitfs.FS
	log *clog.Logger
}

// New builds the routes. Metrics are served from gatherer; a nil gatherer
// serves prometheus.DefaultGatherer. The logger is taken from ctx.
func New(ctx context.Context, fsys *gitfs.FS, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{e: e, fs: fsys, log: clog.FromContext(ctx)}
	s.configureMiddleware()

	e.GET("/healthz", s.health)
	e.GET("/mounts", s.mounts)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	e.GET("/fs/*", s.read)
	e.HEAD("/fs/*", s.read)
	e.PUT("/fs/*", s.write)
	e.POST("/fs/*", s.create)
	e.PATCH("/fs/*", s.write)
	e.DELETE("/fs/*", s.delete)
	return s
}

func (s *Server) configureMiddleware() {
	s.e.Use(middleware.RequestID())

	s.e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1 << 12,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			s.log.Error("recovered from panic",
				"error", err,
				"stack", string(stack),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			)
			return nil
		},
	}))

	s.e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			s.log.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			)
			return nil
		},
		LogLatency:   true,
		LogMethod:    true,
		LogURI:       true,
		LogRequestID: true,
		LogStatus:    true,
	}))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.e.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.e,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting HTTP server", "addr", addr)
		errCh <- s.e.StartServer(server)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrapf(err, errors.CodeNetwork, "failed to serve on %s", addr)
	case <-ctx.Done():
		s.log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		return s.e.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) mounts(c echo.Context) error {
	return c.JSON(http.StatusOK, s.fs.Cache().Stats())
}

// requestName returns the filesystem name addressed by a /fs/* request. A uri
// query parameter takes precedence over the path. Names with a scheme other
// than the configured one are refused.
func (s *Server) requestName(c echo.Context) (string, error) {
	name := c.QueryParam("uri")
	if name == "" {
		raw, err := url.PathUnescape(c.Param("*"))
		if err != nil {
			return "", errors.Wrap(err, errors.CodeInvalidInput, "invalid path escape")
		}
		name = raw
	}

	scheme := s.fs.Cache().Scheme()
	if strings.Contains(name, "://") && !strings.HasPrefix(name, scheme+"://") {
		return "", errors.WithContext(
			errors.Newf(errors.CodeInvalidInput, "only %s names are served", scheme),
			"name", name,
		)
	}
	return name, nil
}

// read streams a file or lists a directory.
func (s *Server) read(c echo.Context) error {
	name, err := s.requestName(c)
	if err != nil {
		return s.fail(c, err)
	}

	info, err := s.fs.Stat(name)
	if err != nil {
		return s.fail(c, err)
	}
	if info.IsDir() {
		statuses, err := s.fs.ListStatus(name)
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(http.StatusOK, statuses)
	}

	f, err := s.fs.Open(name)
	if err != nil {
		return s.fail(c, err)
	}
	defer func() { _ = f.Close() }()

	if rs, ok := f.(io.ReadSeeker); ok {
		http.ServeContent(c.Response(), c.Request(), info.Name(), info.ModTime(), rs)
		return nil
	}
	return c.Stream(http.StatusOK, contentType(name), f)
}

func (s *Server) write(c echo.Context) error {
	name, err := s.requestName(c)
	if err != nil {
		return s.fail(c, err)
	}
	return s.fail(c, s.fs.WriteFile(name, nil, 0o644))
}

func (s *Server) create(c echo.Context) error {
	name, err := s.requestName(c)
	if err != nil {
		return s.fail(c, err)
	}
	_, err = s.fs.Create(name)
	return s.fail(c, err)
}

func (s *Server) delete(c echo.Context) error {
	name, err := s.requestName(c)
	if err != nil {
		return s.fail(c, err)
	}
	return s.fail(c, s.fs.Delete(name, true))
}

// fail renders err as an errors.ErrorResponse with a status for its code.
func (s *Server) fail(c echo.Context, err error) error {
	if errors.Is(err, fs.ErrNotExist) && errors.GetCode(err) == errors.CodeUnknown {
		err = errors.Wrap(err, errors.CodeNotFound, "no such file or directory")
	}
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.log.Warn("request failed", "path", c.Request().URL.Path, "error", err)
	}
	return c.JSON(status, errors.ToJSON(err))
}

func statusOf(err error) int {
	switch errors.GetCode(err) {
	case errors.CodeReadOnly:
		return http.StatusMethodNotAllowed
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeInvalidInput:
		return http.StatusBadRequest
	case errors.CodeConflict:
		return http.StatusConflict
	case errors.CodeUnauthorized, errors.CodeNetwork:
		return http.StatusBadGateway
	case errors.CodeTimeout:
		return http.StatusGatewayTimeout
	case errors.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func contentType(name string) string {
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	return echo.MIMEOctetStream
}
