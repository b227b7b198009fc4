package simulate

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/adapters/http/api"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/adapters/repository"
	app "github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/app"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/pkg/logger"
)

const (
	localReadHeaderTimeout = 5 * time.Second
	localShutdownTimeout   = 5 * time.Second
)

// localServer is an in-process scoring service over a memory store.
type localServer struct {
	srv *http.Server
	svc *app.Service
	url string
}

// startLocal seeds a memory store with fx and serves the API on a loopback
// port chosen by the kernel.
func startLocal(ctx context.Context, cfg *Config, fx repository.Fixtures) (*localServer, error) {
	store := repository.NewMemoryStore()
	if err := repository.Seed(ctx, store, store, fx); err != nil {
		return nil, fmt.Errorf("seed local store: %w", err)
	}

	svc := app.New(store,
		app.WithLogger(logger.Get().Named("local")),
		app.WithInternalWeight(cfg.InternalWeight),
	)
	if err := svc.Start(ctx); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	api.NewServer(svc, svc, api.WithMaxRankLimit(cfg.RankLimit)).Register(ctx, mux)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		svc.Stop()
		return nil, fmt.Errorf("listen: %w", err)
	}
	l := &localServer{
		srv: &http.Server{Handler: mux, ReadHeaderTimeout: localReadHeaderTimeout},
		svc: svc,
		url: "http://" + ln.Addr().String(),
	}
	go func() {
		if err := l.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Get().Error(ctx, "local server failed", logger.Error(err))
		}
	}()
	logger.Get().Info(ctx, "started in-process scoring service", logger.String("url", l.url))
	return l, nil
}

func (l *localServer) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), localShutdownTimeout)
	defer cancel()
	_ = l.srv.Shutdown(ctx)
	l.svc.Stop()
}
