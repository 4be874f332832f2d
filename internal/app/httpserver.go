package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/acadify-records/internal/metrics"
)

type Pinger interface {
	Ping(ctx context.Context) (time.Duration, error)
}

type HTTPServer struct {
	srv  *http.Server
	done chan struct{}
}

// StartHTTP serves h on addr until ctx is cancelled.
func StartHTTP(ctx context.Context, addr string, h http.Handler, log *zap.Logger) *HTTPServer {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped", zap.Error(err))
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
	}()

	log.Info("http server listening", zap.String("addr", addr))
	return &HTTPServer{srv: srv, done: done}
}

// Wait blocks until the server has shut down after ctx was cancelled.
func (s *HTTPServer) Wait() { <-s.done }

func healthz(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 800*time.Millisecond)
		defer cancel()
		d, err := db.Ping(ctx)
		if err != nil {
			http.Error(w, "db not ok: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		metrics.ObserveDBPing(d)
		_, _ = w.Write([]byte("ok"))
	}
}
