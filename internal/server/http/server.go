package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/rzbill/podium/internal/ledger"
	"github.com/rzbill/podium/internal/notify"
	"github.com/rzbill/podium/internal/rankstore"
	"github.com/rzbill/podium/internal/recovery"
	"github.com/rzbill/podium/internal/runtime"
	logpkg "github.com/rzbill/podium/pkg/log"
)

// Deps are the wired components the server fronts.
type Deps struct {
	Runtime *runtime.Runtime
	Ledger  ledger.Ledger
	Store   *rankstore.Store
	Hub     *notify.Hub
	Logger  logpkg.Logger
	// Recover triggers a full ledger rescan into the store.
	Recover func(ctx context.Context) (recovery.Result, error)
}

type Server struct {
	deps   Deps
	srv    *http.Server
	lis    net.Listener
	logger logpkg.Logger
}

func New(deps Deps) *Server {
	mux := http.NewServeMux()
	s := &Server{
		deps:   deps,
		srv:    &http.Server{Handler: cors(mux)},
		logger: deps.Logger.With(logpkg.Component("http")),
	}
	mux.HandleFunc("GET /v1/healthz", s.handleHealth)
	mux.HandleFunc("POST /v1/scores", s.handleSubmitScore)
	mux.HandleFunc("GET /v1/boards/{channel}/top", s.handleTop)
	mux.HandleFunc("GET /v1/boards/{channel}/rank", s.handleRank)
	mux.HandleFunc("GET /v1/boards/{channel}/subscribe", s.handleSubscribeSSE)
	mux.HandleFunc("POST /v1/admin/recover", s.handleRecover)
	return s
}

// Handler exposes the routed handler, mostly for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	s.logger.Info("listening", logpkg.String("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Last-Event-ID")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
