package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rzbill/podium/internal/ledger"
	"github.com/rzbill/podium/internal/rankstore"
	logpkg "github.com/rzbill/podium/pkg/log"
)

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Runtime.CheckHealth(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "not_serving")
		return
	}
	writeJSON(w, map[string]any{"status": "ok", "cacheReady": s.deps.Store.Ready()})
}

// knownChannel guards the single configured board channel.
func (s *Server) knownChannel(w http.ResponseWriter, channel string) bool {
	if channel != s.deps.Runtime.Config().Channel {
		writeError(w, http.StatusNotFound, "unknown channel")
		return false
	}
	return true
}

type submitScoreReq struct {
	UserID int64 `json:"userId"`
	Score  int64 `json:"score"`
}

type submitScoreResp struct {
	Accepted bool  `json:"accepted"`
	Version  int64 `json:"version"`
	Score    int64 `json:"score"`
}

func (s *Server) handleSubmitScore(w http.ResponseWriter, r *http.Request) {
	var req submitScoreReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := s.deps.Ledger.SubmitScore(r.Context(), req.UserID, req.Score)
	if err != nil {
		if errors.Is(err, ledger.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "ledger unavailable")
			return
		}
		s.logger.Error("submit failed", logpkg.Int64("user", req.UserID), logpkg.Err(err))
		writeError(w, http.StatusInternalServerError, "submit failed")
		return
	}
	writeJSON(w, submitScoreResp{Accepted: res.Accepted, Version: res.Version, Score: res.Score})
}

type boardEntry struct {
	UserID int64 `json:"userId"`
	Score  int64 `json:"score"`
	Rank   int64 `json:"rank"`
}

type topResp struct {
	Channel  string       `json:"channel"`
	TopN     []boardEntry `json:"topN"`
	Digest   string       `json:"digest,omitempty"`
	Degraded bool         `json:"degraded"`
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	channel := r.PathValue("channel")
	if !s.knownChannel(w, channel) {
		return
	}
	n := s.deps.Runtime.Config().TopN
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid n")
			return
		}
		n = parsed
	}

	entries, err := s.deps.Store.TopN(n)
	if err == nil {
		resp := topResp{Channel: channel, TopN: make([]boardEntry, 0, len(entries))}
		if snap, serr := s.deps.Store.Snapshot(); serr == nil {
			resp.Digest = snap.Digest
		}
		for _, e := range entries {
			resp.TopN = append(resp.TopN, boardEntry{UserID: e.UserID, Score: e.Score, Rank: e.Rank})
		}
		writeJSON(w, resp)
		return
	}
	if !errors.Is(err, rankstore.ErrCacheUnavailable) {
		writeError(w, http.StatusInternalServerError, "top query failed")
		return
	}

	// cold cache: answer from the durable ledger and say so
	rows, lerr := s.deps.Ledger.TopN(r.Context(), n)
	if lerr != nil {
		writeError(w, http.StatusServiceUnavailable, "board unavailable")
		return
	}
	resp := topResp{Channel: channel, Degraded: true, TopN: make([]boardEntry, 0, len(rows))}
	for i, us := range rows {
		resp.TopN = append(resp.TopN, boardEntry{UserID: us.UserID, Score: us.Score, Rank: int64(i + 1)})
	}
	writeJSON(w, resp)
}

type rankResp struct {
	Channel  string `json:"channel"`
	UserID   int64  `json:"userId"`
	Rank     int64  `json:"rank"`
	Score    int64  `json:"score"`
	Degraded bool   `json:"degraded"`
}

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	channel := r.PathValue("channel")
	if !s.knownChannel(w, channel) {
		return
	}
	userID, err := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid userId")
		return
	}

	rank, score, serr := s.deps.Store.RankOf(userID)
	switch {
	case serr == nil:
		writeJSON(w, rankResp{Channel: channel, UserID: userID, Rank: rank, Score: score})
	case errors.Is(serr, rankstore.ErrNotFound):
		writeError(w, http.StatusNotFound, "user not ranked")
	case errors.Is(serr, rankstore.ErrCacheUnavailable):
		rank, score, lerr := s.deps.Ledger.RankOf(r.Context(), userID)
		if errors.Is(lerr, ledger.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not ranked")
			return
		}
		if lerr != nil {
			writeError(w, http.StatusServiceUnavailable, "rank unavailable")
			return
		}
		writeJSON(w, rankResp{Channel: channel, UserID: userID, Rank: rank, Score: score, Degraded: true})
	default:
		writeError(w, http.StatusInternalServerError, "rank query failed")
	}
}

func (s *Server) handleRecover(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Recover(r.Context())
	if err != nil {
		s.logger.Error("recover failed", logpkg.Err(err))
		writeError(w, http.StatusInternalServerError, "recover failed")
		return
	}
	writeJSON(w, map[string]any{
		"scanned": res.Scanned,
		"applied": res.Applied,
		"tookMs":  res.Duration.Milliseconds(),
	})
}
