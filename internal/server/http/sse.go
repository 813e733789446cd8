package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rzbill/podium/internal/notify"
)

// sseSink implements the notify.Sink interface over Server-Sent Events.
// Each delivery carries its log sequence as the SSE event id, which clients
// echo back through Last-Event-ID to resume.
type sseSink struct {
	w http.ResponseWriter
	r *http.Request
}

func (s sseSink) Send(d notify.Delivery) error {
	b, err := json.Marshal(d.Notification)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(s.w, "id: %d\ndata: %s\n\n", d.Seq, b)
	return err
}

func (s sseSink) Context() context.Context { return s.r.Context() }

func (s sseSink) Flush() error {
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

func (s *Server) handleSubscribeSSE(w http.ResponseWriter, r *http.Request) {
	channel := r.PathValue("channel")
	if !s.knownChannel(w, channel) {
		return
	}
	var lastSeen uint64
	if v := r.Header.Get("Last-Event-ID"); v != "" {
		lastSeen, _ = strconv.ParseUint(v, 10, 64)
	} else if v := r.URL.Query().Get("lastSeen"); v != "" {
		lastSeen, _ = strconv.ParseUint(v, 10, 64)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	err := s.deps.Hub.Subscribe(channel, notify.SubscribeOptions{
		LastSeen: lastSeen,
		Filter:   r.URL.Query().Get("filter"),
	}, sseSink{w: w, r: r})
	if err != nil && r.Context().Err() == nil {
		writeError(w, http.StatusInternalServerError, "subscribe failed")
	}
}
