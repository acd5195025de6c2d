package httpserver

import (
	"encoding/json"
	"net/http"
)

type offerAndWaitReq struct {
	Queue         string `json:"queue"`
	Payload       []byte `json:"payload"`
	TimeoutMillis int64  `json:"timeoutMillis"`
}

type offerAndWaitResp struct {
	ID       string `json:"id"`
	Bytes    []byte `json:"bytes"`
	TimedOut bool   `json:"timedOut"`
}

func (s *Server) handleRRQOfferAndWait(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req offerAndWaitReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	q, err := s.requestResponseQueue(r.Context(), req.Queue)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := q.OfferAndWait(r.Context(), req.Payload, req.TimeoutMillis)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, offerAndWaitResp{ID: res.ID, Bytes: res.Bytes, TimedOut: res.TimedOut})
}

type removeWithResponseReq struct {
	Queue       string `json:"queue"`
	RequestPath string `json:"requestPath"`
	Reply       []byte `json:"reply"`
}

func (s *Server) handleRRQRemoveWithResponse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req removeWithResponseReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	q, err := s.requestResponseQueue(r.Context(), req.Queue)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := q.RemoveWithResponse(r.Context(), req.RequestPath, req.Reply); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleRRQAwaitPendingResponses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q, err := s.requestResponseQueue(r.Context(), queryName(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := q.AwaitPendingResponses(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleRRQContainsRequestWithId(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q, err := s.requestResponseQueue(r.Context(), queryName(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	key := r.URL.Query().Get("key")
	id := r.URL.Query().Get("id")
	found, err := q.ContainsRequestWithId(r.Context(), key, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"found": found})
}

func (s *Server) handleRRQTailId(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q, err := s.requestResponseQueue(r.Context(), queryName(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	path, ok, err := q.TailId(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"path": path, "found": ok})
}
