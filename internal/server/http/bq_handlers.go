package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"
)

type offerReq struct {
	Queue   string `json:"queue"`
	Payload []byte `json:"payload"`
}

func (s *Server) handleBQOffer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req offerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	q, err := s.baseQueue(r.Context(), req.Queue)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := q.Offer(r.Context(), req.Payload); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "offered"})
}

type payloadResp struct {
	Payload []byte `json:"payload"`
	Found   bool   `json:"found"`
}

func (s *Server) handleBQPeek(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q, err := s.baseQueue(r.Context(), queryName(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var payload []byte
	var ok bool
	if wait := queryWaitMillis(r); wait > 0 {
		payload, ok, err = q.PeekWait(r.Context(), wait)
	} else {
		payload, ok, err = q.Peek(r.Context())
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payloadResp{Payload: payload, Found: ok})
}

func (s *Server) handleBQPoll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q, err := s.baseQueue(r.Context(), queryName(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	payload, ok, err := q.Poll(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payloadResp{Payload: payload, Found: ok})
}

func (s *Server) handleBQTake(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q, err := s.baseQueue(r.Context(), queryName(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	payload, err := q.Take(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payloadResp{Payload: payload, Found: true})
}

func (s *Server) handleBQRemove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q, err := s.baseQueue(r.Context(), queryName(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	payload, err := q.Remove(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payloadResp{Payload: payload, Found: true})
}

type removeManyReq struct {
	Queue string   `json:"queue"`
	Names []string `json:"names"`
}

func (s *Server) handleBQRemoveMany(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req removeManyReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	q, err := s.baseQueue(r.Context(), req.Queue)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := q.RemoveMany(r.Context(), req.Names); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type elementResp struct {
	Name    string `json:"name"`
	Payload []byte `json:"payload"`
}

func (s *Server) handleBQPeekElements(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q, err := s.baseQueue(r.Context(), queryName(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	max := 0
	if v := r.URL.Query().Get("max"); v != "" {
		if n, perr := strconv.Atoi(v); perr == nil {
			max = n
		}
	}
	elems, err := q.PeekElements(r.Context(), max, queryWaitMillis(r), s.accept)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]elementResp, len(elems))
	for i, e := range elems {
		out[i] = elementResp{Name: e.Name, Payload: e.Payload}
	}
	writeJSON(w, http.StatusOK, out)
}

