package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/brogergvhs/mangapdf/internal/chapters"
	"github.com/brogergvhs/mangapdf/internal/pipeline"
	"github.com/brogergvhs/mangapdf/internal/providers/manganato"
)

var errBadRequest = errors.New("bad request")

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		s.writeError(w, fmt.Errorf("%w: missing q", errBadRequest))
		return
	}

	res, err := s.catalog.Search(r.Context(), q)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	series := strings.TrimSpace(r.URL.Query().Get("s"))
	if series == "" {
		s.writeError(w, fmt.Errorf("%w: missing s", errBadRequest))
		return
	}

	info, err := s.catalog.Info(r.Context(), series)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	series := strings.TrimSpace(q.Get("s"))
	if series == "" {
		s.writeError(w, fmt.Errorf("%w: missing s", errBadRequest))
		return
	}

	first, err := chapters.ParseBound(q.Get("f"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	last, err := chapters.ParseBound(q.Get("l"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	rng, err := chapters.NewRange(first, last)
	if err != nil {
		s.writeError(w, err)
		return
	}

	// a convert runs to completion even if the client goes away
	res, err := s.converter.Run(context.WithoutCancel(r.Context()), pipeline.Request{SeriesID: series, Range: rng})
	if err != nil {
		s.writeError(w, err)
		return
	}

	for _, c := range res.Incomplete() {
		s.log.Warnf("%s: chapter %d incomplete: %d/%d pages, %d blank\n", res.Key, c.Chapter, c.Fetched, c.Expected, c.Skipped)
	}

	writeJSON(w, http.StatusOK, res)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, chapters.ErrInvalidRange),
		errors.Is(err, chapters.ErrInvalidSeries):
		return http.StatusBadRequest
	case errors.Is(err, manganato.ErrUpstream),
		errors.Is(err, manganato.ErrMarkup):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Errorf("%v\n", err)
	} else {
		s.log.Debugf("%v\n", err)
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
