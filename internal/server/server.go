// Package server exposes the codec and the blob store over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"

	"github.com/seiflotfy/pairhuff"
	"github.com/seiflotfy/pairhuff/internal/store"
)

const (
	contentType      = "content-type"
	requestIDHeader  = "X-Request-Id"
	defaultBodyLimit = 64 << 20
)

// Server routes HTTP requests to the codec and the store.
type Server struct {
	router    *httprouter.Router
	enc       *pairhuff.Encoder
	store     *store.Store
	log       *logrus.Logger
	bodyLimit int64
}

// New creates a server. st may be nil, in which case the blob routes are not
// registered.
func New(enc *pairhuff.Encoder, st *store.Store, log *logrus.Logger) *Server {
	s := &Server{
		router:    httprouter.New(),
		enc:       enc,
		store:     st,
		log:       log,
		bodyLimit: defaultBodyLimit,
	}

	s.router.POST("/v1/encode", s.encode)
	s.router.POST("/v1/decode", s.decode)
	if st != nil {
		s.router.PUT("/v1/blobs/:name", s.putBlob)
		s.router.GET("/v1/blobs/:digest", s.getBlob)
		s.router.GET("/v1/blobs/:digest/stat", s.statBlob)
		s.router.GET("/v1/blobs/:digest/container", s.getContainer)
		s.router.DELETE("/v1/blobs/:digest", s.deleteBlob)
	}
	return s
}

// ServeHTTP tags the request with an ID and logs it.
func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	id := req.Header.Get(requestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(requestIDHeader, id)

	start := time.Now()
	s.router.ServeHTTP(w, req)
	s.log.WithFields(logrus.Fields{
		"id":     id,
		"method": req.Method,
		"url":    req.URL.String(),
		"took":   time.Since(start),
	}).Info("request")
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.bodyLimit))
	if err != nil {
		s.writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("read body: %w", err))
		return nil, false
	}
	return body, true
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set(contentType, "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{
		Error: err.Error(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set(contentType, "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeBytes(w http.ResponseWriter, b []byte) {
	w.Header().Set(contentType, "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

// statusFor maps codec and store errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pairhuff.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, pairhuff.ErrCorruptContainer), errors.Is(err, pairhuff.ErrUnsupportedPadding):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	entry := s.log.WithError(err).WithField("url", r.URL.String())
	if status == http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}
	s.writeError(w, status, err)
}

func (s *Server) encode(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	packed, err := s.enc.Compress(body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeBytes(w, packed)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	data, err := s.enc.Decompress(body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeBytes(w, data)
}

func (s *Server) putBlob(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	e, err := s.store.Put(r.Context(), ps.ByName("name"), body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, e)
}

func (s *Server) getBlob(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	data, err := s.store.Get(r.Context(), ps.ByName("digest"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeBytes(w, data)
}

func (s *Server) statBlob(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	e, err := s.store.Stat(r.Context(), ps.ByName("digest"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, e)
}

func (s *Server) getContainer(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	container, err := s.store.Container(r.Context(), ps.ByName("digest"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeBytes(w, container)
}

func (s *Server) deleteBlob(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := s.store.Delete(r.Context(), ps.ByName("digest")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
