package server

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/exploopio/passcheck/pkg/compress"
	"github.com/exploopio/passcheck/pkg/errors"
	"github.com/exploopio/passcheck/pkg/evaluator"
	"github.com/exploopio/passcheck/pkg/metrics"
)

// decodePassword extracts the password field from a JSON object body.
//
// A missing field reads as empty. A body that is not a single JSON
// object, or a password that is not a string, is an internal error rather
// than a client error, matching how the service has always answered them.
func decodePassword(body io.Reader) (string, error) {
	const op = "server.decodePassword"

	readErr := func(err error) error {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return errors.Wrap(errors.ErrPayloadTooLarge, op)
		}
		return errors.Internal(op, err)
	}

	dec := json.NewDecoder(body)
	var fields map[string]json.RawMessage
	if err := dec.Decode(&fields); err != nil {
		return "", readErr(err)
	}
	// The body must hold exactly one JSON value.
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			err = fmt.Errorf("unexpected data after JSON body")
		}
		return "", readErr(err)
	}
	if fields == nil {
		return "", errors.Internal(op, fmt.Errorf("request body must be a JSON object"))
	}

	raw, ok := fields["password"]
	if !ok {
		return "", nil
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", errors.Internal(op, fmt.Errorf("password must be a string"))
	}
	var password string
	if err := json.Unmarshal(raw, &password); err != nil {
		return "", errors.Internal(op, err)
	}
	return password, nil
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)

	password, err := decodePassword(r.Body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	password = strings.TrimSpace(password)
	if password == "" {
		s.writeError(w, r, errors.ErrPasswordRequired)
		return
	}

	report := s.evaluate(password)
	s.writeJSON(w, r, http.StatusOK, report)
}

// evaluate runs the three evaluator stages and records metrics for the
// full check list, including checks hidden from the report.
func (s *Server) evaluate(password string) *evaluator.Report {
	timer := metrics.NewTimer(s.metrics, metrics.EvaluationDuration.Name)

	checks := s.evaluator.Checks(password)
	score := s.evaluator.Score(password, checks)
	report := s.evaluator.Present(password, checks, score)

	timer.ObserveDuration()
	s.metrics.CounterInc(metrics.EvaluationsTotal.Name,
		"level", report.Level.MetricLabel(),
		"valid", strconv.FormatBool(report.Valid),
	)
	s.metrics.HistogramObserve(metrics.EvaluationScore.Name, float64(report.Score))
	for _, c := range checks {
		if !c.Passed {
			s.metrics.CounterInc(metrics.CheckFailuresTotal.Name, "check", c.Name.String())
		}
	}
	return report
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, errors.ErrNotFound)
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, errors.ErrMethodNotAllowed)
}

func (s *Server) rejectEncoding(w http.ResponseWriter, r *http.Request, err error) {
	if stderrors.Is(err, compress.ErrUnsupportedEncoding) {
		s.writeError(w, r, errors.Wrap(errors.ErrUnsupportedEncoding, "server.decodeRequest"))
		return
	}
	s.writeError(w, r, errors.Internal("server.decodeRequest", err))
}

// writeError answers with the status for err's kind and an
// {"error": message} body.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := errors.ToAPIError(err)
	requestID := RequestIDFromContext(r.Context())

	if errors.IsInternal(err) {
		s.logger.Error("request failed", zap.String("request_id", requestID), zap.Error(err))
		if s.audit != nil {
			s.audit.InternalError(requestID, err)
		}
	} else if s.audit != nil && apiErr.StatusCode != http.StatusNotFound {
		s.audit.RequestRejected(requestID, apiErr.StatusCode, apiErr.Message)
	}
	s.writeJSON(w, r, apiErr.StatusCode, apiErr)
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		s.logger.Error("encode response", zap.String("request_id", RequestIDFromContext(r.Context())), zap.Error(err))
		status = http.StatusInternalServerError
		buf.Reset()
		_ = json.NewEncoder(&buf).Encode(&errors.APIError{StatusCode: status, Message: err.Error()})
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
