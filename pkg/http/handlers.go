package http

import (
	"encoding/json"
	"net/http"

	"demovoice-server/pkg/errors"
	"demovoice-server/pkg/segmenter"
	"demovoice-server/pkg/session"

	"github.com/sirupsen/logrus"
)

// maxRequestBody caps request payload size; long sessions with dense event
// streams still fit comfortably under this.
const maxRequestBody = 32 << 20 // 32 MiB

// processHandler handles POST /api/process: it runs the full pipeline and
// returns the generated script plus the rendered audio file reference.
// Progress stages are broadcast by the pipeline itself.
func (s *Server) processHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.ErrorResponse(w, errors.Wrap(errors.ErrInvalidInput, "method not allowed").WithCode("METHOD_NOT_ALLOWED"))
		return
	}

	var req session.ProcessRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := decoder.Decode(&req); err != nil {
		s.ErrorResponse(w, errors.Wrap(errors.ErrInvalidInput, "invalid request body: "+err.Error()))
		return
	}

	if req.Text == "" {
		s.ErrorResponse(w, errors.Wrap(errors.ErrInvalidInput, "text field is required"))
		return
	}

	result := s.processor.Process(r.Context(), &req)

	if !result.Success {
		s.logger.WithFields(logrus.Fields{
			"request_id": result.RequestID,
			"session_id": result.SessionID,
		}).Error("Processing request failed")
		writeJSON(w, http.StatusBadGateway, result)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// instructionsHandler handles POST /api/recording/instructions: it converts a
// recorded session into replay instructions for the player frontend.
func (s *Server) instructionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.ErrorResponse(w, errors.Wrap(errors.ErrInvalidInput, "method not allowed").WithCode("METHOD_NOT_ALLOWED"))
		return
	}

	var req session.ProcessRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := decoder.Decode(&req); err != nil {
		s.ErrorResponse(w, errors.Wrap(errors.ErrInvalidInput, "invalid request body: "+err.Error()))
		return
	}

	sess := req.ResolveSession(s.logger)
	if sess == nil || len(sess.Events) == 0 {
		s.ErrorResponse(w, errors.Wrap(errors.ErrInvalidSession, "session contains no events"))
		return
	}

	response := session.ConvertEvents(sess)
	response.Metadata["extractedText"] = session.ExtractText(sess.Events)
	response.Metadata["groupedSteps"] = segmenter.New().Segment(sess.Events)
	s.logger.WithFields(logrus.Fields{
		"session_id":   response.SessionID,
		"instructions": len(response.Instructions),
	}).Info("Converted session events to frontend instructions")

	writeJSON(w, http.StatusOK, response)
}
