package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/copyleftdev/gradbench/internal/optimization"
)

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeNotFound       = -32004
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type runIDParams struct {
	RunID string `json:"run_id"`
}

// decodeParams accepts either a params object or a one-element array
// holding it.
func decodeParams(raw json.RawMessage, v interface{}) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing required parameters", errBadParams)
	}
	if raw[0] == '[' {
		var arr []json.RawMessage
		if err := json.Unmarshal(raw, &arr); err != nil {
			return fmt.Errorf("%w: %v", errBadParams, err)
		}
		if len(arr) != 1 {
			return fmt.Errorf("%w: expected one parameter object, got %d", errBadParams, len(arr))
		}
		raw = arr[0]
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", errBadParams, err)
	}
	return nil
}

// handleJSONRPC handles JSON-RPC 2.0 requests.
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, codeParseError, "Parse error", nil, nil)
		return
	}
	if req.JSONRPC != "2.0" {
		s.respondWithError(w, codeInvalidRequest, "Invalid Request", req.ID, nil)
		return
	}

	var (
		result interface{}
		err    error
	)

	switch req.Method {
	case "run.start":
		result, err = s.rpcStart(req.Params)
	case "run.status":
		result, err = s.rpcStatus(req.Params)
	case "run.cancel":
		result, err = s.rpcCancel(req.Params)
	case "objectives.list":
		result = objectiveViews()
	default:
		s.respondWithError(w, codeMethodNotFound, "Method not found", req.ID, nil)
		return
	}

	if err != nil {
		code := codeServerError
		switch {
		case errors.Is(err, errBadParams):
			code = codeInvalidParams
		case errors.Is(err, errRunNotFound):
			code = codeNotFound
		}
		var data interface{}
		if e, ok := optimization.IsOptimizationError(err); ok {
			data = map[string]string{"component": e.Component, "operation": e.Op}
		}
		s.respondWithError(w, code, err.Error(), req.ID, data)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      req.ID,
		"result":  result,
	})
}

func (s *Server) rpcStart(raw json.RawMessage) (interface{}, error) {
	var p StartParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	state, err := s.startRun(p)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"run_id": state.ID,
		"status": StatusPending,
	}, nil
}

func (s *Server) rpcStatus(raw json.RawMessage) (interface{}, error) {
	var p runIDParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if p.RunID == "" {
		return nil, fmt.Errorf("%w: run_id is required", errBadParams)
	}
	return s.view(p.RunID)
}

func (s *Server) rpcCancel(raw json.RawMessage) (interface{}, error) {
	var p runIDParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if p.RunID == "" {
		return nil, fmt.Errorf("%w: run_id is required", errBadParams)
	}
	if err := s.cancelRun(p.RunID); err != nil {
		return nil, err
	}
	return map[string]string{"status": "cancellation requested"}, nil
}

// respondWithError sends a JSON-RPC 2.0 error response. Transport status is
// always 200. A nil data is omitted.
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id, data interface{}) {
	s.logger.Warn("RPC error", map[string]interface{}{
		"code":    code,
		"message": message,
	})

	rpcErr := map[string]interface{}{
		"code":    code,
		"message": message,
	}
	if data != nil {
		rpcErr["data"] = data
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"error":   rpcErr,
		"id":      id,
	})
}
