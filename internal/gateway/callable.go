// ABOUTME: HTTP callable transport for the account service
// ABOUTME: POST /v1/{method} with {"data":{...}} answers {"result":{...}} or {"error":{"status","message"}}

package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/2389/identity-gateway/internal/auth"
)

// maxCallableBody caps request bodies on the callable endpoint.
const maxCallableBody = 1 << 20

type callableRequest struct {
	Data json.RawMessage `json:"data"`
}

type callableError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// callableStatus maps a gRPC code to the callable status name and HTTP status.
// Codes the account service never returns collapse to INTERNAL.
func callableStatus(code codes.Code) (string, int) {
	switch code {
	case codes.Unauthenticated:
		return "UNAUTHENTICATED", http.StatusUnauthorized
	case codes.PermissionDenied:
		return "PERMISSION_DENIED", http.StatusForbidden
	case codes.InvalidArgument:
		return "INVALID_ARGUMENT", http.StatusBadRequest
	case codes.Unimplemented:
		return "UNIMPLEMENTED", http.StatusNotFound
	default:
		return "INTERNAL", http.StatusInternalServerError
	}
}

// handleCallable decodes the callable envelope and invokes the named method.
func (g *Gateway) handleCallable(w http.ResponseWriter, r *http.Request) {
	method := r.PathValue("method")

	payload, err := decodeCallableData(http.MaxBytesReader(w, r.Body, maxCallableBody))
	if err != nil {
		writeCallableError(w, status.Error(codes.InvalidArgument, err.Error()))
		return
	}

	result, err := g.accounts.Invoke(r.Context(), auth.FromContext(r.Context()), method, payload)
	if err != nil {
		writeCallableError(w, err)
		return
	}

	writeCallableJSON(w, http.StatusOK, map[string]any{"result": result})
}

// decodeCallableData returns the "data" object. An empty body or null data yields an empty payload.
func decodeCallableData(body io.Reader) (map[string]any, error) {
	var req callableRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}
		return nil, errors.New("invalid JSON body")
	}

	if len(req.Data) == 0 || string(req.Data) == "null" {
		return map[string]any{}, nil
	}

	var data map[string]any
	if err := json.Unmarshal(req.Data, &data); err != nil {
		return nil, errors.New("request data must be an object")
	}
	return data, nil
}

func writeCallableError(w http.ResponseWriter, err error) {
	st, ok := status.FromError(err)
	if !ok {
		st = status.New(codes.Internal, "internal error")
	}
	name, httpStatus := callableStatus(st.Code())
	writeCallableJSON(w, httpStatus, map[string]any{
		"error": callableError{Status: name, Message: st.Message()},
	})
}

func writeCallableJSON(w http.ResponseWriter, httpStatus int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(body)
}
