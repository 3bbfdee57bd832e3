package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/zenprocess/open-lovable-cf/internal/errors"
	"github.com/zenprocess/open-lovable-cf/internal/logging"
)

// maxBodyBytes bounds request bodies. AI responses and loaded projects
// can be large.
const maxBodyBytes = 32 << 20

// failure is the body of every error response.
type failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("failed to write response", "error", err)
	}
}

// writeError responds with the status mapped from err.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperrors.HTTPStatus(err), failure{Error: err.Error()})
}

// decodeJSON reads a JSON body into v. An empty body leaves v unchanged.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if err == io.EOF {
			return nil
		}
		return apperrors.ValidationError(fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}
