package audit

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-apotek/internal/obs"
)

const maxMetadataBytes = 8 << 10

// Recorder writes an audit entry after each mutating request it wraps.
type Recorder struct {
	Service Service
	Logger  *zerolog.Logger
}

// Middleware audits POST, PUT, PATCH and DELETE requests against resourceType.
// idParam names the chi URL parameter holding the resource id, if any. The JSON
// request body is stored as metadata when it is small enough.
func (r Recorder) Middleware(resourceType, idParam string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !r.Service.Enabled || !mutating(req.Method) {
				next.ServeHTTP(w, req)
				return
			}

			metadata := snapshotBody(req)
			recorder := obs.NewStatusRecorder(w)
			next.ServeHTTP(recorder, req)

			resourceID := ""
			if idParam != "" {
				resourceID = chi.URLParam(req, idParam)
			}
			entry := EntryFromRequest(req, resourceType, resourceID, recorder.Status())
			entry.Metadata = metadata
			if err := r.Service.Record(req.Context(), entry); err != nil && r.Logger != nil {
				r.Logger.Error().Err(err).Str("resource", resourceType).Msg("audit record failed")
			}
		})
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

// snapshotBody copies the request body and restores it for the next handler.
func snapshotBody(req *http.Request) []byte {
	if req.Body == nil || req.Body == http.NoBody {
		return nil
	}
	buf, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(buf))
	if err != nil || len(buf) == 0 || len(buf) > maxMetadataBytes || !json.Valid(buf) {
		return nil
	}
	out, err := json.Marshal(map[string]json.RawMessage{"request": buf})
	if err != nil {
		return nil
	}
	return out
}
