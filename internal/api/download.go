package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/BTreeMap/ClimateCanvas/internal/models"
)

// DownloadFilePrefix is the stem of every downloaded image file name.
const DownloadFilePrefix = "climate-awareness"

var (
	errNotDataURI       = errors.New("url is not a base64 data URI")
	errUnsupportedImage = errors.New("unsupported image type")
)

// imageExtensions maps the image types a provider may return to file extensions.
var imageExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// decodeDataURI splits "data:<mime>;base64,<payload>" into its MIME type and decoded bytes.
func decodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, errNotDataURI
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, errNotDataURI
	}
	mimeType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, errNotDataURI
	}
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if _, known := imageExtensions[mimeType]; !known {
		return "", nil, fmt.Errorf("%w: %q", errUnsupportedImage, mimeType)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 payload: %w", err)
	}
	if len(data) == 0 {
		return "", nil, errors.New("empty image payload")
	}
	return mimeType, data, nil
}

// downloadHandler returns a generated image as a file attachment (POST /api/download).
// Only data URIs produced by /api/generate are accepted; remote URLs are never fetched.
func (s *Server) downloadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.downloadHandler: processing download request", "method", r.Method)
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var req models.DownloadRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestBodyBytes)).Decode(&req); err != nil {
		slog.Warn("Server.downloadHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.ErrorResponse{Error: msgInvalidJSON})
		return
	}
	mimeType, data, err := decodeDataURI(strings.TrimSpace(req.URL))
	if err != nil {
		slog.Warn("Server.downloadHandler: rejected image URL", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	filename := fmt.Sprintf("%s-%d.%s", DownloadFilePrefix, s.now().UnixMilli(), imageExtensions[mimeType])
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.Error("Server.downloadHandler: failed to write image", "error", err)
		return
	}
	slog.Info("Server.downloadHandler: image downloaded", "filename", filename, "bytes", len(data))
}
