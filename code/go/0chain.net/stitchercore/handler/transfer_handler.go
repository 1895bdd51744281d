package handler

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/0chain/stitcher/code/go/0chain.net/core/common"
	"github.com/0chain/stitcher/code/go/0chain.net/stitchercore/filestore"
	"github.com/0chain/stitcher/code/go/0chain.net/stitchercore/transfer"
	"github.com/gorilla/mux"
)

const ChunkFormFile = "chunk"

// ChunkResponse is returned for every stored or duplicate chunk.
//
// swagger:model ChunkResponse
type ChunkResponse struct {
	TransferID string `json:"transfer_id"`
	Index      int    `json:"index"`
	// accepted or duplicate
	Status   string `json:"status"`
	Complete bool   `json:"complete"`
}

// StatusResponse describes where a transfer stands.
//
// swagger:model StatusResponse
type StatusResponse struct {
	TransferID     string `json:"transfer_id"`
	Status         string `json:"status"`
	Size           int64  `json:"size,omitempty"`
	ModifiedAt     int64  `json:"modified_at,omitempty"`
	DownloadURL    string `json:"download_url,omitempty"`
	ReceivedChunks int    `json:"received_chunks,omitempty"`
}

// swagger:route POST /v1/transfer/{transfer_id}/chunk uploadChunk
// Upload one chunk of a transfer.
//
// responses:
//
//	200: ChunkResponse
//	400:
//	500:
func UploadChunkHandler(ctx context.Context, r *http.Request) (interface{}, error) {
	transferID := mux.Vars(r)["transfer_id"]

	var payload io.Reader
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(common.FormFileParseMaxMemory); err != nil {
			return nil, common.InvalidRequest("unable to parse multipart form: " + err.Error())
		}
		defer r.MultipartForm.RemoveAll() //nolint:errcheck

		file, err := openFormFile(r, ChunkFormFile)
		if err != nil {
			return nil, common.InvalidRequest("chunk file part is missing")
		}
		defer file.Close()
		payload = file
	} else {
		payload = r.Body
	}

	index, err := getIntField(r, "index")
	if err != nil {
		return nil, err
	}
	total, err := getIntField(r, "total")
	if err != nil {
		return nil, err
	}
	digest, _ := common.GetField(r, "digest")

	res, err := service.IngestChunk(ctx, &transfer.ChunkRequest{
		TransferID: transferID,
		Index:      index,
		Total:      total,
		Digest:     digest,
		Payload:    payload,
	})
	if err != nil {
		return nil, err
	}

	return &ChunkResponse{
		TransferID: res.TransferID,
		Index:      res.Index,
		Status:     res.Ack.String(),
		Complete:   res.Complete,
	}, nil
}

// swagger:route GET /v1/transfer/{transfer_id}/status transferStatus
// Report whether a transfer is ready, in progress or unknown.
//
// responses:
//
//	200: StatusResponse
//	404: StatusResponse
func StatusHandler(ctx context.Context, r *http.Request) (interface{}, int, error) {
	transferID := mux.Vars(r)["transfer_id"]

	status, err := service.GetStatus(ctx, transferID)
	if err != nil {
		return nil, 0, err
	}

	resp := &StatusResponse{
		TransferID: transferID,
		Status:     status.State.String(),
	}
	switch status.State {
	case filestore.StateReady:
		resp.Size = status.ArtifactSize
		resp.ModifiedAt = status.ModTime.Unix()
		resp.DownloadURL = "/v1/transfer/" + transferID + "/artifact"
	case filestore.StateInProgress:
		resp.ReceivedChunks = status.ReceivedChunks
	default:
		return resp, http.StatusNotFound, common.NewError("not_found", "transfer not found")
	}
	return resp, http.StatusOK, nil
}

// swagger:route GET /v1/transfer/{transfer_id}/artifact downloadArtifact
// Download the assembled artifact. Range requests are supported.
//
// responses:
//
//	200:
//	206:
//	404:
func DownloadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		common.SetupCORSResponse(w, r)
		return
	}
	transferID := mux.Vars(r)["transfer_id"]

	f, finfo, err := service.ReadArtifact(r.Context(), transferID)
	if err != nil {
		common.Respond(w, nil, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+transferID+`"`)
	http.ServeContent(w, r, transferID, finfo.ModTime(), f)
}

func openFormFile(r *http.Request, key string) (multipart.File, error) {
	file, _, err := r.FormFile(key)
	return file, err
}

func getIntField(r *http.Request, key string) (int, error) {
	v, ok := common.GetField(r, key)
	if !ok || v == "" {
		return 0, common.InvalidRequest(key + " is missing")
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, common.InvalidRequest(key + " is not an integer")
	}
	return n, nil
}
