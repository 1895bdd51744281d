package handler

import (
	"net/http"

	"github.com/0chain/stitcher/code/go/0chain.net/core/common"
	"github.com/0chain/stitcher/code/go/0chain.net/core/logging"
	"github.com/gorilla/handlers"
	"go.uber.org/zap"
)

// multipart envelope allowance on top of the chunk payload
const formOverhead = 1 << 20

func useCORS() func(http.Handler) http.Handler {
	headersOk := handlers.AllowedHeaders([]string{
		"X-Requested-With", "Content-Type", "Range",
	})

	// Allow anybody to access API.
	originsOk := handlers.AllowedOrigins([]string{"*"})

	methodsOk := handlers.AllowedMethods([]string{"GET", "HEAD", "POST", "OPTIONS"})

	return handlers.CORS(originsOk, headersOk, methodsOk)
}

func useRecovery(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logging.Logger.Error("[recover]http", zap.String("url", r.URL.String()), zap.Any("err", err))
				common.Respond(w, nil, common.InternalError("internal_error"))
			}
		}()

		h.ServeHTTP(w, r)
	})
}

// WithMaxBody caps the request body a chunk upload may send.
func WithMaxBody(handler common.ReqRespHandlerf, maxChunkSize int64) common.ReqRespHandlerf {
	return func(w http.ResponseWriter, r *http.Request) {
		if maxChunkSize > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, maxChunkSize+formOverhead)
		}
		handler(w, r)
	}
}
