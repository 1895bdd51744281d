//	0chain Stitcher API:
//	 version: 0.0.1
//	 title: 0chain Stitcher API
//	Schemes: http, https
//	BasePath: /
//	Produces:
//	  - application/json
//
// swagger:meta
package handler

import (
	"net/http"
	"time"

	"github.com/0chain/stitcher/code/go/0chain.net/core/common"
	"github.com/0chain/stitcher/code/go/0chain.net/stitchercore/config"
	"github.com/0chain/stitcher/code/go/0chain.net/stitchercore/transfer"
	"github.com/didip/tollbooth/v6/limiter"
	"github.com/gorilla/mux"
	"github.com/spf13/viper"
)

const (
	ChunkRPS    = 200 // Chunk uploads Per Second
	StatusRPS   = 20  // Status polls Per Second
	DownloadRPS = 5   // Artifact downloads Per Second
	GeneralRPS  = 5   // General Request Per Second

	DefaultExpirationTTL = time.Minute * 5
)

var (
	chunkRL    *limiter.Limiter // chunk upload Rate Limiter
	statusRL   *limiter.Limiter // status Rate Limiter
	downloadRL *limiter.Limiter // download Rate Limiter
	generalRL  *limiter.Limiter // general Rate Limiter
)

var (
	service   *transfer.Service
	startedAt = time.Now()
)

func ConfigRateLimits() {
	tokenExpirettl := viper.GetDuration("rate_limiters.default_token_expire_duration")
	if tokenExpirettl <= 0 {
		tokenExpirettl = DefaultExpirationTTL
	}

	ipLookups := []string{"RemoteAddr", "X-Forwarded-For", "X-Real-IP"}

	isProxy := viper.GetBool("rate_limiters.proxy")
	if isProxy {
		ipLookups = []string{"X-Forwarded-For", "RemoteAddr", "X-Real-IP"}
	}

	cRps := viper.GetFloat64("rate_limiters.chunk_rps")
	sRps := viper.GetFloat64("rate_limiters.status_rps")
	dRps := viper.GetFloat64("rate_limiters.download_rps")
	gRps := viper.GetFloat64("rate_limiters.general_rps")

	if cRps <= 0 {
		cRps = ChunkRPS
	}

	if sRps <= 0 {
		sRps = StatusRPS
	}

	if dRps <= 0 {
		dRps = DownloadRPS
	}

	if gRps <= 0 {
		gRps = GeneralRPS
	}

	chunkRL = common.GetRateLimiter(cRps, ipLookups, true, tokenExpirettl)
	statusRL = common.GetRateLimiter(sRps, ipLookups, true, tokenExpirettl)
	downloadRL = common.GetRateLimiter(dRps, ipLookups, true, tokenExpirettl)
	generalRL = common.GetRateLimiter(gRps, ipLookups, true, tokenExpirettl)
}

func RateLimitByChunkRL(handler common.ReqRespHandlerf) common.ReqRespHandlerf {
	return common.RateLimitByIP(handler, chunkRL)
}

func RateLimitByStatusRL(handler common.ReqRespHandlerf) common.ReqRespHandlerf {
	return common.RateLimitByIP(handler, statusRL)
}

func RateLimitByDownloadRL(handler common.ReqRespHandlerf) common.ReqRespHandlerf {
	return common.RateLimitByIP(handler, downloadRL)
}

func RateLimitByGeneralRL(handler common.ReqRespHandlerf) common.ReqRespHandlerf {
	return common.RateLimitByIP(handler, generalRL)
}

/*SetupHandlers sets up the necessary API end points */
func SetupHandlers(r *mux.Router, svc *transfer.Service, maxChunkSize int64) {
	service = svc
	admin := config.Configuration.Admin
	ConfigRateLimits()
	r.Use(useRecovery, useCORS())

	r.HandleFunc("/v1/transfer/{transfer_id}/chunk",
		RateLimitByChunkRL(WithMaxBody(common.ToJSONResponse(UploadChunkHandler), maxChunkSize))).
		Methods(http.MethodPost, http.MethodOptions)

	r.HandleFunc("/v1/transfer/{transfer_id}/status",
		RateLimitByStatusRL(common.ToStatusCode(StatusHandler))).
		Methods(http.MethodGet, http.MethodOptions)

	r.HandleFunc("/v1/transfer/{transfer_id}/artifact",
		RateLimitByDownloadRL(DownloadHandler)).
		Methods(http.MethodGet, http.MethodHead, http.MethodOptions)

	r.HandleFunc("/_stats",
		RateLimitByGeneralRL(common.AuthenticateAdmin(admin.Username, admin.Password,
			common.ToJSONResponse(StatsHandler)))).
		Methods(http.MethodGet)

	r.HandleFunc("/_health",
		RateLimitByGeneralRL(common.ToJSONResponse(HealthHandler))).
		Methods(http.MethodGet)

	SetupSwagger(r)
}
