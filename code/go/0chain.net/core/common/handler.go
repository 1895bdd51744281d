package common

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	// AppErrorHeader - a http response header to send an application error code.
	AppErrorHeader = "X-App-Error-Code"
)

/*ReqRespHandlerf - a type for the default handler signature */
type ReqRespHandlerf func(w http.ResponseWriter, r *http.Request)

/*JSONResponderF - a handler that takes standard request (non-json) and responds with a json response */
type JSONResponderF func(ctx context.Context, r *http.Request) (interface{}, error)

/*StatusCodeResponderF - a handler that also decides the http status code of its response */
type StatusCodeResponderF func(ctx context.Context, r *http.Request) (interface{}, int, error)

/*Respond - respond either data or error as a response */
func Respond(w http.ResponseWriter, data interface{}, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if err != nil {
		statusCode := http.StatusBadRequest
		body := make(map[string]interface{}, 2)
		body["error"] = err.Error()
		if cerr, ok := err.(*Error); ok {
			body["code"] = cerr.Code
			w.Header().Set(AppErrorHeader, cerr.Code)
			if cerr.StatusCode != 0 {
				statusCode = cerr.StatusCode
			}
		}
		w.WriteHeader(statusCode)
		json.NewEncoder(w).Encode(body) //nolint:errcheck // nothing left to do on a broken connection
	} else if data != nil {
		json.NewEncoder(w).Encode(data) //nolint:errcheck
	}
}

func SetupCORSResponse(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
	w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Accept-Encoding")
}

/*ToJSONResponse - An adapter that takes a handler of the form
* func AHandler(r *http.Request) (interface{}, error)
* which takes a request object, processes and returns an object or an error
* and converts into a standard request/response handler
 */
func ToJSONResponse(handler JSONResponderF) ReqRespHandlerf {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*") // CORS for all.
		if r.Method == http.MethodOptions {
			SetupCORSResponse(w, r)
			return
		}
		ctx := r.Context()
		data, err := handler(ctx, r)
		Respond(w, data, err)
	}
}

func ToStatusCode(handler StatusCodeResponderF) ReqRespHandlerf {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*") // CORS for all.
		if r.Method == http.MethodOptions {
			SetupCORSResponse(w, r)
			return
		}

		ctx := r.Context()

		data, statusCode, err := handler(ctx, r)

		if err != nil {
			if statusCode == 0 {
				statusCode = http.StatusBadRequest
				if cerr, ok := err.(*Error); ok && cerr.StatusCode != 0 {
					statusCode = cerr.StatusCode
				}
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(statusCode)

			if data != nil {
				json.NewEncoder(w).Encode(data) //nolint:errcheck
			} else {
				//nolint:errcheck
				json.NewEncoder(w).Encode(map[string]string{
					"error": err.Error(),
				})
			}

			return
		}

		if statusCode == 0 {
			statusCode = http.StatusOK
		}

		if data == nil {
			w.WriteHeader(statusCode)
			return
		}

		jsonData, err := json.Marshal(data)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Length", fmt.Sprintf("%d", len(jsonData)))
		w.WriteHeader(statusCode)
		w.Write(jsonData) //nolint:errcheck
	}
}
