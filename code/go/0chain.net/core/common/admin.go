package common

import (
	"crypto/subtle"
	"net/http"
)

// AdminRealm is announced to clients rejected by AuthenticateAdmin.
const AdminRealm = "stitcher admin"

// AuthenticateAdmin guards handler with HTTP basic auth against the given
// credentials. An empty username locks the endpoint for everybody.
func AuthenticateAdmin(username, password string, handler ReqRespHandlerf) ReqRespHandlerf {
	return func(w http.ResponseWriter, r *http.Request) {
		uname, passwd, ok := r.BasicAuth()
		if !ok || username == "" || !secureEqual(uname, username) || !secureEqual(passwd, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="`+AdminRealm+`", charset="UTF-8"`)
			Respond(w, nil, NewErrorfWithStatusCode(http.StatusUnauthorized, "unauthorized", "admin credentials required"))
			return
		}

		handler(w, r)
	}
}

func secureEqual(given, want string) bool {
	return subtle.ConstantTimeCompare([]byte(given), []byte(want)) == 1
}
