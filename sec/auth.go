package sec

import (
	"log"
	"net/http"
	"path/filepath"

	"github.com/zeptools/gw-invoice/requests"
	"github.com/zeptools/gw-invoice/responses"
)

// AuthConf is the "auth" section of .core.json.
// Disabled when neither PublicKeyDir nor AuthServer is set.
type AuthConf struct {
	PublicKeyDir string `json:"public_key_dir"` // holds `<kid>_public.pem`. relative to appRoot
	Audience     string `json:"audience"`       // required `aud` claim. empty = not checked
	AuthServer   string `json:"auth_server"`    // base URL serving /.well-known/jwks.json
	ClientID     string `json:"client_id"`      // sent to AuthServer as Client-Id
	RefreshMins  int    `json:"refresh_mins"`   // AuthServer JWKS refresh period. default 15
}

func (c *AuthConf) Enabled() bool {
	return c.PublicKeyDir != "" || c.AuthServer != ""
}

func (c *AuthConf) KeyDir(appRoot string) string {
	if c.PublicKeyDir == "" {
		return ""
	}
	if filepath.IsAbs(c.PublicKeyDir) {
		return c.PublicKeyDir
	}
	return filepath.Join(appRoot, c.PublicKeyDir)
}

// BearerAuth rejects requests without a valid RS256 bearer token
type BearerAuth struct {
	Keys     *KeySet
	Audience string
}

func (a *BearerAuth) Wrap(inner http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ExtractBearerToken(r.Header.Get("Authorization"))
		if token == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="invoice"`)
			responses.WriteErrorText(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := VerifyAccessToken(token, a.Keys, a.Audience)
		if err != nil {
			log.Printf("[WARN][%s] rejected token: %v", requests.RequestID(r.Context()), err)
			w.Header().Set("WWW-Authenticate", `Bearer realm="invoice", error="invalid_token"`)
			responses.WriteErrorText(w, http.StatusUnauthorized, "invalid bearer token")
			return
		}
		log.Printf("[INFO][%s] authenticated sub=%q", requests.RequestID(r.Context()), claims.Subject)
		inner.ServeHTTP(w, r)
	})
}
