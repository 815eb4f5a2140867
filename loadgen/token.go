package loadgen

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/zeptools/gw-invoice/sec"
)

// TokenConf mints the bearer token sent with every request
type TokenConf struct {
	KeyPath  string // `<kid>_private.pem`
	KeyID    string // default: derived from the file name
	Issuer   string
	Subject  string
	Audience string
	TTL      time.Duration
}

func MintToken(conf TokenConf) (string, error) {
	key, err := sec.LoadLocalPrivatePEMKey(conf.KeyPath)
	if err != nil {
		return "", err
	}
	kid := conf.KeyID
	if kid == "" {
		kid = strings.TrimSuffix(filepath.Base(conf.KeyPath), "_private.pem")
	}
	ttl := conf.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return sec.MintAccessToken(conf.Issuer, conf.Subject, conf.Audience, key, kid, ttl)
}
