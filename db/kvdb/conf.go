package kvdb

import (
	"net"
	"strconv"
)

// Conf is one entry of .kv-databases.json
type Conf struct {
	Type string `json:"type"` // "redis"
	Host string `json:"host"`
	Port int    `json:"port"`
	Addr string `json:"addr"` // host:port. overrides Host/Port when set
	PW   string `json:"pw"`
	DB   int    `json:"db"` // optional db number e.g. redis
}

// Address is Addr, or Host:Port joined (IPv6 hosts bracketed)
func (c *Conf) Address() string {
	if c.Addr != "" {
		return c.Addr
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
