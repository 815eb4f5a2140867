package sqldb

import (
	"strconv"
	"strings"
)

var PlaceholderPrefixForDBType = map[string]byte{
	"mysql":  '?',
	"pgsql":  '$',
	"sqlite": 0, // NOTE: sqlite supports all of them
}

// ReplaceStaticPlaceholders turns each `?` into prefix+ordinal, e.g. `$1, $2`
func ReplaceStaticPlaceholders(sql string, prefix byte) string {
	if prefix == '?' || prefix == 0 {
		return sql
	}
	var builder strings.Builder
	builder.Grow(len(sql) + 8)
	cnt := 1
	for i := 0; i < len(sql); i++ {
		if sql[i] == '?' {
			builder.WriteByte(prefix)
			builder.WriteString(strconv.Itoa(cnt))
			cnt++
			continue
		}
		builder.WriteByte(sql[i])
	}
	return builder.String()
}
