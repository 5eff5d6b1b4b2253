package api

import (
	"net/url"
	"strconv"
	"strings"
)

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

// encodeQuery escapes the values of a raw a=b&c=d query so spaces survive.
func encodeQuery(raw string) string {
	if !strings.Contains(raw, "=") {
		return url.QueryEscape(raw)
	}
	values := url.Values{}
	for _, pair := range strings.Split(raw, "&") {
		k, v, _ := strings.Cut(pair, "=")
		values.Add(k, v)
	}
	return values.Encode()
}
