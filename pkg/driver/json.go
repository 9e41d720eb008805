package driver

import (
	"errors"
	"net"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

var errInvalidJSON = errors.New("output is not valid JSON")

func parseJSON(out string) (gjson.Result, error) {
	out = strings.TrimSpace(out)
	if !gjson.Valid(out) {
		return gjson.Result{}, errInvalidJSON
	}
	return gjson.Parse(out), nil
}

// rows returns the elements of an array, or the value itself when a table
// holds a single row as an object
func rows(r gjson.Result) []gjson.Result {
	switch {
	case r.IsArray():
		return r.Array()
	case r.Exists():
		return []gjson.Result{r}
	default:
		return nil
	}
}

// normalizeMAC formats any parseable hardware address as upper-case colon hex
func normalizeMAC(s string) string {
	mac, err := net.ParseMAC(strings.TrimSpace(s))
	if err != nil {
		return ""
	}
	return strings.ToUpper(mac.String())
}

// resultInt reads numbers that may be encoded as JSON strings
func resultInt(r gjson.Result) int {
	if r.Type == gjson.String {
		n, _ := strconv.Atoi(strings.TrimSpace(r.Str))
		return n
	}
	return int(r.Int())
}
