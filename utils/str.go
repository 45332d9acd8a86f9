package utils

import (
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// StrArrToInts parses a list of decimal strings, silently skipping entries
// that do not parse. Meant for lenient CLI list flags, not data files.
func StrArrToInts(ss []string) []int {
	var (
		rets = make([]int, 0, len(ss))
		i    int
		e    error
	)
	for _, id := range ss {
		i, e = strconv.Atoi(id)
		if e == nil {
			rets = append(rets, i)
		}
	}
	return rets
}

func GetNowTimeTag() string {
	const tf = "20060102150405.000"
	t := time.Now().Format(tf)
	return t[:len(tf)-4] + t[len(tf)-3:]
}

// Latin1ToUtf8 decodes legacy-codepage shapefile attributes. Deliveries
// without a UTF-8 cpg sidecar are treated as Windows-1252.
func Latin1ToUtf8(s string) (d string, e error) {
	reader := transform.NewReader(strings.NewReader(s), charmap.Windows1252.NewDecoder())
	t, e := io.ReadAll(reader)
	if e != nil {
		return
	}
	d = string(t)
	return
}

func PurifyForUtf8(s string) string {
	return strings.ToValidUTF8(strings.ReplaceAll(s, "\x00", ""), "")
}
