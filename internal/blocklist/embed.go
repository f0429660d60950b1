package blocklist

import (
	_ "embed"
	"strings"
)

//go:embed list.txt
var rawList string

var defaultSet map[string]struct{}

func init() {
	defaultSet = make(map[string]struct{})
	for _, line := range strings.Split(rawList, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			defaultSet[strings.ToLower(line)] = struct{}{}
		}
	}
}
