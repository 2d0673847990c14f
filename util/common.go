package util

import (
	"fmt"
	"strings"

	"github.com/tiglabs/cellgraph/util/log"
)

func BuildAddr(ip string, port int) string {
	return fmt.Sprintf("%s:%d", ip, port)
}

func ParseAddr(addr string) []string {
	pair := strings.Split(addr, ":")
	if len(pair) != 2 {
		log.Error("try to parse invalid address:[%v]", addr)
		return nil
	}
	return pair
}
