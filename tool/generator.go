package tool

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenerateFileID returns ids of the form file_<epoch ms>_<9 base36 chars>,
// the format existing registry documents already use.
func GenerateFileID() string {
	var sb strings.Builder
	for range 9 {
		sb.WriteByte(base36[rand.Intn(len(base36))])
	}
	return fmt.Sprintf("file_%s_%s", strconv.FormatInt(NowMillis(), 10), sb.String())
}

// NowMillis is the registry's clock. Tests may swap it.
var NowMillis = func() int64 {
	return time.Now().UnixMilli()
}
