package utils

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

func NewUUID() string { return uuid.NewString() }

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)

// UsernameFromEmail local 部分去掉特殊字符 + 6 位随机 hex，统一小写
func UsernameFromEmail(email string) string {
	local := email
	if at := strings.IndexByte(email, '@'); at >= 0 {
		local = email[:at]
	}
	local = nonAlnum.ReplaceAllString(local, "")
	if local == "" {
		local = "user"
	}
	return strings.ToLower(local + "_" + randomHex(3))
}

const refAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ReferenceID 形如 ORD_1700000000000_AB12CD
func ReferenceID(prefix string, now time.Time) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteByte('_')
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 10))
	b.WriteByte('_')
	max := big.NewInt(int64(len(refAlphabet)))
	for i := 0; i < 6; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand 不可用时退化为 uuid 片段
			return prefix + "_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + strings.ToUpper(uuid.NewString()[:6])
		}
		b.WriteByte(refAlphabet[n.Int64()])
	}
	return b.String()
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return strings.ReplaceAll(uuid.NewString(), "-", "")[:n*2]
	}
	return hex.EncodeToString(buf)
}
