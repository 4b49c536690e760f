// Package txid генерирует человекочитаемые идентификаторы транзакций.
package txid

import (
	"crypto/rand"
	"regexp"
	"strconv"
	"time"
)

const (
	prefix      = "TXN"
	suffixLen   = 6
	suffixChars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// Pattern описывает формат идентификатора транзакции.
var Pattern = regexp.MustCompile(`^TXN\d+[0-9A-Z]{6}$`)

// New возвращает новый идентификатор транзакции: префикс TXN,
// миллисекундная метка времени и шесть случайных символов.
// Уникальность вероятностная, без координации перед записью.
func New() string {
	return newAt(time.Now())
}

func newAt(now time.Time) string {
	buf := make([]byte, suffixLen)
	_, _ = rand.Read(buf)

	suffix := make([]byte, suffixLen)
	for i, b := range buf {
		suffix[i] = suffixChars[int(b)%len(suffixChars)]
	}

	return prefix + strconv.FormatInt(now.UnixMilli(), 10) + string(suffix)
}
