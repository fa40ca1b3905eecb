// utilitário pequeno para formatação de valores numéricos em headers.

package ratelimit

import (
	"strconv"
	"time"
)

func formatInt(v int) string { return strconv.Itoa(v) }

func formatUnix(t time.Time) string { return strconv.FormatInt(t.Unix(), 10) }

// ceilSeconds arredonda para cima: 1ms de espera vira 1s, nunca 0.
func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
