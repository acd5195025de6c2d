package runtime

import "time"

func defaultNowMs() int64 {
	return time.Now().UnixMilli()
}
