package metastore_test

import "time"

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func secs(i int) time.Duration {
	return time.Duration(i) * time.Second
}
