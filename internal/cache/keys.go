package cache

import "fmt"

func RateLimitKey(clientAddr string) string {
	return fmt.Sprintf("ratelimit:%s", clientAddr)
}
