package cache

import "fmt"

// GenerateKey joins a prefix and parameters with colons.
func GenerateKey(prefix string, params ...interface{}) string {
	key := prefix
	for _, p := range params {
		key = fmt.Sprintf("%s:%v", key, p)
	}
	return key
}
