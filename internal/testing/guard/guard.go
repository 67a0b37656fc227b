package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("AUSTRAL_TEST_MODE") == "" {
			_ = os.Setenv("AUSTRAL_TEST_MODE", "1")
		}
	})
}
