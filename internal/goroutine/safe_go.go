package goroutine

import (
	"fmt"
	"runtime/debug"

	"github.com/ignatzorin/accmarket-backend/internal/logger"
)

// SafeGo запускает fn в горутине и не даёт её панике уронить процесс.
func SafeGo(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				if logger.Log != nil {
					logger.Log.WithField("stack", string(debug.Stack())).
						Errorf("паника в горутине: %v", r)
					return
				}
				fmt.Printf("[ERROR] паника в горутине: %v\n%s\n", r, debug.Stack())
			}
		}()
		fn()
	}()
}
