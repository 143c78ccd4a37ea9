// safego.go — panic-recovering goroutine launcher for connection pumps.
package pondserver

import (
	"runtime/debug"

	"github.com/rs/zerolog"
)

// safeGo launches fn in a goroutine with deferred panic recovery. A
// panic in one connection's read or write pump must not take down the
// daemon or any other connection.
func safeGo(log zerolog.Logger, name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("goroutine", name).Bytes("stack", debug.Stack()).Msg("recovered panic")
			}
		}()
		fn()
	}()
}
