package gamepad

import (
	"bytes"
	"runtime"
	"strconv"
)

// goid returns the id of the calling goroutine, read from the header line
// of its stack trace ("goroutine 42 [running]:").
func goid() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	s := bytes.TrimPrefix(buf[:n], []byte("goroutine "))
	if i := bytes.IndexByte(s, ' '); i >= 0 {
		s = s[:i]
	}
	id, _ := strconv.ParseUint(string(s), 10, 64)
	return id
}
