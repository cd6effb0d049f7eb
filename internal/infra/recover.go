package infra

import (
	"fmt"
	"runtime"
	"strings"

	log "github.com/sirupsen/logrus"
)

// GoRecoverable runs f and relaunches it in a fresh goroutine after a panic.
// A negative restart budget relaunches forever, zero aborts the process.
func GoRecoverable(restartsLeft int, id string, f func()) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		log.Errorf("job %q panicked at %s: %v", id, identifyPanic(), r)
		if restartsLeft == 0 {
			log.Fatalf("job %q exhausted its restart budget, exiting", id)
		}
		if restartsLeft > 0 {
			restartsLeft--
		}
		log.Debugf("relaunching job %q, restarts left: %d", id, restartsLeft)
		go GoRecoverable(restartsLeft, id, f)
	}()
	f()
}

// identifyPanic walks the stack past the runtime frames to the frame that
// actually panicked.
func identifyPanic() string {
	var pc [16]uintptr
	n := runtime.Callers(3, pc[:])

	var name, file string
	var line int
	for _, caller := range pc[:n] {
		fn := runtime.FuncForPC(caller)
		if fn == nil {
			continue
		}
		file, line = fn.FileLine(caller)
		name = fn.Name()
		if !strings.HasPrefix(name, "runtime.") {
			break
		}
	}

	if name != "" {
		return fmt.Sprintf("%s:%d", name, line)
	}
	if file != "" {
		return fmt.Sprintf("%s:%d", file, line)
	}
	return fmt.Sprintf("pc:%x", pc[:n])
}
