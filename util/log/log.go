package log

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/golang/glog"
)

// Levels accepted by SetLevel and the [log] config section.
const (
	LEVEL_DEBUG = iota
	LEVEL_INFO
	LEVEL_WARN
	LEVEL_ERROR
)

var curLevel int32 = LEVEL_INFO

// InitFileLog points glog at the given directory and installs the level.
// It must be called once before any other function in this package.
func InitFileLog(dir, module, level string) {
	if dir != "" {
		flag.Set("log_dir", dir)
	}
	flag.Set("alsologtostderr", "true")
	SetLevel(level)
	Info("logging initialized for module[%v] at dir[%v]", module, dir)
}

// SetLevel maps a config level name onto this package's filter.
func SetLevel(level string) {
	switch strings.ToLower(level) {
	case "debug":
		atomic.StoreInt32(&curLevel, LEVEL_DEBUG)
	case "info":
		atomic.StoreInt32(&curLevel, LEVEL_INFO)
	case "warn":
		atomic.StoreInt32(&curLevel, LEVEL_WARN)
	case "error":
		atomic.StoreInt32(&curLevel, LEVEL_ERROR)
	default:
		glog.Errorf("invalid log level[%v], keep current", level)
	}
}

func IsEnabledDebug() bool {
	return atomic.LoadInt32(&curLevel) <= LEVEL_DEBUG
}

func Debug(format string, v ...interface{}) {
	if atomic.LoadInt32(&curLevel) <= LEVEL_DEBUG {
		glog.InfoDepth(1, fmt.Sprintf(format, v...))
	}
}

func Info(format string, v ...interface{}) {
	if atomic.LoadInt32(&curLevel) <= LEVEL_INFO {
		glog.InfoDepth(1, fmt.Sprintf(format, v...))
	}
}

func Warn(format string, v ...interface{}) {
	if atomic.LoadInt32(&curLevel) <= LEVEL_WARN {
		glog.WarningDepth(1, fmt.Sprintf(format, v...))
	}
}

func Error(format string, v ...interface{}) {
	if atomic.LoadInt32(&curLevel) <= LEVEL_ERROR {
		glog.ErrorDepth(1, fmt.Sprintf(format, v...))
	}
}

// Panic logs at error level and then panics with the formatted message.
func Panic(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	glog.ErrorDepth(1, msg)
	glog.Flush()
	panic(msg)
}

// Fatal logs at error level, flushes, and exits the process.
func Fatal(format string, v ...interface{}) {
	glog.ErrorDepth(1, fmt.Sprintf(format, v...))
	glog.Flush()
	os.Exit(1)
}

// Flush forces pending log output to disk.
func Flush() {
	glog.Flush()
}
