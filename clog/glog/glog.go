// Package glog binds clog to github.com/golang/glog. Importing it for side
// effects switches the default logger.
package glog

import (
	"flag"
	"fmt"
	"strconv"

	"github.com/golang/glog"

	"github.com/cayleygraph/triples/clog"
)

func init() {
	clog.SetLogger(Logger{})
}

type Logger struct{}

func (Logger) Infof(format string, args ...interface{}) {
	glog.InfoDepth(3, fmt.Sprintf(format, args...))
}
func (Logger) Warningf(format string, args ...interface{}) {
	glog.WarningDepth(3, fmt.Sprintf(format, args...))
}
func (Logger) Errorf(format string, args ...interface{}) {
	glog.ErrorDepth(3, fmt.Sprintf(format, args...))
}
func (Logger) Fatalf(format string, args ...interface{}) {
	glog.FatalDepth(3, fmt.Sprintf(format, args...))
}

func (Logger) V(level int) bool {
	return bool(glog.V(glog.Level(level)))
}

// SetV changes the level through glog's -v flag.
func (Logger) SetV(v int) {
	f := flag.Lookup("v")
	if f == nil {
		glog.Warningf("changing log level is not supported; run command with '-v %d' flag", v)
		return
	}
	if err := f.Value.Set(strconv.Itoa(v)); err != nil {
		glog.Warningf("cannot set log level: %v", err)
	}
}
