package appconfiguration

import "github.com/IBM/appconfiguration-go-client-sdk/util"

// Logger can be implemented and passed to SetLogger to redirect all SDK
// log output.
type Logger = util.Logger

func SetLogger(logger Logger) {
	util.SetLogger(logger)
}

func infof(format string, a ...any) {
	util.Infof(format, a...)
}

func debugf(format string, a ...any) {
	util.Debugf(format, a...)
}

func warnf(format string, a ...any) {
	util.Warnf(format, a...)
}

func errorf(format string, a ...any) error {
	return util.Errorf(format, a...)
}
