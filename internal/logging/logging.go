// README: Zap sugared logger construction.
package logging

import "go.uber.org/zap"

func New(debug bool) *zap.SugaredLogger {
	var (
		logger *zap.Logger
		err    error
	)
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic("cannot initialize zap: " + err.Error())
	}
	return logger.Sugar()
}
