package lib

import (
	"io"
	"os"
	"path"

	"github.com/covalenthq/lumberjack"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// InitLogger writes application logs to stdout and a rotated server.log,
// and gin's access log to api.log.
func InitLogger(dir string, prod bool) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warnf("log directory %s: %s", dir, err.Error())
	}
	serverLogs := path.Join(dir, "server.log")
	apiLogs := path.Join(dir, "api.log")

	if prod {
		log.SetFormatter(&log.JSONFormatter{})
		log.SetLevel(log.InfoLevel)
	} else {
		gin.ForceConsoleColor()
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
		log.SetLevel(log.DebugLevel)
	}

	gin.DefaultWriter = io.MultiWriter(&lumberjack.Logger{
		Filename:   apiLogs,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     30,
	}, os.Stdout)
	log.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   serverLogs,
		MaxSize:    500,
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
	}))
}
