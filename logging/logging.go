package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	rotatelogs "github.com/Velocidex/file-rotatelogs"
	"github.com/pkg/errors"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"

	"github.com/Dhanushkumar2/computer-forensic/config"
)

// Components get their own log context so an operator can separate
// extraction noise from analysis output.
var (
	GenericComponent    = "forensic"
	ExtractionComponent = "forensic-extraction"
	AnomalyComponent    = "forensic-anomaly"

	mu      sync.Mutex
	manager *LogManager
)

type LogContext struct {
	*logrus.Logger
}

func (self *LogContext) Info(format string, v ...interface{}) {
	if self.Logger != nil {
		self.Logger.Info(fmt.Sprintf(format, v...))
	}
}

func (self *LogContext) Warn(format string, v ...interface{}) {
	if self.Logger != nil {
		self.Logger.Warn(fmt.Sprintf(format, v...))
	}
}

func (self *LogContext) Error(format string, v ...interface{}) {
	if self.Logger != nil {
		self.Logger.Error(fmt.Sprintf(format, v...))
	}
}

func (self *LogContext) Debug(format string, v ...interface{}) {
	if self.Logger != nil {
		self.Logger.Debug(fmt.Sprintf(format, v...))
	}
}

type LogManager struct {
	mu       sync.Mutex
	contexts map[*string]*LogContext
}

func (self *LogManager) GetLogger(
	config_obj *config.Config, component *string) *LogContext {
	self.mu.Lock()
	defer self.mu.Unlock()

	ctx, pres := self.contexts[component]
	if !pres {
		ctx = self.makeNewComponent(config_obj, component)
		self.contexts[component] = ctx
	}
	return ctx
}

func (self *LogManager) makeNewComponent(
	config_obj *config.Config, component *string) *LogContext {

	logger := logrus.New()
	logger.Out = os.Stderr
	logger.Level = logrus.InfoLevel
	logger.Formatter = &logrus.TextFormatter{
		DisableColors:   false,
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	}

	if config_obj != nil && config_obj.Logging != nil {
		switch config_obj.Logging.Level {
		case "debug":
			logger.Level = logrus.DebugLevel
		case "warn":
			logger.Level = logrus.WarnLevel
		case "error":
			logger.Level = logrus.ErrorLevel
		}

		if config_obj.Logging.OutputDirectory != "" {
			hook, err := makeFileHook(config_obj, *component)
			if err == nil {
				logger.Hooks.Add(hook)
			} else {
				logger.Warn(fmt.Sprintf(
					"Unable to open log directory: %v", err))
			}
		}
	}

	return &LogContext{logger}
}

// Rotated file output per component, info and above.
func makeFileHook(config_obj *config.Config, component string) (
	logrus.Hook, error) {

	logging_config := config_obj.Logging
	base := filepath.Join(
		logging_config.OutputDirectory, component+".log")

	max_age := time.Duration(logging_config.MaxAgeDays) * 24 * time.Hour
	if max_age == 0 {
		max_age = 365 * 24 * time.Hour
	}

	rotation := time.Duration(logging_config.RotationDays) * 24 * time.Hour
	if rotation == 0 {
		rotation = 7 * 24 * time.Hour
	}

	writer, err := rotatelogs.New(
		base+".%Y%m%d",
		rotatelogs.WithLinkName(base),
		rotatelogs.WithMaxAge(max_age),
		rotatelogs.WithRotationTime(rotation),
	)
	if err != nil {
		return nil, errors.Wrap(err, "rotatelogs")
	}

	return lfshook.NewHook(lfshook.WriterMap{
		logrus.DebugLevel: writer,
		logrus.InfoLevel:  writer,
		logrus.WarnLevel:  writer,
		logrus.ErrorLevel: writer,
	}, &logrus.JSONFormatter{}), nil
}

func GetLogger(config_obj *config.Config, component *string) *LogContext {
	mu.Lock()
	defer mu.Unlock()

	if manager == nil {
		manager = &LogManager{
			contexts: make(map[*string]*LogContext),
		}
	}
	return manager.GetLogger(config_obj, component)
}
