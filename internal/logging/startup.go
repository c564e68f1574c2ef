package logging

import (
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
)

// StartupLogger collects the identity and configuration of a binary and
// emits them as one structured event at the end of cold start.
type StartupLogger struct {
	name         string
	codec        string
	initDuration time.Duration

	buckets  map[string]string
	features map[string]bool
	config   map[string]string
}

func NewStartupLogger(name string) *StartupLogger {
	return &StartupLogger{
		name:     name,
		buckets:  make(map[string]string),
		features: make(map[string]bool),
		config:   make(map[string]string),
	}
}

// Codec records which image codec the binary was built with.
func (s *StartupLogger) Codec(name string) *StartupLogger {
	s.codec = name
	return s
}

func (s *StartupLogger) Bucket(label, name string) *StartupLogger {
	s.buckets[label] = name
	return s
}

func (s *StartupLogger) Feature(name string, enabled bool) *StartupLogger {
	s.features[name] = enabled
	return s
}

// Config records a non-secret configuration value.
func (s *StartupLogger) Config(key, value string) *StartupLogger {
	s.config[key] = value
	return s
}

func (s *StartupLogger) InitDuration(d time.Duration) *StartupLogger {
	s.initDuration = d
	return s
}

func (s *StartupLogger) Log(logger zerolog.Logger) {
	evt := logger.Info()

	runtimeDict := zerolog.Dict().
		Str("name", s.name).
		Str("functionName", os.Getenv("AWS_LAMBDA_FUNCTION_NAME")).
		Str("version", os.Getenv("AWS_LAMBDA_FUNCTION_VERSION")).
		Str("region", os.Getenv("AWS_REGION")).
		Str("memoryMB", os.Getenv("AWS_LAMBDA_FUNCTION_MEMORY_SIZE")).
		Str("goVersion", runtime.Version()).
		Str("arch", runtime.GOARCH)
	if s.codec != "" {
		runtimeDict = runtimeDict.Str("codec", s.codec)
	}
	evt = evt.Dict("runtime", runtimeDict)

	if len(s.buckets) > 0 {
		evt = evt.Dict("buckets", dictFromMap(s.buckets))
	}
	if len(s.features) > 0 {
		d := zerolog.Dict()
		for k, v := range s.features {
			d = d.Bool(k, v)
		}
		evt = evt.Dict("features", d)
	}
	if len(s.config) > 0 {
		evt = evt.Dict("config", dictFromMap(s.config))
	}
	if s.initDuration > 0 {
		evt = evt.Dur("initDuration", s.initDuration)
	}

	evt.Msg("cold start complete")
}

func dictFromMap(m map[string]string) *zerolog.Event {
	d := zerolog.Dict()
	for k, v := range m {
		d = d.Str(k, v)
	}
	return d
}
