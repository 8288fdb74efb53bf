// Package logging builds the zap logger shared by every hostready command.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// DefaultFile is the operations log name used with --logging.
const DefaultFile = "operations.log"

// Options control logger construction.
type Options struct {
	Verbose bool   // debug level on the console
	Quiet   bool   // warn level on the console
	File    bool   // also write JSON lines to a rotating file
	Dir     string // directory for the rotating file; "" = current directory
	Name    string // file name; "" = DefaultFile
}

// Level returns the console level implied by the verbosity flags.
func (o Options) Level() zapcore.Level {
	switch {
	case o.Verbose:
		return zap.DebugLevel
	case o.Quiet:
		return zap.WarnLevel
	default:
		return zap.InfoLevel
	}
}

// Path returns the rotating log file path.
func (o Options) Path() string {
	name := o.Name
	if name == "" {
		name = DefaultFile
	}
	return filepath.Join(o.Dir, name)
}

// New returns a logger writing human-readable lines to console and, when
// opts.File is set, JSON lines to a rotating operations log.
func New(console io.Writer, opts Options) (*zap.Logger, error) {
	cores := []zapcore.Core{consoleCore(console, opts.Level())}

	if opts.File {
		if opts.Dir != "" {
			if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
				return nil, err
			}
		}
		w := zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.Path(),
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     14, // days
			Compress:   true,
		})
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "ts"
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(cfg), w, opts.Level()))
	}

	return zap.New(zapcore.NewTee(cores...)), nil
}

func consoleCore(w io.Writer, level zapcore.Level) zapcore.Core {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = ""
	cfg.CallerKey = ""
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.AddSync(w), level)
}
