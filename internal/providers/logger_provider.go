package providers

import (
	"fmt"
	"os"
	"path/filepath"
	"rad/internal/structures"

	"github.com/rs/zerolog"
)

type TypeEnum uint8

const (
	TypeApp TypeEnum = iota
	TypeGet
	TypePost
	TypeSpam
	TypeReward
	TypeStore
	TypeQueue
)

var typeNames = map[TypeEnum]string{
	TypeApp:    "app",
	TypeGet:    "get",
	TypePost:   "post",
	TypeSpam:   "spam",
	TypeReward: "reward",
	TypeStore:  "store",
	TypeQueue:  "queue",
}

func GetLogTypeByRequestType(method string) TypeEnum {
	if method == "POST" {
		return TypePost
	}
	return TypeGet
}

type Logger interface {
	Errorf(t TypeEnum, format string, args ...interface{})
	Warnf(t TypeEnum, format string, args ...interface{})
	Infof(t TypeEnum, format string, args ...interface{})
	Debugf(t TypeEnum, format string, args ...interface{})
	Fatalf(t TypeEnum, format string, args ...interface{})
	Close()
}

// LogProvider routes log types into three zerolog sinks: app (lifecycle and
// store errors), access (HTTP), audit (spam decisions, reward and milestone
// transitions). Audit lines are the record of user-affecting decisions and
// are never surfaced to callers as errors.
type LogProvider struct {
	app    zerolog.Logger
	access zerolog.Logger
	audit  zerolog.Logger
	files  []*os.File
}

func NewLogProvider(conf *structures.Config) (Logger, error) {
	level, err := zerolog.ParseLevel(conf.Logger.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", conf.Logger.Level, err)
	}

	if info, err := os.Stat(conf.Logger.Dir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("log dir %q is not usable", conf.Logger.Dir)
	}

	mode := os.FileMode(conf.Logger.Mode)
	lp := &LogProvider{}
	for _, name := range []string{"app.log", "access.log", "audit.log"} {
		f, err := os.OpenFile(filepath.Join(conf.Logger.Dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, mode)
		if err != nil {
			lp.Close()
			return nil, err
		}
		lp.files = append(lp.files, f)
	}

	build := func(f *os.File) zerolog.Logger {
		l := zerolog.New(f).Level(level).With().Timestamp().Logger()
		if conf.Debug {
			l = l.Output(zerolog.MultiLevelWriter(f, zerolog.ConsoleWriter{Out: os.Stderr}))
		}
		return l
	}
	lp.app = build(lp.files[0])
	lp.access = build(lp.files[1])
	lp.audit = build(lp.files[2])

	return lp, nil
}

func (lp *LogProvider) sink(t TypeEnum) *zerolog.Logger {
	switch t {
	case TypeGet, TypePost:
		return &lp.access
	case TypeSpam, TypeReward:
		return &lp.audit
	default:
		return &lp.app
	}
}

func (lp *LogProvider) logf(lvl zerolog.Level, t TypeEnum, format string, args ...interface{}) {
	lp.sink(t).WithLevel(lvl).Str("type", typeNames[t]).Msgf(format, args...)
}

func (lp *LogProvider) Errorf(t TypeEnum, format string, args ...interface{}) {
	lp.logf(zerolog.ErrorLevel, t, format, args...)
}

func (lp *LogProvider) Warnf(t TypeEnum, format string, args ...interface{}) {
	lp.logf(zerolog.WarnLevel, t, format, args...)
}

func (lp *LogProvider) Infof(t TypeEnum, format string, args ...interface{}) {
	lp.logf(zerolog.InfoLevel, t, format, args...)
}

func (lp *LogProvider) Debugf(t TypeEnum, format string, args ...interface{}) {
	lp.logf(zerolog.DebugLevel, t, format, args...)
}

func (lp *LogProvider) Fatalf(t TypeEnum, format string, args ...interface{}) {
	lp.logf(zerolog.FatalLevel, t, format, args...)
	lp.Close()
	os.Exit(1)
}

func (lp *LogProvider) Close() {
	for _, f := range lp.files {
		_ = f.Close()
	}
	lp.files = nil
}
