// Package logging builds the process logger shared by the commands.
package logging

import (
    "fmt"
    "io"
    "os"
    "time"

    rotatelogs "github.com/lestrrat-go/file-rotatelogs"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/room-reservation/internal/config"
)

// New returns a logger configured from cfg.  When cfg.LogFile is set the
// output goes to a daily rotated file as well as stderr.
func New(cfg config.Config) (*logrus.Logger, error) {
    l := logrus.New()
    lvl, err := logrus.ParseLevel(cfg.LogLevel)
    if err != nil {
        return nil, fmt.Errorf("log level: %w", err)
    }
    l.SetLevel(lvl)

    switch cfg.LogFormat {
    case "text":
        l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
    default:
        l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
    }

    if cfg.LogFile == "" {
        l.SetOutput(os.Stderr)
        return l, nil
    }
    w, err := rotatelogs.New(
        cfg.LogFile+".%Y%m%d",
        rotatelogs.WithLinkName(cfg.LogFile),
        rotatelogs.WithRotationTime(24*time.Hour),
        rotatelogs.WithMaxAge(7*24*time.Hour),
    )
    if err != nil {
        return nil, fmt.Errorf("log file: %w", err)
    }
    l.SetOutput(io.MultiWriter(os.Stderr, w))
    return l, nil
}
