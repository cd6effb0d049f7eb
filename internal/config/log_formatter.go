package config

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// GbFormatter renders log entries as colored key=value lines.
type GbFormatter struct{}

const (
	colorRed         = 31
	colorGreen       = 32
	colorYellow      = 33
	colorBlue        = 36
	colorGray        = 37
	colorLightGreen  = 92
	colorLightYellow = 93
	colorCyan        = 96
)

func (f *GbFormatter) Format(entry *log.Entry) ([]byte, error) {
	levelColor := colorBlue
	switch entry.Level {
	case log.TraceLevel, log.DebugLevel:
		levelColor = colorGray
	case log.WarnLevel:
		levelColor = colorYellow
	case log.ErrorLevel, log.FatalLevel, log.PanicLevel:
		levelColor = colorRed
	}

	var out strings.Builder
	writePair(&out, "level", levelColor, strings.ToUpper(entry.Level.String())[:4])
	writePair(&out, "ts", colorLightYellow, entry.Time.Format("2006-01-02 15:04:05.000"))

	if _, file, line, ok := runtime.Caller(6); ok {
		writePair(&out, "source", colorLightYellow, fmt.Sprintf("%s:%d", file, line))
	}

	for key, val := range entry.Data {
		raw, err := json.Marshal(val)
		if err != nil || len(raw) == 0 {
			continue
		}
		s := string(raw)
		valueColor := colorCyan
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			valueColor = colorGreen
		} else if strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
			valueColor = colorLightYellow
		}
		writePair(&out, key, valueColor, s)
	}
	writePair(&out, "msg", colorLightGreen, fmt.Sprintf("%q", entry.Message))

	line := out.String()
	line = strings.ReplaceAll(line, "\r", `\r`)
	line = strings.ReplaceAll(line, "\n", `\n`)
	return []byte(line + "\n"), nil
}

func writePair(out *strings.Builder, key string, valueColor int, value string) {
	if out.Len() > 0 {
		out.WriteByte(' ')
	}
	fmt.Fprintf(out, "\x1b[%dm%s\x1b[0m=\x1b[%dm%s\x1b[0m", colorCyan, key, valueColor, value)
}
