package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// sink proxies writes to the current output so tests can redirect it
// after package init.
type sink struct{}

var (
	mu  sync.RWMutex
	out io.Writer = os.Stdout
)

func (sink) Write(p []byte) (int, error) {
	mu.RLock()
	defer mu.RUnlock()
	return out.Write(p)
}

var log = zerolog.New(zerolog.ConsoleWriter{
	Out:        sink{},
	TimeFormat: "15:04:05",
	NoColor:    os.Getenv("NO_COLOR") != "",
}).With().Timestamp().Logger()

// SetOutput redirects all logger output. Intended for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// Info logs an informational message under a component tag.
func Info(tag, msg string) {
	log.Info().Str("tag", tag).Msg(msg)
}

// Success logs a completed operation under a component tag.
func Success(tag, msg string) {
	log.Info().Str("tag", tag).Str("status", "ok").Msg(msg)
}

// Warn logs a recoverable problem under a component tag.
func Warn(tag, msg string) {
	log.Warn().Str("tag", tag).Msg(msg)
}

// Error logs a failure under a component tag.
func Error(tag, msg string) {
	log.Error().Str("tag", tag).Msg(msg)
}

// Banner prints the startup banner.
func Banner(version string) {
	if version == "" {
		version = "dev"
	}
	fmt.Fprintf(sink{}, "\n  EVE Data Hub %s\n  market viewer backend\n\n", version)
}

// Section prints a titled divider for grouped startup output.
func Section(title string) {
	fmt.Fprintf(sink{}, "\n── %s %s\n", title, strings.Repeat("─", max(0, 40-len(title))))
}

// Stats prints a single key/count line inside a Section.
func Stats(key string, value int) {
	fmt.Fprintf(sink{}, "   %-16s %d\n", key, value)
}

// Server announces the listen address.
func Server(addr string) {
	log.Info().Str("tag", "Server").Msg("Listening on http://" + addr)
}
