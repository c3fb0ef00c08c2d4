package cli

import (
	"os"

	"github.com/rs/zerolog"
)

func newLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
