package sl

import (
	"log/slog"
)

func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{
			Key:   "error",
			Value: slog.StringValue("nil"),
		}
	}
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

func Module(mod string) slog.Attr {
	return slog.Attr{
		Key:   "mod",
		Value: slog.StringValue(mod),
	}
}

// Secret logs only the first and last characters of a sensitive value.
func Secret(key, value string) slog.Attr {
	masked := "***"
	if len(value) > 8 {
		masked = value[:2] + "***" + value[len(value)-2:]
	}
	return slog.Attr{
		Key:   key,
		Value: slog.StringValue(masked),
	}
}
