package xcorrsound

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with xcorrsound-specific helpers.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithRecording adds a recording field to the logger.
func (l *Logger) WithRecording(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("recording", id),
	}
}

// WithShard adds a shard field to the logger.
func (l *Logger) WithShard(shard int) *Logger {
	return &Logger{
		Logger: l.Logger.With("shard", shard),
	}
}

// LogAdd logs the addition of a recording.
func (l *Logger) LogAdd(ctx context.Context, id string, prints, chunks int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "add recording failed",
			"recording", id,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "recording added",
			"recording", id,
			"prints", prints,
			"chunks", chunks,
		)
	}
}

// LogSearch logs a search.
func (l *Logger) LogSearch(ctx context.Context, snippet string, prints, subChunks, hits int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"snippet", snippet,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "search completed",
			"snippet", snippet,
			"prints", prints,
			"sub_chunks", subChunks,
			"hits", hits,
			"duration", duration,
		)
	}
}

// LogOverlapRisk warns that a snippet is longer than the chunk overlap of the
// index, so a match straddling two chunks may be missed.
func (l *Logger) LogOverlapRisk(ctx context.Context, snippetPrints, chunkOverlap int) {
	l.WarnContext(ctx, "snippet longer than chunk overlap, matches across chunk boundaries may be missed",
		"snippet_prints", snippetPrints,
		"chunk_overlap", chunkOverlap,
	)
}

// LogEmptySnippet logs a chunked search whose skips consume the whole snippet.
func (l *Logger) LogEmptySnippet(ctx context.Context, snippet string, prints, preSkip, postSkip int) {
	l.WarnContext(ctx, "skips cover the whole snippet, returning no hits",
		"snippet", snippet,
		"prints", prints,
		"pre_skip", preSkip,
		"post_skip", postSkip,
	)
}

// LogShardFailure logs a shard that failed or timed out during an archive search.
func (l *Logger) LogShardFailure(ctx context.Context, shard int, err error) {
	l.WarnContext(ctx, "shard search failed",
		"shard", shard,
		"error", err,
	)
}

// LogSnapshot logs a save or load of a Discovery.
func (l *Logger) LogSnapshot(ctx context.Context, op, name string, recordings int, err error) {
	if err != nil {
		l.ErrorContext(ctx, op+" failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, op+" completed",
			"name", name,
			"recordings", recordings,
		)
	}
}
