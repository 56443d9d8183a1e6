package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

type logOptions struct {
	format    string // json | text
	level     slog.Level
	addSource bool
	file      string // optional copy of every line
}

// setupLogging installs the default slog logger and returns a func that
// closes the log file, if one was opened.
func setupLogging(o logOptions) (func(), error) {
	var w io.Writer = os.Stdout
	closeFn := func() {}
	if o.file != "" {
		f, err := os.OpenFile(o.file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		w = io.MultiWriter(os.Stdout, f)
		closeFn = func() { f.Close() }
	}

	handlerOpts := &slog.HandlerOptions{Level: o.level, AddSource: o.addSource}
	var h slog.Handler
	switch o.format {
	case "", "json":
		h = slog.NewJSONHandler(w, handlerOpts)
	case "text":
		h = slog.NewTextHandler(w, handlerOpts)
	default:
		return nil, fmt.Errorf("unknown log format %q (want json or text)", o.format)
	}
	slog.SetDefault(slog.New(h))
	return closeFn, nil
}
