package main

import (
	"fmt"
	"io"

	"awaitrt/internal/observ"
)

func printReport(out io.Writer, phases *observ.Timer, stats *observ.Stats, includeTimings, includeStats bool) {
	if out == nil {
		return
	}
	var printErr error
	if includeTimings && phases != nil {
		_, printErr = fmt.Fprint(out, phases.Summary())
		if printErr != nil {
			panic(printErr)
		}
	}
	if includeStats && stats != nil {
		_, printErr = fmt.Fprint(out, stats.Snapshot().Summary())
		if printErr != nil {
			panic(printErr)
		}
	}
}
