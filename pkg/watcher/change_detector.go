package watcher

import (
	"context"
	"fmt"
	"time"

	"github.com/ritzau/depscope/pkg/logging"
)

// ChangeAnalysis describes what changed and whether a rescan is needed
type ChangeAnalysis struct {
	NeedRescan   bool
	Reason       string
	ChangedFiles []string
}

// AnalyzeChanges decides whether a debounced event warrants a new scan
func AnalyzeChanges(event ChangeEvent) *ChangeAnalysis {
	analysis := &ChangeAnalysis{
		ChangedFiles: event.Paths,
	}

	switch event.Type {
	case ChangeTypeIndex:
		// CMake writes the index last, so a new index means a complete reply set
		analysis.NeedRescan = true
		analysis.Reason = fmt.Sprintf("index changed (%d files)", len(event.Paths))

	case ChangeTypeReplyDir:
		// New watches were added; the index event that follows triggers the scan
		analysis.Reason = "reply directory appeared"
	}

	return analysis
}

// Options configures Watch
type Options struct {
	QuietPeriod time.Duration
	MaxWait     time.Duration
}

// DefaultOptions are the debounce settings used by the CLI
var DefaultOptions = Options{
	QuietPeriod: 500 * time.Millisecond,
	MaxWait:     5 * time.Second,
}

// Watch calls rescan for every debounced index change under buildDir until
// ctx is cancelled. Rescans run one at a time on the calling goroutine.
func Watch(ctx context.Context, buildDir string, opts Options, rescan func(ctx context.Context, reason string)) error {
	fw, err := NewFileWatcher(buildDir)
	if err != nil {
		return err
	}
	defer fw.Stop()

	if err := fw.Start(ctx); err != nil {
		return err
	}

	debouncer := NewDebouncer(fw.Events(), opts.QuietPeriod, opts.MaxWait)
	debouncer.Start(ctx)

	for event := range debouncer.Output() {
		analysis := AnalyzeChanges(event)
		logging.Debug("change detected", "type", event.Type.String(), "reason", analysis.Reason, "rescan", analysis.NeedRescan)
		if analysis.NeedRescan {
			rescan(ctx, analysis.Reason)
		}
	}

	return ctx.Err()
}
