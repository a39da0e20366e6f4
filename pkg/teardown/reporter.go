package teardown

import (
	"github.com/letsgo-sh/ops/pkg/log"
	"github.com/letsgo-sh/ops/pkg/types"
)

// Reporter is called for every named operation a deleter performs.
// Implementations must be safe for concurrent use.
type Reporter func(category types.ArtifactCategory, step string)

// LogReporter returns a Reporter that writes each step to logger at info
// level.
func LogReporter(logger log.Logger) Reporter {
	return func(category types.ArtifactCategory, step string) {
		logger.Info(step, log.Category(string(category)))
	}
}

// NopReporter discards every step.
func NopReporter(types.ArtifactCategory, string) {}
