package driven

import (
	"context"

	"github.com/ericfisherdev/prminer/internal/domain/model"
)

// ReportWriter publishes the summary produced at the end of a watcher pass.
type ReportWriter interface {
	WriteReport(ctx context.Context, summary model.Summary) error
}
