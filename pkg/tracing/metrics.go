package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opencensus.io/plugin/ochttp"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

var (
	KeyFormat    = tag.MustNewKey("format")
	KeyOperation = tag.MustNewKey("operation")
	KeyResult    = tag.MustNewKey("result")
)

var (
	MeasureExportLatency = stats.Float64("designer/export/latency", "Time to produce an export", stats.UnitMilliseconds)
	MeasureEditorOps     = stats.Int64("designer/editor/operations", "Editor operations applied", stats.UnitDimensionless)
	MeasureAutoSaves     = stats.Int64("designer/editor/autosaves", "Auto-save attempts", stats.UnitDimensionless)
)

var (
	ExportLatencyView = &view.View{
		Name:        "designer/export/latency",
		Measure:     MeasureExportLatency,
		Description: "Export latency by format and result",
		TagKeys:     []tag.Key{KeyFormat, KeyResult},
		Aggregation: view.Distribution(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500),
	}
	ExportCountView = &view.View{
		Name:        "designer/export/count",
		Measure:     MeasureExportLatency,
		Description: "Exports by format and result",
		TagKeys:     []tag.Key{KeyFormat, KeyResult},
		Aggregation: view.Count(),
	}
	EditorOpsView = &view.View{
		Name:        "designer/editor/operations",
		Measure:     MeasureEditorOps,
		Description: "Editor operations by kind",
		TagKeys:     []tag.Key{KeyOperation},
		Aggregation: view.Count(),
	}
	AutoSaveView = &view.View{
		Name:        "designer/editor/autosaves",
		Measure:     MeasureAutoSaves,
		Description: "Auto-save attempts by result",
		TagKeys:     []tag.Key{KeyResult},
		Aggregation: view.Count(),
	}
)

// RegisterViews registers the designer views and the HTTP server views
func RegisterViews() error {
	if err := view.Register(ExportLatencyView, ExportCountView, EditorOpsView, AutoSaveView); err != nil {
		return fmt.Errorf("failed to register designer views: %w", err)
	}
	if err := view.Register(ochttp.DefaultServerViews...); err != nil {
		return fmt.Errorf("failed to register HTTP server views: %w", err)
	}
	return nil
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordExport records one export of the given format
func RecordExport(ctx context.Context, format string, elapsed time.Duration, err error) {
	_ = stats.RecordWithTags(ctx,
		[]tag.Mutator{tag.Upsert(KeyFormat, format), tag.Upsert(KeyResult, result(err))},
		MeasureExportLatency.M(float64(elapsed)/float64(time.Millisecond)),
	)
}

// RecordEditorOperation records one applied editor operation
func RecordEditorOperation(ctx context.Context, operation string) {
	_ = stats.RecordWithTags(ctx,
		[]tag.Mutator{tag.Upsert(KeyOperation, operation)},
		MeasureEditorOps.M(1),
	)
}

// RecordAutoSave records one auto-save attempt
func RecordAutoSave(ctx context.Context, err error) {
	_ = stats.RecordWithTags(ctx,
		[]tag.Mutator{tag.Upsert(KeyResult, result(err))},
		MeasureAutoSaves.M(1),
	)
}
