package engine

import (
	"context"

	"github.com/adobe/asset-compute-pipeline-sub000/pkg/pipeline"
)

// Terminal event names emitted once per rendition.
const (
	// EventRenditionCreated reports a successfully produced (and, when a
	// target was declared, uploaded) rendition.
	EventRenditionCreated = "rendition_created"
	// EventRenditionFailed reports a rendition that could not be produced.
	EventRenditionFailed = "rendition_failed"
)

// EventSink receives rendition lifecycle events. Implementations must not
// retain the payload map.
type EventSink interface {
	Emit(ctx context.Context, name string, payload map[string]interface{}) error
}

// MetricsSink receives aggregated activation metrics. Add accumulates fields
// into external per-activation state, Send flushes a metric of the given
// kind, and HandleError reports a classified failure.
type MetricsSink interface {
	Add(fields map[string]interface{})
	Send(ctx context.Context, kind string, fields map[string]interface{}) error
	HandleError(err error, location string)
}

// Transfer moves asset bytes across the HTTPS/data-URI boundary. Download
// materializes a source to a local file; Upload delivers a rendition to its
// declared target (single URL or multipart {urls}). Size-rejection failures
// must be classified as RenditionTooLarge.
type Transfer interface {
	Download(ctx context.Context, source *pipeline.Source, dest string) error
	Upload(ctx context.Context, rendition *pipeline.Rendition) error
}

// TempStorage issues short-lived cloud URLs for local files. Stored files
// are owned by the engine and released through Remove during cleanup.
type TempStorage interface {
	Store(ctx context.Context, localPath string) (url string, id string, err error)
	Remove(ctx context.Context, id string) error
}

// Prober extracts source metadata (width, height, orientation, type,
// duration) from a local file.
type Prober interface {
	Probe(ctx context.Context, path string) (map[string]interface{}, error)
}

// nullEvents drops all events.
type nullEvents struct{}

func (nullEvents) Emit(context.Context, string, map[string]interface{}) error { return nil }

// nullMetrics drops all metrics.
type nullMetrics struct{}

func (nullMetrics) Add(map[string]interface{}) {}

func (nullMetrics) Send(context.Context, string, map[string]interface{}) error { return nil }

func (nullMetrics) HandleError(error, string) {}

// nullTransfer fails any attempt to cross the transfer boundary; it stands
// in when no adapter was injected so that purely local plans still run.
type nullTransfer struct{}

func (nullTransfer) Download(context.Context, *pipeline.Source, string) error {
	return pipeline.NewGenericError("transfer", "no transfer adapter configured")
}

func (nullTransfer) Upload(context.Context, *pipeline.Rendition) error {
	return pipeline.NewGenericError("transfer", "no transfer adapter configured")
}

// nullStorage fails any attempt to use temporary cloud storage.
type nullStorage struct{}

func (nullStorage) Store(context.Context, string) (string, string, error) {
	return "", "", pipeline.NewGenericError("storage", "no temporary storage adapter configured")
}

func (nullStorage) Remove(context.Context, string) error { return nil }
