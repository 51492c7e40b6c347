package importer

import (
	"context"
	"log/slog"
)

// ProductCreator submits one product record to the catalog backend and
// returns the catalog-assigned id. Satisfied by *catalog.Client.
type ProductCreator interface {
	CreateProduct(ctx context.Context, token string, rec *ProductRecord) (string, error)
}

// Outcome is the tagged result of one row submission. Exactly one of
// ID or Failure is set; a row is never partially imported.
type Outcome struct {
	ID      string // catalog-assigned id on success
	Failure string // human-readable reason on failure
}

// Failed reports whether the row was rejected.
func (o Outcome) Failed() bool {
	return o.Failure != ""
}

// RecordImporter submits mapped records to the catalog one at a time.
// Catalog rejections and transport failures are converted to Outcome
// values here; errors never propagate past this boundary.
type RecordImporter struct {
	client ProductCreator
}

// NewRecordImporter creates an importer backed by the given catalog client.
func NewRecordImporter(client ProductCreator) *RecordImporter {
	return &RecordImporter{client: client}
}

// ImportOne submits a single record. The failure reason is the catalog
// API's message when it provides one, the transport error's message
// otherwise, and "Unknown error" as a last resort.
//
// Referenced assets (image, GLB, USDZ, CAD URLs) are counted and logged
// only; download and attachment is not implemented.
func (ri *RecordImporter) ImportOne(ctx context.Context, token string, rec *ProductRecord) Outcome {
	if n := rec.AssetCount(); n > 0 {
		slog.Debug("skipping asset ingestion (not implemented)",
			"product", rec.Name,
			"assets", n,
		)
	}

	id, err := ri.client.CreateProduct(ctx, token, rec)
	if err != nil {
		reason := err.Error()
		if reason == "" {
			reason = "Unknown error"
		}
		return Outcome{Failure: reason}
	}

	return Outcome{ID: id}
}
