package search

import (
	"context"

	"github.com/rs/zerolog"

	"cornerstone/api/internal/docstore"
)

// Service tries Meilisearch first and falls back to scanning the document
// store when it is absent or unhealthy.
type Service struct {
	meili *Meili
	scan  *Scan
	log   zerolog.Logger
}

// NewService creates the facade. meili may be nil when no Meilisearch URL
// is configured.
func NewService(meili *Meili, scan *Scan, log zerolog.Logger) *Service {
	return &Service{meili: meili, scan: scan, log: log}
}

func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		s.log.Warn().Err(err).Msg("meilisearch error, falling back to store scan")
	}

	results, total, err := s.scan.Search(ctx, q)
	if err != nil {
		s.log.Error().Err(err).Msg("store scan search failed")
		return Response{Results: []Result{}, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexRecord pushes one record to Meilisearch, fire-and-forget. The scan
// fallback reads live data and needs no indexing.
func (s *Service) IndexRecord(collection string, record map[string]any) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexRecord(collection, record); err != nil {
			s.log.Warn().Err(err).Str("collection", collection).Msg("index record")
		}
	}()
}

// DeleteRecord removes one record from Meilisearch, fire-and-forget.
func (s *Service) DeleteRecord(collection, id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteRecord(collection, id); err != nil {
			s.log.Warn().Err(err).Str("collection", collection).Str("id", id).Msg("delete record from index")
		}
	}()
}

// Reindex bulk-loads every indexed collection from the store into
// Meilisearch. Called at startup after seeding.
func (s *Service) Reindex(ctx context.Context, store *docstore.Store) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	for _, spec := range indexSpecs() {
		docs, err := store.List(ctx, spec.collection)
		if err != nil {
			s.log.Warn().Err(err).Str("collection", spec.collection).Msg("reindex load failed")
			continue
		}
		records := make([]map[string]any, 0, len(docs))
		for _, doc := range docs {
			records = append(records, IndexableRecord(doc))
		}
		if err := s.meili.IndexRecords(spec.collection, records); err != nil {
			s.log.Warn().Err(err).Str("collection", spec.collection).Msg("reindex push failed")
		}
	}
}

// IndexableRecord flattens a stored document into the map shape the search
// index holds, with the reserved fields included.
func IndexableRecord(doc docstore.Doc) map[string]any {
	record := make(map[string]any, len(doc.Data)+3)
	for k, v := range doc.Data {
		record[k] = v
	}
	record["id"] = doc.ID
	record["createdAt"] = doc.CreatedAt
	record["updatedAt"] = doc.UpdatedAt
	return record
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
