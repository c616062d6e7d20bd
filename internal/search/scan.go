package search

import (
	"context"
	"strings"

	"cornerstone/api/internal/docstore"
)

// Scan is the fallback searcher. It lists each requested collection from
// the document store and does a case-insensitive substring match over the
// same fields Meilisearch would index. Fine at demo-data scale.
type Scan struct {
	store *docstore.Store
}

func NewScan(store *docstore.Store) *Scan {
	return &Scan{store: store}
}

func (s *Scan) Search(ctx context.Context, q Query) ([]Result, int, error) {
	needle := strings.ToLower(strings.TrimSpace(q.Text))
	if needle == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	var results []Result
	for _, spec := range indexSpecs() {
		if !wantsCollection(q, spec.collection) {
			continue
		}
		docs, err := s.store.List(ctx, spec.collection)
		if err != nil {
			return nil, 0, err
		}
		for _, doc := range docs {
			r, ok := matchDoc(doc, spec, needle)
			if ok {
				results = append(results, r)
			}
		}
	}

	total := len(results)
	if offset >= total {
		return nil, total, nil
	}
	results = results[offset:]
	if len(results) > limit {
		results = results[:limit]
	}
	return results, total, nil
}

func matchDoc(doc docstore.Doc, spec indexSpec, needle string) (Result, bool) {
	matched := ""
	for _, field := range spec.searchable {
		s, _ := doc.Data[field].(string)
		if s != "" && strings.Contains(strings.ToLower(s), needle) {
			matched = field
			break
		}
	}
	if matched == "" {
		return Result{}, false
	}

	title, _ := doc.Data[spec.titleField].(string)
	r := Result{Collection: spec.collection, ID: doc.ID, Title: title}
	if matched != spec.titleField {
		r.Snippet, _ = doc.Data[matched].(string)
	}
	return r, true
}
