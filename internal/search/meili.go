package search

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
	"github.com/rs/zerolog"
)

const indexPrefix = "cornerstone_"

// Meili indexes collection records in Meilisearch. A background loop
// tracks reachability so the facade can fall back while it is down.
type Meili struct {
	client  meili.ServiceManager
	log     zerolog.Logger
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the per-collection
// indexes. An unreachable server is not an error; the client starts
// unhealthy and recovers when the health loop sees the server again.
func NewMeili(url, apiKey string, log zerolog.Logger) *Meili {
	m := &Meili{
		client: meili.New(url, meili.WithAPIKey(apiKey)),
		log:    log,
		done:   make(chan struct{}),
	}

	if _, err := m.client.Health(); err != nil {
		log.Warn().Err(err).Str("url", url).Msg("meilisearch unavailable")
	} else {
		m.healthy.Store(true)
		m.configureIndexes()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndexes() {
	for _, spec := range indexSpecs() {
		uid := indexPrefix + spec.collection
		if _, err := m.client.CreateIndex(&meili.IndexConfig{Uid: uid, PrimaryKey: "id"}); err != nil {
			m.log.Debug().Err(err).Str("index", uid).Msg("create index (may already exist)")
		}

		index := m.client.Index(uid)
		filterable := make([]interface{}, len(spec.filterable))
		for i, f := range spec.filterable {
			filterable[i] = f
		}
		if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
			m.log.Warn().Err(err).Str("index", uid).Msg("update filterable attributes")
		}
		searchable := spec.searchable
		if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
			m.log.Warn().Err(err).Str("index", uid).Msg("update searchable attributes")
		}
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.log.Info().Msg("meilisearch recovered, reconfiguring indexes")
				m.configureIndexes()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// IndexRecord adds or updates one record. The record map must carry the
// store-assigned id field.
func (m *Meili) IndexRecord(collection string, record map[string]any) error {
	if _, ok := specFor(collection); !ok {
		return nil
	}
	_, err := m.client.Index(indexPrefix + collection).AddDocuments([]map[string]any{record}, nil)
	return err
}

// DeleteRecord removes one record from its collection index.
func (m *Meili) DeleteRecord(collection, id string) error {
	if _, ok := specFor(collection); !ok {
		return nil
	}
	_, err := m.client.Index(indexPrefix + collection).DeleteDocument(id, nil)
	return err
}

// IndexRecords bulk-indexes a collection, used when reseeding.
func (m *Meili) IndexRecords(collection string, records []map[string]any) error {
	if len(records) == 0 {
		return nil
	}
	if _, ok := specFor(collection); !ok {
		return nil
	}
	_, err := m.client.Index(indexPrefix + collection).AddDocuments(records, nil)
	return err
}

// Search fans the query out across the requested collection indexes and
// merges the hits.
func (m *Meili) Search(q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	limit := int64(q.Limit)
	if limit == 0 {
		limit = 20
	}

	var queries []*meili.SearchRequest
	var specs []indexSpec
	for _, spec := range indexSpecs() {
		if !wantsCollection(q, spec.collection) {
			continue
		}
		specs = append(specs, spec)
		queries = append(queries, &meili.SearchRequest{
			IndexUID: indexPrefix + spec.collection,
			Query:    q.Text,
			Limit:    limit,
			Offset:   int64(q.Offset),
		})
	}
	if len(queries) == 0 {
		return nil, 0, nil
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{Queries: queries})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch multi-search: %w", err)
	}

	var results []Result
	total := 0
	for i, sr := range resp.Results {
		total += int(sr.EstimatedTotalHits)
		spec := specs[i]
		for _, hit := range sr.Hits {
			results = append(results, hitToResult(hit, spec))
		}
	}
	return results, total, nil
}

func hitToResult(hit meili.Hit, spec indexSpec) Result {
	r := Result{
		Collection: spec.collection,
		ID:         decodeString(hit, "id"),
		Title:      decodeString(hit, spec.titleField),
	}
	for _, field := range spec.searchable {
		if field == spec.titleField {
			continue
		}
		if s := decodeString(hit, field); strings.TrimSpace(s) != "" {
			r.Snippet = s
			break
		}
	}
	return r
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}
