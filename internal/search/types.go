// Package search provides cross-collection text search, backed by
// Meilisearch when reachable and a document-store scan otherwise.
package search

// Query is a free-text search over one or more collections. An empty
// Collections slice searches everything indexed.
type Query struct {
	Text        string
	Collections []string
	Limit       int
	Offset      int
}

// Result is one hit. Title and Snippet are drawn from the collection's
// primary text fields.
type Result struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
	Title      string `json:"title"`
	Snippet    string `json:"snippet,omitempty"`
}

type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// indexSpec names the fields Meilisearch indexes per collection and the
// fields the scan fallback inspects. titleField supplies Result.Title.
type indexSpec struct {
	collection string
	titleField string
	searchable []string
	filterable []string
}

func indexSpecs() []indexSpec {
	return []indexSpec{
		{
			collection: "tasks",
			titleField: "title",
			searchable: []string{"title", "description", "category"},
			filterable: []string{"status", "priority", "assignee"},
		},
		{
			collection: "leads",
			titleField: "firstName",
			searchable: []string{"firstName", "lastName", "company", "email", "notes"},
			filterable: []string{"status", "assignedTo"},
		},
		{
			collection: "meetings",
			titleField: "title",
			searchable: []string{"title", "description", "agenda", "location"},
			filterable: []string{"status"},
		},
		{
			collection: "documents",
			titleField: "name",
			searchable: []string{"name", "category"},
			filterable: []string{"type", "parentId"},
		},
	}
}

func specFor(collection string) (indexSpec, bool) {
	for _, spec := range indexSpecs() {
		if spec.collection == collection {
			return spec, true
		}
	}
	return indexSpec{}, false
}

func wantsCollection(q Query, collection string) bool {
	if len(q.Collections) == 0 {
		return true
	}
	for _, c := range q.Collections {
		if c == collection {
			return true
		}
	}
	return false
}
