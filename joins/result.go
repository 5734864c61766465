package joins

import "github.com/xompass/vsaas-joins/database"

// Result is a resolved join. Single joins fill Document, multiple joins fill
// Documents.
type Result struct {
	Multiple  bool
	Document  database.IModel
	Documents []database.IModel
}

// IsNull reports whether the join resolved to nothing.
func (r Result) IsNull() bool {
	if r.Multiple {
		return len(r.Documents) == 0
	}
	return r.Document == nil
}

// Value returns the document, the list of documents (never nil) or nil.
func (r Result) Value() any {
	if r.Multiple {
		if r.Documents == nil {
			return []database.IModel{}
		}
		return r.Documents
	}
	if r.Document == nil {
		return nil
	}
	return r.Document
}

// Len is the number of documents resolved.
func (r Result) Len() int {
	if r.Multiple {
		return len(r.Documents)
	}
	if r.Document == nil {
		return 0
	}
	return 1
}

// One returns the resolved document as a T. It reports false when the join
// resolved to nothing or to a different type.
func One[T any](result Result) (T, bool) {
	var zero T
	if result.Document == nil {
		return zero, false
	}
	doc, ok := result.Document.(T)
	return doc, ok
}

// Many returns the resolved documents as Ts. It reports false when any of
// them is not a T.
func Many[T any](result Result) ([]T, bool) {
	docs := make([]T, 0, len(result.Documents))
	for _, item := range result.Documents {
		doc, ok := item.(T)
		if !ok {
			return nil, false
		}
		docs = append(docs, doc)
	}
	return docs, true
}
