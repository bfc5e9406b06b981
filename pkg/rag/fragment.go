package rag

import "fmt"

// Metadata keys carried by fragments.
const (
	MetaDocumentID = "document_id"
	MetaFileName   = "file_name"
	MetaPage       = "page"
	MetaTopicID    = "topic_id"
	MetaChunkIndex = "chunk_index"
	MetaSimilarity = "similarity"
)

// Fragment is a retrievable unit of text plus its source metadata.
type Fragment struct {
	Content     string
	Metadata    map[string]any
	Score       *float64 // vector similarity, when known
	RerankScore *float64
}

// Identity is the dedup key of a fragment.
type Identity struct {
	Content    string
	DocumentID string
	Page       string
}

func (f Fragment) Identity() Identity {
	return Identity{
		Content:    f.Content,
		DocumentID: f.DocumentID(),
		Page:       metaString(f.Metadata, MetaPage),
	}
}

func (f Fragment) DocumentID() string {
	return metaString(f.Metadata, MetaDocumentID)
}

// FileName falls back to "?" when the source file is unknown.
func (f Fragment) FileName() string {
	if name := metaString(f.Metadata, MetaFileName); name != "" {
		return name
	}
	return "?"
}

// WithRerankScore returns a copy carrying score. Metadata is shared.
func (f Fragment) WithRerankScore(score float64) Fragment {
	f.RerankScore = &score
	return f
}

func metaString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprint(t)
	default:
		return fmt.Sprint(t)
	}
}

// MetaString reads a metadata value as a string, "" when absent.
func MetaString(m map[string]any, key string) string {
	return metaString(m, key)
}
