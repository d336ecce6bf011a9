package domain

// Document is a fetched decision document.
type Document struct {
	ID   string
	URL  string
	Body []byte
	// Source is SourceCache when the document was served from the cache.
	Source Source
}
