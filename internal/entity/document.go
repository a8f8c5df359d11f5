package entity

import "github.com/google/uuid"

// PageImage is one rendered page of a source document. The engine treats
// the bytes as opaque; rasterization happens upstream.
type PageImage struct {
	Number    int    `json:"number"` // 1-based page number
	MediaType string `json:"media_type"`
	Data      []byte `json:"-"`
}

// Document is one input unit of work: a source file identity plus its
// rendered pages in order.
type Document struct {
	ID       uuid.UUID   `json:"id"`
	Filename string      `json:"filename"`
	Pages    []PageImage `json:"pages"`
}

// FirstPage returns the document's first page, used for vendor detection.
func (d Document) FirstPage() PageImage {
	if len(d.Pages) == 0 {
		return PageImage{}
	}
	return d.Pages[0]
}
