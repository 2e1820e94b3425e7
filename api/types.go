// Package api is the HTTP client for the remote file service.
package api

// Item is one remote file as returned by a list endpoint.
type Item struct {
	ID          int64  `json:"id"`
	Name        string `json:"name,omitempty"`
	DirectLink  string `json:"direct_link"`
	HasPreview  bool   `json:"has_preview,omitempty"`
	PreviewLink string `json:"preview_link,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

// DisplayName falls back to the last path element of the link.
func (i Item) DisplayName() string {
	if i.Name != "" {
		return i.Name
	}
	return nameFromLink(i.DirectLink)
}

// Page is one page of a listing.
type Page struct {
	Items    []Item `json:"items"`
	Total    int    `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

// Blob is a downloaded payload.
type Blob struct {
	Name        string
	ContentType string
	Data        []byte
}

type idsRequest struct {
	IDs []int64 `json:"ids"`
}
