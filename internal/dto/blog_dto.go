package dto

import "encoding/json"

// CreateBlogRequest is the editor payload. Content is the editor document,
// kept opaque apart from its blocks array.
type CreateBlogRequest struct {
	Title   string          `json:"title"`
	Des     string          `json:"des"`
	Banner  string          `json:"banner"`
	Tags    []string        `json:"tags"`
	Content json.RawMessage `json:"content"`
	Draft   bool            `json:"draft"`
}

type CreateBlogResponse struct {
	ID string `json:"id"`
}

type CheckDuplicateTitleRequest struct {
	Title string `json:"title"`
}

type CheckDuplicateTitleResponse struct {
	Duplicate bool `json:"duplicate"`
}

type UploadURLResponse struct {
	UploadURL string `json:"uploadURL"`
}
