package models

type UploadFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// UploadResult is the outcome for one file of a batch upload. Exactly one of
// URL and Error is set.
type UploadResult struct {
	Filename string `json:"filename"`
	URL      string `json:"url,omitempty"`
	Error    string `json:"error,omitempty"`
}
