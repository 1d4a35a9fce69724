package model

import "time"

// UploadPayload is the body sent to the upload endpoint for one file.
type UploadPayload struct {
	GUID         string         `json:"guid"`
	OrigFileName string         `json:"origFileName"`
	OrigFileExt  string         `json:"origFileExt"`
	OrigMime     string         `json:"origMime"`
	OrigSize     int64          `json:"origSize"`
	OrigWidth    int            `json:"origWidth"`
	OrigHeight   int            `json:"origHeight"`
	OrigDate     time.Time      `json:"origDate"`
	FileHash     string         `json:"fileHash"`
	FileExt      string         `json:"fileExt"`
	FileMime     string         `json:"fileMime"`
	FileSize     int64          `json:"fileSize"`
	FileWidth    int            `json:"fileWidth"`
	FileHeight   int            `json:"fileHeight"`
	Meta         map[string]any `json:"meta,omitempty"`

	// Data is the encoded file content as a base64 data URL.
	Data string `json:"base64data"`
}

// Status values of an UploadResponse.
const (
	ResponseStatusOK    = "ok"
	ResponseStatusError = "error"
)

// UploadResponse is the server reply to an UploadPayload.
type UploadResponse struct {
	Status   string `json:"status"`
	Filename string `json:"filename,omitempty"`
	URL      string `json:"url,omitempty"`
	Error    string `json:"error,omitempty"`
}

// OK reports whether the server accepted the file.
func (r UploadResponse) OK() bool {
	return r.Status == ResponseStatusOK
}
