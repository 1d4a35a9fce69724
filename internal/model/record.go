package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the upload lifecycle state of a FileRecord.
type Status string

const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
)

// validTransitions holds the allowed target states for every state.
// success and error are terminal.
var validTransitions = map[Status]map[Status]bool{
	StatusPending:   {StatusUploading: true},
	StatusUploading: {StatusSuccess: true, StatusError: true},
	StatusSuccess:   {},
	StatusError:     {},
}

// Valid reports whether s is one of the known states.
func (s Status) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

// Terminal reports whether no further transition is possible from s.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusError
}

// TransitionError is returned when a status change is not allowed.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

// FileRecord tracks one submitted file from selection to its upload outcome.
// The Orig* fields describe the file as selected, the File* fields describe
// the payload that is actually sent.
type FileRecord struct {
	GUID string `json:"guid"`

	OrigFileName string    `json:"origFileName"`
	OrigFileExt  string    `json:"origFileExt"`
	OrigMime     string    `json:"origMime"`
	OrigSize     int64     `json:"origSize"`
	OrigWidth    int       `json:"origWidth"`
	OrigHeight   int       `json:"origHeight"`
	OrigDate     time.Time `json:"origDate"`

	FileHash   string `json:"fileHash"`
	FileExt    string `json:"fileExt"`
	FileMime   string `json:"fileMime"`
	FileSize   int64  `json:"fileSize"`
	FileWidth  int    `json:"fileWidth"`
	FileHeight int    `json:"fileHeight"`

	// Thumb is the encoded thumbnail, empty when none was requested.
	Thumb string `json:"thumb,omitempty"`

	Status   Status `json:"status"`
	Progress int    `json:"progress"`
	Error    string `json:"error"`

	// Filename and URL are assigned by the server on success.
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// NewFileRecord returns a pending record with a fresh GUID.
func NewFileRecord() *FileRecord {
	return &FileRecord{
		GUID:   uuid.NewString(),
		Status: StatusPending,
	}
}

// Transition moves the record to the target status and resets the fields
// that must stay empty in that state.
func (r *FileRecord) Transition(to Status) error {
	if !validTransitions[r.Status][to] {
		return &TransitionError{From: r.Status, To: to}
	}
	r.Status = to
	switch to {
	case StatusUploading:
		r.Progress = 0
		r.Error = ""
		r.Filename = ""
		r.URL = ""
	case StatusSuccess:
		r.Progress = 100
		r.Error = ""
	case StatusError:
		r.Progress = 0
		r.Filename = ""
		r.URL = ""
	}
	return nil
}

// Succeed marks an uploading record as uploaded.
func (r *FileRecord) Succeed(filename, url string) error {
	if err := r.Transition(StatusSuccess); err != nil {
		return err
	}
	r.Filename = filename
	r.URL = url
	return nil
}

// Fail marks an uploading record as failed with the given message.
func (r *FileRecord) Fail(msg string) error {
	if err := r.Transition(StatusError); err != nil {
		return err
	}
	r.Error = msg
	return nil
}

// SetProgress updates the progress of an uploading record, clamped to [0,100].
func (r *FileRecord) SetProgress(p int) {
	if r.Status != StatusUploading {
		return
	}
	r.Progress = min(max(p, 0), 100)
}

// Payload builds the outbound body for this record. Client-local bookkeeping
// (thumb, status, progress, error, filename, url) is never included.
func (r *FileRecord) Payload(data string, meta map[string]any) UploadPayload {
	return UploadPayload{
		GUID:         r.GUID,
		OrigFileName: r.OrigFileName,
		OrigFileExt:  r.OrigFileExt,
		OrigMime:     r.OrigMime,
		OrigSize:     r.OrigSize,
		OrigWidth:    r.OrigWidth,
		OrigHeight:   r.OrigHeight,
		OrigDate:     r.OrigDate,
		FileHash:     r.FileHash,
		FileExt:      r.FileExt,
		FileMime:     r.FileMime,
		FileSize:     r.FileSize,
		FileWidth:    r.FileWidth,
		FileHeight:   r.FileHeight,
		Meta:         meta,
		Data:         data,
	}
}
