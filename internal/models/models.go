package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// CaptureMode is the input surface a capture session is using
type CaptureMode string

const (
	ModeUpload CaptureMode = "upload"
	ModeWebcam CaptureMode = "webcam"
	ModeText   CaptureMode = "text"
)

// Valid reports whether m is one of the known capture modes
func (m CaptureMode) Valid() bool {
	return m == ModeUpload || m == ModeWebcam || m == ModeText
}

// APIMode maps the capture mode to the analysis mode the backend understands
func (m CaptureMode) APIMode() string {
	if m == ModeText {
		return "text"
	}
	return "image"
}

// SourceKind tells whether a staged page carries image bytes or raw text
type SourceKind string

const (
	SourceImage SourceKind = "image"
	SourceText  SourceKind = "text"
)

// SubmitStatus is the observable state of a capture session
type SubmitStatus string

const (
	StatusIdle       SubmitStatus = "idle"
	StatusSubmitting SubmitStatus = "submitting"
	StatusSucceeded  SubmitStatus = "succeeded"
	StatusFailed     SubmitStatus = "failed"
)

// FileRef points at the raw file a staged page was read from
type FileRef struct {
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
	Size      int64  `json:"size"`
}

// StagedPage is one input item waiting to be submitted
type StagedPage struct {
	ID         string     `json:"id"`
	SourceKind SourceKind `json:"source_kind"`
	// Data holds the decoded file bytes for uploads. Empty for camera frames.
	Data []byte `json:"-"`
	// Frame holds a data URL ("data:image/jpeg;base64,...") for camera frames.
	Frame      string    `json:"-"`
	Text       string    `json:"text,omitempty"`
	OriginFile *FileRef  `json:"origin_file,omitempty"`
	AddedAt    time.Time `json:"added_at"`
}

// Folder is a named, colored container of notes
type Folder struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Color      string `json:"color"`
	CreatedAt  string `json:"created_at"`
	CreatedBy  string `json:"created_by,omitempty"`
	IsFavorite bool   `json:"is_favorite"`
}

// Created parses the folder creation timestamp. The second return value is
// false when the timestamp is missing or unparseable.
func (f Folder) Created() (time.Time, bool) {
	return ParseTimestamp(f.CreatedAt)
}

// Note is the structured result of one successful analysis
type Note struct {
	ID        int64    `json:"id"`
	FolderID  int64    `json:"folder_id"`
	Data      NoteData `json:"data"`
	CreatedAt string   `json:"created_at"`
}

// Created parses the note creation timestamp
func (n Note) Created() (time.Time, bool) {
	return ParseTimestamp(n.CreatedAt)
}

// DisplayDate formats the creation date as "Jan 2, 2006", or "" when unknown
func (n Note) DisplayDate() string {
	t, ok := n.Created()
	if !ok {
		return ""
	}
	return t.Format("Jan 2, 2006")
}

// NoteData holds the analysis fields. The backend is free to return strings,
// objects or lists for most of them, so they are kept raw.
type NoteData struct {
	CustomerInformation json.RawMessage `json:"customer_information,omitempty"`
	ExecutiveSummary    json.RawMessage `json:"executive_summary,omitempty"`
	ProductDetails      json.RawMessage `json:"product_details,omitempty"`
	PricingInformation  json.RawMessage `json:"pricing_information,omitempty"`
	ActionItems         json.RawMessage `json:"action_items,omitempty"`
	AdditionalNotes     json.RawMessage `json:"additional_notes,omitempty"`
}

// Customer returns the customer information as display text
func (d NoteData) Customer() string {
	return SafeString(d.CustomerInformation)
}

// HasPricing reports whether the pricing field carries a value
func (d NoteData) HasPricing() bool {
	return truthy(d.PricingInformation)
}

// HasProductDetails reports whether the product details field carries a value
func (d NoteData) HasProductDetails() bool {
	return truthy(d.ProductDetails)
}

// ActionItemCount returns the number of action items, zero when the field is
// absent or not a list
func (d NoteData) ActionItemCount() int {
	var items []json.RawMessage
	if err := json.Unmarshal(d.ActionItems, &items); err != nil {
		return 0
	}
	return len(items)
}

// SafeString renders an arbitrary JSON value as display text. Empty values
// become "N/A"; objects are rendered as their comma-joined string values.
func SafeString(raw json.RawMessage) string {
	if !truthy(raw) {
		return "N/A"
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	if parts, ok := objectStringValues(raw); ok {
		if len(parts) > 0 {
			return strings.Join(parts, ", ")
		}
		return string(raw)
	}
	return string(raw)
}

// objectStringValues returns the string-typed member values of a JSON object
// in document order
func objectStringValues(raw json.RawMessage) ([]string, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil || tok != json.Delim('{') {
		return nil, false
	}

	var parts []string
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil, false
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, false
		}
		var s string
		if err := json.Unmarshal(value, &s); err == nil {
			parts = append(parts, s)
		}
	}
	return parts, true
}

func truthy(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	switch trimmed {
	case "", "null", "false", `""`, "0":
		return false
	}
	return true
}

// AnalysisRequest is the single outbound request built from a capture session
type AnalysisRequest struct {
	FolderID     int64
	Mode         string
	Merge        bool
	TextContent  string
	CustomPrompt string
	Files        []UploadFile
}

// UploadFile is a transportable file part of an analysis request
type UploadFile struct {
	Name      string
	MediaType string
	Data      []byte
}

// User is the identity the backend reports for the current operator
type User struct {
	Username string `json:"username"`
}

// GuestUser stands in when the backend cannot identify the operator
var GuestUser = User{Username: "Guest User"}

// Initials returns the first letter of the first and last words, upper-cased
func (u User) Initials() string {
	parts := strings.Fields(u.Username)
	if len(parts) == 0 {
		return ""
	}
	init := string([]rune(parts[0])[:1])
	if len(parts) > 1 {
		init += string([]rune(parts[len(parts)-1])[:1])
	}
	return strings.ToUpper(init)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts the timestamp shapes the backend has been seen to
// emit. Timestamps without a zone are read in local time.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
