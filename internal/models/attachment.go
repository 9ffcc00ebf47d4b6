package models

import "time"

// AttachmentState tags an attachment as live or soft-deleted.
type AttachmentState string

const (
	AttachmentActive  AttachmentState = "active"
	AttachmentRemoved AttachmentState = "removed"
)

// VideoType is the attachment type used for external video covers.
const VideoType = "video"

// Attachment describes a stored file (or an external video URL) linked to a pitch.
type Attachment struct {
	URL        string          `firestore:"url" json:"url"`
	Name       string          `firestore:"name" json:"name"`
	Type       string          `firestore:"type" json:"type"`
	StorageID  string          `firestore:"storageId" json:"storageId"`
	Path       string          `firestore:"path" json:"path"`
	State      AttachmentState `firestore:"state" json:"state"`
	UploadedAt time.Time       `firestore:"uploadedAt" json:"uploadedAt"`
}

// Removed reports whether the attachment has been soft-deleted.
// Entries written before tagging existed have no state and count as active.
func (a Attachment) Removed() bool {
	return a.State == AttachmentRemoved
}

// Stored reports whether the attachment has a blob behind it.
func (a Attachment) Stored() bool {
	return a.StorageID != "" && a.Path != ""
}

// Attachments is an append-only list; entries are tagged, never dropped.
type Attachments []Attachment

// Active returns the entries that have not been removed.
func (l Attachments) Active() Attachments {
	var out Attachments
	for _, a := range l {
		if !a.Removed() {
			out = append(out, a)
		}
	}
	return out
}

// HasActive reports whether at least one entry is active.
func (l Attachments) HasActive() bool {
	for _, a := range l {
		if !a.Removed() {
			return true
		}
	}
	return false
}

// Supersede returns a copy with every entry tagged as removed.
func (l Attachments) Supersede() Attachments {
	if l == nil {
		return nil
	}
	out := make(Attachments, len(l))
	for i, a := range l {
		a.State = AttachmentRemoved
		out[i] = a
	}
	return out
}

// Remove returns a copy with the entry carrying storageID tagged as removed.
// External video entries have no storage id and are matched by URL.
func (l Attachments) Remove(key string) Attachments {
	if l == nil {
		return nil
	}
	out := make(Attachments, len(l))
	for i, a := range l {
		if a.StorageID == key || (a.StorageID == "" && a.URL == key) {
			a.State = AttachmentRemoved
		}
		out[i] = a
	}
	return out
}
