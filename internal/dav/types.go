package dav

import "time"

// FileRecord describes one resource from a PROPFIND multi-status
// response. Fields are normalized from the XML property set; callers
// never see raw server data. Absent optional properties keep their zero
// value.
type FileRecord struct {
	Path         string
	IsDirectory  bool
	LastModified time.Time
	ETag         string
	ContentType  string
	FileID       string
	Permissions  string
	Size         int64
	HasPreview   bool
	IsFavorite   bool
}
