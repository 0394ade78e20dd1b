package dav

import (
	"encoding/xml"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// propfindBody is the fixed PROPFIND request body. It is reproduced
// byte-for-byte on every listing request: servers implementing the
// ownCloud (oc) and Nextcloud (nc) extensions key on this exact
// property set.
const propfindBody = `<?xml version="1.0" encoding="UTF-8"?>
<d:propfind xmlns:d="DAV:" xmlns:oc="http://owncloud.org/ns" xmlns:nc="http://nextcloud.org/ns">
 <d:prop>
  <d:getlastmodified/>
  <d:getetag/>
  <d:getcontenttype/>
  <d:resourcetype/>
  <d:getcontentlength/>
  <oc:fileid/>
  <oc:permissions/>
  <oc:size/>
  <nc:has-preview/>
  <oc:favorite/>
 </d:prop>
</d:propfind>
`

// multistatus mirrors the WebDAV multi-status envelope. Struct tags
// carry no namespace on purpose: encoding/xml then matches elements by
// local name whatever prefix or vendor namespace the server uses.
type multistatus struct {
	Responses []davResponse `xml:"response"`
}

type davResponse struct {
	Href      string     `xml:"href"`
	Propstats []propstat `xml:"propstat"`
}

type propstat struct {
	Status string  `xml:"status"`
	Prop   davProp `xml:"prop"`
}

type davProp struct {
	LastModified  string       `xml:"getlastmodified"`
	ETag          string       `xml:"getetag"`
	ContentType   string       `xml:"getcontenttype"`
	ResourceType  resourceType `xml:"resourcetype"`
	ContentLength string       `xml:"getcontentlength"`
	FileID        string       `xml:"fileid"`
	Permissions   string       `xml:"permissions"`
	Size          string       `xml:"size"`
	HasPreview    string       `xml:"has-preview"`
	Favorite      string       `xml:"favorite"`
}

type resourceType struct {
	Collection *xml.Name `xml:"collection"`
}

// parseStatus matches "HTTP/1.1 200 OK" or "HTTP/1.1 200".
var parseStatus = regexp.MustCompile(`^HTTP/[0-9.]+\s+(\d+)`)

// statusOK reports whether a propstat status line denotes success.
// A missing status is assumed OK.
func statusOK(status string) bool {
	status = strings.TrimSpace(status)
	if status == "" {
		return true
	}

	match := parseStatus.FindStringSubmatch(status)
	if len(match) < 2 {
		return false
	}

	code, err := strconv.Atoi(match[1])
	if err != nil {
		return false
	}

	return code >= 200 && code < 300
}

// Time formats servers have been seen to use for getlastmodified.
var lastModifiedFormats = []string{
	time.RFC1123,                  // Wed, 27 Sep 2017 14:28:34 GMT (per RFC)
	time.RFC1123Z,                 // Fri, 05 Jan 2018 14:14:38 +0000
	"Mon, _2 Jan 2006 15:04:05 MST", // RFC1123 without leading zeros on the day
	time.UnixDate,
	time.RFC3339,
}

// parseLastModified parses a getlastmodified value, trying each known
// format. Unparseable or absent values yield the zero time.
func parseLastModified(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}

	for _, format := range lastModifiedFormats {
		if t, err := time.Parse(format, raw); err == nil {
			return t
		}
	}

	return time.Time{}
}

// parseFlag parses a server boolean property ("1"/"0", "true"/"false").
func parseFlag(raw string) bool {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

// parseMultistatus parses a multi-status XML body into FileRecords, one
// per response element with a resolvable href, in document order.
// Malformed entries are dropped silently; a wholly unparseable body
// yields an empty list, never an error.
func parseMultistatus(body []byte, logger *slog.Logger) []FileRecord {
	if logger == nil {
		logger = slog.Default()
	}

	var ms multistatus
	if err := xml.Unmarshal(body, &ms); err != nil {
		logger.Warn("unparsable multi-status body",
			slog.String("error", err.Error()),
		)

		return nil
	}

	records := make([]FileRecord, 0, len(ms.Responses))

	for i := range ms.Responses {
		resp := &ms.Responses[i]

		href := strings.TrimSpace(resp.Href)
		if href == "" {
			logger.Debug("dropping response without href")

			continue
		}

		path, err := url.PathUnescape(href)
		if err != nil {
			logger.Debug("dropping response with unescapable href",
				slog.String("href", href),
			)

			continue
		}

		records = append(records, resp.toRecord(path))
	}

	return records
}

// toRecord converts one response element into a FileRecord. The first
// propstat with a successful status supplies the properties; absent
// properties keep their zero value.
func (r *davResponse) toRecord(path string) FileRecord {
	var prop davProp

	for i := range r.Propstats {
		if statusOK(r.Propstats[i].Status) {
			prop = r.Propstats[i].Prop

			break
		}
	}

	rec := FileRecord{
		Path:         path,
		IsDirectory:  prop.ResourceType.Collection != nil,
		LastModified: parseLastModified(prop.LastModified),
		ETag:         strings.Trim(prop.ETag, `"`),
		ContentType:  prop.ContentType,
		FileID:       strings.TrimSpace(prop.FileID),
		Permissions:  strings.TrimSpace(prop.Permissions),
		HasPreview:   parseFlag(prop.HasPreview),
		IsFavorite:   parseFlag(prop.Favorite),
	}

	// ownCloud's oc:size covers collections too; getcontentlength is
	// the fallback for plain servers.
	size := strings.TrimSpace(prop.Size)
	if size == "" {
		size = strings.TrimSpace(prop.ContentLength)
	}

	if n, err := strconv.ParseInt(size, 10, 64); err == nil {
		rec.Size = n
	}

	return rec
}
