package dav

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/http"
	"time"

	"davgate/internal/model"
)

// The D: prefix is spelled out in the element names and bound to the DAV:
// namespace on the root element, which is what most clients expect to see.
const davNamespace = "DAV:"

const (
	statusOK           = "HTTP/1.1 200 OK"
	collectionType     = "httpd/unix-directory"
	lockTimeout        = "Second-3600"
	lockOwner          = "FileCloud"
	lockTokenScheme    = "opaquelocktoken:"
	xmlContentType     = "application/xml; charset=utf-8"
	infiniteDepthValue = "infinity"
)

type multistatus struct {
	XMLName   xml.Name   `xml:"D:multistatus"`
	XmlnsD    string     `xml:"xmlns:D,attr"`
	Responses []response `xml:"D:response"`
}

type response struct {
	Href     string     `xml:"D:href"`
	Propstat []propstat `xml:"D:propstat"`
}

type propstat struct {
	Prop   prop   `xml:"D:prop"`
	Status string `xml:"D:status"`
}

type prop struct {
	DisplayName   string         `xml:"D:displayname,omitempty"`
	ResourceType  *resourceType  `xml:"D:resourcetype,omitempty"`
	ContentType   string         `xml:"D:getcontenttype,omitempty"`
	ContentLength *int64         `xml:"D:getcontentlength,omitempty"`
	LastModified  string         `xml:"D:getlastmodified,omitempty"`
	CreationDate  string         `xml:"D:creationdate,omitempty"`
	ETag          string         `xml:"D:getetag,omitempty"`
	SupportedLock *supportedLock `xml:"D:supportedlock,omitempty"`
}

type resourceType struct {
	Collection *struct{} `xml:"D:collection,omitempty"`
}

type supportedLock struct {
	LockEntry lockEntry `xml:"D:lockentry"`
}

type lockEntry struct {
	LockScope lockScope `xml:"D:lockscope"`
	LockType  lockType  `xml:"D:locktype"`
}

type lockScope struct {
	Exclusive struct{} `xml:"D:exclusive"`
}

type lockType struct {
	Write struct{} `xml:"D:write"`
}

type lockResponse struct {
	XMLName       xml.Name      `xml:"D:prop"`
	XmlnsD        string        `xml:"xmlns:D,attr"`
	LockDiscovery lockDiscovery `xml:"D:lockdiscovery"`
}

type lockDiscovery struct {
	ActiveLock activeLock `xml:"D:activelock"`
}

type activeLock struct {
	LockType  lockType  `xml:"D:locktype"`
	LockScope lockScope `xml:"D:lockscope"`
	Depth     string    `xml:"D:depth"`
	Owner     hrefElem  `xml:"D:owner"`
	Timeout   string    `xml:"D:timeout"`
	LockToken hrefElem  `xml:"D:locktoken"`
	LockRoot  hrefElem  `xml:"D:lockroot"`
}

type hrefElem struct {
	Href string `xml:"D:href"`
}

// httpDate formats t as an HTTP-date. Values without a zone are stored as
// UTC by the database layer, so converting to UTC here is lossless.
func httpDate(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}

// etagFor derives the ETag of a file from its ID.
func etagFor(f *model.File) string {
	return `"` + f.ID + `"`
}

func exclusiveWriteLock() *supportedLock {
	return &supportedLock{}
}

// folderResponse describes a collection.
func folderResponse(href, name string, createdAt time.Time) response {
	return response{
		Href: href,
		Propstat: []propstat{{
			Prop: prop{
				DisplayName:   name,
				ResourceType:  &resourceType{Collection: &struct{}{}},
				ContentType:   collectionType,
				LastModified:  httpDate(createdAt),
				CreationDate:  httpDate(createdAt),
				SupportedLock: exclusiveWriteLock(),
			},
			Status: statusOK,
		}},
	}
}

// fileResponse describes a non-collection resource.
func fileResponse(href string, f *model.File) response {
	size := f.SizeBytes
	return response{
		Href: href,
		Propstat: []propstat{{
			Prop: prop{
				DisplayName:   f.DisplayName,
				ResourceType:  &resourceType{},
				ContentType:   f.MimeType,
				ContentLength: &size,
				LastModified:  httpDate(f.UpdatedAt),
				CreationDate:  httpDate(f.CreatedAt),
				ETag:          etagFor(f),
				SupportedLock: exclusiveWriteLock(),
			},
			Status: statusOK,
		}},
	}
}

// emptyPropResponse acknowledges a PROPPATCH without reporting any property.
func emptyPropResponse(href string) response {
	return response{
		Href:     href,
		Propstat: []propstat{{Status: statusOK}},
	}
}

func newMultistatus(responses ...response) *multistatus {
	return &multistatus{XmlnsD: davNamespace, Responses: responses}
}

func newLockResponse(token, lockRoot string) *lockResponse {
	return &lockResponse{
		XmlnsD: davNamespace,
		LockDiscovery: lockDiscovery{ActiveLock: activeLock{
			Depth:     infiniteDepthValue,
			Owner:     hrefElem{Href: lockOwner},
			Timeout:   lockTimeout,
			LockToken: hrefElem{Href: token},
			LockRoot:  hrefElem{Href: lockRoot},
		}},
	}
}

// marshalXML renders v as a standalone XML document.
func marshalXML(v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encoding xml: %w", err)
	}
	return buf.Bytes(), nil
}
