package dav

import (
	"path"
	"strings"
)

// DefaultContentType is used for names with no known extension.
const DefaultContentType = "application/octet-stream"

// contentTypes is the extension table shared with the web UI so both sides
// record the same mime type for an upload.
var contentTypes = map[string]string{
	".html": "text/html", ".htm": "text/html", ".css": "text/css",
	".js": "application/javascript", ".mjs": "application/javascript",
	".json": "application/json", ".xml": "application/xml",
	".txt": "text/plain", ".md": "text/markdown", ".csv": "text/csv",
	".pdf": "application/pdf", ".zip": "application/zip",
	".gz": "application/gzip", ".tar": "application/x-tar",
	".7z": "application/x-7z-compressed", ".rar": "application/vnd.rar",
	".png": "image/png", ".jpg": "image/jpeg", ".jpeg": "image/jpeg",
	".gif": "image/gif", ".svg": "image/svg+xml", ".webp": "image/webp",
	".ico": "image/x-icon", ".bmp": "image/bmp", ".tiff": "image/tiff",
	".mp3": "audio/mpeg", ".wav": "audio/wav", ".ogg": "audio/ogg",
	".flac": "audio/flac", ".aac": "audio/aac", ".m4a": "audio/mp4",
	".mp4": "video/mp4", ".webm": "video/webm", ".mkv": "video/x-matroska",
	".avi": "video/x-msvideo", ".mov": "video/quicktime",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".ppt":  "application/vnd.ms-powerpoint",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".ts": "text/typescript", ".tsx": "text/typescript", ".jsx": "text/javascript",
	".py": "text/x-python", ".rb": "text/x-ruby", ".go": "text/x-go",
	".rs": "text/x-rust", ".java": "text/x-java", ".c": "text/x-c",
	".cpp": "text/x-c++", ".h": "text/x-c", ".sh": "text/x-sh",
	".yaml": "text/yaml", ".yml": "text/yaml", ".toml": "text/x-toml",
	".ini": "text/plain", ".cfg": "text/plain", ".log": "text/plain",
	".sql": "text/x-sql", ".woff": "font/woff", ".woff2": "font/woff2",
	".ttf": "font/ttf", ".otf": "font/otf", ".eot": "application/vnd.ms-fontobject",
}

// ContentTypeFor returns the mime type for a file name based on its extension.
func ContentTypeFor(name string) string {
	if ct, ok := contentTypes[strings.ToLower(path.Ext(name))]; ok {
		return ct
	}
	return DefaultContentType
}

// extension returns the extension of name as written, including the dot.
// Storage keys keep it so the blob directory stays browsable.
func extension(name string) string {
	return path.Ext(name)
}
