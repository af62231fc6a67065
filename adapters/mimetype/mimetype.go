// Package mimetype classifies file names by extension.
package mimetype

import (
	"mime"
	"path"
	"strings"

	"github.com/artpar/apphost/ports"
)

// media lists the types apps commonly ship as assets. The platform's
// mime.types file is consulted for anything else; Go's built-in table has
// no video entries.
var media = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".flv":  "video/x-flv",
	".ogv":  "video/ogg",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".ts":   "video/mp2t",
	".gif":  "image/gif",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".wav":  "audio/wav",
	".pdf":  "application/pdf",
	".json": "application/json",
}

// Classifier maps extensions to MIME types. File contents are never read.
type Classifier struct {
	overrides map[string]string
	system    bool
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithType registers or replaces the type for an extension (".ext").
func WithType(ext, mimeType string) Option {
	return func(c *Classifier) {
		c.overrides[strings.ToLower(ext)] = mimeType
	}
}

// WithoutSystemTypes disables the platform mime.types fallback, which makes
// classification independent of the host machine.
func WithoutSystemTypes() Option {
	return func(c *Classifier) { c.system = false }
}

// New creates a classifier.
func New(opts ...Option) *Classifier {
	c := &Classifier{overrides: make(map[string]string), system: true}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns the MIME type for filename's extension.
func (c *Classifier) Classify(filename string) (string, bool) {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" || ext == "." {
		return "", false
	}

	if mt, ok := c.overrides[ext]; ok {
		return mt, mt != ""
	}
	if mt, ok := media[ext]; ok {
		return mt, true
	}
	if !c.system {
		return "", false
	}

	mt := mime.TypeByExtension(ext)
	if mt == "" {
		return "", false
	}
	// Drop parameters such as "; charset=utf-8".
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return mt, true
}

// Ensure interface compliance.
var _ ports.MimeClassifier = (*Classifier)(nil)
