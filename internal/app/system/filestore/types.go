// internal/app/system/filestore/types.go
package filestore

import (
	"mime"
	"path/filepath"
	"strings"
)

// allowedTypes maps accepted content types to the extensions that may carry
// them. Browsers send inconsistent types for .py, .stl and .zip, so the
// extension is also accepted on its own.
var allowedTypes = map[string][]string{
	"application/pdf":              {".pdf"},
	"application/zip":              {".zip"},
	"application/x-zip-compressed": {".zip"},
	"text/x-python":                {".py"},
	"text/x-script.python":         {".py"},
	"model/stl":                    {".stl"},
	"application/sla":              {".stl"},
	"application/vnd.ms-pki.stl":   {".stl"},
	"image/png":                    {".png"},
	"image/jpeg":                   {".jpg", ".jpeg"},
	"image/gif":                    {".gif"},
	"text/plain":                   {".txt", ".py"},
}

var allowedExt = map[string]string{
	".pdf":  "application/pdf",
	".zip":  "application/zip",
	".py":   "text/x-python",
	".stl":  "model/stl",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".txt":  "text/plain",
}

// ResolveContentType returns the content type to store for a file, or false
// when the file type is not accepted.
func ResolveContentType(filename, declared string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	ct := declared
	if mt, _, err := mime.ParseMediaType(declared); err == nil {
		ct = mt
	}
	ct = strings.ToLower(ct)

	if exts, ok := allowedTypes[ct]; ok {
		for _, e := range exts {
			if e == ext {
				return ct, true
			}
		}
	}
	if canonical, ok := allowedExt[ext]; ok {
		if ct == "" || ct == "application/octet-stream" || allowedTypes[ct] != nil {
			return canonical, true
		}
	}
	return "", false
}
