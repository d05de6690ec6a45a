package form

import (
	"encoding/base64"
	"io"
	"math"
	"mime/multipart"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrNoFiles       = errors.New("no files provided")
	ErrMultipleFiles = errors.New("multiple files dropped on a single file upload box")
)

// DropZone is a drag and drop upload box of the form
type DropZone struct {
	ID    string
	Multi bool
}

func (z DropZone) DataField() string {
	return z.ID + "_data"
}

func (z DropZone) NameField() string {
	return z.ID + "_name"
}

var DropZones = []DropZone{
	{ID: "file"},
	{ID: "keyfile"},
	{ID: "ca_dir", Multi: true},
}

func FindDropZone(id string) (DropZone, bool) {
	for _, z := range DropZones {
		if z.ID == id {
			return z, true
		}
	}
	return DropZone{}, false
}

// File is a local file dropped on a zone
type File struct {
	Name     string
	MimeType string
	Content  []byte
}

// Upload holds the files of one zone as data URLs and escaped names, one per line when encoded
type Upload struct {
	Data   []string `json:"data"`
	Names  []string `json:"names"`
	Labels []string `json:"labels,omitempty"`
}

// NewUpload encodes the files dropped on a zone. Single file zones reject more than one file.
func NewUpload(zone DropZone, files []File) (Upload, error) {
	if len(files) == 0 {
		return Upload{}, ErrNoFiles
	}
	if len(files) > 1 && !zone.Multi {
		return Upload{}, ErrMultipleFiles
	}

	u := Upload{
		Data:   make([]string, 0, len(files)),
		Names:  make([]string, 0, len(files)),
		Labels: make([]string, 0, len(files)),
	}
	for _, f := range files {
		name := url.PathEscape(f.Name)
		u.Data = append(u.Data, DataURL(f.MimeType, f.Content))
		u.Names = append(u.Names, name)
		u.Labels = append(u.Labels, name+" "+FormatSize(int64(len(f.Content))))
	}

	return u, nil
}

// Set writes the upload to the data and name fields of zone
func (u Upload) Set(zone DropZone, values url.Values) {
	values.Set(zone.DataField(), joinLines(u.Data))
	values.Set(zone.NameField(), joinLines(u.Names))
}

// MergeMultipart encodes the files of a multipart form into values, as if they were dropped on their zone.
// Parts named after an unknown zone are ignored.
func MergeMultipart(values url.Values, parts map[string][]*multipart.FileHeader) error {
	for _, zone := range DropZones {
		headers := parts[zone.ID]
		if len(headers) == 0 {
			continue
		}

		files := make([]File, 0, len(headers))
		for _, h := range headers {
			content, err := readPart(h)
			if err != nil {
				return errors.Wrapf(err, "read %s", zone.ID)
			}
			files = append(files, File{Name: h.Filename, MimeType: h.Header.Get("Content-Type"), Content: content})
		}

		u, err := NewUpload(zone, files)
		if err != nil {
			return &FieldError{Field: zone.DataField(), Reason: err.Error()}
		}
		u.Set(zone, values)
	}

	return nil
}

func readPart(h *multipart.FileHeader) ([]byte, error) {
	f, err := h.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}

// DataURL encodes content the way a browser file reader does
func DataURL(mimeType string, content []byte) string {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(content)
}

// FormatSize renders a file size label in bytes, KB or MB rounded to two decimals
func FormatSize(size int64) string {
	const (
		kb = 1024
		mb = 1048576
	)

	value := float64(size)
	label := "bytes"
	switch {
	case size > mb:
		value = math.Round(value/mb*100) / 100
		label = "MB"
	case size > kb:
		value = math.Round(value/kb*100) / 100
		label = "KB"
	}

	return strconv.FormatFloat(value, 'f', -1, 64) + " " + label
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func splitLines(s string) []string {
	res := make([]string, 0)
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			res = append(res, line)
		}
	}
	return res
}
