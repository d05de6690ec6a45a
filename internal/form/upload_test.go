package form

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUpload(t *testing.T) {
	t.Run(
		"single file",
		func(t *testing.T) {
			zone, _ := FindDropZone("file")

			u, err := NewUpload(zone, []File{{Name: "my payload.zip", MimeType: "application/zip", Content: []byte("hello")}})

			require.NoError(t, err)
			assert.Equal(t, []string{"data:application/zip;base64,aGVsbG8="}, u.Data)
			assert.Equal(t, []string{"my%20payload.zip"}, u.Names)
			assert.Equal(t, []string{"my%20payload.zip 5 bytes"}, u.Labels)
		})

	t.Run(
		"no files",
		func(t *testing.T) {
			_, err := NewUpload(DropZone{ID: "file"}, nil)

			assert.ErrorIs(t, err, ErrNoFiles)
		})

	t.Run(
		"many files on a single file zone",
		func(t *testing.T) {
			zone, _ := FindDropZone("keyfile")

			_, err := NewUpload(zone, []File{{Name: "a"}, {Name: "b"}})

			assert.ErrorIs(t, err, ErrMultipleFiles)
		})

	t.Run(
		"many files on a directory zone",
		func(t *testing.T) {
			zone, _ := FindDropZone("ca_dir")

			u, err := NewUpload(zone, []File{{Name: "cacert.crt"}, {Name: "client.crt"}})

			require.NoError(t, err)
			assert.Len(t, u.Data, 2)
			assert.Equal(t, "data:application/octet-stream;base64,", u.Data[0])
		})
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "0 bytes", FormatSize(0))
	assert.Equal(t, "1024 bytes", FormatSize(1024))
	assert.Equal(t, "1.5 KB", FormatSize(1536))
	assert.Equal(t, "1024 KB", FormatSize(1048576))
	assert.Equal(t, "2.25 MB", FormatSize(2359296))
}

func TestTabs(t *testing.T) {
	assert.Equal(t, TabVisibility{File: true}, Tabs(PayloadFile))
	assert.Equal(t, TabVisibility{File: true, KeyFile: true}, Tabs(PayloadKeyFile))
	assert.Equal(t, TabVisibility{CADir: true}, Tabs(PayloadCADir))
	assert.Equal(t, TabVisibility{File: true}, Tabs(PayloadType(9)))
}

func multipartRequest(t *testing.T, files map[string][]string) *http.Request {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	require.NoError(t, w.WriteField(FieldIP, "10.0.0.2"))
	for zone, names := range files {
		for _, name := range names {
			part, err := w.CreateFormFile(zone, name)
			require.NoError(t, err)
			_, err = part.Write([]byte("hello"))
			require.NoError(t, err)
		}
	}
	require.NoError(t, w.Close())

	r := httptest.NewRequest(http.MethodPost, "/agents/u1", body)
	r.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, r.ParseMultipartForm(1<<20))
	return r
}

func TestMergeMultipart(t *testing.T) {
	t.Run(
		"files are encoded on their zone",
		func(t *testing.T) {
			r := multipartRequest(t, map[string][]string{"file": {"payload.zip"}, "ca_dir": {"a.pem", "b.pem"}})

			err := MergeMultipart(r.PostForm, r.MultipartForm.File)

			require.NoError(t, err)
			assert.Equal(t, "10.0.0.2", r.PostForm.Get(FieldIP))
			assert.Equal(t, "data:application/octet-stream;base64,aGVsbG8=\n", r.PostForm.Get("file_data"))
			assert.Equal(t, "payload.zip\n", r.PostForm.Get("file_name"))
			assert.Equal(t, "a.pem\nb.pem\n", r.PostForm.Get("ca_dir_name"))

			req, err := Parse(r.PostForm)
			require.NoError(t, err)
			assert.Len(t, req.Uploads["ca_dir"].Data, 2)
		})

	t.Run(
		"single file zone rejects several files",
		func(t *testing.T) {
			r := multipartRequest(t, map[string][]string{"keyfile": {"a.key", "b.key"}})

			err := MergeMultipart(r.PostForm, r.MultipartForm.File)

			var fieldErr *FieldError
			require.ErrorAs(t, err, &fieldErr)
			assert.Equal(t, "keyfile_data", fieldErr.Field)
			assert.Empty(t, r.PostForm.Get("keyfile_data"))
		})
}
