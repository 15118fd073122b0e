package test

import (
	"bytes"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// UploadFile builds a multipart body with the file from the testdata
// directory in the form field "file", uploaded with the name passed.
//
// The body is returned together with the HTTP request headers it needs.
func UploadFile(t *testing.T, filePath, name string) (*bytes.Buffer, map[string]string) {
	f, err := os.Open(filepath.Join("../../../testdata", filePath))
	require.Nil(t, err, "Test file could not be opened")
	defer f.Close()

	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)

	w, err := mw.CreateFormFile("file", name)
	require.Nil(t, err)

	_, err = io.Copy(w, f)
	require.Nil(t, err)
	require.Nil(t, mw.Close())

	return body, map[string]string{"Content-Type": mw.FormDataContentType()}
}

// LoadTestFile is UploadFile with the name of the file in the testdata directory.
func LoadTestFile(t *testing.T, filePath string) (*bytes.Buffer, map[string]string) {
	return UploadFile(t, filePath, filepath.Base(filePath))
}
