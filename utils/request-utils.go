package utils

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
)

// ErrNoUpload is returned when a form carries neither a file nor an inline
// feature collection.
var ErrNoUpload = errors.New("no file or featureCollection field in request")

type MultipartResult struct {
	File     []byte
	Filename string
	Values   FormValues
}

// FormValues are the non-file fields of a multipart form, first value wins.
type FormValues map[string]string

func (v FormValues) String(key string) string {
	return strings.TrimSpace(v[key])
}

// Int parses key, returning def when the field is absent.
func (v FormValues) Int(key string, def int) (int, error) {
	s := v.String(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def, fmt.Errorf("field %s: %w", key, err)
	}
	return n, nil
}

// Float parses key into *dst when the field is present.
func (v FormValues) Float(key string, dst *float64) error {
	s := v.String(key)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("field %s: %w", key, err)
	}
	*dst = f
	return nil
}

// ReadMultiPartForm reads the file under fileKey and every value field. A
// "featureCollection" text field stands in for a missing file as GeoJSON.
func ReadMultiPartForm(r *http.Request, fileKey string, maxMemory int64) (MultipartResult, error) {
	result := MultipartResult{Values: FormValues{}}
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return result, fmt.Errorf("parse multipart form: %w", err)
	}

	for key, value := range r.MultipartForm.Value {
		if len(value) > 0 {
			result.Values[key] = value[0]
		}
	}

	var fileHeader *multipart.FileHeader
	if headers := r.MultipartForm.File[fileKey]; len(headers) > 0 {
		fileHeader = headers[0]
	}

	if fileHeader == nil {
		if fc := result.Values.String("featureCollection"); fc != "" {
			result.File = []byte(fc)
			result.Filename = "upload.geojson"
			return result, nil
		}
		return result, ErrNoUpload
	}

	file, err := fileHeader.Open()
	if err != nil {
		return result, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	result.File, err = io.ReadAll(file)
	if err != nil {
		return result, fmt.Errorf("read upload: %w", err)
	}
	result.Filename = fileHeader.Filename
	return result, nil
}
