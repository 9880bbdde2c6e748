package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/isdelr/opensocial-be/internal/media"
)

const multipartMemory = 8 << 20

var (
	errBodyTooLarge = errors.New("request body too large")
	errInvalidBody  = errors.New("invalid request body")
)

// fieldTypeError is a JSON field that is present but not a string.
type fieldTypeError struct {
	field string
}

func (e *fieldTypeError) Error() string { return "field " + e.field + " is not a string" }

// form is a request body read either as multipart/form-data or as JSON.
// value reports whether a field was sent at all, which is how an explicit
// empty value is told apart from an omitted one.
type form struct {
	values map[string]string
	files  map[string]*media.File
}

func (f *form) value(name string) (string, bool) {
	v, ok := f.values[name]
	return v, ok
}

func (f *form) file(name string) *media.File {
	return f.files[name]
}

// readForm parses the body, bounded by maxBytes. JSON bodies may only carry
// strings; media must be uploaded as files.
func readForm(w http.ResponseWriter, r *http.Request, maxBytes int64, fileFields ...string) (*form, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	f := &form{values: map[string]string{}, files: map[string]*media.File{}}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return nil, bodyError(err)
		}
		defer r.MultipartForm.RemoveAll()
		for name, vs := range r.MultipartForm.Value {
			if len(vs) > 0 {
				f.values[name] = vs[0]
			}
		}
		for _, name := range fileFields {
			headers := r.MultipartForm.File[name]
			if len(headers) == 0 {
				continue
			}
			file, err := readFile(headers[0])
			if err != nil {
				return nil, err
			}
			f.files[name] = file
		}
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, bodyError(err)
		}
		for name, vs := range r.PostForm {
			if len(vs) > 0 {
				f.values[name] = vs[0]
			}
		}
	default:
		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return nil, bodyError(err)
		}
		for name, v := range raw {
			switch v := v.(type) {
			case string:
				f.values[name] = v
			case nil:
			default:
				return nil, &fieldTypeError{field: name}
			}
		}
	}
	return f, nil
}

func readFile(fh *multipart.FileHeader) (*media.File, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, bodyError(err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, bodyError(err)
	}
	return &media.File{Name: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Data: data}, nil
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return errBodyTooLarge
	}
	return fmt.Errorf("%w: %v", errInvalidBody, err)
}

// formErrorMessage is what the client is told about a body readForm rejected.
func formErrorMessage(err error) string {
	var fieldErr *fieldTypeError
	switch {
	case errors.Is(err, errBodyTooLarge):
		return "Request body too large"
	case errors.As(err, &fieldErr):
		return fieldErr.field + " must be a string"
	}
	return "Invalid request body"
}
