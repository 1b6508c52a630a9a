package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/wansing/infodesk/core"
)

// input holds the fields of a JSON, urlencoded or multipart body.
type input struct {
	values map[string]string
	image  multipart.File  // nil if absent
	form   *multipart.Form // its temporary files are removed in close
}

func parseInput(w http.ResponseWriter, req *http.Request, maxBytes int64) (*input, error) {

	var in = &input{
		values: map[string]string{},
	}

	if req.Body == nil || req.Body == http.NoBody {
		return in, nil
	}
	req.Body = http.MaxBytesReader(w, req.Body, maxBytes)

	mediaType, _, _ := mime.ParseMediaType(req.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if err := req.ParseMultipartForm(1 << 20); err != nil {
			if req.MultipartForm != nil {
				req.MultipartForm.RemoveAll()
			}
			return nil, bodyError(err)
		}
		in.form = req.MultipartForm
		for key, vals := range req.MultipartForm.Value {
			if len(vals) > 0 {
				in.values[key] = vals[0]
			}
		}
		if files := req.MultipartForm.File["image"]; len(files) > 0 {
			file, err := files[0].Open()
			if err != nil {
				in.close()
				return nil, err
			}
			in.image = file
		}
	case "application/x-www-form-urlencoded":
		if err := req.ParseForm(); err != nil {
			return nil, bodyError(err)
		}
		for key, vals := range req.PostForm {
			if len(vals) > 0 {
				in.values[key] = vals[0]
			}
		}
	default: // JSON, also if the content type is missing
		if err := in.decodeJSON(req.Body); err != nil {
			return nil, bodyError(err)
		}
	}

	return in, nil
}

func (in *input) decodeJSON(body io.Reader) error {
	var decoder = json.NewDecoder(body)
	decoder.UseNumber()
	var fields map[string]interface{}
	if err := decoder.Decode(&fields); err != nil {
		if errors.Is(err, io.EOF) {
			return nil // empty body
		}
		return err
	}
	for key, value := range fields {
		switch v := value.(type) {
		case string:
			in.values[key] = v
		case bool:
			in.values[key] = strconv.FormatBool(v)
		case json.Number:
			in.values[key] = v.String()
		}
	}
	return nil
}

func bodyError(err error) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return &core.ValidationError{Message: fmt.Sprintf("request body too large (maximum is %d bytes)", maxBytesErr.Limit)}
	}
	return &core.ValidationError{Message: "malformed request body: " + err.Error()}
}

func (in *input) close() {
	if in.image != nil {
		in.image.Close()
	}
	if in.form != nil {
		in.form.RemoveAll()
	}
}

func (in *input) get(key string) string {
	return in.values[key]
}

// bool returns false if the field is missing.
func (in *input) bool(key string) (bool, error) {
	var value = strings.TrimSpace(in.values[key])
	if value == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, &core.ValidationError{Field: key, Message: "must be a boolean"}
	}
	return b, nil
}

func (in *input) credentials() core.Credentials {
	return core.Credentials{
		Email:    in.values["email"],
		Password: in.values["password"],
	}
}

// readPage reads limit and offset from the query string.
func readPage(req *http.Request) (core.Page, error) {
	var p core.Page
	var query = req.URL.Query()
	for key, field := range map[string]*int{"limit": &p.Limit, "offset": &p.Offset} {
		if value := query.Get(key); value != "" {
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return p, &core.ValidationError{Field: key, Message: "must be a non-negative integer"}
			}
			*field = n
		}
	}
	return p.Normalize(), nil
}
