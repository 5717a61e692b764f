// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CodeRequestInvalid marks a body or path parameter the API rejected.
const CodeRequestInvalid = "REQUEST_INVALID"

const maxBodyBytes = 64 << 10

var englishPrinter = message.NewPrinter(language.English)

// requestBodies lists the validated request bodies by schema name.
var requestBodies = map[string]any{
	"register": &RegisterBody{},
	"login":    &LoginBody{},
	"roles":    &RolesBody{},
}

// GenerateSchemas reflects the JSON Schema of every request body, keyed by
// name.
func GenerateSchemas() (map[string][]byte, error) {
	out := make(map[string][]byte, len(requestBodies))
	for name, body := range requestBodies {
		data, err := reflectSchema(body)
		if err != nil {
			return nil, oops.With("schema", name).Wrap(err)
		}
		out[name] = data
	}
	return out, nil
}

func reflectSchema(body any) ([]byte, error) {
	r := jsonschema.Reflector{DoNotReference: true}
	data, err := json.MarshalIndent(r.Reflect(body), "", "  ")
	if err != nil {
		return nil, oops.Code("SCHEMA_GENERATE_FAILED").Wrap(err)
	}
	return data, nil
}

// validator checks request bodies against their compiled schemas.
type validator struct {
	schemas map[string]*jschema.Schema
}

func newValidator() (*validator, error) {
	c := jschema.NewCompiler()
	c.AssertFormat()

	v := &validator{schemas: make(map[string]*jschema.Schema, len(requestBodies))}
	for name, body := range requestBodies {
		data, err := reflectSchema(body)
		if err != nil {
			return nil, err
		}
		doc, err := jschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			return nil, oops.Code("SCHEMA_COMPILE_FAILED").With("schema", name).Wrap(err)
		}
		url := name + ".schema.json"
		if err := c.AddResource(url, doc); err != nil {
			return nil, oops.Code("SCHEMA_COMPILE_FAILED").With("schema", name).Wrap(err)
		}
		sch, err := c.Compile(url)
		if err != nil {
			return nil, oops.Code("SCHEMA_COMPILE_FAILED").With("schema", name).Wrap(err)
		}
		v.schemas[name] = sch
	}
	return v, nil
}

// decode reads the request body, validates it against the named schema and
// unmarshals it into dst.
func (v *validator) decode(w http.ResponseWriter, r *http.Request, name string, dst any) error {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return oops.Code(CodeRequestInvalid).Errorf("request body exceeds %d bytes", maxBodyBytes)
		}
		return oops.Code(CodeRequestInvalid).Wrapf(err, "read request body")
	}

	doc, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return oops.Code(CodeRequestInvalid).Errorf("request body is not valid JSON")
	}
	if err := v.schemas[name].Validate(doc); err != nil {
		return oops.Code(CodeRequestInvalid).
			With("schema", name).
			Errorf("%s", validationMessage(err))
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return oops.Code(CodeRequestInvalid).Wrapf(err, "decode request body")
	}
	return nil
}

// validationMessage flattens a schema error to its leaf causes.
func validationMessage(err error) string {
	var ve *jschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	var leaves []*jschema.ValidationError
	var walk func(*jschema.ValidationError)
	walk = func(e *jschema.ValidationError) {
		if len(e.Causes) == 0 {
			leaves = append(leaves, e)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)

	var buf bytes.Buffer
	for i, leaf := range leaves {
		if i > 0 {
			buf.WriteString("; ")
		}
		buf.WriteString(leafMessage(leaf))
	}
	return buf.String()
}

func leafMessage(e *jschema.ValidationError) string {
	field := "body"
	if len(e.InstanceLocation) > 0 {
		field = e.InstanceLocation[len(e.InstanceLocation)-1]
	}
	return field + ": " + e.ErrorKind.LocalizedString(englishPrinter)
}
