package azsearch

import (
	"errors"

	"github.com/tidwall/gjson"
)

var ErrInvalidResponse = errors.New("azsearch: response is not valid JSON")

const captionsField = "@search.captions"

// Document is one entry of a search response. Fields are looked up by exact
// name, so names containing dots or a leading @ need no escaping.
type Document struct {
	fields map[string]gjson.Result
}

func parseDocuments(body []byte) ([]Document, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrInvalidResponse
	}
	value := gjson.GetBytes(body, "value")
	if !value.IsArray() {
		return nil, nil
	}
	var docs []Document
	value.ForEach(func(_, doc gjson.Result) bool {
		docs = append(docs, Document{fields: doc.Map()})
		return true
	})
	return docs, nil
}

// String returns the named field as text. Missing fields, null values and an
// empty name all report ok == false.
func (d Document) String(name string) (s string, ok bool) {
	if name == "" {
		return "", false
	}
	v, ok := d.fields[name]
	if !ok || v.Type == gjson.Null {
		return "", false
	}
	return v.String(), true
}

func (d Document) StringPtr(name string) *string {
	s, ok := d.String(name)
	if !ok {
		return nil
	}
	return &s
}

// Caption returns the text of the first extractive caption, or "".
func (d Document) Caption() string {
	captions, ok := d.fields[captionsField]
	if !ok {
		return ""
	}
	return captions.Get("0.text").String()
}
