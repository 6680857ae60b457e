package search

import (
	"strconv"
	"strings"

	"github.com/a-h/ragsearch/azsearch"
	"github.com/tidwall/gjson"
)

// parseRequest reads the search request body. Anything that is not a JSON
// object is treated as an empty object, so malformed input gets the defaults.
func parseRequest(body []byte, defaultIndex string) (req azsearch.Request) {
	req.Index = defaultIndex
	req.Top = azsearch.DefaultTop
	if !gjson.ValidBytes(body) {
		return req
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return req
	}
	if q := doc.Get("query"); q.Type == gjson.String {
		req.Query = q.Str
	}
	if index := doc.Get("index"); index.Type == gjson.String && index.Str != "" {
		req.Index = index.Str
	}
	if top, ok := parseTop(doc.Get("top")); ok {
		req.Top = top
	}
	return req
}

func parseTop(v gjson.Result) (top int, ok bool) {
	switch v.Type {
	case gjson.Number:
		top = int(v.Num)
	case gjson.String:
		var err error
		if top, err = strconv.Atoi(strings.TrimSpace(v.Str)); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	return top, top >= 1
}
