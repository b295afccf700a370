package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/suteetoe/taskhub/internal/apperr"
	"github.com/suteetoe/taskhub/internal/service"
	"github.com/suteetoe/taskhub/internal/store"
)

const msgInvalidBody = "Invalid request body"

// bind decodes a JSON body into dst
func bind(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return apperr.Invalid(msgInvalidBody)
	}
	return nil
}

// patch is an update body kept key by key, so an absent field and an
// explicit null can be told apart
type patch map[string]json.RawMessage

func bindPatch(c echo.Context) (patch, error) {
	var p patch
	if err := json.NewDecoder(c.Request().Body).Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return patch{}, nil
		}
		return nil, apperr.Invalid(msgInvalidBody)
	}
	if p == nil {
		p = patch{}
	}
	return p, nil
}

func (p patch) isNull(key string) bool {
	raw, ok := p[key]
	return ok && bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// keyOf returns key, or the first alias present in p when key itself is absent
func (p patch) keyOf(key string, aliases ...string) string {
	if _, ok := p[key]; ok {
		return key
	}
	for _, a := range aliases {
		if _, ok := p[a]; ok {
			return a
		}
	}
	return key
}

// unknown lists the keys of p that are not in known, sorted
func (p patch) unknown(known ...string) []string {
	var out []string
	for k := range p {
		found := false
		for _, kn := range known {
			if k == kn {
				found = true
				break
			}
		}
		if !found {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// field decodes a non-nullable attribute; nil when absent
func field[T any](p patch, key string) (*T, error) {
	raw, ok := p[key]
	if !ok {
		return nil, nil
	}
	if p.isNull(key) {
		return nil, apperr.Invalid(key + " cannot be null")
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, apperr.Invalid("Invalid " + key)
	}
	return &v, nil
}

// nullable decodes an attribute that may be cleared with an explicit null
func nullable[T any](p patch, key string) (service.Optional[T], error) {
	if _, ok := p[key]; !ok {
		return service.Optional[T]{}, nil
	}
	if p.isNull(key) {
		return service.Optional[T]{Set: true}, nil
	}
	v, err := field[T](p, key)
	if err != nil {
		return service.Optional[T]{}, err
	}
	return service.Optional[T]{Set: true, Value: v}, nil
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, time.RFC3339Nano}

// parseDate accepts a calendar date or a full RFC 3339 timestamp
func parseDate(s string) (*time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, apperr.Invalid("dueDate must be a date (YYYY-MM-DD)")
}

// pageParams reads ?page= and ?limit=; missing values stay zero for the service defaults
func pageParams(c echo.Context) (store.Page, error) {
	var p store.Page
	err := echo.QueryParamsBinder(c).
		Int("page", &p.Page).
		Int("limit", &p.Limit).
		BindError()
	if err != nil {
		return p, apperr.Invalid("page and limit must be numbers")
	}
	return p, nil
}
