package entity

import (
	"net/url"
	"strconv"
	"time"
)

// Well-known filter attribute names shared across resources.
const (
	FilterAttrInstitution = "institution_id"
	FilterAttrActive      = "active"
	FilterAttrName        = "name"
	FilterAttrFrom        = "from"
	FilterAttrTo          = "to"
)

// FilterMap is a typed view over request query parameters used by DAOs
// to build their matching criteria. All getters return zero values for
// missing or malformed entries.
type FilterMap struct {
	params url.Values
}

func NewFilterMap() FilterMap {
	return FilterMap{params: make(url.Values)}
}

func FilterMapOf(params url.Values) FilterMap {
	if params == nil {
		params = make(url.Values)
	}
	return FilterMap{params: params}
}

func (f FilterMap) Contains(name string) bool {
	return f.params.Get(name) != ""
}

// PutIfAbsent sets name=value unless the filter already carries name.
func (f FilterMap) PutIfAbsent(name, value string) FilterMap {
	if !f.Contains(name) {
		f.params.Set(name, value)
	}
	return f
}

func (f FilterMap) GetString(name string) string {
	return f.params.Get(name)
}

func (f FilterMap) GetStrings(name string) []string {
	return f.params[name]
}

func (f FilterMap) GetInt64(name string) int64 {
	v, err := strconv.ParseInt(f.params.Get(name), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func (f FilterMap) GetBool(name string) *bool {
	s := f.params.Get(name)
	if s == "" {
		return nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil
	}
	return &b
}

func (f FilterMap) GetTime(name string) time.Time {
	t, err := time.Parse(time.RFC3339, f.params.Get(name))
	if err != nil {
		return time.Time{}
	}
	return t
}

func (f FilterMap) InstitutionID() int64 {
	return f.GetInt64(FilterAttrInstitution)
}

func (f FilterMap) Active() *bool {
	return f.GetBool(FilterAttrActive)
}

func (f FilterMap) Name() string {
	return f.GetString(FilterAttrName)
}
