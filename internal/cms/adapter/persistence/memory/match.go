package memory

import (
	"reflect"
	"sort"
	"strings"
	"time"

	"blog-cms/internal/cms/domain/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Filter semantics follow the MongoDB adapter: != and not-in match documents
// missing the field, range operators do not.

func matchesAll(doc bson.M, filters []model.Filter) bool {
	for _, f := range filters {
		if !matches(doc, f) {
			return false
		}
	}
	return true
}

func matches(doc bson.M, f model.Filter) bool {
	raw, present := lookup(doc, f.Field)
	got := normalize(raw)
	want := normalize(f.Value)

	switch f.Operator {
	case model.OperatorEqual:
		return equal(got, want)
	case model.OperatorNotEqual:
		return !present || !equal(got, want)
	case model.OperatorLessThan, model.OperatorLessThanOrEqual,
		model.OperatorGreaterThan, model.OperatorGreaterThanOrEqual:
		if !present {
			return false
		}
		c, ok := compare(got, want)
		if !ok {
			return false
		}
		switch f.Operator {
		case model.OperatorLessThan:
			return c < 0
		case model.OperatorLessThanOrEqual:
			return c <= 0
		case model.OperatorGreaterThan:
			return c > 0
		default:
			return c >= 0
		}
	case model.OperatorIn:
		return present && containsEqual(want, got)
	case model.OperatorNotIn:
		return !present || !containsEqual(want, got)
	case model.OperatorArrayContains:
		return present && containsEqual(got, want)
	}
	return false
}

func lookup(doc bson.M, path string) (interface{}, bool) {
	var cur interface{} = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func asMap(v interface{}) (bson.M, bool) {
	switch m := v.(type) {
	case bson.M:
		return m, true
	case map[string]interface{}:
		return m, true
	case primitive.D:
		return m.Map(), true
	}
	return nil, false
}

// normalize maps numbers to float64 and times to unix milliseconds so values
// written through Go types compare with their stored form.
func normalize(v interface{}) interface{} {
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		return float64(x.UnixMilli())
	case *time.Time:
		if x == nil {
			return nil
		}
		return float64(x.UnixMilli())
	case primitive.DateTime:
		return float64(x)
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	case float64:
		return x
	case string, bool:
		return x
	case []byte:
		return x
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]interface{}, rv.Len())
		for i := range out {
			out[i] = normalize(rv.Index(i).Interface())
		}
		return out
	}
	return v
}

func compare(a, b interface{}) (int, bool) {
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

func equal(a, b interface{}) bool {
	if c, ok := compare(a, b); ok {
		return c == 0
	}
	return reflect.DeepEqual(a, b)
}

func containsEqual(list, v interface{}) bool {
	items, ok := list.([]interface{})
	if !ok {
		return false
	}
	for _, item := range items {
		if equal(item, v) {
			return true
		}
	}
	return false
}

// sortDocs orders docs by orders, missing values first, then by _id.
func sortDocs(docs []bson.M, orders []model.Sort) {
	sort.SliceStable(docs, func(i, j int) bool {
		for _, o := range orders {
			a, aok := lookup(docs[i], o.Field)
			b, bok := lookup(docs[j], o.Field)
			var c int
			switch {
			case !aok && !bok:
				c = 0
			case !aok:
				c = -1
			case !bok:
				c = 1
			default:
				c, _ = compare(normalize(a), normalize(b))
			}
			if o.Direction == model.Descending {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return idOf(docs[i]) < idOf(docs[j])
	})
}

func idOf(doc bson.M) string {
	id, _ := doc["_id"].(string)
	return id
}
