package values

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// ErrNotStringifiable is returned by Stringify for values that have no
// canonical single-line text form (lists, maps, objects).
var ErrNotStringifiable = errors.New("value has no string form")

// IsContainer reports whether v is a non-null object, map, tuple or list.
func IsContainer(v cty.Value) bool {
	if v.IsNull() {
		return false
	}
	ty := v.Type()
	return ty.IsObjectType() || ty.IsMapType() || ty.IsTupleType() || ty.IsListType() || ty.IsSetType()
}

// Walk visits every leaf of the tree in deterministic order: object and map
// attributes sorted by key, tuple and list elements by index. Containers
// themselves are not visited. The walk stops at the first error from fn.
func Walk(root cty.Value, fn func(Path, cty.Value) error) error {
	return walk(nil, root, fn)
}

func walk(p Path, v cty.Value, fn func(Path, cty.Value) error) error {
	if !IsContainer(v) {
		return fn(p, v)
	}

	ty := v.Type()
	switch {
	case ty.IsObjectType(), ty.IsMapType():
		elems := v.AsValueMap()
		keys := make([]string, 0, len(elems))
		for k := range elems {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := walk(p.Child(k), elems[k], fn); err != nil {
				return err
			}
		}
	default:
		i := 0
		for it := v.ElementIterator(); it.Next(); i++ {
			_, ev := it.Element()
			if err := walk(p.Child(strconv.Itoa(i)), ev, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Lookup navigates root along path, returning the addressed value and whether
// every segment existed.
func Lookup(root cty.Value, path Path) (cty.Value, bool) {
	cur := root
	for _, seg := range path {
		if cur.IsNull() {
			return cty.NilVal, false
		}
		ty := cur.Type()
		switch {
		case ty.IsObjectType():
			if !ty.HasAttribute(seg) {
				return cty.NilVal, false
			}
			cur = cur.GetAttr(seg)
		case ty.IsMapType():
			key := cty.StringVal(seg)
			if cur.HasIndex(key).False() {
				return cty.NilVal, false
			}
			cur = cur.Index(key)
		case ty.IsTupleType(), ty.IsListType():
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= cur.LengthInt() {
				return cty.NilVal, false
			}
			cur = cur.Index(cty.NumberIntVal(int64(idx)))
		default:
			return cty.NilVal, false
		}
	}
	return cur, true
}

// Set returns a copy of root with the value at path replaced by nv. The path
// must already exist in the tree; Set never creates intermediate containers.
// Containers are rebuilt as objects and tuples so the replacement value's
// type is unconstrained by its siblings.
func Set(root cty.Value, path Path, nv cty.Value) (cty.Value, error) {
	if len(path) == 0 {
		return nv, nil
	}
	if root.IsNull() {
		return cty.NilVal, fmt.Errorf("cannot descend into null value at %q", path.String())
	}

	seg := path[0]
	ty := root.Type()
	switch {
	case ty.IsObjectType(), ty.IsMapType():
		elems := root.AsValueMap()
		child, ok := elems[seg]
		if !ok {
			return cty.NilVal, fmt.Errorf("key %q not present", seg)
		}
		updated, err := Set(child, path[1:], nv)
		if err != nil {
			return cty.NilVal, err
		}
		elems[seg] = updated
		return cty.ObjectVal(elems), nil

	case ty.IsTupleType(), ty.IsListType():
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 || idx >= root.LengthInt() {
			return cty.NilVal, fmt.Errorf("index %q out of range", seg)
		}
		elems := make([]cty.Value, 0, root.LengthInt())
		for it := root.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			elems = append(elems, ev)
		}
		updated, err := Set(elems[idx], path[1:], nv)
		if err != nil {
			return cty.NilVal, err
		}
		elems[idx] = updated
		return cty.TupleVal(elems), nil

	default:
		return cty.NilVal, fmt.Errorf("cannot descend into %s value at %q", ty.FriendlyName(), seg)
	}
}

// Stringify renders a scalar to its canonical text form: numbers as decimal
// text, booleans as "true"/"false", null as the empty string. Containers
// return ErrNotStringifiable.
func Stringify(v cty.Value) (string, error) {
	if v.IsNull() {
		return "", nil
	}
	if IsContainer(v) {
		return "", ErrNotStringifiable
	}
	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", err
	}
	return s.AsString(), nil
}
