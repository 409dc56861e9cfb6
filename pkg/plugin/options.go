package plugin

import (
	"fmt"
	"sort"
	"strconv"
)

// InvalidOptionError reports an option that is missing or has the wrong type.
type InvalidOptionError struct {
	Key    string
	Reason string
}

// Error implements error.
func (e *InvalidOptionError) Error() string {
	return fmt.Sprintf("invalid option %q: %s", e.Key, e.Reason)
}

// Options is the configuration of a plugin: declared defaults plus the
// values the user changed. Only the changes are persisted with a node.
type Options struct {
	defaults map[string]interface{}
	changes  map[string]interface{}
}

// NewOptions creates an empty option set.
func NewOptions() *Options {
	return &Options{
		defaults: make(map[string]interface{}),
		changes:  make(map[string]interface{}),
	}
}

// Default declares key with its default value and returns o for chaining.
func (o *Options) Default(key string, value interface{}) *Options {
	o.defaults[key] = value
	return o
}

// Set assigns a value. Setting a key back to its default drops the change.
func (o *Options) Set(key string, value interface{}) {
	if def, ok := o.defaults[key]; ok && fmt.Sprint(def) == fmt.Sprint(value) {
		delete(o.changes, key)
		return
	}
	o.changes[key] = value
}

// Apply sets every entry of changes.
func (o *Options) Apply(changes map[string]interface{}) {
	for k, v := range changes {
		o.Set(k, v)
	}
}

// Get returns the current value of key.
func (o *Options) Get(key string) (interface{}, bool) {
	if v, ok := o.changes[key]; ok {
		return v, true
	}
	v, ok := o.defaults[key]
	return v, ok
}

// Changes returns a copy of the values that differ from the defaults.
func (o *Options) Changes() map[string]interface{} {
	out := make(map[string]interface{}, len(o.changes))
	for k, v := range o.changes {
		out[k] = v
	}
	return out
}

// Values returns a copy of every current value.
func (o *Options) Values() map[string]interface{} {
	out := make(map[string]interface{}, len(o.defaults)+len(o.changes))
	for k, v := range o.defaults {
		out[k] = v
	}
	for k, v := range o.changes {
		out[k] = v
	}
	return out
}

// Keys returns the known option names, sorted.
func (o *Options) Keys() []string {
	seen := o.Values()
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String returns key as text.
func (o *Options) String(key string) (string, error) {
	v, ok := o.Get(key)
	if !ok {
		return "", &InvalidOptionError{Key: key, Reason: "not set"}
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case fmt.Stringer:
		return s.String(), nil
	default:
		return fmt.Sprint(v), nil
	}
}

// Int returns key as an integer. JSON numbers and numeric strings are accepted.
func (o *Options) Int(key string) (int, error) {
	v, ok := o.Get(key)
	if !ok {
		return 0, &InvalidOptionError{Key: key, Reason: "not set"}
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, &InvalidOptionError{Key: key, Reason: "not an integer"}
		}
		return int(n), nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, &InvalidOptionError{Key: key, Reason: "not an integer"}
		}
		return i, nil
	default:
		return 0, &InvalidOptionError{Key: key, Reason: fmt.Sprintf("unexpected type %T", v)}
	}
}

// Float returns key as a float.
func (o *Options) Float(key string) (float64, error) {
	v, ok := o.Get(key)
	if !ok {
		return 0, &InvalidOptionError{Key: key, Reason: "not set"}
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, &InvalidOptionError{Key: key, Reason: "not a number"}
		}
		return f, nil
	default:
		return 0, &InvalidOptionError{Key: key, Reason: fmt.Sprintf("unexpected type %T", v)}
	}
}

// Bool returns key as a boolean.
func (o *Options) Bool(key string) (bool, error) {
	v, ok := o.Get(key)
	if !ok {
		return false, &InvalidOptionError{Key: key, Reason: "not set"}
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		p, err := strconv.ParseBool(b)
		if err != nil {
			return false, &InvalidOptionError{Key: key, Reason: "not a boolean"}
		}
		return p, nil
	default:
		return false, &InvalidOptionError{Key: key, Reason: fmt.Sprintf("unexpected type %T", v)}
	}
}
