package slides

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
)

// Slide is one keyed entry of a Deck.
type Slide struct {
	Key     string
	Content Content
}

// Deck is an ordered set of slide contents keyed by slide key.
// Its JSON form is an object whose key order is kept on encode and decode.
type Deck []Slide

// Lookup returns the content stored under key.
func (d Deck) Lookup(key string) (Content, bool) {
	for _, s := range d {
		if s.Key == key {
			return s.Content, true
		}
	}
	return Content{}, false
}

// Keys returns the slide keys in order.
func (d Deck) Keys() []string {
	keys := make([]string, len(d))
	for i, s := range d {
		keys[i] = s.Key
	}
	return keys
}

// MarshalJSON encodes d as an ordered JSON object.
func (d Deck) MarshalJSON() ([]byte, error) {
	return encodeObject(len(d), func(i int) (string, interface{}) { return d[i].Key, d[i].Content })
}

// UnmarshalJSON decodes an ordered JSON object. A repeated key keeps its first position
// and its last value.
func (d *Deck) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	var out Deck
	pos := map[string]int{}
	err := decodeObject(data, func(key string, raw json.RawMessage) error {
		var c Content
		if err := json.Unmarshal(raw, &c); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if i, ok := pos[key]; ok {
			out[i].Content = c
			return nil
		}
		pos[key] = len(out)
		out = append(out, Slide{Key: key, Content: c})
		return nil
	})
	if err != nil {
		return err
	}
	*d = out
	return nil
}

// SlidePlaceholders is the ordered list of placeholder tokens found on one slide.
type SlidePlaceholders struct {
	Key    string
	Tokens []string
}

// PlaceholderMap lists, per slide, the placeholder tokens of a template in the order they
// receive content. Its JSON form is an ordered object of string arrays.
type PlaceholderMap []SlidePlaceholders

// Count returns the total number of tokens across all slides.
func (m PlaceholderMap) Count() int {
	n := 0
	for _, s := range m {
		n += len(s.Tokens)
	}
	return n
}

// MarshalJSON encodes m as an ordered JSON object. Nil token lists encode as [].
func (m PlaceholderMap) MarshalJSON() ([]byte, error) {
	return encodeObject(len(m), func(i int) (string, interface{}) {
		tokens := m[i].Tokens
		if tokens == nil {
			tokens = []string{}
		}
		return m[i].Key, tokens
	})
}

// UnmarshalJSON decodes an ordered JSON object of string arrays.
func (m *PlaceholderMap) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	var out PlaceholderMap
	pos := map[string]int{}
	err := decodeObject(data, func(key string, raw json.RawMessage) error {
		var tokens []string
		if err := json.Unmarshal(raw, &tokens); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if i, ok := pos[key]; ok {
			out[i].Tokens = tokens
			return nil
		}
		pos[key] = len(out)
		out = append(out, SlidePlaceholders{Key: key, Tokens: tokens})
		return nil
	})
	if err != nil {
		return err
	}
	*m = out
	return nil
}

// Resolved maps a slide number to the literal value of each placeholder token on that slide.
type Resolved map[int]map[string]string

// Numbers returns the slide numbers in ascending order.
func (r Resolved) Numbers() []int {
	nums := make([]int, 0, len(r))
	for n := range r {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

var errNotObject = errors.New("expected a JSON object")

// DecodeDeck parses a user-content artifact. Unlike json.Unmarshal into a Deck it rejects
// a top-level null.
func DecodeDeck(data []byte) (Deck, error) {
	if isNull(data) {
		return nil, errNotObject
	}
	var d Deck
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return d, nil
}

// DecodePlaceholderMap parses a mapped-content artifact, rejecting a top-level null.
func DecodePlaceholderMap(data []byte) (PlaceholderMap, error) {
	if isNull(data) {
		return nil, errNotObject
	}
	var m PlaceholderMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func isNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

func encodeObject(n int, entry func(i int) (string, interface{})) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i := 0; i < n; i++ {
		key, value := entry(i)
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func decodeObject(data []byte, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errNotObject
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("unexpected data after JSON object")
	}
	return nil
}
