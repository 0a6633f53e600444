package slides

import (
	"fmt"
	"strconv"
	"strings"
)

// KeyPrefix is the fixed prefix of every slide key ("slide_1", "slide_2", ...).
const KeyPrefix = "slide_"

// KeyError reports a slide key that does not have the form slide_<digits>.
type KeyError struct {
	Key string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("invalid slide key %q: want %s<number>", e.Key, KeyPrefix)
}

// Key returns the slide key for the 1-based slide number n.
func Key(n int) string {
	return KeyPrefix + strconv.Itoa(n)
}

// Number returns the slide number encoded in key. The key must be KeyPrefix followed by
// one or more ASCII digits; anything else returns a *KeyError.
func Number(key string) (int, error) {
	rest, ok := strings.CutPrefix(key, KeyPrefix)
	if !ok || rest == "" {
		return 0, &KeyError{Key: key}
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return 0, &KeyError{Key: key}
		}
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, &KeyError{Key: key}
	}
	return n, nil
}
