package codec

import "strings"

const (
	xuidPrefix  = "xuid("
	botIDPrefix = "bid("
)

// UnwrapXUID turns "xuid(2533274800000000)" into "2533274800000000".
// Values without the wrapper are returned trimmed.
func UnwrapXUID(value string) string {
	return unwrap(value, xuidPrefix)
}

func WrapXUID(value string) string {
	return xuidPrefix + UnwrapXUID(value) + ")"
}

// UnwrapBotID turns "bid(2.0)" into "2.0".
func UnwrapBotID(value string) string {
	return unwrap(value, botIDPrefix)
}

func WrapBotID(value string) string {
	return botIDPrefix + UnwrapBotID(value) + ")"
}

func unwrap(value, prefix string) string {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, prefix) && strings.HasSuffix(value, ")") {
		return value[len(prefix) : len(value)-1]
	}
	return value
}

// Batch splits items into consecutive chunks of at most size elements.
func Batch[T any](items []T, size int) [][]T {
	if size < 1 {
		size = 1
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}
