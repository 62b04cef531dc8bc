package tokens

import (
	"sync"
	"unicode/utf8"

	tiktoken "github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// useOfflineBPE makes tiktoken read encodings embedded in the binary instead
// of downloading and caching them on first use.
var useOfflineBPE = sync.OnceFunc(func() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
})

// CharsPerToken is the ratio used by the estimate. It is a rough average for
// mixed English/CJK text.
const CharsPerToken = 4

// Counter counts tokens for a model hint. When Exact is set it tries the
// model's tiktoken encoding first and falls back to Estimate when the model
// is unknown or the encoding cannot be loaded. Counting never fails.
//
// A Counter is safe for concurrent use. The zero value estimates only.
type Counter struct {
	Exact bool

	encoders sync.Map // model hint -> *tiktoken.Tiktoken (nil when unavailable)
}

// NewCounter returns a Counter. exact enables tiktoken lookups.
func NewCounter(exact bool) *Counter {
	return &Counter{Exact: exact}
}

// Count returns the number of tokens in text for the given model hint.
func (c *Counter) Count(text, model string) int {
	if text == "" {
		return 0
	}
	if c == nil || !c.Exact {
		return Estimate(text)
	}
	enc := c.encoder(model)
	if enc == nil {
		return Estimate(text)
	}
	n, ok := encodeLen(enc, text)
	if !ok {
		return Estimate(text)
	}
	return n
}

// Estimate is ceil(runes / CharsPerToken).
func Estimate(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + CharsPerToken - 1) / CharsPerToken
}

func (c *Counter) encoder(model string) *tiktoken.Tiktoken {
	if v, ok := c.encoders.Load(model); ok {
		enc, _ := v.(*tiktoken.Tiktoken)
		return enc
	}
	useOfflineBPE()
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc = nil
	}
	c.encoders.Store(model, enc)
	return enc
}

// encodeLen guards against the encoder panicking on input it rejects.
func encodeLen(enc *tiktoken.Tiktoken, text string) (n int, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			n, ok = 0, false
		}
	}()
	return len(enc.Encode(text, []string{"all"}, nil)), true
}
