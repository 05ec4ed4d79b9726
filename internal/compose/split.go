package compose

// Multipart splitting. The per-part limit is a transport policy value
// handed in by the caller, never hard-coded here. Cost is measured in
// encoded units of the charset the body needs: GSM-7 septets (basic set
// one, extension set two) or UCS-2 UTF-16 code units.

import "unicode/utf16"

// Charset of an encoded SMS body.
type Charset int

const (
	CharsetGSM7 Charset = iota
	CharsetUCS2
)

// Limits are the per-part capacities supplied by the transport.
type Limits struct {
	GSM7 int // septets per part
	UCS2 int // UTF-16 code units per part
}

// DefaultLimits are the standard single-SMS capacities.
var DefaultLimits = Limits{GSM7: 160, UCS2: 70}

// gsm7Basic is the GSM 03.38 basic character set.
var gsm7Basic = func() map[rune]bool {
	const chars = "@£$¥èéùìòÇ\nØø\rÅåΔ_ΦΓΛΩΠΨΣΘΞÆæßÉ !\"#¤%&'()*+,-./0123456789:;<=>?¡ABCDEFGHIJKLMNOPQRSTUVWXYZÄÖÑܧ¿abcdefghijklmnopqrstuvwxyzäöñüà"
	set := make(map[rune]bool, len(chars))
	for _, r := range chars {
		set[r] = true
	}
	return set
}()

// gsm7Extension holds characters that encode as an escape plus a basic
// character, costing two septets.
var gsm7Extension = map[rune]bool{
	'\f': true, '^': true, '{': true, '}': true, '\\': true,
	'[': true, '~': true, ']': true, '|': true, '€': true,
}

// DetectCharset decides which charset the body needs. A single
// character outside GSM-7 forces the whole message to UCS-2.
func DetectCharset(body string) Charset {
	for _, r := range body {
		if !gsm7Basic[r] && !gsm7Extension[r] {
			return CharsetUCS2
		}
	}
	return CharsetGSM7
}

func runeCost(r rune, cs Charset) int {
	if cs == CharsetGSM7 {
		if gsm7Extension[r] {
			return 2
		}
		return 1
	}
	return len(utf16.Encode([]rune{r}))
}

// EncodedLength returns the cost of body in encoded units of cs.
func EncodedLength(body string, cs Charset) int {
	total := 0
	for _, r := range body {
		total += runeCost(r, cs)
	}
	return total
}

// Split breaks body into the minimal number of parts such that each
// part's encoded length fits the per-part limit. Concatenating the
// parts in order reproduces body exactly. A body within a single part
// is returned as one element; an empty body yields no parts.
func Split(body string, limits Limits) []string {
	if body == "" {
		return nil
	}
	cs := DetectCharset(body)
	limit := limits.GSM7
	if cs == CharsetUCS2 {
		limit = limits.UCS2
	}
	if limit <= 0 {
		limit = 1
	}

	var parts []string
	var cur []rune
	used := 0
	for _, r := range body {
		cost := runeCost(r, cs)
		if used+cost > limit && len(cur) > 0 {
			parts = append(parts, string(cur))
			cur = cur[:0]
			used = 0
		}
		cur = append(cur, r)
		used += cost
	}
	if len(cur) > 0 {
		parts = append(parts, string(cur))
	}
	return parts
}
