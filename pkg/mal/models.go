package mal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Season is one of the four seasonal labels partitioning a year's releases
type Season string

const (
	Winter Season = "winter"
	Spring Season = "spring"
	Summer Season = "summer"
	Fall   Season = "fall"
)

// AllSeasons lists the seasons in their declared order
var AllSeasons = []Season{Winter, Spring, Summer, Fall}

func (s Season) String() string {
	return string(s)
}

// ParseSeason converts a label into a Season, ignoring case
func ParseSeason(label string) (Season, error) {
	s := Season(strings.ToLower(strings.TrimSpace(label)))
	for _, known := range AllSeasons {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown season %q", label)
}

// ParseSeasons converts labels into Seasons, keeping their order
func ParseSeasons(labels []string) ([]Season, error) {
	seasons := make([]Season, 0, len(labels))
	for _, label := range labels {
		s, err := ParseSeason(label)
		if err != nil {
			return nil, err
		}
		seasons = append(seasons, s)
	}
	return seasons, nil
}

// SeasonPage is one page of the seasonal listing endpoint
type SeasonPage struct {
	Data   []SeasonEntry `json:"data"`
	Paging Paging        `json:"paging"`
}

// Paging carries the cursor links of a listing page
type Paging struct {
	Next     *string `json:"next,omitempty"`
	Previous *string `json:"previous,omitempty"`
}

// HasNext reports whether the page advertises another page.
// Presence of the key is what counts, even when the link is empty.
func (p *SeasonPage) HasNext() bool {
	return p.Paging.Next != nil
}

// SeasonEntry wraps a single listed anime
type SeasonEntry struct {
	Node AnimeNode `json:"node"`
}

// AnimeNode is the listing-stage payload of an anime
type AnimeNode struct {
	ID          int64             `json:"id"`
	Title       string            `json:"title"`
	MainPicture map[string]string `json:"main_picture,omitempty"`
}

// Details is the full detail record of an anime.
// Raw is the payload exactly as returned by the API.
type Details struct {
	ID       int64
	Pictures map[string]string
	Raw      json.RawMessage
}

// PictureSizes returns the picture size labels in sorted order
func (d *Details) PictureSizes() []string {
	sizes := make([]string, 0, len(d.Pictures))
	for size := range d.Pictures {
		sizes = append(sizes, size)
	}
	sort.Strings(sizes)
	return sizes
}

// Indented re-encodes Raw for storage: keys in payload order, numbers kept
// verbatim, non-ASCII and HTML characters unescaped, terminated by a newline.
func (d *Details) Indented(indent string) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(d.Raw))
	dec.UseNumber()

	w := &indentWriter{dec: dec, indent: indent}
	if err := w.value(0); err != nil {
		return nil, fmt.Errorf("failed to re-encode details payload: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("failed to re-encode details payload: trailing data after value")
	}
	w.buf.WriteByte('\n')
	return w.buf.Bytes(), nil
}

// indentWriter copies a JSON token stream into buf, one member per line
type indentWriter struct {
	dec    *json.Decoder
	indent string
	buf    bytes.Buffer
}

func (w *indentWriter) value(depth int) error {
	tok, err := w.dec.Token()
	if err != nil {
		return err
	}

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			return w.object(depth)
		case '[':
			return w.array(depth)
		}
		return fmt.Errorf("unexpected delimiter %q", v)
	case string:
		return w.str(v)
	case json.Number:
		w.buf.WriteString(v.String())
	case bool:
		w.buf.WriteString(strconv.FormatBool(v))
	case nil:
		w.buf.WriteString("null")
	}
	return nil
}

func (w *indentWriter) object(depth int) error {
	w.buf.WriteByte('{')
	n := 0
	for w.dec.More() {
		tok, err := w.dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected object key %v", tok)
		}
		if n > 0 {
			w.buf.WriteByte(',')
		}
		w.newline(depth + 1)
		if err := w.str(key); err != nil {
			return err
		}
		w.buf.WriteString(": ")
		if err := w.value(depth + 1); err != nil {
			return err
		}
		n++
	}
	return w.close('}', depth, n)
}

func (w *indentWriter) array(depth int) error {
	w.buf.WriteByte('[')
	n := 0
	for w.dec.More() {
		if n > 0 {
			w.buf.WriteByte(',')
		}
		w.newline(depth + 1)
		if err := w.value(depth + 1); err != nil {
			return err
		}
		n++
	}
	return w.close(']', depth, n)
}

// close consumes the closing delimiter; empty containers stay on one line
func (w *indentWriter) close(delim byte, depth, members int) error {
	if _, err := w.dec.Token(); err != nil {
		return err
	}
	if members > 0 {
		w.newline(depth)
	}
	w.buf.WriteByte(delim)
	return nil
}

func (w *indentWriter) newline(depth int) {
	w.buf.WriteByte('\n')
	w.buf.WriteString(strings.Repeat(w.indent, depth))
}

func (w *indentWriter) str(s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	w.buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}
