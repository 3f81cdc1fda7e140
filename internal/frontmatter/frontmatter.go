// Package frontmatter splits Markdown documents into a YAML metadata block
// and a body, and decodes the block into typed targets.
//
// A block opens with the first non-blank line when that line starts with
// "---" and closes at the next line starting with "---" (or end of file).
// Split reports how many lines precede the body so readers can later seek
// straight to the content without re-parsing the metadata.
package frontmatter

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"
)

// Delimiter opens and closes a front-matter block.
const Delimiter = "---"

const byteOrderMark = "\ufeff"

// Block is a document's front-matter section.
type Block struct {
	// Raw is the YAML between the delimiters, without the delimiter lines.
	Raw []byte
	// Found reports whether an opening delimiter was present.
	Found bool
	// BodyStart is the number of lines consumed before the body, counting
	// leading blank lines and both delimiters. Zero when Found is false.
	BodyStart int
}

// Split reads the front-matter block from r. It stops reading at the end of
// the block, so r can be a file that is about to be closed.
func Split(r io.Reader) (Block, error) {
	br := bufio.NewReader(r)
	consumed := 0
	first := true

	for {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return Block{}, err
		}
		if line == "" {
			return Block{}, nil
		}
		if first {
			line = strings.TrimPrefix(line, byteOrderMark)
			first = false
		}
		consumed++

		if strings.TrimSpace(line) == "" {
			if err != nil {
				return Block{}, nil
			}
			continue
		}
		if !strings.HasPrefix(line, Delimiter) {
			return Block{}, nil
		}
		if err != nil {
			// A lone opening delimiter at EOF: empty block, no body.
			return Block{Found: true, BodyStart: consumed}, nil
		}
		break
	}

	var raw bytes.Buffer
	for {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return Block{}, err
		}
		if line != "" {
			consumed++
			if strings.HasPrefix(line, Delimiter) {
				return Block{Raw: raw.Bytes(), Found: true, BodyStart: consumed}, nil
			}
			raw.WriteString(line)
		}
		if err != nil {
			// Unterminated block: everything was metadata.
			return Block{Raw: raw.Bytes(), Found: true, BodyStart: consumed}, nil
		}
	}
}

// SkipLines advances br past n lines. Reaching EOF early is not an error;
// the reader is simply left empty.
func SkipLines(br *bufio.Reader, n int) error {
	for i := 0; i < n; i++ {
		_, err := br.ReadString('\n')
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// timeLayouts lists the accepted date formats for time fields, most specific first.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

var timeType = reflect.TypeOf(time.Time{})

func stringToTimeHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != timeType {
		return data, nil
	}

	s := strings.TrimSpace(data.(string))
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized date %q", s)
}

// Decode unmarshals the YAML in raw into target. Keys match the target's
// `yaml` tags case-insensitively and unknown keys are ignored. Target is left
// untouched when raw holds no mapping.
func Decode(raw []byte, target interface{}) error {
	var fields map[string]interface{}
	if err := yaml.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("parse front matter: %w", err)
	}
	if len(fields) == 0 {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.DecodeHookFuncType(stringToTimeHook),
	})
	if err != nil {
		return fmt.Errorf("front matter decoder: %w", err)
	}
	if err := decoder.Decode(fields); err != nil {
		return fmt.Errorf("decode front matter: %w", err)
	}
	return nil
}
