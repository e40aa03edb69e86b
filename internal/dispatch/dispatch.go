// Package dispatch picks the parser for an alignment file and resolves the
// format and mode when the caller leaves them open.
package dispatch

import (
	"fmt"
	"strings"

	"alnstream/internal/alignment"
	"alnstream/internal/linereader"
	"alnstream/internal/parser"

	"github.com/rs/zerolog/log"
)

// SniffLines is how much of a file DetectFile looks at.
const SniffLines = 200

// Format is an input dialect.
type Format int

const (
	Unknown Format = iota
	LastMAF
	BlastText
)

func (f Format) String() string {
	switch f {
	case LastMAF:
		return "maf"
	case BlastText:
		return "blast-text"
	}
	return "unknown"
}

// ParseFormat accepts the names used on the command line. "" and "auto"
// map to Unknown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return Unknown, nil
	case "maf", "last", "last-maf":
		return LastMAF, nil
	case "blast", "blast-text", "blasttext", "text":
		return BlastText, nil
	}
	return Unknown, fmt.Errorf("%w: format %q", parser.ErrUnsupportedFormat, s)
}

// Sniff guesses format and mode from the first lines of a file. The mode of
// a MAF file comes from its first alignment block and stays ModeUnknown if
// the lines hold none.
func Sniff(lines []string) (Format, alignment.Mode) {
	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i == len(lines) {
		return Unknown, alignment.ModeUnknown
	}

	first := strings.TrimSpace(lines[i])
	if strings.HasPrefix(first, "#") {
		return LastMAF, sniffMAFMode(lines[i:])
	}
	program := strings.Fields(first)[0]
	if parser.IsBlastBanner(program) {
		return BlastText, parser.BannerMode(program)
	}
	return Unknown, alignment.ModeUnknown
}

func sniffMAFMode(lines []string) alignment.Mode {
	var rows []string
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "a "):
			rows = rows[:0]
		case strings.HasPrefix(line, "s "):
			rows = append(rows, line)
			if len(rows) == 2 {
				return parser.InferMAFMode(rows[0], rows[1])
			}
		}
	}
	return alignment.ModeUnknown
}

// DetectFile sniffs the head of path. Compressed files are read through
// their decoder.
func DetectFile(path string) (Format, alignment.Mode, error) {
	cur, err := linereader.Open(path)
	if err != nil {
		return Unknown, alignment.ModeUnknown, err
	}
	defer cur.Close()

	lines := make([]string, 0, SniffLines)
	for len(lines) < SniffLines {
		line, err := cur.Next()
		if err != nil {
			break
		}
		lines = append(lines, line)
	}
	if err := cur.Err(); err != nil {
		return Unknown, alignment.ModeUnknown, fmt.Errorf("sniff %s: %w", path, err)
	}
	format, mode := Sniff(lines)
	return format, mode, nil
}

// New builds the iterator for format over cur. On error cur is closed.
func New(cur *linereader.Cursor, format Format, opts parser.Options) (parser.Iterator, error) {
	switch format {
	case LastMAF:
		return parser.NewMAFParser(cur, opts)
	case BlastText:
		return parser.NewBlastTextParser(cur, opts)
	}
	_ = cur.Close()
	return nil, fmt.Errorf("%w: %s", parser.ErrUnsupportedFormat, format)
}

// Resolve fills in an Unknown format or mode by sniffing path. Stdin
// cannot be sniffed and needs an explicit format.
func Resolve(path string, format Format, mode alignment.Mode) (Format, alignment.Mode, error) {
	if format != Unknown {
		return format, mode, nil
	}
	if path == "-" {
		return Unknown, mode, fmt.Errorf("%w: standard input needs an explicit format", parser.ErrUnsupportedFormat)
	}
	detected, detectedMode, err := DetectFile(path)
	if err != nil {
		return Unknown, mode, err
	}
	if detected == Unknown {
		return Unknown, mode, fmt.Errorf("%w: cannot detect format of %s", parser.ErrUnsupportedFormat, path)
	}
	if mode == alignment.ModeUnknown {
		mode = detectedMode
	}
	log.Debug().Str("file", path).Stringer("format", detected).Stringer("mode", mode).Msg("Detected alignment format")
	return detected, mode, nil
}

// Open opens path ("-" for stdin) and returns its iterator, resolving an
// Unknown format or mode first.
func Open(path string, format Format, mode alignment.Mode, opts parser.Options) (parser.Iterator, error) {
	format, mode, err := Resolve(path, format, mode)
	if err != nil {
		return nil, err
	}

	opts.Mode = mode
	if opts.Name == "" {
		opts.Name = path
	}
	cur, err := linereader.Open(path)
	if err != nil {
		return nil, err
	}
	it, err := New(cur, format, opts)
	if err != nil {
		return nil, fmt.Errorf("open %s as %s: %w", path, format, err)
	}
	return it, nil
}
