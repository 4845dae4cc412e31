package sink

import (
	"bytes"
	"io"
	"strings"

	"git.home.luguber.info/inful/confexport/internal/foundation/errors"
)

// Separator frames blocks and the flat file header.
var Separator = strings.Repeat("=", 80)

var (
	blockStart  = "\n\n" + Separator + "\n### "
	blockEnd    = "\n" + Separator + "\n"
	idMarker    = " (ID: "
	headerTitle = "# Export from Confluence Root Page: "
)

// Block is one page as stored in flat and chunked output.
type Block struct {
	Title string
	ID    string
	Text  string
}

// FormatBlock renders a page block.
func FormatBlock(title, id, text string) []byte {
	var b bytes.Buffer
	b.Grow(len(blockStart) + len(title) + len(id) + len(text) + len(blockEnd) + 16)
	b.WriteString(blockStart)
	b.WriteString(title)
	b.WriteString(idMarker)
	b.WriteString(id)
	b.WriteString(")\n\n")
	b.WriteString(text)
	b.WriteString(blockEnd)
	return b.Bytes()
}

// FlatHeader renders the run header written at the top of a flat export.
func FlatHeader(rootName, rootID string) string {
	return headerTitle + rootName + idMarker + rootID + ")\n" + Separator + "\n"
}

// ParseBlocks reads flat or chunked output back into blocks. Anything before
// the first block (the flat header) is ignored. Page text containing a full
// block opening sequence cannot be told apart from a new block.
func ParseBlocks(r io.Reader) ([]Block, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.FileSystemError("failed to read export").WithCause(err).Build()
	}
	content := string(data)

	var blocks []Block
	pos := strings.Index(content, blockStart)
	for pos != -1 {
		headerStart := pos + len(blockStart)
		nl := strings.IndexByte(content[headerStart:], '\n')
		if nl == -1 {
			return nil, malformed("unterminated block header", len(blocks))
		}
		header := content[headerStart : headerStart+nl]
		cut := strings.LastIndex(header, idMarker)
		if cut == -1 || !strings.HasSuffix(header, ")") {
			return nil, malformed("block header without page id", len(blocks))
		}
		title, id := header[:cut], header[cut+len(idMarker):len(header)-1]

		bodyStart := headerStart + nl + 1
		if !strings.HasPrefix(content[bodyStart:], "\n") {
			return nil, malformed("missing blank line after block header", len(blocks))
		}
		bodyStart++

		next := strings.Index(content[bodyStart:], blockStart)
		bodyEnd := len(content)
		if next != -1 {
			bodyEnd = bodyStart + next
		}
		body := content[bodyStart:bodyEnd]
		if !strings.HasSuffix(body, blockEnd) {
			return nil, malformed("block is not closed by a separator", len(blocks))
		}

		blocks = append(blocks, Block{Title: title, ID: id, Text: strings.TrimSuffix(body, blockEnd)})
		if next == -1 {
			break
		}
		pos = bodyEnd
	}
	return blocks, nil
}

func malformed(msg string, index int) error {
	return errors.DataShapeError(msg).WithContext("block", index).Build()
}
