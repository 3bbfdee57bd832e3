package progress

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Format selects the stream framing.
type Format int

const (
	// SSE frames each event as "data: {json}\n\n".
	SSE Format = iota
	// NDJSON writes one JSON object per line.
	NDJSON
)

// Marshal encodes e as a JSON object with its "type" tag first.
func Marshal(e Event) ([]byte, error) {
	if u, ok := e.(Unknown); ok {
		return u.Raw, nil
	}
	body, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	tag, err := json.Marshal(e.Type())
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(len(body) + len(tag) + 9)
	buf.WriteString(`{"type":`)
	buf.Write(tag)
	if len(body) > 2 {
		buf.WriteByte(',')
		buf.Write(body[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}

// Encode writes e to w in the given format.
func Encode(w io.Writer, e Event, f Format) error {
	data, err := Marshal(e)
	if err != nil {
		return err
	}
	switch f {
	case SSE:
		_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	default:
		_, err = fmt.Fprintf(w, "%s\n", data)
	}
	return err
}

// Decode parses one event. An SSE "data: " prefix is accepted. Unknown
// types decode to Unknown.
func Decode(line []byte) (Event, error) {
	line = bytes.TrimSpace(line)
	line = bytes.TrimPrefix(line, []byte("data: "))

	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(line, &head); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if head.Type == "" {
		return nil, fmt.Errorf("decode event: missing type")
	}

	switch head.Type {
	case TypeStart:
		return decodeAs[Start](line)
	case TypeStep:
		return decodeAs[Step](line)
	case TypePackageProgress:
		return decodeAs[PackageProgress](line)
	case TypeFileProgress:
		return decodeAs[FileProgress](line)
	case TypeFileComplete:
		return decodeAs[FileComplete](line)
	case TypeFileError:
		return decodeAs[FileError](line)
	case TypeCommandProgress:
		return decodeAs[CommandProgress](line)
	case TypeCommandOutput:
		return decodeAs[CommandOutput](line)
	case TypeCommandComplete:
		return decodeAs[CommandComplete](line)
	case TypeCommandError:
		return decodeAs[CommandError](line)
	case TypeInfo:
		return decodeAs[Info](line)
	case TypeWarning:
		return decodeAs[Warning](line)
	case TypeComplete:
		return decodeAs[Complete](line)
	case TypeError:
		return decodeAs[Error](line)
	}
	return Unknown{Kind: head.Type, Raw: append([]byte(nil), line...)}, nil
}

func decodeAs[T Event](data []byte) (Event, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", v.Type(), err)
	}
	return v, nil
}
