package printers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

var utf8BOM = []byte("\xef\xbb\xbf")

// ParseLpstat parses `lpstat -e` output: one destination per line. Blank lines
// are ignored. The display name replaces underscores with spaces; SystemName
// keeps the line as listed.
func ParseLpstat(out []byte) []Printer {
	lines := strings.Split(string(out), "\n")
	printers := make([]Printer, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		printers = append(printers, Printer{
			Name:       strings.TrimSpace(strings.ReplaceAll(line, "_", " ")),
			SystemName: line,
		})
	}
	return printers
}

// ParseFormatList parses `Get-Printer | Format-List Name,DriverName` output.
// Records are separated by blank lines and hold "Label : Value" lines.
// Records without a Name, or with lines that are neither a label nor a
// wrapped continuation, are skipped and reported.
func ParseFormatList(out []byte) ([]Printer, []*RecordError) {
	text := strings.ReplaceAll(string(bytes.TrimPrefix(out, utf8BOM)), "\r\n", "\n")

	var (
		printers []Printer
		skipped  []*RecordError
		block    []string
	)

	flush := func() {
		if len(block) == 0 {
			return
		}
		idx := len(printers) + len(skipped)
		p, reason := parseListBlock(block)
		if reason != "" {
			skipped = append(skipped, &RecordError{Index: idx, Raw: strings.Join(block, "\n"), Reason: reason})
		} else {
			printers = append(printers, p)
		}
		block = block[:0]
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		block = append(block, line)
	}
	flush()

	return printers, skipped
}

func parseListBlock(lines []string) (Printer, string) {
	fields := make(map[string]string, 2)
	lastKey := ""

	for _, line := range lines {
		// Format-List wraps long values onto indented lines.
		if lastKey != "" && (line[0] == ' ' || line[0] == '\t') {
			fields[lastKey] += strings.TrimSpace(line)
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return Printer{}, fmt.Sprintf("unexpected line %q", line)
		}
		lastKey = strings.ToLower(strings.TrimSpace(key))
		fields[lastKey] = strings.TrimSpace(value)
	}

	name := fields["name"]
	if name == "" {
		return Printer{}, "missing Name field"
	}
	return Printer{Name: name, SystemName: name, DriverName: fields["drivername"]}, ""
}

type systemPrinter struct {
	Name       *string `json:"Name"`
	DriverName *string `json:"DriverName"`
}

// ParseJSON parses `Get-Printer | ConvertTo-Json` output. ConvertTo-Json
// emits a bare object for a single printer and an array otherwise; both are
// accepted. Entries are decoded one at a time so a malformed entry only costs
// that entry. The error is non-nil only when the document is not JSON.
func ParseJSON(out []byte) ([]Printer, []*RecordError, error) {
	out = bytes.TrimSpace(bytes.TrimPrefix(out, utf8BOM))
	if len(out) == 0 {
		return nil, nil, nil
	}

	var raws []json.RawMessage
	switch out[0] {
	case '[':
		if err := json.Unmarshal(out, &raws); err != nil {
			return nil, nil, fmt.Errorf("decoding printer list: %w", err)
		}
	case '{':
		raws = []json.RawMessage{out}
	default:
		return nil, nil, fmt.Errorf("decoding printer list: unexpected leading %q", out[0])
	}

	var (
		printers = make([]Printer, 0, len(raws))
		skipped  []*RecordError
	)
	for i, raw := range raws {
		var sp systemPrinter
		if err := json.Unmarshal(raw, &sp); err != nil {
			skipped = append(skipped, &RecordError{Index: i, Raw: string(raw), Reason: err.Error()})
			continue
		}
		if sp.Name == nil || *sp.Name == "" {
			skipped = append(skipped, &RecordError{Index: i, Raw: string(raw), Reason: "missing Name field"})
			continue
		}
		p := Printer{Name: *sp.Name, SystemName: *sp.Name}
		if sp.DriverName != nil {
			p.DriverName = *sp.DriverName
		}
		printers = append(printers, p)
	}
	return printers, skipped, nil
}
