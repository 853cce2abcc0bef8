package fileformat

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/frib-high-level-controls/save-set-restore/internal/data"
)

const (
	commentPrefix     = "#"
	descriptionHeader = "# Description:"
	headerPV          = "PV"
	headerReadback    = "READBACK"
	headerDelta       = "DELTA"
)

// BeamlineSetCodec reads and writes .bms files.
type BeamlineSetCodec struct{}

// Encode 生成 beamline set 文件内容：描述（每行以 "# " 开头）后跟 CSV 表。
func (BeamlineSetCodec) Encode(d data.BeamlineSetData) (string, error) {
	if len(d.Readbacks) != len(d.PVs) || len(d.Deltas) != len(d.PVs) {
		return "", fmt.Errorf("beamline set %s: %d pvs, %d readbacks, %d deltas", d.Descriptor, len(d.PVs), len(d.Readbacks), len(d.Deltas))
	}

	var buf bytes.Buffer
	buf.WriteString(descriptionHeader + "\n")
	if d.Description != "" {
		for _, line := range strings.Split(d.Description, "\n") {
			buf.WriteString(commentPrefix + " " + line + "\n")
		}
	}
	buf.WriteString(commentPrefix + "\n")

	w := csv.NewWriter(&buf)
	if err := w.Write([]string{headerPV, headerReadback, headerDelta}); err != nil {
		return "", err
	}
	for i, pv := range d.PVs {
		if err := w.Write([]string{pv, d.Readbacks[i], d.Deltas[i]}); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Decode parses .bms content and attaches descriptor to the result.
func (BeamlineSetCodec) Decode(text string, descriptor data.BeamlineSet) (data.BeamlineSetData, error) {
	description, body := splitHeader(text)

	r := csv.NewReader(strings.NewReader(body))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err == io.EOF {
		return data.NewBeamlineSetData(descriptor, nil, nil, nil, description), nil
	}
	if err != nil {
		return data.BeamlineSetData{}, fmt.Errorf("read header: %w", err)
	}
	cols, err := columnIndex(header, headerPV)
	if err != nil {
		return data.BeamlineSetData{}, err
	}

	var pvs, readbacks, deltas []string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return data.BeamlineSetData{}, fmt.Errorf("read row: %w", err)
		}
		pvs = append(pvs, cell(rec, cols, headerPV))
		readbacks = append(readbacks, cell(rec, cols, headerReadback))
		deltas = append(deltas, cell(rec, cols, headerDelta))
	}
	return data.NewBeamlineSetData(descriptor, pvs, readbacks, deltas, description), nil
}

// splitHeader 拆分出头部的描述文本和 CSV 主体。
// 描述位于第一个 "# Description:" 与其后第一行单独的 "#" 之间；
// 描述内的行（包括 "# Description:" 本身）都按原文读取。
func splitHeader(text string) (description, body string) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	var desc []string
	inDescription, described := false, false
	i := 0
	for ; i < len(lines); i++ {
		line := lines[i]
		if !strings.HasPrefix(line, commentPrefix) {
			break
		}
		switch {
		case inDescription && line == commentPrefix:
			inDescription = false
		case inDescription:
			desc = append(desc, strings.TrimPrefix(strings.TrimPrefix(line, commentPrefix), " "))
		case line == descriptionHeader && !described:
			inDescription, described = true, true
		}
	}
	return strings.Join(desc, "\n"), strings.Join(lines[i:], "\n")
}

func columnIndex(header []string, required ...string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToUpper(strings.TrimSpace(h))] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %s", name)
		}
	}
	return cols, nil
}

func cell(rec []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return rec[i]
}
