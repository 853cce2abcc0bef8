package fileformat

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/frib-high-level-controls/save-set-restore/internal/data"
)

const (
	dateHeader = "# Date: "

	colSelected          = "SELECTED"
	colTimestamp         = "TIMESTAMP"
	colStatus            = "STATUS"
	colSeverity          = "SEVERITY"
	colValueType         = "VALUE_TYPE"
	colValue             = "VALUE"
	colReadbackTimestamp = "READBACK_TIMESTAMP"
	colReadbackStatus    = "READBACK_STATUS"
	colReadbackSeverity  = "READBACK_SEVERITY"
	colReadbackValueType = "READBACK_VALUE_TYPE"
	colReadbackValue     = "READBACK_VALUE"
)

var snapshotColumns = []string{
	headerPV, colSelected, colTimestamp, colStatus, colSeverity, colValueType, colValue,
	headerReadback, colReadbackTimestamp, colReadbackStatus, colReadbackSeverity, colReadbackValueType, colReadbackValue,
	headerDelta,
}

// SnapshotCodec reads and writes .snp files.
type SnapshotCodec struct{}

// Encode 生成快照文件内容。每个通道一行，readback 缺失时相应列为空。
// 所有列的长度必须与 PVs 一致，否则读回的内容与写入的不同。
func (SnapshotCodec) Encode(v data.VSnapshot) (string, error) {
	n := len(v.PVs)
	if len(v.Values) != n || len(v.Selected) != n {
		return "", fmt.Errorf("snapshot %s: %d pvs, %d values, %d selected flags", v.Snapshot.BeamlineSet, n, len(v.Values), len(v.Selected))
	}
	if len(v.Readbacks) != n || len(v.ReadbackValues) != n || len(v.Deltas) != n {
		return "", fmt.Errorf("snapshot %s: %d pvs, %d readbacks, %d readback values, %d deltas",
			v.Snapshot.BeamlineSet, n, len(v.Readbacks), len(v.ReadbackValues), len(v.Deltas))
	}

	var buf bytes.Buffer
	buf.WriteString(dateHeader + formatTime(v.Timestamp) + "\n")

	w := csv.NewWriter(&buf)
	if err := w.Write(snapshotColumns); err != nil {
		return "", err
	}
	for i, pv := range v.PVs {
		value, err := encodeValue(v.Values[i])
		if err != nil {
			return "", fmt.Errorf("pv %s: %w", pv, err)
		}
		readback, err := encodeValue(v.ReadbackValues[i])
		if err != nil {
			return "", fmt.Errorf("readback of %s: %w", pv, err)
		}
		row := []string{pv, strconv.FormatBool(v.Selected[i])}
		row = append(row, value...)
		row = append(row, v.Readbacks[i])
		row = append(row, readback...)
		row = append(row, v.Deltas[i])
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Decode parses .snp content. The returned snapshot descriptor only carries
// descriptor; commit metadata is merged in by the caller.
func (SnapshotCodec) Decode(text string, descriptor data.BeamlineSet) (data.VSnapshot, error) {
	out := data.VSnapshot{Snapshot: data.Snapshot{BeamlineSet: descriptor}}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	i := 0
	for ; i < len(lines) && strings.HasPrefix(lines[i], commentPrefix); i++ {
		if ts, ok := strings.CutPrefix(lines[i], dateHeader); ok {
			t, err := parseTime(ts)
			if err != nil {
				return data.VSnapshot{}, fmt.Errorf("parse date: %w", err)
			}
			out.Timestamp = t
		}
	}

	r := csv.NewReader(strings.NewReader(strings.Join(lines[i:], "\n")))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err == io.EOF {
		return out, nil
	}
	if err != nil {
		return data.VSnapshot{}, fmt.Errorf("read header: %w", err)
	}
	cols, err := columnIndex(header, headerPV, colValueType, colValue)
	if err != nil {
		return data.VSnapshot{}, err
	}

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return data.VSnapshot{}, fmt.Errorf("read row: %w", err)
		}
		pv := cell(rec, cols, headerPV)
		selected := true
		if s := cell(rec, cols, colSelected); s != "" {
			if selected, err = strconv.ParseBool(s); err != nil {
				return data.VSnapshot{}, fmt.Errorf("pv %s: selected flag: %w", pv, err)
			}
		}
		value, err := decodeValue(
			cell(rec, cols, colValueType), cell(rec, cols, colValue),
			cell(rec, cols, colTimestamp), cell(rec, cols, colStatus), cell(rec, cols, colSeverity))
		if err != nil {
			return data.VSnapshot{}, fmt.Errorf("pv %s: %w", pv, err)
		}
		readback, err := decodeValue(
			cell(rec, cols, colReadbackValueType), cell(rec, cols, colReadbackValue),
			cell(rec, cols, colReadbackTimestamp), cell(rec, cols, colReadbackStatus), cell(rec, cols, colReadbackSeverity))
		if err != nil {
			return data.VSnapshot{}, fmt.Errorf("readback of %s: %w", pv, err)
		}

		out.PVs = append(out.PVs, pv)
		out.Selected = append(out.Selected, selected)
		out.Values = append(out.Values, value)
		out.Readbacks = append(out.Readbacks, cell(rec, cols, headerReadback))
		out.ReadbackValues = append(out.ReadbackValues, readback)
		out.Deltas = append(out.Deltas, cell(rec, cols, headerDelta))
	}
	return out, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

type enumPayload struct {
	Index  int      `json:"index"`
	Labels []string `json:"labels"`
}

// encodeValue 返回 TIMESTAMP、STATUS、SEVERITY、VALUE_TYPE、VALUE 五列。
func encodeValue(v data.Value) ([]string, error) {
	if v == nil {
		return []string{"", "", "", "", ""}, nil
	}
	meta := v.Metadata()
	var payload string
	switch x := v.(type) {
	case data.Double:
		payload = strconv.FormatFloat(x.Value, 'g', -1, 64)
	case data.Long:
		payload = strconv.FormatInt(x.Value, 10)
	case data.String:
		payload = x.Value
	case data.Enum:
		b, err := json.Marshal(enumPayload{Index: x.Index, Labels: x.Labels})
		if err != nil {
			return nil, err
		}
		payload = string(b)
	case data.DoubleArray:
		items := make([]string, len(x.Values))
		for i, f := range x.Values {
			items[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		b, err := json.Marshal(items)
		if err != nil {
			return nil, err
		}
		payload = string(b)
	case data.StringArray:
		b, err := json.Marshal(x.Values)
		if err != nil {
			return nil, err
		}
		payload = string(b)
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
	return []string{formatTime(meta.Time), meta.Alarm.Status, string(meta.Alarm.Severity), string(v.Kind()), payload}, nil
}

func decodeValue(kind, payload, timestamp, status, severity string) (data.Value, error) {
	if kind == "" {
		return nil, nil
	}
	t, err := parseTime(timestamp)
	if err != nil {
		return nil, fmt.Errorf("timestamp: %w", err)
	}
	meta := data.Meta{Time: t, Alarm: data.Alarm{Severity: data.AlarmSeverity(severity), Status: status}}

	switch data.ValueKind(kind) {
	case data.KindDouble:
		f, err := strconv.ParseFloat(payload, 64)
		if err != nil {
			return nil, err
		}
		return data.Double{Meta: meta, Value: f}, nil
	case data.KindLong:
		n, err := strconv.ParseInt(payload, 10, 64)
		if err != nil {
			return nil, err
		}
		return data.Long{Meta: meta, Value: n}, nil
	case data.KindString:
		return data.String{Meta: meta, Value: payload}, nil
	case data.KindEnum:
		var e enumPayload
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return nil, err
		}
		return data.Enum{Meta: meta, Index: e.Index, Labels: e.Labels}, nil
	case data.KindDoubleArray:
		var items []string
		if err := json.Unmarshal([]byte(payload), &items); err != nil {
			return nil, err
		}
		values := make([]float64, len(items))
		for i, item := range items {
			if values[i], err = strconv.ParseFloat(item, 64); err != nil {
				return nil, err
			}
		}
		return data.DoubleArray{Meta: meta, Values: values}, nil
	case data.KindStringArray:
		var values []string
		if err := json.Unmarshal([]byte(payload), &values); err != nil {
			return nil, err
		}
		return data.StringArray{Meta: meta, Values: values}, nil
	}
	return nil, fmt.Errorf("unknown value type %q", kind)
}
