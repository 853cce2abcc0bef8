package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/frib-high-level-controls/save-set-restore/internal/data"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02 15:04:05"

var (
	tagColor     = color.New(color.FgYellow, color.Bold)
	revisionDim  = color.New(color.FgHiBlack)
	changeColors = map[data.ChangeType]*color.Color{
		data.ChangeSave:   color.New(color.FgGreen),
		data.ChangeDelete: color.New(color.FgRed),
	}
)

// table 是 table 与 csv 两种格式共用的行数据。
type table struct {
	header []string
	rows   [][]string
}

// render 按 format 输出：table/csv 使用行数据，json/yaml 直接序列化 value。
func render(out io.Writer, format string, value any, t table) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "table":
		return writeTable(out, t)
	case "csv":
		return writeCSV(out, t)
	case "json":
		return writeJSON(out, value)
	case "yaml":
		return writeYAML(out, value)
	default:
		return fmt.Errorf("unsupported format %q (supported: table, json, csv, yaml)", format)
	}
}

func writeTable(out io.Writer, t table) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(t.header, "\t"))
	for _, row := range t.rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	return w.Flush()
}

func writeCSV(out io.Writer, t table) error {
	w := csv.NewWriter(out)
	if err := w.Write(t.header); err != nil {
		return err
	}
	for _, row := range t.rows {
		if err := w.Write(plain(row)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeJSON(out io.Writer, value any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func writeYAML(out io.Writer, value any) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(value); err != nil {
		return err
	}
	return enc.Close()
}

// plain 去掉 table 输出里的颜色，csv 中只保留文本。
func plain(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = stripANSI(cell)
	}
	return out
}

func stripANSI(s string) string {
	if !strings.Contains(s, "\x1b[") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == 0x1b && i+1 < len(s) && s[i+1] == '[' {
			j := i + 2
			for j < len(s) && s[j] != 'm' {
				j++
			}
			i = j
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

// tagLabel 把标签名与标签消息合并成一列。
func tagLabel(s data.Snapshot) string {
	switch {
	case !s.Tagged():
		return ""
	case s.TagMessage == "":
		return tagColor.Sprint(s.TagName)
	case s.TagName == "":
		return tagColor.Sprintf("(%s)", s.TagMessage)
	default:
		return tagColor.Sprintf("%s (%s)", s.TagName, s.TagMessage)
	}
}

func snapshotTable(snapshots []data.Snapshot, withSet bool) table {
	t := table{header: []string{"DATE", "COMMENT", "OWNER", "TAG", "REVISION"}}
	if withSet {
		t.header = append([]string{"BEAMLINE SET"}, t.header...)
	}
	for _, s := range snapshots {
		row := []string{formatDate(s.Date), s.Comment, s.Owner, tagLabel(s), revisionDim.Sprint(s.Revision)}
		if withSet {
			row = append([]string{s.BeamlineSet.String()}, row...)
		}
		t.rows = append(t.rows, row)
	}
	return t
}

func changeLabel(c data.ChangeType) string {
	if col, ok := changeColors[c]; ok {
		return col.Sprint(string(c))
	}
	return string(c)
}

// valueString 把通道值格式化为一列文本，nil 为空串。
func valueString(v data.Value) string {
	switch x := v.(type) {
	case nil:
		return ""
	case data.Double:
		return strconv.FormatFloat(x.Value, 'g', -1, 64)
	case data.Long:
		return strconv.FormatInt(x.Value, 10)
	case data.String:
		return x.Value
	case data.Enum:
		return x.Label()
	case data.DoubleArray:
		parts := make([]string, len(x.Values))
		for i, f := range x.Values {
			parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		return "[" + strings.Join(parts, " ") + "]"
	case data.StringArray:
		return "[" + strings.Join(x.Values, " ") + "]"
	default:
		return fmt.Sprint(v)
	}
}

// channelView 是一个通道在 json/yaml 输出中的形式。
type channelView struct {
	PV            string `json:"pv" yaml:"pv"`
	Selected      bool   `json:"selected" yaml:"selected"`
	Value         string `json:"value" yaml:"value"`
	Severity      string `json:"severity,omitempty" yaml:"severity,omitempty"`
	Readback      string `json:"readback,omitempty" yaml:"readback,omitempty"`
	ReadbackValue string `json:"readbackValue,omitempty" yaml:"readbackValue,omitempty"`
	Delta         string `json:"delta,omitempty" yaml:"delta,omitempty"`
}

type vsnapshotView struct {
	Snapshot data.Snapshot `json:"snapshot" yaml:"snapshot"`
	Channels []channelView `json:"channels" yaml:"channels"`
}

func viewOf(v data.VSnapshot) vsnapshotView {
	at := func(s []string, i int) string {
		if i < len(s) {
			return s[i]
		}
		return ""
	}
	view := vsnapshotView{Snapshot: v.Snapshot, Channels: make([]channelView, 0, len(v.PVs))}
	for i, pv := range v.PVs {
		ch := channelView{PV: pv, Readback: at(v.Readbacks, i), Delta: at(v.Deltas, i)}
		if i < len(v.Selected) {
			ch.Selected = v.Selected[i]
		}
		if i < len(v.Values) && v.Values[i] != nil {
			ch.Value = valueString(v.Values[i])
			ch.Severity = string(v.Values[i].Metadata().Alarm.Severity)
		}
		if i < len(v.ReadbackValues) {
			ch.ReadbackValue = valueString(v.ReadbackValues[i])
		}
		view.Channels = append(view.Channels, ch)
	}
	return view
}

func channelTable(view vsnapshotView) table {
	t := table{header: []string{"PV", "SELECTED", "VALUE", "SEVERITY", "READBACK", "READBACK VALUE", "DELTA"}}
	for _, ch := range view.Channels {
		t.rows = append(t.rows, []string{
			ch.PV, strconv.FormatBool(ch.Selected), ch.Value, ch.Severity, ch.Readback, ch.ReadbackValue, ch.Delta,
		})
	}
	return t
}
