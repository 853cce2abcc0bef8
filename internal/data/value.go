package data

import (
	"slices"
	"time"
)

// AlarmSeverity 是通道值的报警级别。
type AlarmSeverity string

const (
	SeverityNone      AlarmSeverity = "NONE"
	SeverityMinor     AlarmSeverity = "MINOR"
	SeverityMajor     AlarmSeverity = "MAJOR"
	SeverityInvalid   AlarmSeverity = "INVALID"
	SeverityUndefined AlarmSeverity = "UNDEFINED"
)

// Alarm 是报警级别加状态文本。
type Alarm struct {
	Severity AlarmSeverity `json:"severity" yaml:"severity"`
	Status   string        `json:"status" yaml:"status"`
}

// NoAlarm returns the alarm of a healthy channel.
func NoAlarm() Alarm {
	return Alarm{Severity: SeverityNone, Status: "NONE"}
}

// Meta is carried by every value.
type Meta struct {
	Time  time.Time `json:"time" yaml:"time"`
	Alarm Alarm     `json:"alarm" yaml:"alarm"`
}

// ValueKind 标识 Value 的具体类型，也是文件格式中的类型名。
type ValueKind string

const (
	KindDouble      ValueKind = "double"
	KindLong        ValueKind = "long"
	KindString      ValueKind = "string"
	KindEnum        ValueKind = "enum"
	KindDoubleArray ValueKind = "double_array"
	KindStringArray ValueKind = "string_array"
)

// Value 是通道值的带标签联合，具体类型为 Double、Long、String、Enum、
// DoubleArray 或 StringArray。
type Value interface {
	Kind() ValueKind
	Metadata() Meta
}

type Double struct {
	Meta
	Value float64 `json:"value" yaml:"value"`
}

type Long struct {
	Meta
	Value int64 `json:"value" yaml:"value"`
}

type String struct {
	Meta
	Value string `json:"value" yaml:"value"`
}

// Enum 是标签集合中的一个下标。
type Enum struct {
	Meta
	Index  int      `json:"index" yaml:"index"`
	Labels []string `json:"labels" yaml:"labels"`
}

type DoubleArray struct {
	Meta
	Values []float64 `json:"values" yaml:"values"`
}

type StringArray struct {
	Meta
	Values []string `json:"values" yaml:"values"`
}

func (Double) Kind() ValueKind      { return KindDouble }
func (Long) Kind() ValueKind        { return KindLong }
func (String) Kind() ValueKind      { return KindString }
func (Enum) Kind() ValueKind        { return KindEnum }
func (DoubleArray) Kind() ValueKind { return KindDoubleArray }
func (StringArray) Kind() ValueKind { return KindStringArray }

func (m Meta) Metadata() Meta { return m }

// Label returns the selected enum label, or "" when the index is out of range.
func (e Enum) Label() string {
	if e.Index < 0 || e.Index >= len(e.Labels) {
		return ""
	}
	return e.Labels[e.Index]
}

// EqualValues 比较两个值；nil 只与 nil 相等，时间用 time.Equal 比较。
func EqualValues(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	ma, mb := a.Metadata(), b.Metadata()
	if !ma.Time.Equal(mb.Time) || ma.Alarm != mb.Alarm {
		return false
	}
	switch x := a.(type) {
	case Double:
		return x.Value == b.(Double).Value
	case Long:
		return x.Value == b.(Long).Value
	case String:
		return x.Value == b.(String).Value
	case Enum:
		y := b.(Enum)
		return x.Index == y.Index && slices.Equal(x.Labels, y.Labels)
	case DoubleArray:
		return slices.Equal(x.Values, b.(DoubleArray).Values)
	case StringArray:
		return slices.Equal(x.Values, b.(StringArray).Values)
	}
	return false
}
