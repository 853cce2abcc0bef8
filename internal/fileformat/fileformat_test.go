package fileformat

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/frib-high-level-controls/save-set-restore/internal/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSet() data.BeamlineSet {
	return data.NewBeamlineSet(data.NewBaseLevel(data.DefaultBranch(), "base"), []string{"foo", "test.bms"}, "git")
}

func TestBeamlineSetCodec_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   data.BeamlineSetData
	}{
		{
			name: "multi-line description",
			in: data.NewBeamlineSetData(testSet(), []string{"pv1", "pv2"}, []string{"rb1", "rb2"},
				[]string{"50", "50"}, "first line\n\nthird line"),
		},
		{
			name: "empty readbacks keep alignment",
			in:   data.NewBeamlineSetData(testSet(), []string{"pv1", "pv,2"}, []string{"", "rb2"}, []string{"1", ""}, ""),
		},
		{
			name: "description lines that look like header lines",
			in: data.NewBeamlineSetData(testSet(), []string{"pv1"}, nil, nil,
				"Description:\n\n#\nDescription:"),
		},
		{
			name: "no channels",
			in:   data.NewBeamlineSetData(testSet(), nil, nil, nil, "empty"),
		},
	}

	codec := BeamlineSetCodec{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := codec.Encode(tt.in)
			require.NoError(t, err)

			got, err := codec.Decode(text, testSet())
			require.NoError(t, err)
			assert.True(t, tt.in.Equal(got), "got %+v", got)
		})
	}
}

func TestBeamlineSetCodec_Format(t *testing.T) {
	in := data.NewBeamlineSetData(testSet(), []string{"pv1"}, []string{"rb1"}, []string{"50"}, "someDescription")
	text, err := BeamlineSetCodec{}.Encode(in)
	require.NoError(t, err)
	assert.Equal(t, "# Description:\n# someDescription\n#\nPV,READBACK,DELTA\npv1,rb1,50\n", text)
}

func TestBeamlineSetCodec_RejectsMisalignedColumns(t *testing.T) {
	in := data.BeamlineSetData{Descriptor: testSet(), PVs: []string{"a", "b"}, Readbacks: []string{"x"}, Deltas: []string{"", ""}}
	_, err := BeamlineSetCodec{}.Encode(in)
	assert.Error(t, err)
}

func TestBeamlineSetCodec_MissingPVColumn(t *testing.T) {
	_, err := BeamlineSetCodec{}.Decode("# Description:\n#\nNAME,DELTA\na,1\n", testSet())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing column PV")
}

func TestSnapshotCodec_RoundTrip(t *testing.T) {
	ts := time.Unix(1700000000, 123456789).UTC()
	meta := data.Meta{Time: ts, Alarm: data.NoAlarm()}
	major := data.Meta{Time: ts, Alarm: data.Alarm{Severity: data.SeverityMajor, Status: "HIGH"}}

	in := data.VSnapshot{
		Snapshot: data.NewSnapshot(testSet(), ts, "", ""),
		PVs:      []string{"d", "l", "s", "e", "da", "sa"},
		Selected: []bool{true, false, true, true, true, false},
		Values: []data.Value{
			data.Double{Meta: meta, Value: math.Pi},
			data.Long{Meta: major, Value: -42},
			data.String{Meta: meta, Value: "working, \"really\""},
			data.Enum{Meta: meta, Index: 1, Labels: []string{"bugs", "tweety", "sylvester"}},
			data.DoubleArray{Meta: major, Values: []float64{0.1, math.Inf(1), -3}},
			data.StringArray{Meta: meta, Values: []string{"tweety", "elmer"}},
		},
		Readbacks:      []string{"rb1", "", "rb3", "", "", ""},
		ReadbackValues: []data.Value{data.Double{Meta: meta, Value: 1e-9}, nil, data.String{Meta: meta, Value: "x"}, nil, nil, nil},
		Deltas:         []string{"50", "", "", "", "", ""},
		Timestamp:      ts,
	}

	codec := SnapshotCodec{}
	text, err := codec.Encode(in)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "# Date: 2023-11-14T22:13:20.123456789Z\n"))

	got, err := codec.Decode(text, testSet())
	require.NoError(t, err)
	assert.True(t, in.EqualExceptSnapshot(got))
	assert.Empty(t, got.Snapshot.Comment)
	assert.Empty(t, got.Snapshot.Revision)
}

func TestSnapshotCodec_DecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"bad date", "# Date: yesterday\nPV,VALUE_TYPE,VALUE\n"},
		{"bad double", "PV,VALUE_TYPE,VALUE\npv,double,abc\n"},
		{"unknown type", "PV,VALUE_TYPE,VALUE\npv,matrix,1\n"},
		{"missing column", "PV,VALUE\npv,1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SnapshotCodec{}.Decode(tt.text, testSet())
			assert.Error(t, err)
		})
	}
}

func TestSnapshotCodec_RoundTripWithoutReadbacks(t *testing.T) {
	ts := time.Unix(1700000000, 0).UTC()
	meta := data.Meta{Time: ts, Alarm: data.NoAlarm()}
	in := data.NewVSnapshot(data.NewSnapshot(testSet(), ts, "", ""), []string{"pv1", "pv2"}, nil,
		[]data.Value{data.Double{Meta: meta, Value: 1}, data.Long{Meta: meta, Value: 2}}, nil, nil, nil, ts)

	codec := SnapshotCodec{}
	text, err := codec.Encode(in)
	require.NoError(t, err)
	got, err := codec.Decode(text, testSet())
	require.NoError(t, err)
	assert.True(t, in.EqualExceptSnapshot(got), "got %+v", got)
}

func TestSnapshotCodec_RejectsMisalignedColumns(t *testing.T) {
	ts := time.Unix(1700000000, 0).UTC()
	value := data.Double{Meta: data.Meta{Time: ts, Alarm: data.NoAlarm()}, Value: 1}
	tests := []struct {
		name string
		v    data.VSnapshot
	}{
		{"short values", data.VSnapshot{PVs: []string{"a"}, Selected: []bool{true}}},
		{"missing readbacks", data.VSnapshot{
			PVs: []string{"a"}, Selected: []bool{true}, Values: []data.Value{value}, Deltas: []string{""},
		}},
		{"short deltas", data.VSnapshot{
			PVs: []string{"a", "b"}, Selected: []bool{true, true}, Values: []data.Value{value, value},
			Readbacks: []string{"", ""}, ReadbackValues: []data.Value{nil, nil}, Deltas: []string{""},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SnapshotCodec{}.Encode(tt.v)
			assert.Error(t, err)
		})
	}
}
