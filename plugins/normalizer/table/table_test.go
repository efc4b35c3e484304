package table

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"docseq/pkg/contract"
	"docseq/plugins/ocr/memory"
)

func row(cells ...[2]string) contract.Value {
	v := contract.Value{}
	for _, c := range cells {
		v.Children = append(v.Children, contract.Annotation{Key: c[0], Values: []contract.Value{{Value: c[1]}}})
	}
	return v
}

func leaderboard() contract.Document {
	return contract.Document{Name: "1703.10295v3", Annotations: []contract.Annotation{
		{Key: "leaderboard_entry", Values: []contract.Value{
			row([2]string{"task", "Object Detection"}, [2]string{"dataset", "COCO test-dev"}),
			row([2]string{"task", "Object Detection"}, [2]string{"dataset", "PASCAL VOC 2007 test"}),
		}},
		{Key: "paper_year", Values: []contract.Value{{Value: "2017"}}},
	}}
}

func source(t *testing.T) *memory.Source {
	d, err := contract.NewDocument2D([]string{"t"}, map[string][]contract.BBox{contract.ChannelTokens: {{}}})
	require.NoError(t, err)
	return memory.New(map[contract.DocumentID]*contract.Document2D{"1703.10295v3": d})
}

func TestNormalizeGroupsColumns(t *testing.T) {
	n, err := New(nil)
	require.NoError(t, err)
	out, err := n.Normalize(context.Background(), leaderboard(), source(t))
	require.NoError(t, err)

	task := "What are the leaderboard_entry values for the task column?"
	ds := "What are the leaderboard_entry values for the dataset column?"
	var names []string
	for _, p := range out.Properties {
		names = append(names, p.Name)
	}
	require.Equal(t, []string{task, ds, "paper_year"}, names, "每列一个属性")
	require.Equal(t, []string{"Object Detection", "Object Detection"}, out.Properties[0].Values)
	require.Equal(t, []string{"COCO test-dev", "PASCAL VOC 2007 test"}, out.Properties[1].Values)
	require.Equal(t, []string{"2017"}, out.Properties[2].Values)
}

func TestCustomTemplate(t *testing.T) {
	n, err := New(&Options{ColumnTemplate: "{{.Column}} of {{.Key}}"})
	require.NoError(t, err)
	out, err := n.Normalize(context.Background(), leaderboard(), source(t))
	require.NoError(t, err)
	require.Equal(t, "task of leaderboard_entry", out.Properties[0].Name)
}

func TestBadTemplate(t *testing.T) {
	for _, src := range []string{"{{.Key", "{{.Unknown}}"} {
		_, err := New(&Options{ColumnTemplate: src})
		if !errors.Is(err, contract.ErrConfiguration) {
			t.Fatalf("%q: want ErrConfiguration got %v", src, err)
		}
	}
}
