package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"docseq/pkg/contract"
	"docseq/pkg/strategy"
	"docseq/plugins/ocr/memory"
)

const benchmarks = "../../testdata/benchmarks"

// benchmarkOptions 与常见基准配置一致：训练取首项，评测拼接。
func benchmarkOptions() Options {
	o := DefaultOptions()
	o.UnescapeValues = true
	return o
}

type view struct {
	ID, In, OutPrefix, Out string
}

func collect(t *testing.T, s *Stream) []view {
	t.Helper()
	var out []view
	for inst, err := range s.All() {
		require.NoError(t, err)
		require.NotNil(t, inst.Document)
		out = append(out, view{string(inst.Identifier), inst.InputPrefix, inst.OutputPrefix, inst.Output})
	}
	return out
}

func bind(t *testing.T, o Options, dir, ocr string, opts ...BindOption) *Corpus {
	t.Helper()
	c, err := New(o)
	require.NoError(t, err)
	require.NoError(t, c.ReadBenchmarkChallenge(dir, ocr, opts...))
	return c
}

func TestDocVQA(t *testing.T) {
	c := bind(t, benchmarkOptions(), filepath.Join(benchmarks, "docvqa"), "microsoft_cv")
	require.Equal(t, contract.FamilyQA, c.Family())
	got := collect(t, c.Train())
	require.Equal(t, []view{
		{"xnbl0037_1", "what is the date mentioned in this letter? : ", "what is the date mentioned in this letter?", "1/8/93"},
		{"xnbl0037_1", "what is the contact person name mentioned in letter? : ", "what is the contact person name mentioned in letter?", "P. Carter"},
	}, got)
}

func TestDeepForm(t *testing.T) {
	c := bind(t, benchmarkOptions(), filepath.Join(benchmarks, "DeepForm"), "microsoft_cv")
	require.Equal(t, contract.FamilyKV, c.Family())
	id := "3515690b-0081-10b9-1077-26ea74749d49"
	require.Equal(t, []view{
		{id, "gross_amount : ", "gross_amount", "63705.00"},
		{id, "advertiser : ", "advertiser", "MIKEBLOOMBERG2020INC-D"},
		{id, "contract_num : ", "contract_num", "1339936"},
		{id, "flight_from : ", "flight_from", "02/01/20"},
		{id, "flight_to : ", "flight_to", "02/12/20"},
	}, collect(t, c.Train()))
}

func TestAxCell(t *testing.T) {
	o := benchmarkOptions()
	o.TrainStrategy = strategy.Concat
	c := bind(t, o, filepath.Join(benchmarks, "AxCell"), "tesseract")
	require.Equal(t, contract.FamilyTable, c.Family())

	q := func(col string) string { return "What are the leaderboard_entry values for the " + col + " column?" }
	id := "1703.10295v3"
	require.Equal(t, []view{
		{id, q("task") + " : ", q("task"), "Object Detection"},
		{id, q("dataset") + " : ", q("dataset"), "COCO test-dev | PASCAL VOC 2007 test | PASCAL VOC 2012 test"},
		{id, q("metric") + " : ", q("metric"), "box AP | AP50 | AP75 | APS | APM | APL | MAP"},
		{id, q("model") + " : ", q("model"), "DeNet-101 (wide) | DeNet-101 (skip) | DeNet-101"},
		{id, q("value") + " : ", q("value"), "0.338 | 0.534 | 0.361 | 0.123 | 0.508 | 0.771 | 0.739"},
	}, collect(t, c.Train()))
}

// 表格按列聚合与 single_property 无关
func TestAxCellColumnsWithoutSingleProperty(t *testing.T) {
	axcell := filepath.Join(benchmarks, "AxCell")
	o := benchmarkOptions()
	o.TrainStrategy = strategy.Concat
	want := collect(t, bind(t, o, axcell, "tesseract").Train())
	o.SingleProperty = false
	got := collect(t, bind(t, o, axcell, "tesseract").Train())
	require.Len(t, got, 5)
	require.Equal(t, want, got)
	require.Equal(t, "0.338 | 0.534 | 0.361 | 0.123 | 0.508 | 0.771 | 0.739", got[4].Out)
}

func TestUndeclaredProvider(t *testing.T) {
	c, err := New(DefaultOptions())
	require.NoError(t, err)
	err = c.ReadBenchmarkChallenge(filepath.Join(benchmarks, "AxCell"), "abbyy")
	require.ErrorIs(t, err, contract.ErrConfiguration)
}

func TestRestartable(t *testing.T) {
	c := bind(t, benchmarkOptions(), filepath.Join(benchmarks, "docvqa"), "microsoft_cv")
	s := c.Dev()
	first := collect(t, s)
	second := collect(t, s)
	require.NotEmpty(t, first)
	require.Equal(t, first, second)
	require.Equal(t, first, collect(t, c.Dev()))
}

type recorder struct {
	mu    sync.Mutex
	skips []contract.DocumentID
}

func (r *recorder) OnSkip(_ contract.Split, id contract.DocumentID, _ SkipReason, _ error) {
	r.mu.Lock()
	r.skips = append(r.skips, id)
	r.mu.Unlock()
}

func TestMissingDocumentSkipped(t *testing.T) {
	rec := &recorder{}
	c := bind(t, benchmarkOptions(), filepath.Join(benchmarks, "docvqa"), "microsoft_cv", WithObserver(rec))
	s := c.Dev()
	got := collect(t, s)
	require.Len(t, got, 2)
	require.Equal(t, "1/8/93", got[0].Out)
	st := s.Stats()
	require.Equal(t, 2, st.Documents)
	require.Equal(t, 1, st.Missing)
	require.Equal(t, 1, st.Skipped())
	require.Equal(t, 2, st.Instances)
	require.Equal(t, []contract.DocumentID{"ffbf0023_4"}, rec.skips)
}

func TestMissingSplit(t *testing.T) {
	c := bind(t, benchmarkOptions(), filepath.Join(benchmarks, "DeepForm"), "microsoft_cv")
	var errs []error
	for _, err := range c.Test().All() {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	require.ErrorIs(t, errs[0], contract.ErrSplitNotFound)
}

func TestNotBound(t *testing.T) {
	c, err := New(DefaultOptions())
	require.NoError(t, err)
	for _, err := range c.Train().All() {
		require.ErrorIs(t, err, contract.ErrNotBound)
	}
}

// writeDataset 在临时目录中构造一个带 dataset.yaml 的最小数据集。
func writeDataset(t *testing.T, family string, lines ...string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "train"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile), []byte("family: "+family+"\n"), 0o644))
	var body []byte
	for _, l := range lines {
		body = append(body, l...)
		body = append(body, '\n')
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "train", "document.jsonl"), body, 0o644))
	return dir
}

func docs(t *testing.T, ids ...contract.DocumentID) *memory.Source {
	t.Helper()
	d, err := contract.NewDocument2D([]string{"Total", "USD"}, map[string][]contract.BBox{contract.ChannelTokens: {{}, {}}})
	require.NoError(t, err)
	s := memory.New(nil)
	for _, id := range ids {
		s.Put(id, d)
	}
	return s
}

// 实例数 == 非空属性数（single_property=true, case_augmentation=false）
func TestInstanceCountEqualsProperties(t *testing.T) {
	dir := writeDataset(t, "kv",
		`{"name":"a","annotations":[{"key":"x","values":[{"value":"1"}]},{"key":"y","values":[]},{"key":"x","values":[{"value":"2"}]},{"key":"z","values":[{"value":"3"}]}]}`,
		`{"name":"b","annotations":[{"key":"x","values":[{"value":""}]}]}`,
	)
	c := bind(t, DefaultOptions(), dir, "mem", WithOCRSource(docs(t, "a", "b")))
	got := collect(t, c.Train())
	require.Equal(t, []view{
		{"a", "x : ", "x", "1"},
		{"a", "z : ", "z", "3"},
	}, got)
}

func TestMalformedLineSkipped(t *testing.T) {
	dir := writeDataset(t, "qa",
		`{"name":"a","annotations":[{"key":"q?","values":[{"value":"A"}]}]}`,
		`{"name":`,
		`{"name":"b","annotations":[{"key":"q?","values":[{"value":"B"}]}]}`,
	)
	c := bind(t, DefaultOptions(), dir, "mem", WithOCRSource(docs(t, "a", "b")))
	s := c.Train()
	got := collect(t, s)
	require.Len(t, got, 2)
	require.Equal(t, 1, s.Stats().Malformed)
}

// 文档名无法映射为 OCR 路径时按畸形记录跳过，后续文档照常产出
func TestInvalidDocumentNameSkipped(t *testing.T) {
	dir := writeDataset(t, "qa",
		`{"name":"../evil","annotations":[{"key":"q?","values":[{"value":"A"}]}]}`,
		`{"name":"ok","annotations":[{"key":"q?","values":[{"value":"B"}]}]}`,
	)
	ocrDir := filepath.Join(dir, "ocr", "microsoft_cv")
	require.NoError(t, os.MkdirAll(ocrDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(ocrDir, "ok.json"), []byte(`{"tokens":["B"],"positions":[[0,0,1,1]]}`), 0o644))

	rec := &recorder{}
	c := bind(t, DefaultOptions(), dir, "microsoft_cv", WithObserver(rec))
	s := c.Train()
	got := collect(t, s)
	require.Len(t, got, 1)
	require.Equal(t, "B", got[0].Out)
	st := s.Stats()
	require.Equal(t, 2, st.Documents)
	require.Equal(t, 1, st.Malformed)
	require.Equal(t, 0, st.Failed)
	require.Equal(t, []contract.DocumentID{"../evil"}, rec.skips)
}

type shapeBroken struct{}

func (shapeBroken) Load(_ context.Context, id contract.DocumentID) (*contract.Document2D, error) {
	if id == "bad" {
		return nil, contract.ErrShapeMismatch
	}
	return contract.NewDocument2D(nil, nil)
}

func TestShapeMismatchSurfaced(t *testing.T) {
	dir := writeDataset(t, "qa",
		`{"name":"bad","annotations":[{"key":"q?","values":[{"value":"A"}]}]}`,
		`{"name":"ok","annotations":[{"key":"q?","values":[{"value":"B"}]}]}`,
	)
	c := bind(t, DefaultOptions(), dir, "mem", WithOCRSource(shapeBroken{}))
	s := c.Train()
	var outs []string
	var failed []contract.DocumentID
	for inst, err := range s.All() {
		if err != nil {
			require.ErrorIs(t, err, contract.ErrShapeMismatch)
			failed = append(failed, inst.Identifier)
			continue
		}
		outs = append(outs, inst.Output)
	}
	require.Equal(t, []contract.DocumentID{"bad"}, failed)
	require.Equal(t, []string{"B"}, outs)
	require.Equal(t, 1, s.Stats().Failed)
}

func TestEarlyStop(t *testing.T) {
	dir := writeDataset(t, "qa",
		`{"name":"a","annotations":[{"key":"q1?","values":[{"value":"A"}]},{"key":"q2?","values":[{"value":"B"}]}]}`,
	)
	c := bind(t, DefaultOptions(), dir, "mem", WithOCRSource(docs(t, "a")))
	s := c.Train()
	for range s.All() {
		break
	}
	require.Equal(t, 1, s.Stats().Instances)
	require.Len(t, collect(t, s), 2)
}

func TestLowercaseInputShared(t *testing.T) {
	dir := writeDataset(t, "qa",
		`{"name":"a","annotations":[{"key":"Q1?","values":[{"value":"A"}]},{"key":"Q2?","values":[{"value":"B"}]}]}`,
	)
	src := docs(t, "a")
	o := DefaultOptions()
	o.LowercaseInput = true
	c := bind(t, o, dir, "mem", WithOCRSource(src))
	var insts []contract.DataInstance
	for inst, err := range c.Train().All() {
		require.NoError(t, err)
		insts = append(insts, inst)
	}
	require.Len(t, insts, 2)
	require.Same(t, insts[0].Document, insts[1].Document)
	require.Equal(t, []string{"total", "usd"}, insts[0].Document.Tokens())
	require.Equal(t, "q1?", insts[0].OutputPrefix)
	orig, _ := src.Load(context.Background(), "a")
	require.Equal(t, "Total", orig.Token(0))
}

func TestBindErrors(t *testing.T) {
	c, err := New(DefaultOptions())
	require.NoError(t, err)
	require.ErrorIs(t, c.ReadBenchmarkChallenge(filepath.Join(t.TempDir(), "absent"), "x"), contract.ErrConfiguration)

	unknown := t.TempDir()
	require.ErrorIs(t, c.ReadBenchmarkChallenge(unknown, "x", WithOCRSource(memory.New(nil))), contract.ErrConfiguration)

	require.ErrorIs(t, c.ReadBenchmarkChallenge(filepath.Join(benchmarks, "docvqa"), "tesseract"), contract.ErrConfiguration)
	require.ErrorIs(t, c.ReadBenchmarkChallenge(filepath.Join(benchmarks, "docvqa"), "microsoft_cv", WithFamily("ner")), contract.ErrConfiguration)
	require.ErrorIs(t, c.ReadBenchmarkChallenge(filepath.Join(benchmarks, "docvqa"), "microsoft_cv", WithOCRLayout("s3", nil)), contract.ErrConfiguration)
}

func TestDetectFamily(t *testing.T) {
	cases := map[string]contract.Family{
		"/data/DocVQA":       contract.FamilyQA,
		"infographics_vqa":   contract.FamilyQA,
		"WikiTableQuestions": contract.FamilyQA,
		"kleister-charity":   contract.FamilyKV,
		"PWC":                contract.FamilyTable,
		"/x/TabFact/":        contract.FamilyNLI,
	}
	for dir, want := range cases {
		got, err := DetectFamily(dir, nil)
		require.NoError(t, err, dir)
		require.Equal(t, want, got, dir)
	}
	got, err := DetectFamily("docvqa", &Manifest{Family: "NLI"})
	require.NoError(t, err)
	require.Equal(t, contract.FamilyNLI, got)
	_, err = DetectFamily("mystery", nil)
	require.ErrorIs(t, err, contract.ErrConfiguration)
}

func TestAugmentTokens(t *testing.T) {
	fp := filepath.Join(t.TempDir(), "tokens.txt")
	require.NoError(t, os.WriteFile(fp, []byte("<sep>\n\n  <row> \n"), 0o644))
	o := DefaultOptions()
	o.AugmentTokensFromFile = fp
	c, err := New(o)
	require.NoError(t, err)
	require.Equal(t, []string{"<sep>", "<row>"}, c.AugmentTokens())

	o.AugmentTokensFromFile = fp + ".missing"
	_, err = New(o)
	require.True(t, errors.Is(err, contract.ErrConfiguration))
}
