package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"docseq/pkg/contract"
	nkv "docseq/plugins/normalizer/kv"
	nnli "docseq/plugins/normalizer/nli"
	nqa "docseq/plugins/normalizer/qa"
	ntable "docseq/plugins/normalizer/table"
	ocontent "docseq/plugins/ocr/content"
	odir "docseq/plugins/ocr/dir"
	rjsonl "docseq/plugins/reader/jsonl"
	wfs "docseq/plugins/writer/filesystem"
)

// strictUnmarshal: 使用 DisallowUnknownFields 严格解码，拒绝未知字段。
func strictUnmarshal(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		// 保持零值（默认选项）
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("options: %v: %w", err, contract.ErrConfiguration)
	}
	return nil
}

// NewNormalizer 工厂签名：接收原样 JSON Options。
type NewNormalizer func(raw json.RawMessage) (contract.Normalizer, error)

// NewOCRSource 工厂签名：数据集目录 + 提供方名 + 原样 JSON Options。
type NewOCRSource func(dataset, provider string, raw json.RawMessage) (contract.OCRSource, error)

// NewAnnotationReader 工厂签名：接收原样 JSON Options。
type NewAnnotationReader func(raw json.RawMessage) (contract.AnnotationReader, error)

// NewWriter 工厂签名：接收原样 JSON Options。
type NewWriter func(raw json.RawMessage) (contract.Writer, error)

// Normalizer 工厂注册表（按数据集族标签，显式、零反射）。
var Normalizer = map[string]NewNormalizer{
	string(contract.FamilyQA): func(raw json.RawMessage) (contract.Normalizer, error) {
		var opts nqa.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return nqa.New(&opts), nil
	},
	string(contract.FamilyKV): func(raw json.RawMessage) (contract.Normalizer, error) {
		var opts nkv.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return nkv.New(&opts), nil
	},
	// table: 排行榜表格；列名经模板渲染
	string(contract.FamilyTable): func(raw json.RawMessage) (contract.Normalizer, error) {
		var opts ntable.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return ntable.New(&opts)
	},
	string(contract.FamilyNLI): func(raw json.RawMessage) (contract.Normalizer, error) {
		var opts nnli.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return nnli.New(&opts), nil
	},
}

// OCRSource 工厂注册表（按 OCR 布局）。
var OCRSource = map[string]NewOCRSource{
	// dir: <dataset>/ocr/<provider>/<doc_id>.json
	"dir": func(dataset, provider string, raw json.RawMessage) (contract.OCRSource, error) {
		var opts odir.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return odir.New(dataset, provider, &opts)
	},
	// content: <dataset>/<split>/documents_content.jsonl
	"content": func(dataset, provider string, raw json.RawMessage) (contract.OCRSource, error) {
		var opts ocontent.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return ocontent.New(dataset, provider, &opts)
	},
}

// AnnotationReader 工厂注册表。
var AnnotationReader = map[string]NewAnnotationReader{
	"jsonl": func(raw json.RawMessage) (contract.AnnotationReader, error) {
		var opts rjsonl.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return rjsonl.New(&opts), nil
	},
}

// Writer 工厂注册表。
var Writer = map[string]NewWriter{
	// fs: 文件系统 Writer（覆盖写/原子替换可配置）
	"fs": func(raw json.RawMessage) (contract.Writer, error) {
		var opts wfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return wfs.New(&opts)
	},
}

// Names 返回注册表键的有序列表（用于报错提示）。
func Names[F any](m map[string]F) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
