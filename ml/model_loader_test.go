package ml

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/gzip"
)

const (
	testScalerPath     = "testdata/forest_cover_scaler.json"
	testClassifierPath = "testdata/forest_cover_model.json"
)

func readTestArtifact(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	return doc
}

func encodeArtifact(t *testing.T, doc map[string]any) []byte {
	t.Helper()
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func TestLoadArtifacts(t *testing.T) {
	scaler, scalerInfo, err := LoadScaler(testScalerPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := scaler.(*StandardScaler); !ok {
		t.Fatalf("expected *StandardScaler, got %T", scaler)
	}
	if scalerInfo.Kind != KindStandardScaler || scalerInfo.NFeatures != ContinuousCount || scalerInfo.Path != testScalerPath {
		t.Fatalf("unexpected scaler info: %+v", scalerInfo)
	}

	classifier, info, err := LoadClassifier(testClassifierPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	forest, ok := classifier.(*RandomForest)
	if !ok {
		t.Fatalf("expected *RandomForest, got %T", classifier)
	}
	if forest.TreeCount() != 2 || info.Trees != 2 || len(info.Classes) != CoverTypeCount {
		t.Fatalf("unexpected classifier info: %+v", info)
	}
	if info.Metadata["source"] == "" {
		t.Fatal("expected metadata to be carried")
	}
}

func TestLoadGzipArtifact(t *testing.T) {
	data, err := os.ReadFile(testClassifierPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	path := filepath.Join(t.TempDir(), "model.json.gz")
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	zw := gzip.NewWriter(file)
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := file.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, _, err := LoadClassifier(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	plain := filepath.Join(t.TempDir(), "broken.json.gz")
	if err := os.WriteFile(plain, data, 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := LoadClassifier(plain); err == nil {
		t.Fatal("expected gzip error for uncompressed .gz file")
	}
}

func TestLoadMissingArtifact(t *testing.T) {
	_, _, err := LoadScaler(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if !strings.Contains(err.Error(), "load scaler") {
		t.Fatalf("expected diagnostic to name the artifact: %v", err)
	}
}

func TestParseClassifierVersionSkew(t *testing.T) {
	doc := readTestArtifact(t, testClassifierPath)
	doc["version"] = 2
	if _, _, err := ParseClassifier(encodeArtifact(t, doc)); !errors.Is(err, ErrVersionSkew) {
		t.Fatalf("expected ErrVersionSkew, got %v", err)
	}

	doc = readTestArtifact(t, testScalerPath)
	doc["version"] = 7
	if _, _, err := ParseScaler(encodeArtifact(t, doc)); !errors.Is(err, ErrVersionSkew) {
		t.Fatalf("expected ErrVersionSkew, got %v", err)
	}
}

func TestParseClassifierFormatMismatch(t *testing.T) {
	cases := map[string]func(doc map[string]any){
		"missing trees":   func(doc map[string]any) { delete(doc, "trees") },
		"missing version": func(doc map[string]any) { delete(doc, "version") },
		"unknown kind":    func(doc map[string]any) { doc["kind"] = "svm" },
		"wrong width":     func(doc map[string]any) { doc["n_features"] = 55 },
		"six classes":     func(doc map[string]any) { doc["classes"] = []int{1, 2, 3, 4, 5, 6} },
		"class zero":      func(doc map[string]any) { doc["classes"] = []int{0, 1, 2, 3, 4, 5, 6} },
		"single tree kind": func(doc map[string]any) {
			doc["kind"] = KindDecisionTree
		},
		"feature names": func(doc map[string]any) {
			names := FeatureNames()
			names[0], names[1] = names[1], names[0]
			doc["feature_names"] = names
		},
	}
	for name, mutate := range cases {
		doc := readTestArtifact(t, testClassifierPath)
		mutate(doc)
		if _, _, err := ParseClassifier(encodeArtifact(t, doc)); !errors.Is(err, ErrFormatMismatch) {
			t.Fatalf("%s: expected ErrFormatMismatch, got %v", name, err)
		}
	}

	if _, _, err := ParseClassifier([]byte("{not json")); !errors.Is(err, ErrFormatMismatch) {
		t.Fatalf("expected ErrFormatMismatch for syntax error, got %v", err)
	}
}

func TestParseClassifierRejectsBrokenTree(t *testing.T) {
	doc := readTestArtifact(t, testClassifierPath)
	trees := doc["trees"].([]any)
	nodes := trees[0].(map[string]any)["nodes"].([]any)
	nodes[0].(map[string]any)["left_child"] = 42
	if _, _, err := ParseClassifier(encodeArtifact(t, doc)); err == nil || !strings.Contains(err.Error(), "tree 0") {
		t.Fatalf("expected tree error, got %v", err)
	}
}

func TestParseClassifierDecisionTree(t *testing.T) {
	doc := readTestArtifact(t, testClassifierPath)
	doc["kind"] = KindDecisionTree
	doc["trees"] = doc["trees"].([]any)[:1]
	classifier, info, err := ParseClassifier(encodeArtifact(t, doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := classifier.(*DecisionTree); !ok || info.Trees != 1 {
		t.Fatalf("expected single decision tree, got %T %+v", classifier, info)
	}
}

func reversedClassesArtifact() map[string]any {
	return map[string]any{
		"kind":       KindDecisionTree,
		"version":    ArtifactVersion,
		"n_features": VectorLen,
		"classes":    []int{7, 6, 5, 4, 3, 2, 1},
		"trees": []any{map[string]any{
			"nodes": []any{map[string]any{
				"feature_idx": -1,
				"threshold":   0,
				"left_child":  -1,
				"right_child": -1,
				"is_leaf":     true,
				"value":       []float64{90, 10, 0, 0, 0, 0, 0},
			}},
		}},
	}
}

func TestParseClassifierReordersClasses(t *testing.T) {
	classifier, info, err := ParseClassifier(encodeArtifact(t, reversedClassesArtifact()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]int{1, 2, 3, 4, 5, 6, 7}, info.Classes); diff != "" {
		t.Fatalf("classes mismatch (-want +got):\n%s", diff)
	}
	v, err := Assemble(DefaultInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	label, err := classifier.Predict(v)
	if err != nil || label != 7 {
		t.Fatalf("expected label 7, got %d (%v)", label, err)
	}
	proba, err := classifier.PredictProba(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]float64{0, 0, 0, 0, 0, 0.1, 0.9}, proba); diff != "" {
		t.Fatalf("probabilities mismatch (-want +got):\n%s", diff)
	}
}

func TestParseScalerKinds(t *testing.T) {
	doc := map[string]any{
		"kind":       KindMinMaxScaler,
		"version":    1,
		"n_features": ContinuousCount,
		"min":        []float64{1800, 0, 0, 0, -300, 0, 0, 0, 0, 0},
		"max":        []float64{4000, 360, 70, 500, 300, 7000, 255, 255, 255, 7000},
	}
	scaler, info, err := ParseScaler(encodeArtifact(t, doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := scaler.(*MinMaxScaler); !ok || info.Kind != KindMinMaxScaler {
		t.Fatalf("expected min-max scaler, got %T", scaler)
	}

	delete(doc, "max")
	if _, _, err := ParseScaler(encodeArtifact(t, doc)); !errors.Is(err, ErrFormatMismatch) {
		t.Fatalf("expected ErrFormatMismatch for missing max, got %v", err)
	}

	doc = readTestArtifact(t, testScalerPath)
	doc["n_features"] = VectorLen
	if _, _, err := ParseScaler(encodeArtifact(t, doc)); !errors.Is(err, ErrFormatMismatch) {
		t.Fatalf("expected ErrFormatMismatch for wrong width, got %v", err)
	}

	doc = readTestArtifact(t, testScalerPath)
	doc["scale"] = []float64{1, 1, 1, 1, 0, 1, 1, 1, 1, 1}
	if _, _, err := ParseScaler(encodeArtifact(t, doc)); err == nil {
		t.Fatal("expected error for zero scale")
	}
}
