package ml

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ArtifactVersion is the only artifact version this build reads.
const ArtifactVersion = 1

const (
	KindStandardScaler = "standard_scaler"
	KindMinMaxScaler   = "min_max_scaler"
	KindDecisionTree   = "decision_tree"
	KindRandomForest   = "random_forest"
)

var (
	ErrVersionSkew    = errors.New("unsupported artifact version")
	ErrFormatMismatch = errors.New("artifact format mismatch")
)

//go:embed schemas/scaler.schema.json
var scalerSchemaJSON string

//go:embed schemas/classifier.schema.json
var classifierSchemaJSON string

var (
	scalerSchema     *jsonschema.Schema
	classifierSchema *jsonschema.Schema

	schemaPrinter = message.NewPrinter(language.English)
)

func init() {
	scalerSchema = mustCompileSchema(scalerSchemaJSON, "scaler.schema.json")
	classifierSchema = mustCompileSchema(classifierSchemaJSON, "classifier.schema.json")
}

func mustCompileSchema(raw string, name string) *jsonschema.Schema {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}
	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// ArtifactHeader is the envelope shared by scaler and classifier artifacts.
type ArtifactHeader struct {
	Kind         string            `json:"kind"`
	Version      int               `json:"version"`
	NFeatures    int               `json:"n_features"`
	FeatureNames []string          `json:"feature_names,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

type ScalerArtifact struct {
	ArtifactHeader
	Mean  []float64 `json:"mean,omitempty"`
	Scale []float64 `json:"scale,omitempty"`
	Min   []float64 `json:"min,omitempty"`
	Max   []float64 `json:"max,omitempty"`
}

type ClassifierArtifact struct {
	ArtifactHeader
	Classes []int          `json:"classes"`
	Trees   []TreeArtifact `json:"trees"`
}

type TreeArtifact struct {
	Nodes []TreeNode `json:"nodes"`
}

// ArtifactInfo describes a loaded artifact.
type ArtifactInfo struct {
	Path      string            `json:"path,omitempty"`
	Kind      string            `json:"kind"`
	Version   int               `json:"version"`
	NFeatures int               `json:"n_features"`
	Trees     int               `json:"trees,omitempty"`
	Classes   []int             `json:"classes,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func LoadScaler(path string) (Scaler, ArtifactInfo, error) {
	data, err := readArtifact(path)
	if err != nil {
		return nil, ArtifactInfo{}, fmt.Errorf("load scaler %s: %w", path, err)
	}
	scaler, info, err := ParseScaler(data)
	if err != nil {
		return nil, ArtifactInfo{}, fmt.Errorf("load scaler %s: %w", path, err)
	}
	info.Path = path
	return scaler, info, nil
}

func LoadClassifier(path string) (Classifier, ArtifactInfo, error) {
	data, err := readArtifact(path)
	if err != nil {
		return nil, ArtifactInfo{}, fmt.Errorf("load classifier %s: %w", path, err)
	}
	classifier, info, err := ParseClassifier(data)
	if err != nil {
		return nil, ArtifactInfo{}, fmt.Errorf("load classifier %s: %w", path, err)
	}
	info.Path = path
	return classifier, info, nil
}

func ParseScaler(data []byte) (Scaler, ArtifactInfo, error) {
	var artifact ScalerArtifact
	if err := decodeArtifact(data, scalerSchema, &artifact); err != nil {
		return nil, ArtifactInfo{}, err
	}
	if artifact.NFeatures != ContinuousCount {
		return nil, ArtifactInfo{}, fmt.Errorf("%w: scaler has %d features, want %d", ErrFormatMismatch, artifact.NFeatures, ContinuousCount)
	}
	if len(artifact.FeatureNames) > 0 {
		names := make([]string, ContinuousCount)
		for i, f := range ContinuousFields {
			names[i] = f.Name
		}
		if err := checkFeatureNames(artifact.FeatureNames, names); err != nil {
			return nil, ArtifactInfo{}, err
		}
	}

	var (
		scaler Scaler
		err    error
	)
	switch artifact.Kind {
	case KindStandardScaler:
		if len(artifact.Mean) != ContinuousCount || len(artifact.Scale) != ContinuousCount {
			return nil, ArtifactInfo{}, fmt.Errorf("%w: mean/scale must have %d entries", ErrFormatMismatch, ContinuousCount)
		}
		scaler, err = NewStandardScaler(artifact.Mean, artifact.Scale)
	case KindMinMaxScaler:
		if len(artifact.Min) != ContinuousCount || len(artifact.Max) != ContinuousCount {
			return nil, ArtifactInfo{}, fmt.Errorf("%w: min/max must have %d entries", ErrFormatMismatch, ContinuousCount)
		}
		scaler, err = NewMinMaxScaler(artifact.Min, artifact.Max)
	default:
		return nil, ArtifactInfo{}, fmt.Errorf("%w: unknown scaler kind %q", ErrFormatMismatch, artifact.Kind)
	}
	if err != nil {
		return nil, ArtifactInfo{}, err
	}
	return scaler, infoFor(artifact.ArtifactHeader), nil
}

func ParseClassifier(data []byte) (Classifier, ArtifactInfo, error) {
	var artifact ClassifierArtifact
	if err := decodeArtifact(data, classifierSchema, &artifact); err != nil {
		return nil, ArtifactInfo{}, err
	}
	if artifact.NFeatures != VectorLen {
		return nil, ArtifactInfo{}, fmt.Errorf("%w: classifier has %d features, want %d", ErrFormatMismatch, artifact.NFeatures, VectorLen)
	}
	if len(artifact.FeatureNames) > 0 {
		if err := checkFeatureNames(artifact.FeatureNames, FeatureNames()); err != nil {
			return nil, ArtifactInfo{}, err
		}
	}
	if err := checkClasses(artifact.Classes); err != nil {
		return nil, ArtifactInfo{}, err
	}

	labels := labelOrder()
	trees := make([]*DecisionTree, len(artifact.Trees))
	for i, t := range artifact.Trees {
		tree, err := NewDecisionTree(toLabelOrder(t.Nodes, artifact.Classes), labels)
		if err != nil {
			return nil, ArtifactInfo{}, fmt.Errorf("tree %d: %w", i, err)
		}
		trees[i] = tree
	}

	info := infoFor(artifact.ArtifactHeader)
	info.Trees = len(trees)
	info.Classes = labels

	switch artifact.Kind {
	case KindDecisionTree:
		if len(trees) != 1 {
			return nil, ArtifactInfo{}, fmt.Errorf("%w: decision_tree artifact has %d trees", ErrFormatMismatch, len(trees))
		}
		return trees[0], info, nil
	case KindRandomForest:
		forest, err := NewRandomForest(trees)
		if err != nil {
			return nil, ArtifactInfo{}, err
		}
		return forest, info, nil
	default:
		return nil, ArtifactInfo{}, fmt.Errorf("%w: unknown classifier kind %q", ErrFormatMismatch, artifact.Kind)
	}
}

func infoFor(header ArtifactHeader) ArtifactInfo {
	info := ArtifactInfo{
		Kind:      header.Kind,
		Version:   header.Version,
		NFeatures: header.NFeatures,
	}
	if len(header.Metadata) > 0 {
		info.Metadata = make(map[string]string, len(header.Metadata))
		for k, v := range header.Metadata {
			info.Metadata[k] = v
		}
	}
	return info
}

// readArtifact reads path, decompressing it when the name ends in .gz.
func readArtifact(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var r io.Reader = file
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		r = zr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return data, nil
}

func decodeArtifact(data []byte, schema *jsonschema.Schema, dst any) error {
	var header ArtifactHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return fmt.Errorf("%w: %v", ErrFormatMismatch, err)
	}
	if header.Version != 0 && header.Version != ArtifactVersion {
		return fmt.Errorf("%w: artifact version %d, this build reads version %d", ErrVersionSkew, header.Version, ArtifactVersion)
	}

	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFormatMismatch, err)
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("%w: %s", ErrFormatMismatch, strings.Join(schemaErrors(err), "; "))
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrFormatMismatch, err)
	}
	return nil
}

func schemaErrors(err error) []string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}
	var errs []string
	collectSchemaErrors(ve, &errs)
	return errs
}

func collectSchemaErrors(ve *jsonschema.ValidationError, errs *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/" + strings.Join(ve.InstanceLocation, "/")
		*errs = append(*errs, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(schemaPrinter)))
		return
	}
	for _, c := range ve.Causes {
		collectSchemaErrors(c, errs)
	}
}

func checkFeatureNames(got, want []string) error {
	if len(got) != len(want) {
		return fmt.Errorf("%w: %d feature names, want %d", ErrFormatMismatch, len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("%w: feature %d is %q, want %q", ErrFormatMismatch, i, got[i], want[i])
		}
	}
	return nil
}

// checkClasses requires the classes to be exactly the seven cover types.
func checkClasses(classes []int) error {
	if len(classes) != CoverTypeCount {
		return fmt.Errorf("%w: %d classes, want %d", ErrFormatMismatch, len(classes), CoverTypeCount)
	}
	seen := make(map[int]bool, len(classes))
	for _, c := range classes {
		if !CoverType(c).Valid() || seen[c] {
			return fmt.Errorf("%w: classes must be the labels 1..%d, got %v", ErrFormatMismatch, CoverTypeCount, classes)
		}
		seen[c] = true
	}
	return nil
}

func labelOrder() []int {
	labels := make([]int, CoverTypeCount)
	for i := range labels {
		labels[i] = i + 1
	}
	return labels
}

// toLabelOrder rewrites leaf values so entry i belongs to label i+1.
// classes must already have passed checkClasses. Leaves of the wrong width
// are left for NewDecisionTree to reject.
func toLabelOrder(nodes []TreeNode, classes []int) []TreeNode {
	out := make([]TreeNode, len(nodes))
	for i, node := range nodes {
		if node.IsLeaf && len(node.Value) == len(classes) {
			value := make([]float64, len(classes))
			for j, c := range classes {
				value[c-1] = node.Value[j]
			}
			node.Value = value
		}
		out[i] = node
	}
	return out
}
