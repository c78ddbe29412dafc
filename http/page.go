package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/yuin/goldmark"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"forestcover/config"
	"forestcover/ml"
)

//go:embed assets
var assets embed.FS

type sliderView struct {
	Name     string
	Label    string
	Min      float64
	Max      float64
	Value    float64
	MinLabel string
	MaxLabel string
	Error    string
}

type optionView struct {
	Value    int
	Label    string
	Selected bool
}

type probabilityView struct {
	Name    string
	Percent string
}

type resultView struct {
	CoverType         string
	Label             int
	ConfidencePercent string
	Probabilities     []probabilityView
}

type pageData struct {
	Title         string
	Lang          string
	About         template.HTML
	Fields        []sliderView
	Wilderness    []optionView
	WildernessErr string
	Soil          sliderView
	CoverTypes    []ml.CoverTypeInfo
	Result        *resultView
	Errors        []string
}

// page renders the form. Everything but the submitted values is fixed at
// construction.
type page struct {
	tmpl    *template.Template
	static  http.Handler
	title   string
	lang    string
	about   template.HTML
	printer *message.Printer
}

func newPage(ui config.UIConfig) (*page, error) {
	tag, err := language.Parse(ui.Language)
	if err != nil {
		return nil, fmt.Errorf("ui language %q: %w", ui.Language, err)
	}

	tmpl, err := template.ParseFS(assets, "assets/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}

	about, err := renderMarkdown("assets/about.md")
	if err != nil {
		return nil, err
	}

	static, err := fs.Sub(assets, "assets/static")
	if err != nil {
		return nil, err
	}

	return &page{
		tmpl:    tmpl,
		static:  http.StripPrefix("/static/", http.FileServerFS(static)),
		title:   ui.Title,
		lang:    tag.String(),
		about:   about,
		printer: message.NewPrinter(tag),
	}, nil
}

func renderMarkdown(name string) (template.HTML, error) {
	src, err := assets.ReadFile(name)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := goldmark.New().Convert(src, &buf); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	// The source is embedded, not user supplied.
	return template.HTML(buf.String()), nil
}

func (p *page) formatNumber(v float64) string {
	return p.printer.Sprintf("%v", number.Decimal(v))
}

func (p *page) data(in ml.Input, result *ml.Prediction, errs []*ml.FieldError, general []string) pageData {
	fieldErrs := make(map[string]string, len(errs))
	for _, fe := range errs {
		fieldErrs[fe.Field] = fe.Error()
	}

	values := in.Continuous()
	fields := make([]sliderView, 0, ml.ContinuousCount)
	for _, f := range ml.ContinuousFields {
		label := f.Label
		if f.Unit != "" {
			label = fmt.Sprintf("%s (%s)", f.Label, f.Unit)
		}
		fields = append(fields, sliderView{
			Name:     f.Name,
			Label:    label,
			Min:      f.Min,
			Max:      f.Max,
			Value:    values[f.Index],
			MinLabel: p.formatNumber(f.Min),
			MaxLabel: p.formatNumber(f.Max),
			Error:    fieldErrs[f.Name],
		})
	}

	wilderness := make([]optionView, 0, ml.WildernessCount)
	for i, name := range ml.WildernessOptions() {
		wilderness = append(wilderness, optionView{Value: i + 1, Label: name, Selected: in.WildernessArea == i+1})
	}

	data := pageData{
		Title:         p.title,
		Lang:          p.lang,
		About:         p.about,
		Fields:        fields,
		Wilderness:    wilderness,
		WildernessErr: fieldErrs[ml.WildernessAreas.Name],
		Soil: sliderView{
			Name:     ml.SoilTypes.Name,
			Label:    fmt.Sprintf("Soil Type Number (1-%d)", ml.SoilCount),
			Min:      1,
			Max:      ml.SoilCount,
			Value:    float64(in.SoilType),
			MinLabel: p.formatNumber(1),
			MaxLabel: p.formatNumber(ml.SoilCount),
			Error:    fieldErrs[ml.SoilTypes.Name],
		},
		CoverTypes: ml.CoverTypes(),
		Errors:     general,
	}
	if result != nil {
		view := &resultView{
			CoverType:         result.CoverType,
			Label:             result.Label,
			ConfidencePercent: result.ConfidencePercent,
		}
		for i, prob := range result.Probabilities {
			view.Probabilities = append(view.Probabilities, probabilityView{
				Name:    ml.CoverType(i + 1).String(),
				Percent: ml.FormatConfidence(prob),
			})
		}
		data.Result = view
	}
	return data
}

func (p *page) render(w http.ResponseWriter, status int, data pageData) error {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, "index.html", data); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
