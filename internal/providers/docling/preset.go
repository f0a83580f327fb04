package docling

import "strconv"

// Preset is a named set of conversion options applied by routes that do not
// take options from the caller.
type Preset struct {
	FromFormats      []string `yaml:"from_formats"`
	ToFormats        []string `yaml:"to_formats"`
	ImageExportMode  string   `yaml:"image_export_mode"`
	DoOCR            *bool    `yaml:"do_ocr"`
	ForceOCR         *bool    `yaml:"force_ocr"`
	OCREngine        string   `yaml:"ocr_engine"`
	OCRLang          []string `yaml:"ocr_lang"`
	PDFBackend       string   `yaml:"pdf_backend"`
	TableMode        string   `yaml:"table_mode"`
	AbortOnError     *bool    `yaml:"abort_on_error"`
	DoTableStructure *bool    `yaml:"do_table_structure"`
	IncludeImages    *bool    `yaml:"include_images"`
	ImagesScale      *float64 `yaml:"images_scale"`
}

// FormParams renders the preset as /convert/file multipart fields.
func (p Preset) FormParams() FormParams {
	var out FormParams
	add := func(k, v string) {
		if v != "" {
			out = append(out, Param{Key: k, Value: v})
		}
	}
	for _, v := range p.FromFormats {
		add("from_formats", v)
	}
	for _, v := range p.ToFormats {
		add("to_formats", v)
	}
	add("image_export_mode", p.ImageExportMode)
	add("do_ocr", boolString(p.DoOCR))
	add("force_ocr", boolString(p.ForceOCR))
	add("do_table_structure", boolString(p.DoTableStructure))
	add("include_images", boolString(p.IncludeImages))
	add("abort_on_error", boolString(p.AbortOnError))
	add("ocr_engine", p.OCREngine)
	add("pdf_backend", p.PDFBackend)
	add("table_mode", p.TableMode)
	for _, v := range p.OCRLang {
		add("ocr_lang", v)
	}
	if p.ImagesScale != nil {
		add("images_scale", strconv.FormatFloat(*p.ImagesScale, 'f', -1, 64))
	}
	return out
}

// Options renders the preset as the JSON "options" object of /convert/source.
func (p Preset) Options() map[string]any {
	out := map[string]any{}
	if len(p.FromFormats) > 0 {
		out["from_formats"] = p.FromFormats
	}
	if len(p.ToFormats) > 0 {
		out["to_formats"] = p.ToFormats
	}
	if p.ImageExportMode != "" {
		out["image_export_mode"] = p.ImageExportMode
	}
	for k, v := range map[string]*bool{
		"do_ocr":             p.DoOCR,
		"force_ocr":          p.ForceOCR,
		"abort_on_error":     p.AbortOnError,
		"do_table_structure": p.DoTableStructure,
		"include_images":     p.IncludeImages,
	} {
		if v != nil {
			out[k] = *v
		}
	}
	if p.OCREngine != "" {
		out["ocr_engine"] = p.OCREngine
	}
	if len(p.OCRLang) > 0 {
		out["ocr_lang"] = p.OCRLang
	}
	if p.PDFBackend != "" {
		out["pdf_backend"] = p.PDFBackend
	}
	if p.TableMode != "" {
		out["table_mode"] = p.TableMode
	}
	if p.ImagesScale != nil {
		out["images_scale"] = *p.ImagesScale
	}
	return out
}

func boolString(b *bool) string {
	if b == nil {
		return ""
	}
	return strconv.FormatBool(*b)
}
