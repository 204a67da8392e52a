// Package prompt renders the meta-prompt: the fixed six-section instruction
// text handed to a generative model for an infographic on one topic.
package prompt

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"
)

// DesignMode selects the flat or volumetric wording of the template.
type DesignMode string

const (
	TwoD   DesignMode = "2D"
	ThreeD DesignMode = "3D"
)

// ParseDesignMode accepts "2D"/"3D" in any case. Empty means TwoD.
func ParseDesignMode(s string) (DesignMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "2D":
		return TwoD, nil
	case "3D":
		return ThreeD, nil
	default:
		return "", fmt.Errorf("invalid design mode %q (want 2D or 3D)", s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *DesignMode) UnmarshalText(text []byte) error {
	mode, err := ParseDesignMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// Style is the mode-dependent wording of the layout and icon descriptions.
type Style struct {
	Layout string
	Icon   string
}

var (
	leadPhrases = map[DesignMode]string{
		TwoD:   "tạo ảnh infographic 2d phẳng với ",
		ThreeD: "tạo ảnh 3d infographic với ",
	}
	styles = map[DesignMode]Style{
		TwoD:   {Layout: "2D phẳng (flat design), minimal, vector art", Icon: "icon vector"},
		ThreeD: {Layout: "3D nổi khối, bóng đổ mềm mại, có chiều sâu, style đất sét hoặc render 3D hiện đại", Icon: "icon 3D"},
	}
)

// Sections are the six content roles every rendered prompt asks for, in order.
var Sections = [6]string{
	`Khái niệm/Định nghĩa/Công thức "Vàng".`,
	`Giải thích bản chất/Ý nghĩa/"Giải mã".`,
	`Quy trình/Các bước thực hiện/Sơ đồ.`,
	`Ví dụ minh họa thực tế/Gắn với đời sống.`,
	`Ứng dụng/Tầm quan trọng/Tại sao cần học?`,
	`Note nhỏ/Mẹo ghi nhớ/Lời khuyên.`,
}

// LeadPhrase returns the phrase the prompt (and the model's answer) starts with.
func LeadPhrase(m DesignMode) string {
	if m == ThreeD {
		return leadPhrases[ThreeD]
	}
	return leadPhrases[TwoD]
}

// StyleFor returns the layout and icon wording for m.
func StyleFor(m DesignMode) Style {
	if m == ThreeD {
		return styles[ThreeD]
	}
	return styles[TwoD]
}

//go:embed metaprompt.tmpl
var metaPromptTmpl string

var metaPrompt = template.Must(template.New("metaprompt").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(metaPromptTmpl))

// Input is a fully resolved selection.
type Input struct {
	SubjectName        string
	TopicName          string
	PaletteName        string
	PaletteDescription string
	Mode               DesignMode
}

type templateData struct {
	Input
	LeadPhrase string
	Style      Style
	Sections   [6]string
}

// Render interpolates in into the meta-prompt template. Values are inserted
// verbatim; the output is plain text.
func Render(in Input) string {
	var buf bytes.Buffer
	data := templateData{
		Input:      in,
		LeadPhrase: LeadPhrase(in.Mode),
		Style:      StyleFor(in.Mode),
		Sections:   Sections,
	}
	if err := metaPrompt.Execute(&buf, data); err != nil {
		// Only reachable through a template bug; the data shape is fixed.
		panic(fmt.Sprintf("prompt: render: %v", err))
	}
	return buf.String()
}
