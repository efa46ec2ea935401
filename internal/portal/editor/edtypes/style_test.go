package edtypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStyle(t *testing.T) {
	style := ParseStyle("font-size: 18px; COLOR: red;; broken; background-color:")
	assert.Equal(t, map[string]string{"font-size": "18px", "color": "red"}, style)
}

func TestPatchStyle(t *testing.T) {
	tests := []struct {
		name  string
		style string
		patch map[string]string
		want  string
	}{
		{"add to empty", "", map[string]string{"font-size": "16px"}, "font-size: 16px;"},
		{"replace", "color: red; font-size: 10px", map[string]string{"font-size": "11px"}, "color: red; font-size: 11px;"},
		{"delete", "color: red; font-size: 10px", map[string]string{"color": ""}, "font-size: 10px;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PatchStyle(tt.style, tt.patch))
		})
	}
}

func TestFontSize(t *testing.T) {
	assert.Equal(t, DefaultFontSize, FontSize(""))
	assert.Equal(t, DefaultFontSize, FontSize("font-size: 2em"))
	assert.Equal(t, 20, FontSize("font-size: 20px"))
	assert.Equal(t, 13, FontSize("font-size: 12.6px"))

	assert.Equal(t, "font-size: 50px;", WithFontSize("", 70))
	assert.Equal(t, "font-size: 5px;", WithFontSize("font-size: 6px", 1))
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "rgb(255, 0, 10)", want: "#ff000a"},
		{raw: "rgba(0, 0, 0, 0.5)", want: "#00000080"},
		{raw: "#abcdef", want: "#abcdef"},
		{raw: `"#AABBCCDD"`, want: "#aabbccdd"},
		{raw: "red", wantErr: true},
		{raw: "#ab", wantErr: true},
		{raw: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			c, err := ParseColor(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.String())
		})
	}
}

func TestHeadingTag(t *testing.T) {
	assert.Equal(t, "h1", HeadingTag(0))
	assert.Equal(t, "h6", HeadingTag(9))
	assert.Equal(t, 3, HeadingLevel("H3"))
	assert.Equal(t, 1, HeadingLevel("h7"))
}

func TestGetAttrInt(t *testing.T) {
	m := map[string]any{"a": float64(3), "b": "320px", "c": "inherit", "d": true}
	assert.Equal(t, 3, getAttrInt(m, "a"))
	assert.Equal(t, 320, getAttrInt(m, "b"))
	assert.Zero(t, getAttrInt(m, "c"))
	assert.Zero(t, getAttrInt(m, "d"))
	assert.Zero(t, getAttrInt(nil, "a"))
}
