package ux

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Formatter writes one command result in the selected output format.
type Formatter interface {
	Format(data any) error
}

// FormatterOptions contains configuration for formatters
type FormatterOptions struct {
	// Writer is where output is written (defaults to os.Stdout)
	Writer io.Writer
	// NoColor renders text output with PlainStyles.
	NoColor bool
	// Compact disables indentation for JSON and YAML.
	Compact bool
}

// TextRenderer is implemented by results with their own text layout.
// JSON and YAML output ignore it and marshal the value.
type TextRenderer interface {
	RenderText(styles Styles) string
}

// NewFormatter returns the formatter for format. An empty format is text.
func NewFormatter(format string, opts *FormatterOptions) (Formatter, error) {
	o := FormatterOptions{}
	if opts != nil {
		o = *opts
	}
	if o.Writer == nil {
		o.Writer = os.Stdout
	}

	switch format {
	case "json":
		return encoder{w: o.Writer, encode: jsonEncoder(o.Compact)}, nil
	case "yaml":
		return encoder{w: o.Writer, encode: yamlEncoder(o.Compact)}, nil
	case "text", "":
		styles := DefaultStyles()
		if o.NoColor {
			styles = PlainStyles()
		}
		return text{w: o.Writer, styles: styles}, nil
	default:
		return nil, fmt.Errorf("unknown format: %s (supported: text, json, yaml)", format)
	}
}

type encoder struct {
	w      io.Writer
	encode func(io.Writer, any) error
}

func (e encoder) Format(data any) error {
	return e.encode(e.w, data)
}

func jsonEncoder(compact bool) func(io.Writer, any) error {
	return func(w io.Writer, data any) error {
		enc := json.NewEncoder(w)
		if !compact {
			enc.SetIndent("", "  ")
		}
		return enc.Encode(data)
	}
}

func yamlEncoder(compact bool) func(io.Writer, any) error {
	return func(w io.Writer, data any) error {
		enc := yaml.NewEncoder(w)
		defer enc.Close() //nolint:errcheck // flush errors surface from Encode
		if !compact {
			enc.SetIndent(2)
		}
		return enc.Encode(data)
	}
}

type text struct {
	w      io.Writer
	styles Styles
}

// Format writes a TextRenderer, fmt.Stringer or string followed by a newline.
func (t text) Format(data any) error {
	var out string
	switch v := data.(type) {
	case TextRenderer:
		out = v.RenderText(t.styles)
	case string:
		out = v
	case fmt.Stringer:
		out = v.String()
	default:
		return fmt.Errorf("text formatter cannot render %T; use --output json or yaml", data)
	}
	_, err := fmt.Fprintln(t.w, out)
	return err
}
