package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"reflect"

	"github.com/goccy/go-yaml"
)

// Output formats accepted by --output.
const (
	outputNative = "native"
	outputJSON   = "json"
	outputYAML   = "yaml"
)

// writeResult writes v to w in the given output format, followed by a
// newline.
func writeResult(ctx context.Context, w io.Writer, v any, output string) error {
	switch output {
	case outputJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return ErrJSONMarshal.Wrap(err)
		}

		_, err = fmt.Fprintln(w, string(data))

		return err

	case outputYAML:
		data, err := yaml.MarshalContext(ctx, v)
		if err != nil {
			return ErrYAMLMarshal.Wrap(err)
		}

		_, err = w.Write(data)

		return err

	default:
		_, err := fmt.Fprintln(w, FormatResult(v))

		return err
	}
}

// FormatResult renders v for display. Strings are printed without quotes,
// functions by their type, and everything else with its default format.
func FormatResult(v any) string {
	switch v := v.(type) {
	case nil:
		return "nil"
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}

	if reflect.TypeOf(v).Kind() == reflect.Func {
		return "<" + reflect.TypeOf(v).String() + ">"
	}

	return fmt.Sprintf("%v", v)
}
