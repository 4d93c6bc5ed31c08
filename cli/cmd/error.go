package cmd

import "github.com/ardnew/isolate/isolate"

// Command errors. They share [isolate.Error] so that causes and attributes
// from the library are logged alongside them.
var (
	ErrReadSource  = isolate.NewError("read source")
	ErrDecode      = isolate.NewError("decode document")
	ErrFunction    = isolate.NewError("define function")
	ErrRegister    = isolate.NewError("register binding")
	ErrJSONMarshal = isolate.NewError("marshal JSON")
	ErrYAMLMarshal = isolate.NewError("marshal YAML")
)
