// Package pipeline loads and validates staged pipeline definitions.
//
// A definition is a YAML document with an ordered `stages` list and one or
// more job blocks. Blocks whose name starts with "." are templates: they are
// never runnable themselves but can be merged into jobs through `extends`.
// Template resolution happens once at load time; the jobs returned by Load
// are fully materialized and never consult a template chain at runtime.
//
// Basic usage:
//
//	def, err := pipeline.Load(data)
//	if err != nil {
//	    // errors.Is(err, pipeline.ErrParse) etc.
//	}
//	for _, job := range def.JobsInOrder() {
//	    // jobs ordered by stage position, then declaration order
//	}
package pipeline
