package pipeline

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// rawJob mirrors a job or template block as written. Nil slices mean "not
// declared"; declared fields replace inherited ones wholesale, while the
// "+"-suffixed variants append to the inherited value instead.
type rawJob struct {
	Stage              string            `yaml:"stage"`
	Extends            stringList        `yaml:"extends"`
	Variables          map[string]string `yaml:"variables"`
	BeforeScript       []string          `yaml:"before_script"`
	BeforeScriptExtend []string          `yaml:"before_script+"`
	Script             []string          `yaml:"script"`
	ScriptExtend       []string          `yaml:"script+"`
	Packages           []string          `yaml:"packages"`
	PackagesExtend     []string          `yaml:"packages+"`
	Only               []string          `yaml:"only"`
	Cache              *CacheSpec        `yaml:"cache"`
	Deps               []SourceDep       `yaml:"deps"`
	AllowFailure       *bool             `yaml:"allow_failure"`
}

// stringList accepts either a single scalar or a sequence of scalars.
type stringList []string

func (s *stringList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var single string
		if err := value.Decode(&single); err != nil {
			return err
		}
		*s = stringList{single}
		return nil
	}
	var list []string
	if err := value.Decode(&list); err != nil {
		return err
	}
	*s = stringList(list)
	return nil
}

// templatePrefix marks a block as a reusable template rather than a
// runnable job.
const templatePrefix = "."

// Load parses a pipeline definition document, validates it against the
// definition schema, resolves all template references and returns a fully
// materialized Definition.
//
// Load fails with ErrParse on malformed input, ErrUndefinedStage when a job
// names a stage missing from the `stages` sequence and ErrUndefinedTemplate
// when an `extends` entry has no matching template block.
func Load(data []byte) (*Definition, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, WrapErrorf(ErrParse, "invalid yaml: %v", err)
	}
	if len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return nil, WrapError(ErrParse, "definition is not a mapping")
	}
	doc := root.Content[0]

	if err := validateSchema(doc); err != nil {
		return nil, err
	}

	def := &Definition{}
	templates := make(map[string]rawJob)
	type jobEntry struct {
		name string
		raw  rawJob
	}
	var entries []jobEntry

	// Mapping content alternates key and value nodes. Declaration order is
	// preserved, which is what makes JobsInOrder deterministic.
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key := doc.Content[i].Value
		value := doc.Content[i+1]

		switch key {
		case "stages":
			if err := value.Decode(&def.Stages); err != nil {
				return nil, WrapErrorf(ErrParse, "stages: %v", err)
			}
		case "variables":
			if err := value.Decode(&def.Variables); err != nil {
				return nil, WrapErrorf(ErrParse, "variables: %v", err)
			}
		case "requires":
			if err := value.Decode(&def.Requires); err != nil {
				return nil, WrapErrorf(ErrParse, "requires: %v", err)
			}
		default:
			var raw rawJob
			if err := value.Decode(&raw); err != nil {
				return nil, WrapErrorf(ErrParse, "block %q: %v", key, err)
			}
			if strings.HasPrefix(key, templatePrefix) {
				templates[key] = raw
			} else {
				entries = append(entries, jobEntry{name: key, raw: raw})
			}
		}
	}

	if len(def.Stages) == 0 {
		return nil, WrapError(ErrParse, "no stages declared")
	}
	if len(entries) == 0 {
		return nil, WrapError(ErrParse, "no jobs declared")
	}

	for _, entry := range entries {
		resolved, err := resolveExtends(entry.name, entry.raw, templates, nil)
		if err != nil {
			return nil, err
		}
		job, err := materialize(entry.name, resolved, def)
		if err != nil {
			return nil, err
		}
		def.Jobs = append(def.Jobs, job)
	}

	return def, nil
}

// resolveExtends merges a block's template chain into a single rawJob.
// Templates are merged in declared order, so a later template wins a field
// conflict, and the block's own fields win over every template.
func resolveExtends(name string, raw rawJob, templates map[string]rawJob, visiting []string) (rawJob, error) {
	for _, seen := range visiting {
		if seen == name {
			return rawJob{}, WrapErrorf(ErrParse, "extends cycle through %q", name)
		}
	}
	visiting = append(visiting, name)

	base := rawJob{}
	for _, ref := range raw.Extends {
		tmpl, ok := templates[ref]
		if !ok {
			return rawJob{}, WrapErrorf(ErrUndefinedTemplate, "%s extends %q", name, ref)
		}
		resolved, err := resolveExtends(ref, tmpl, templates, visiting)
		if err != nil {
			return rawJob{}, err
		}
		base = mergeRaw(base, resolved)
	}
	return mergeRaw(base, raw), nil
}

// mergeRaw overlays one block over another. Scalar and array fields declared
// by the overlay replace the base wholesale; "+"-suffixed array fields append
// to the merged value; variables merge per key with the overlay winning.
func mergeRaw(base, overlay rawJob) rawJob {
	out := base

	if overlay.Stage != "" {
		out.Stage = overlay.Stage
	}
	if overlay.Variables != nil {
		out.Variables = mergeVariables(out.Variables, overlay.Variables)
	}
	if overlay.BeforeScript != nil {
		out.BeforeScript = overlay.BeforeScript
	}
	out.BeforeScript = appendCopy(out.BeforeScript, overlay.BeforeScriptExtend)
	if overlay.Script != nil {
		out.Script = overlay.Script
	}
	out.Script = appendCopy(out.Script, overlay.ScriptExtend)
	if overlay.Packages != nil {
		out.Packages = overlay.Packages
	}
	out.Packages = appendCopy(out.Packages, overlay.PackagesExtend)
	if overlay.Only != nil {
		out.Only = overlay.Only
	}
	if overlay.Cache != nil {
		out.Cache = overlay.Cache
	}
	if overlay.Deps != nil {
		out.Deps = overlay.Deps
	}
	if overlay.AllowFailure != nil {
		out.AllowFailure = overlay.AllowFailure
	}

	// The extend markers are consumed here; they must not leak into a later
	// merge and apply twice.
	out.BeforeScriptExtend = nil
	out.ScriptExtend = nil
	out.PackagesExtend = nil
	return out
}

func mergeVariables(base, overlay map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(overlay))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overlay {
		merged[k] = v
	}
	return merged
}

func appendCopy(base, extra []string) []string {
	if len(extra) == 0 {
		return base
	}
	out := make([]string, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

// materialize turns a resolved raw block into a Job and validates its
// references against the definition.
func materialize(name string, raw rawJob, def *Definition) (Job, error) {
	if raw.Stage == "" {
		return Job{}, WrapErrorf(ErrParse, "job %q declares no stage", name)
	}
	if def.StageIndex(raw.Stage) < 0 {
		return Job{}, WrapErrorf(ErrUndefinedStage, "job %q references stage %q", name, raw.Stage)
	}
	if len(raw.Script) == 0 {
		return Job{}, WrapErrorf(ErrParse, "job %q declares no script", name)
	}
	if raw.Cache != nil && len(raw.Cache.Key.Files) == 0 {
		return Job{}, WrapErrorf(ErrParse, "job %q cache declares no key files", name)
	}

	job := Job{
		Name:         name,
		Stage:        raw.Stage,
		Variables:    raw.Variables,
		BeforeScript: raw.BeforeScript,
		Script:       raw.Script,
		Only:         raw.Only,
		Packages:     raw.Packages,
		Deps:         raw.Deps,
	}
	if raw.AllowFailure != nil {
		job.AllowFailure = *raw.AllowFailure
	}
	if raw.Cache != nil {
		// Jobs extending one template must not share a spec: the job owns
		// its copy, so the When default below stays local to it.
		spec := *raw.Cache
		if spec.When == "" {
			spec.When = SaveOnSuccess
		}
		job.Cache = &spec
	}
	for i := range job.Deps {
		if job.Deps[i].Path == "" {
			job.Deps[i].Path = defaultDepPath(job.Deps[i].Repo)
		}
	}
	return job, nil
}

// defaultDepPath derives a destination directory from a repository URL:
// the last path element with any ".git" suffix removed.
func defaultDepPath(repo string) string {
	trimmed := strings.TrimSuffix(strings.TrimSuffix(repo, "/"), ".git")
	if i := strings.LastIndexAny(trimmed, "/:"); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	return trimmed
}
