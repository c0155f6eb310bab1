package pipeline

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FullDefinition(t *testing.T) {
	data, err := os.ReadFile("testdata/znp.yml")
	require.NoError(t, err)

	def, err := Load(data)
	require.NoError(t, err)

	assert.Equal(t, []string{"test", "lint"}, def.Stages)
	assert.Equal(t, map[string]string{"RUST_BACKTRACE": "1"}, def.Variables)
	require.Len(t, def.Jobs, 3)

	ordered := def.JobsInOrder()
	names := make([]string, 0, len(ordered))
	for _, job := range ordered {
		names = append(names, job.Name)
	}
	assert.Equal(t, []string{"cargo_test", "rustfmt", "clippy"}, names)

	cargoTest := ordered[0]
	assert.Equal(t, "test", cargoTest.Stage)
	assert.Equal(t, []string{"merge_request"}, cargoTest.Only)
	assert.Equal(t, []string{"rustup show"}, cargoTest.BeforeScript)
	assert.Equal(t, []string{"cargo test"}, cargoTest.Script)
	assert.Equal(t, []string{"build-essential", "libssl-dev"}, cargoTest.Packages)
	require.Len(t, cargoTest.Deps, 1)
	assert.Equal(t, "https://gitlab.com/zenotta/naom.git", cargoTest.Deps[0].Repo)
	assert.Equal(t, "naom", cargoTest.Deps[0].Path, "dep path defaults to repo basename")
	assert.Equal(t, "develop", cargoTest.Deps[0].Ref)

	require.NotNil(t, cargoTest.Cache)
	assert.Equal(t, "test", cargoTest.Cache.Key.Prefix)
	assert.Equal(t, []string{"Cargo.lock"}, cargoTest.Cache.Key.Files)
	assert.Equal(t, SaveOnSuccess, cargoTest.Cache.When, "save policy defaults to on_success")

	rustfmt := ordered[1]
	assert.Nil(t, rustfmt.Only, "no trigger rule means unconditional")
	assert.False(t, rustfmt.HasTrigger())
	assert.Nil(t, rustfmt.Cache)

	clippy := ordered[2]
	assert.True(t, clippy.AllowFailure)
	assert.Equal(t, "lint", clippy.Cache.Key.Prefix)
}

func TestLoad_TemplatesAreNotRunnable(t *testing.T) {
	def, err := Load([]byte(`
stages: [build]
.tmpl:
  script: [echo template]
job:
  stage: build
  script: [echo job]
`))
	require.NoError(t, err)
	require.Len(t, def.Jobs, 1)
	assert.Equal(t, "job", def.Jobs[0].Name)
}

func TestLoad_JobFieldsReplaceTemplateWholesale(t *testing.T) {
	def, err := Load([]byte(`
stages: [build]
.tmpl:
  before_script: [one, two]
  script: [inherited]
job:
  stage: build
  extends: .tmpl
  script: [own]
`))
	require.NoError(t, err)

	job := def.Jobs[0]
	assert.Equal(t, []string{"own"}, job.Script, "redeclared arrays replace, not append")
	assert.Equal(t, []string{"one", "two"}, job.BeforeScript, "undeclared fields inherit")
}

func TestLoad_ExtendMarkerAppends(t *testing.T) {
	def, err := Load([]byte(`
stages: [build]
.tmpl:
  before_script: [setup]
job:
  stage: build
  extends: .tmpl
  before_script+: [extra]
  script: [run]
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"setup", "extra"}, def.Jobs[0].BeforeScript)
}

func TestLoad_LastDeclaredTemplateWins(t *testing.T) {
	def, err := Load([]byte(`
stages: [build]
.first:
  script: [from first]
  packages: [gcc]
.second:
  script: [from second]
job:
  stage: build
  extends: [.first, .second]
`))
	require.NoError(t, err)

	job := def.Jobs[0]
	assert.Equal(t, []string{"from second"}, job.Script)
	assert.Equal(t, []string{"gcc"}, job.Packages, "fields only the earlier template declares survive")
}

func TestLoad_TemplateChain(t *testing.T) {
	def, err := Load([]byte(`
stages: [build]
.base:
  variables:
    A: base
    B: base
.mid:
  extends: .base
  variables:
    B: mid
job:
  stage: build
  extends: .mid
  variables:
    C: job
  script: [run]
`))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"A": "base", "B": "mid", "C": "job"}, def.Jobs[0].Variables)
}

func TestLoad_ExtendsCycle(t *testing.T) {
	_, err := Load([]byte(`
stages: [build]
.a:
  extends: .b
.b:
  extends: .a
job:
  stage: build
  extends: .a
  script: [run]
`))
	require.ErrorIs(t, err, ErrParse)
}

func TestLoad_UndefinedTemplate(t *testing.T) {
	_, err := Load([]byte(`
stages: [build]
job:
  stage: build
  extends: .missing
  script: [run]
`))
	require.ErrorIs(t, err, ErrUndefinedTemplate)
}

func TestLoad_UndefinedStage(t *testing.T) {
	_, err := Load([]byte(`
stages: [build]
job:
  stage: deploy
  script: [run]
`))
	require.ErrorIs(t, err, ErrUndefinedStage)
}

func TestLoad_MalformedInputs(t *testing.T) {
	cases := map[string]string{
		"invalid yaml":      "stages: [a\njob:",
		"not a mapping":     "- just\n- a\n- list",
		"no stages":         "job:\n  stage: build\n  script: [run]",
		"no jobs":           "stages: [build]",
		"job without script": "stages: [build]\njob:\n  stage: build",
		"unknown job field": "stages: [build]\njob:\n  stage: build\n  script: [run]\n  bogus: true",
		"cache without key files": `
stages: [build]
job:
  stage: build
  script: [run]
  cache:
    key:
      prefix: p
      files: []
    paths: [out/]
`,
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load([]byte(input))
			require.ErrorIs(t, err, ErrParse)
		})
	}
}

func TestLoad_ExtendsAcceptsScalar(t *testing.T) {
	def, err := Load([]byte(`
stages: [build]
.tmpl:
  script: [run]
job:
  stage: build
  extends: .tmpl
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"run"}, def.Jobs[0].Script)
}

func TestLoad_ExtendedJobsOwnTheirCacheSpec(t *testing.T) {
	def, err := Load([]byte(`
stages: [build]
.cached:
  cache:
    key:
      files: [Cargo.lock]
    paths: [target]
one:
  stage: build
  extends: .cached
  script: [run]
two:
  stage: build
  extends: .cached
  script: [run]
`))
	require.NoError(t, err)
	require.Len(t, def.Jobs, 2)

	one, two := def.Jobs[0].Cache, def.Jobs[1].Cache
	require.NotNil(t, one)
	require.NotNil(t, two)
	assert.NotSame(t, one, two, "each job owns its copy of the template's cache spec")

	one.When = SaveNever
	assert.Equal(t, SaveOnSuccess, two.When)
}

func TestJobsInOrder_StageThenDeclaration(t *testing.T) {
	// Jobs declared interleaved across stages: ordering is by stage
	// position first, declaration order within a stage second.
	def, err := Load([]byte(`
stages: [first, second]
b:
  stage: second
  script: [run]
a:
  stage: first
  script: [run]
c:
  stage: second
  script: [run]
d:
  stage: first
  script: [run]
`))
	require.NoError(t, err)

	names := []string{}
	for _, job := range def.JobsInOrder() {
		names = append(names, job.Name)
	}
	assert.Equal(t, []string{"a", "d", "b", "c"}, names)
}
