package convert

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/qobs-build/cubemeson/internal/convert/gen"
	"github.com/qobs-build/cubemeson/internal/makefile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptionsDefaults(t *testing.T) {
	opts, err := ParseOptions(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions(), opts)
	assert.Equal(t, gen.DefaultPrefix, opts.Toolchain.Prefix)
	assert.Equal(t, gen.DefaultProjectOptions, opts.Project.DefaultOptions)
}

func TestParseOptionsKeepsUnsetDefaults(t *testing.T) {
	opts, err := ParseOptions(strings.NewReader(`
[flash]
target = "target/stm32h7x.cfg"
`))
	require.NoError(t, err)
	assert.Equal(t, "target/stm32h7x.cfg", opts.Flash.Target)
	assert.Equal(t, gen.DefaultFlashInterface, opts.Flash.Interface)
	assert.Equal(t, gen.DefaultProjectName, opts.Project.Name)
}

func TestParseOptionsEmptyListClearsDefault(t *testing.T) {
	opts, err := ParseOptions(strings.NewReader(`
[project]
default_options = []
`))
	require.NoError(t, err)
	assert.NotNil(t, opts.Project.DefaultOptions)
	assert.Empty(t, opts.Project.DefaultOptions)
}

func TestParseOptionsUnknownKey(t *testing.T) {
	_, err := ParseOptions(strings.NewReader(`
[flash]
adapter = "jlink"
`))
	assert.Error(t, err)

	_, err = ParseOptions(strings.NewReader("[project\n"))
	assert.Error(t, err)
}

func TestParseOptionsFromFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), OptionsFilename)

	opts, err := ParseOptionsFromFile(missing, true)
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions(), opts)

	_, err = ParseOptionsFromFile(missing, false)
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), OptionsFilename)
	require.NoError(t, os.WriteFile(path, []byte("[toolchain]\nprefix = \"riscv-none-elf-\"\n"), 0o644))
	opts, err = ParseOptionsFromFile(path, false)
	require.NoError(t, err)
	assert.Equal(t, "riscv-none-elf-", opts.Toolchain.Prefix)

	require.NoError(t, os.WriteFile(path, []byte("[nope]\n"), 0o644))
	_, err = ParseOptionsFromFile(path, false)
	assert.ErrorContains(t, err, path)
}

func TestResolveExpressions(t *testing.T) {
	cfg := makefile.Parse("TARGET = Blink\nCPU = -mcpu=cortex-m7\nDEBUG = 1\n")
	opts := DefaultOptions()
	opts.Flash.Target = "target/{{ cpu == 'cortex-m7' ? 'stm32f7x' : 'stm32f4x' }}.cfg"
	opts.Project.Name = "{{ lower(target) }}"
	opts.Toolchain.Path = "{{ debug ? 'debug' : 'release' }}/{{ target_os }}"
	opts.Sources.Extra = []string{"{{ target }}/*.c"}

	res, err := opts.Resolve(cfg)
	require.NoError(t, err)
	assert.Equal(t, "target/stm32f7x.cfg", res.Flash.Target)
	assert.Equal(t, "blink", res.Project.Name)
	assert.Equal(t, "debug/"+runtime.GOOS, res.Toolchain.Path)
	assert.Equal(t, []string{"Blink/*.c"}, res.Sources.Extra)

	// the receiver is left alone
	assert.Equal(t, []string{"{{ target }}/*.c"}, opts.Sources.Extra)
}

func TestResolveEnviron(t *testing.T) {
	t.Setenv("CUBEMESON_TEST_TOOLCHAIN", "/opt/arm")
	opts := DefaultOptions()
	opts.Toolchain.Path = "{{ environ.CUBEMESON_TEST_TOOLCHAIN }}/bin"

	res, err := opts.Resolve(makefile.Parse(""))
	require.NoError(t, err)
	assert.Equal(t, "/opt/arm/bin", res.Toolchain.Path)
}

func TestResolveBadExpression(t *testing.T) {
	opts := DefaultOptions()
	opts.Flash.Interface = "{{ no_such_variable + 1 }}"
	_, err := opts.Resolve(makefile.Parse(""))
	assert.Error(t, err)
}

func TestMergeStructs(t *testing.T) {
	dst := DefaultOptions()
	src := Options{
		Project: ProjectSection{Name: "app"},
		Sources: SourcesSection{Exclude: []string{"a.c"}},
	}
	require.NoError(t, mergeStructs(dst, src))
	assert.Equal(t, "app", dst.Project.Name)
	assert.Equal(t, gen.DefaultProjectOptions, dst.Project.DefaultOptions)
	assert.Equal(t, []string{"a.c"}, dst.Sources.Exclude)

	assert.Error(t, mergeStructs(*dst, src))
	assert.Error(t, mergeStructs(dst, 42))
	assert.Error(t, mergeStructs(dst, ProjectSection{}))
}
