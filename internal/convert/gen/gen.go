package gen

import "github.com/qobs-build/cubemeson/internal/makefile"

// Generator renders one output file from the extracted Makefile variables
type Generator interface {
	Generate(cfg *makefile.Config) string
	BuildFile() string
}
