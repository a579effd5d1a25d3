package xcframework

import (
	"context"
	"debug/macho"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

var machoArchNames = map[macho.Cpu]string{
	macho.CpuAmd64: "x86_64",
	macho.CpuArm64: "arm64",
}

func archName(cpu macho.Cpu) string {
	if name, ok := machoArchNames[cpu]; ok {
		return name
	}
	return cpu.String()
}

// inspectBinary opens the slice's library and compares the architectures
// actually present against the manifest. Everything it finds is a warning
// at most; a bundle that loads in Xcode should never be rejected here.
func (v *Verifier) inspectBinary(ctx context.Context, report *Report, bundle string, lib Library) {
	path, ok := findBinary(bundle, lib)
	if !ok {
		report.warnf("No library binary found in slice %s", lib.Identifier)
		return
	}

	if strings.HasSuffix(path, ".a") {
		// static archives are ar files, not Mach-O
		zerolog.Ctx(ctx).Debug().Str("path", path).Msg("Skipping static archive")
		return
	}

	archs, err := readArchitectures(path)
	if err != nil {
		report.warnf("Could not inspect %s: %v", path, err)
		return
	}

	for _, want := range lib.Architectures {
		if !slices.Contains(archs, want) {
			report.warnf("Slice %s should support %s but its binary only has %s",
				lib.Identifier, want, strings.Join(archs, ", "))
		}
	}
}

// findBinary resolves the Mach-O inside a slice directory. Plain libraries
// sit directly under it, frameworks nest the binary in the bundle (with a
// Versions tree on macOS).
func findBinary(bundle string, lib Library) (string, bool) {
	base := filepath.Join(bundle, lib.Identifier, lib.Path)

	candidates := []string{base}
	if strings.HasSuffix(lib.Path, ".framework") {
		stem := strings.TrimSuffix(filepath.Base(lib.Path), ".framework")
		candidates = []string{
			filepath.Join(base, stem),
			filepath.Join(base, "Versions", "A", stem),
		}
	}

	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

func readArchitectures(path string) ([]string, error) {
	fat, err := macho.OpenFat(path)
	if err == nil {
		defer fat.Close()

		archs := make([]string, 0, len(fat.Arches))
		for _, arch := range fat.Arches {
			archs = append(archs, archName(arch.Cpu))
		}
		return archs, nil
	}

	thin, err := macho.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "Not a Mach-O binary: %s", path)
	}
	defer thin.Close()

	return []string{archName(thin.Cpu)}, nil
}
