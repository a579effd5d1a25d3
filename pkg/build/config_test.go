package build

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    Config
		wantErr string
	}{
		{
			name: "defaults",
			args: nil,
			want: Config{Mode: Debug, Target: Universal},
		},
		{
			name: "release",
			args: []string{"--release"},
			want: Config{Mode: Release, Target: Universal},
		},
		{
			name: "release then debug, debug wins",
			args: []string{"--release", "--debug"},
			want: Config{Mode: Debug, Target: Universal},
		},
		{
			name: "debug then release, release wins",
			args: []string{"--debug", "--release"},
			want: Config{Mode: Release, Target: Universal},
		},
		{
			name: "repeated mode flags, last wins",
			args: []string{"--release", "--debug", "--release"},
			want: Config{Mode: Release, Target: Universal},
		},
		{
			name: "native target",
			args: []string{"--target", "native"},
			want: Config{Mode: Debug, Target: Native},
		},
		{
			name: "universal target",
			args: []string{"--target", "universal"},
			want: Config{Mode: Debug, Target: Universal},
		},
		{
			name: "repeated target, last wins",
			args: []string{"--target", "native", "--target", "universal"},
			want: Config{Mode: Debug, Target: Universal},
		},
		{
			name: "clean and verbose",
			args: []string{"--clean", "--verbose"},
			want: Config{Mode: Debug, Target: Universal, Clean: true, Verbose: true},
		},
		{
			name: "deep",
			args: []string{"--deep"},
			want: Config{Mode: Debug, Target: Universal, Deep: true},
		},
		{
			name: "everything at once",
			args: []string{"--clean", "--release", "--target", "native", "--verbose"},
			want: Config{Mode: Release, Target: Native, Clean: true, Verbose: true},
		},
		{
			name:    "missing target value",
			args:    []string{"--target"},
			wantErr: "--target requires a value",
		},
		{
			name:    "invalid target value",
			args:    []string{"--target", "ios"},
			wantErr: `invalid target "ios"`,
		},
		{
			name:    "unknown flag",
			args:    []string{"--fast"},
			wantErr: `unrecognized argument "--fast"`,
		},
		{
			name:    "stray word",
			args:    []string{"universal"},
			wantErr: `unrecognized argument "universal"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseArgs(tt.args)

			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("ParseArgs(%v) succeeded, want error containing %q", tt.args, tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("ParseArgs(%v) error = %q, want it to contain %q", tt.args, err, tt.wantErr)
				}

				var usageErr *UsageError
				if !errors.As(err, &usageErr) {
					t.Errorf("ParseArgs(%v) error is %T, want *UsageError", tt.args, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseArgs(%v) returned %v", tt.args, err)
			}
			if got != tt.want {
				t.Errorf("ParseArgs(%v) = %+v, want %+v", tt.args, got, tt.want)
			}
		})
	}
}

func TestParseArgsHelp(t *testing.T) {
	// --help must win even when the rest of the command line is broken
	help := [][]string{
		{"--help"},
		{"-h"},
		{"--release", "--help"},
		{"--target", "--help"},
		{"--bogus", "-h"},
	}

	for _, args := range help {
		_, err := ParseArgs(args)
		if !errors.Is(err, ErrHelp) {
			t.Errorf("ParseArgs(%v) = %v, want ErrHelp", args, err)
		}
	}
}

func TestBuilderArgs(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want []string
	}{
		{
			name: "debug universal",
			cfg:  Config{},
			want: []string{
				"build",
				"-Demit-xcframework=true",
				"-Demit-macos-app=false",
				"-Dxcframework-target=universal",
			},
		},
		{
			name: "release native",
			cfg:  Config{Mode: Release, Target: Native},
			want: []string{
				"build",
				"-Demit-xcframework=true",
				"-Demit-macos-app=false",
				"-Dxcframework-target=native",
				"-Doptimize=ReleaseFast",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.cfg.BuilderArgs()); diff != "" {
				t.Errorf("BuilderArgs() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
