// Package profile describes the runner kinds the harness can drive.
//
// A Profile is plain data: the runner's location, which platforms need an
// external tool to launch it, and which platforms need an extra environment
// variable. A single generic executor serves every kind by swapping profiles.
package profile

import (
	"fmt"
	"path/filepath"
	"runtime"
	"slices"
	"sort"

	"github.com/randomizedcoder/go-dotnet-harness/internal/tool"
)

// Platform is an operating system name as reported by runtime.GOOS.
type Platform string

const (
	PlatformLinux   Platform = "linux"
	PlatformDarwin  Platform = "darwin"
	PlatformWindows Platform = "windows"
)

// CurrentPlatform returns the platform the harness is running on.
func CurrentPlatform() Platform {
	return Platform(runtime.GOOS)
}

// Kind names a runner variant.
type Kind string

const (
	// KindNUnitDotNet runs NUnit suites on .NET Core through the dotnet host.
	KindNUnitDotNet Kind = "nunit-dotnet"

	// KindXUnit runs xUnit suites. On Windows the runner is a native binary;
	// elsewhere it is launched through the dotnet host.
	KindXUnit Kind = "xunit"
)

// DefaultToolPath is the dotnet host invoked when no override is given.
const DefaultToolPath = "dotnet"

// Profile is the static description of one runner kind.
type Profile struct {
	Kind Kind

	// RunnerDir is the directory holding the runner build.
	RunnerDir string

	// Executable is the runner entry point (a .dll or .exe under RunnerDir).
	Executable string

	// ToolName and ToolDefaultPath describe the host tool used to launch
	// the runner where one is needed.
	ToolName        string
	ToolDefaultPath string

	// ToolExemptPlatforms lists platforms where the runner launches natively
	// and tool resolution is skipped.
	ToolExemptPlatforms []Platform

	// EnvVar, if set, is injected into the child environment with RunnerDir
	// as its value, except on EnvExemptPlatforms.
	EnvVar             string
	EnvExemptPlatforms []Platform
}

// NUnitDotNet returns the NUnit-on-.NET-Core profile rooted at resourcesDir.
func NUnitDotNet(resourcesDir string) Profile {
	dir := filepath.Join(resourcesDir, "NUnitDotNetCoreRunner")
	return Profile{
		Kind:            KindNUnitDotNet,
		RunnerDir:       dir,
		Executable:      filepath.Join(dir, "NUnitDotNetCoreRunner.dll"),
		ToolName:        "dotnet",
		ToolDefaultPath: DefaultToolPath,
	}
}

// XUnit returns the xUnit profile rooted at resourcesDir.
func XUnit(resourcesDir string) Profile {
	dir := filepath.Join(resourcesDir, "XUnitRunner")
	return Profile{
		Kind:                KindXUnit,
		RunnerDir:           dir,
		Executable:          filepath.Join(dir, "XUnitRunner.exe"),
		ToolName:            "dotnet",
		ToolDefaultPath:     DefaultToolPath,
		ToolExemptPlatforms: []Platform{PlatformWindows},
		EnvVar:              "DOTNETCORE_PATH",
		EnvExemptPlatforms:  []Platform{PlatformWindows},
	}
}

var builders = map[Kind]func(string) Profile{
	KindNUnitDotNet: NUnitDotNet,
	KindXUnit:       XUnit,
}

// ForKind returns the profile for kind rooted at resourcesDir.
func ForKind(kind Kind, resourcesDir string) (Profile, error) {
	build, ok := builders[kind]
	if !ok {
		return Profile{}, fmt.Errorf("unknown runner kind %q (want one of %v)", kind, Kinds())
	}
	return build(resourcesDir), nil
}

// Kinds returns the known runner kinds in sorted order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(builders))
	for k := range builders {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// NeedsTool reports whether the runner must be launched through the host
// tool on platform p.
func (p Profile) NeedsTool(platform Platform) bool {
	return !slices.Contains(p.ToolExemptPlatforms, platform)
}

// ExtraEnv returns the variables to inject into the child environment on
// platform p. The result is nil when nothing is needed.
func (p Profile) ExtraEnv(platform Platform) map[string]string {
	if p.EnvVar == "" || slices.Contains(p.EnvExemptPlatforms, platform) {
		return nil
	}
	return map[string]string{p.EnvVar: p.RunnerDir}
}

// ToolSpec returns the tool specification for this profile. A non-empty
// pathOverride replaces ToolDefaultPath. The dotnet host is never installable
// by the harness.
func (p Profile) ToolSpec(pathOverride string) tool.Spec {
	path := p.ToolDefaultPath
	if pathOverride != "" {
		path = pathOverride
	}
	return tool.Spec{
		Name:        p.ToolName,
		Path:        path,
		Installable: false,
	}
}

// String returns the runner kind.
func (p Profile) String() string {
	return string(p.Kind)
}
