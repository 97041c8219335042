package inject

import (
	"strings"

	"github.com/unknproject/loader/internal/domain"
)

// manualMapTitles are games whose anti-cheat blocks the standard loader.
var manualMapTitles = map[string]struct{}{
	"CS2":   {},
	"CS:GO": {},
}

// manualMapPrefixes cover title variants such as "CS2 Beta".
var manualMapPrefixes = []string{
	"CS2 ",
}

// manualMapProcesses is used when only the target executable is known.
var manualMapProcesses = map[string]struct{}{
	"cs2.exe":  {},
	"csgo.exe": {},
}

// Select picks the injection strategy for a catalog payload.
func Select(p domain.Payload) domain.Strategy {
	if _, ok := manualMapTitles[p.Game]; ok {
		return domain.StrategyManualMap
	}
	for _, prefix := range manualMapPrefixes {
		if strings.HasPrefix(p.Game, prefix) {
			return domain.StrategyManualMap
		}
	}
	return domain.StrategyStandard
}

// SelectForProcess picks the strategy for a user-supplied library aimed at exe.
func SelectForProcess(exe string) domain.Strategy {
	if _, ok := manualMapProcesses[strings.ToLower(exe)]; ok {
		return domain.StrategyManualMap
	}
	return domain.StrategyStandard
}

// HelperArch returns the helper slot used for a target process: the 64-bit
// helper for cs2.exe, the 32-bit one for everything else.
func HelperArch(targetProcess string) domain.Arch {
	if strings.EqualFold(targetProcess, "cs2.exe") {
		return domain.ArchX64
	}
	return domain.ArchX86
}

// RequiresX64 reports whether p can only be loaded from a 64-bit build.
func RequiresX64(p domain.Payload) bool {
	return p.Game == "CS2" || strings.HasPrefix(p.Game, "CS2 ")
}
