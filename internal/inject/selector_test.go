package inject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/unknproject/loader/internal/domain"
)

func TestSelect(t *testing.T) {
	tests := []struct {
		game string
		want domain.Strategy
	}{
		{"CS2", domain.StrategyManualMap},
		{"CS:GO", domain.StrategyManualMap},
		{"CS2 Beta", domain.StrategyManualMap},
		{"CSS v34", domain.StrategyStandard},
		{"Other", domain.StrategyStandard},
		{"", domain.StrategyStandard},
		{"cs2", domain.StrategyStandard},
		{"CS22", domain.StrategyStandard},
	}

	for _, tt := range tests {
		t.Run(tt.game, func(t *testing.T) {
			p := domain.NewPayload("/cache", domain.CatalogEntry{Name: "x", File: "x.dll", Game: tt.game})
			assert.Equal(t, tt.want, Select(p))
			assert.Equal(t, tt.want, Select(p), "selection is deterministic")
		})
	}
}

func TestSelectForProcess(t *testing.T) {
	assert.Equal(t, domain.StrategyManualMap, SelectForProcess("cs2.exe"))
	assert.Equal(t, domain.StrategyManualMap, SelectForProcess("CSGO.exe"))
	assert.Equal(t, domain.StrategyStandard, SelectForProcess("hl2.exe"))
}

func TestHelperArch(t *testing.T) {
	assert.Equal(t, domain.ArchX64, HelperArch("cs2.exe"))
	assert.Equal(t, domain.ArchX64, HelperArch("CS2.EXE"))
	assert.Equal(t, domain.ArchX86, HelperArch("csgo.exe"))
}

func TestRequiresX64(t *testing.T) {
	assert.True(t, RequiresX64(domain.Payload{Game: "CS2"}))
	assert.False(t, RequiresX64(domain.Payload{Game: "CS:GO"}))
}
