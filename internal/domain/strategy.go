package domain

// Strategy is the injection technique used for a payload.
type Strategy int

const (
	StrategyStandard Strategy = iota
	StrategyManualMap
)

func (s Strategy) String() string {
	switch s {
	case StrategyStandard:
		return "standard"
	case StrategyManualMap:
		return "manual_map"
	default:
		return "unknown"
	}
}

// Arch is a manual-map helper slot.
type Arch string

const (
	ArchX86 Arch = "x86"
	ArchX64 Arch = "x64"
)

// ParseArch accepts "x86", "x64" or "both". "both" expands to every slot.
func ParseArch(s string) ([]Arch, error) {
	switch s {
	case "both":
		return []Arch{ArchX86, ArchX64}, nil
	case string(ArchX86):
		return []Arch{ArchX86}, nil
	case string(ArchX64):
		return []Arch{ArchX64}, nil
	default:
		return nil, ErrInvalidArch{Value: s}
	}
}
