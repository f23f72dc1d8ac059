package pipeline

// Stage is one step of a run. Stages execute strictly in declaration order.
type Stage int

const (
	StageLoadSources Stage = iota
	StageMergeBase
	StageBuildIdentity
	StageDerivePostcodeAndType
	StageBuildPriceSeries
	StageMergeSeries
	StageMatchFacilities
	StageEmit
)

var stageNames = [...]string{
	StageLoadSources:           "LOAD_SOURCES",
	StageMergeBase:             "MERGE_BASE",
	StageBuildIdentity:         "BUILD_IDENTITY",
	StageDerivePostcodeAndType: "DERIVE_POSTCODE_AND_TYPE",
	StageBuildPriceSeries:      "BUILD_PRICE_SERIES",
	StageMergeSeries:           "MERGE_SERIES",
	StageMatchFacilities:       "MATCH_FACILITIES",
	StageEmit:                  "EMIT",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "UNKNOWN"
	}
	return stageNames[s]
}

// Stages lists every stage in execution order.
func Stages() []Stage {
	out := make([]Stage, len(stageNames))
	for i := range out {
		out[i] = Stage(i)
	}
	return out
}
