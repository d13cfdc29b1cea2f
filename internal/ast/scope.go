package ast

// ScopeType is the closed enumeration of scope values a node can resolve
// to (spec §3 "Scope type"). unknown propagates through unresolved links;
// any matches every scope for schema/completion purposes; none marks a
// position where no scope is meaningful (e.g. a bare comment).
type ScopeType string

const (
	ScopeUnknown ScopeType = "unknown"
	ScopeAny     ScopeType = "any"
	ScopeNone    ScopeType = "none"

	ScopeCharacter    ScopeType = "character"
	ScopeLandedTitle  ScopeType = "landed_title"
	ScopeProvince     ScopeType = "province"
	ScopeFaith        ScopeType = "faith"
	ScopeCulture      ScopeType = "culture"
	ScopeDynasty      ScopeType = "dynasty"
	ScopeHouse        ScopeType = "house"
	ScopeArtifact     ScopeType = "artifact"
	ScopeStory        ScopeType = "story"
	ScopeScheme       ScopeType = "scheme"
	ScopeActivity     ScopeType = "activity"
	ScopeWar          ScopeType = "war"
	ScopeCombat       ScopeType = "combat"
	ScopeGreatHolyWar ScopeType = "great_holy_war"
	ScopeSecret       ScopeType = "secret"
	ScopeArmy         ScopeType = "army"
	ScopeReligion     ScopeType = "religion"
)

// AllScopeTypes enumerates every concrete (non-unknown/any/none) scope
// type, used to build link/iterator tables exhaustively and to drive
// schema enum validation.
var AllScopeTypes = []ScopeType{
	ScopeCharacter, ScopeLandedTitle, ScopeProvince, ScopeFaith, ScopeCulture,
	ScopeDynasty, ScopeHouse, ScopeArtifact, ScopeStory, ScopeScheme,
	ScopeActivity, ScopeWar, ScopeCombat, ScopeGreatHolyWar, ScopeSecret,
	ScopeArmy, ScopeReligion,
}
