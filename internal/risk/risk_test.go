package risk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/fountainscan/internal/lists"
)

func TestClassify_Partition(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		score int
		want  Level
	}{
		{0, LevelSafe},
		{1, LevelSafe},
		{2, LevelLow},
		{4, LevelLow},
		{5, LevelMedium},
		{7, LevelMedium},
		{8, LevelHigh},
		{100, LevelHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, th.Classify(tt.score), "score %d", tt.score)
	}
}

func TestClassify_Monotonic(t *testing.T) {
	for _, th := range []Thresholds{
		DefaultThresholds(),
		{LowMin: 1, MediumMin: 2, HighMin: 3},
		{LowMin: 3, MediumMin: 6, HighMin: 20},
	} {
		require.NoError(t, th.Validate())
		prev := th.Classify(0)
		for score := 1; score <= 50; score++ {
			cur := th.Classify(score)
			assert.GreaterOrEqual(t, cur.Rank(), prev.Rank(), "score %d lowered level under %+v", score, th)
			prev = cur
		}
	}
}

func TestThresholds_Validate(t *testing.T) {
	assert.NoError(t, DefaultThresholds().Validate())
	assert.Error(t, Thresholds{LowMin: 0, MediumMin: 5, HighMin: 8}.Validate())
	assert.Error(t, Thresholds{LowMin: 5, MediumMin: 5, HighMin: 8}.Validate())
	assert.Error(t, Thresholds{LowMin: 2, MediumMin: 8, HighMin: 6}.Validate())
}

func TestScore_SumsWeights(t *testing.T) {
	issues := []Issue{
		{Category: "a", Weight: 2},
		{Category: "b", Weight: 3},
		{Category: "c", Weight: 0},
	}
	assert.Equal(t, 5, Score(issues))
	assert.Equal(t, 0, Score(nil))
}

func TestAggregate_Heuristic(t *testing.T) {
	now := time.Now()
	issues := []Issue{{Category: "x", Weight: 6}, {Category: "y", Weight: 2}}

	v := Aggregate(issues, lists.ResolutionNone, DefaultThresholds(), now)
	assert.Equal(t, 8, v.RiskScore)
	assert.Equal(t, LevelHigh, v.RiskLevel)
	assert.Equal(t, issues, v.Issues)
	assert.Equal(t, now, v.ComputedAt)
	assert.NotEmpty(t, v.ID)
}

func TestAggregate_OverridesKeepIssues(t *testing.T) {
	issues := []Issue{{Category: "x", Weight: 9}}

	allow := Aggregate(issues, lists.ResolutionAllow, DefaultThresholds(), time.Now())
	assert.Equal(t, LevelOverrideSafe, allow.RiskLevel)
	assert.Equal(t, OverrideScore, allow.RiskScore)
	assert.Equal(t, issues, allow.Issues)

	deny := Aggregate(nil, lists.ResolutionDeny, DefaultThresholds(), time.Now())
	assert.Equal(t, LevelOverrideBlocked, deny.RiskLevel)
	assert.Empty(t, deny.Issues)
}

func TestAggregate_ClampsNegativeWeights(t *testing.T) {
	v := Aggregate([]Issue{{Weight: -4}, {Weight: 3}}, lists.ResolutionNone, DefaultThresholds(), time.Now())
	assert.Equal(t, 3, v.RiskScore)
	assert.Equal(t, 0, v.Issues[0].Weight)
}

func TestErrorVerdict(t *testing.T) {
	v := ErrorVerdict(time.Now())
	assert.Equal(t, LevelError, v.RiskLevel)
	assert.NotNil(t, v.Issues)
	assert.Empty(t, v.Issues)
}

func TestPolicy_Decide(t *testing.T) {
	both := Policy{AlertsEnabled: true, BlockingEnabled: true}
	alertsOnly := Policy{AlertsEnabled: true}
	none := Policy{}

	tests := []struct {
		policy Policy
		level  Level
		want   Decision
	}{
		{both, LevelHigh, DecisionBlock},
		{alertsOnly, LevelHigh, DecisionWarn},
		{none, LevelHigh, DecisionAllow},
		{both, LevelMedium, DecisionWarn},
		{none, LevelMedium, DecisionAllow},
		{both, LevelLow, DecisionAllow},
		{none, LevelOverrideBlocked, DecisionBlock},
		{both, LevelOverrideSafe, DecisionAllow},
		{both, LevelError, DecisionAllow},
	}
	for _, tt := range tests {
		got := tt.policy.Decide(&Verdict{RiskLevel: tt.level})
		assert.Equal(t, tt.want, got, "%+v / %s", tt.policy, tt.level)
	}
	assert.Equal(t, DecisionAllow, both.Decide(nil))
}

func TestMemoryStore_RecordAndList(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for i := 0; i < 3; i++ {
		v := &Verdict{ID: string(rune('a' + i)), Host: "example.com", Issues: []Issue{{Weight: i}}}
		require.NoError(t, s.Record(ctx, v))
	}

	got, err := s.ListByHost(ctx, "example.com", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID, "most recent first")
	assert.Equal(t, "b", got[1].ID)

	got[0].Issues[0].Weight = 99
	again, _ := s.ListByHost(ctx, "example.com", 1)
	assert.Equal(t, 2, again[0].Issues[0].Weight, "store returns copies")

	none, err := s.ListByHost(ctx, "other.com", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
