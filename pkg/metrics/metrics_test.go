package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
)

func TestRecordEpisode(t *testing.T) {
	initial := testutil.ToFloat64(EpisodesProcessedTotal)

	RecordEpisode("success")

	after := testutil.ToFloat64(EpisodesProcessedTotal)
	assert.Equal(t, initial+1.0, after)

	successBefore := testutil.ToFloat64(EpisodesByOutcome.WithLabelValues("success"))
	RecordEpisode("success")
	successAfter := testutil.ToFloat64(EpisodesByOutcome.WithLabelValues("success"))
	assert.Equal(t, successBefore+1.0, successAfter)
}

func TestRecordCommand(t *testing.T) {
	initial := testutil.ToFloat64(CommandsExecutedTotal.WithLabelValues("medium", "fix"))

	RecordCommand("medium", "fix")

	after := testutil.ToFloat64(CommandsExecutedTotal.WithLabelValues("medium", "fix"))
	assert.Equal(t, initial+1.0, after)
}

func TestRecordRejectedCommand(t *testing.T) {
	initial := testutil.ToFloat64(CommandsRejectedTotal.WithLabelValues("forbidden_operation"))
	RecordRejectedCommand("forbidden_operation")
	after := testutil.ToFloat64(CommandsRejectedTotal.WithLabelValues("forbidden_operation"))
	assert.Equal(t, initial+1.0, after)
}

func TestRecordPlanSynthesis(t *testing.T) {
	RecordPlanSynthesis(2 * time.Second)

	metric := &dto.Metric{}
	err := PlanSynthesisDuration.Write(metric)
	assert.NoError(t, err)
	assert.True(t, metric.GetHistogram().GetSampleCount() > 0, "histogram should have recorded samples")
}

func TestRecordReflection(t *testing.T) {
	RecordReflection(0.75, 0.6)

	metric := &dto.Metric{}
	err := ReflectionQuality.Write(metric)
	assert.NoError(t, err)
	assert.True(t, metric.GetHistogram().GetSampleCount() > 0)

	assert.Equal(t, 0.6, testutil.ToFloat64(SelfAwarenessLevel))
}

func TestRecordStrategyConfidence(t *testing.T) {
	RecordStrategyConfidence("s1", 0.82)
	assert.Equal(t, 0.82, testutil.ToFloat64(StrategyConfidence.WithLabelValues("s1")))
}

func TestRecordHumanEscalation(t *testing.T) {
	initial := testutil.ToFloat64(HumanEscalationsTotal)
	RecordHumanEscalation()
	assert.Equal(t, initial+1.0, testutil.ToFloat64(HumanEscalationsTotal))
}
