package pipeline

import (
	"testing"

	"github.com/docvet/qrscan/internal/classify"
)

func TestStage_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		stage Stage
		want  string
	}{
		{StageLoading, "loading"},
		{StageRasterizing, "rasterizing"},
		{StageDecoding, "decoding"},
		{StageExtracting, "extracting"},
		{StageClassifying, "classifying"},
		{StageAggregating, "aggregating"},
		{StageDone, "done"},
		{StageFailed, "failed"},
		{Stage(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			if got := tt.stage.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultPipeline_StepOrder(t *testing.T) {
	t.Parallel()

	classifier := classify.New(classify.WithLogger(testLogger()))
	p := DefaultPipeline(&fakeRasterizer{}, fakeDecoder{}, classifier, Config{}, WithLogger(testLogger()))

	want := []string{"load", "rasterize", "decode", "extract", "classify", "aggregate"}
	got := p.StepNames()
	if len(got) != len(want) {
		t.Fatalf("len(StepNames()) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("StepNames()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	stages := []Stage{StageLoading, StageRasterizing, StageDecoding, StageExtracting, StageClassifying, StageAggregating}
	for i, step := range p.steps {
		if step.Stage() != stages[i] {
			t.Errorf("steps[%d].Stage() = %v, want %v", i, step.Stage(), stages[i])
		}
	}
}

func TestNewScan(t *testing.T) {
	t.Parallel()

	scan := NewScan("/tmp/report.pdf")
	if scan.Path != "/tmp/report.pdf" {
		t.Errorf("Path = %q", scan.Path)
	}
	if scan.Stage != StageLoading {
		t.Errorf("Stage = %v, want loading", scan.Stage)
	}
	if scan.startedAt.IsZero() {
		t.Error("startedAt not stamped")
	}
}
