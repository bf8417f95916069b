package jobs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urlwash/urlwash/internal/rules"
)

func removeParamRules(t *testing.T, name string) rules.Rules {
	t.Helper()
	m, err := rules.DecodeMapper([]byte(fmt.Sprintf(`{"RemoveQueryParams": [%q]}`, name)))
	require.NoError(t, err)
	c, err := rules.DecodeCondition([]byte(`"Always"`))
	require.NoError(t, err)
	return rules.Rules{{
		Condition: &rules.ConditionBox{Condition: c},
		Mapper:    &rules.MapperBox{Mapper: m},
	}}
}

func collect(t *testing.T, p *Pipeline, inputs []string) []Outcome {
	t.Helper()
	in := make(chan string)
	go func() {
		for _, i := range inputs {
			in <- i
		}
		close(in)
	}()
	var outcomes []Outcome
	for o := range p.Run(in) {
		outcomes = append(outcomes, o)
	}
	return outcomes
}

func TestPipelineSingleWorkerOrdering(t *testing.T) {
	p := &Pipeline{Workers: 1, Rules: removeParamRules(t, "a")}

	outcomes := collect(t, p, []string{
		"https://example.com?a=1",
		"https://example.com?b=2",
	})

	require.Len(t, outcomes, 2)
	require.NoError(t, outcomes[0].Err)
	require.NoError(t, outcomes[1].Err)
	assert.Equal(t, "https://example.com/", outcomes[0].URL)
	assert.Equal(t, "https://example.com/?b=2", outcomes[1].URL)
}

func TestPipelineMultiWorkerPreservesInputOrder(t *testing.T) {
	p := &Pipeline{Workers: 4, Rules: removeParamRules(t, "utm_source")}

	var inputs []string
	for i := 0; i < 100; i++ {
		inputs = append(inputs, fmt.Sprintf("https://example.com/%d?utm_source=x", i))
	}

	outcomes := collect(t, p, inputs)
	require.Len(t, outcomes, 100)
	for i, o := range outcomes {
		require.NoError(t, o.Err)
		assert.Equal(t, fmt.Sprintf("https://example.com/%d", i), o.URL)
	}
}

func TestPipelineIsolatesJobFailures(t *testing.T) {
	m, err := rules.DecodeMapper([]byte(`{"ModifyPart": {"part": "Fragment", "modification": "Uppercase"}}`))
	require.NoError(t, err)
	c, err := rules.DecodeCondition([]byte(`"Always"`))
	require.NoError(t, err)
	p := &Pipeline{Workers: 2, Rules: rules.Rules{{
		Condition: &rules.ConditionBox{Condition: c},
		Mapper:    &rules.MapperBox{Mapper: m},
	}}}

	outcomes := collect(t, p, []string{
		"https://example.com/#ok",
		"https://example.com/",
		"https://example.com/#also",
	})

	require.Len(t, outcomes, 3)
	assert.NoError(t, outcomes[0].Err)

	var jobErr *DoJobError
	require.ErrorAs(t, outcomes[1].Err, &jobErr)

	assert.NoError(t, outcomes[2].Err, "a failed job must not poison later jobs")
}

func TestPipelineMakeJobError(t *testing.T) {
	p := &Pipeline{Workers: 1, Rules: removeParamRules(t, "a")}

	outcomes := collect(t, p, []string{`{"context": {}}`})
	require.Len(t, outcomes, 1)

	var makeErr *MakeJobError
	require.ErrorAs(t, outcomes[0].Err, &makeErr)
}

func TestPipelineJobContextVisibleToRules(t *testing.T) {
	m, err := rules.DecodeMapper([]byte(`{"SetPart": {"part": "Fragment", "value": {"ContextVar": "tag"}}}`))
	require.NoError(t, err)
	c, err := rules.DecodeCondition([]byte(`"Always"`))
	require.NoError(t, err)
	p := &Pipeline{Workers: 1, Rules: rules.Rules{{
		Condition: &rules.ConditionBox{Condition: c},
		Mapper:    &rules.MapperBox{Mapper: m},
	}}}

	outcomes := collect(t, p, []string{`{"url": "https://example.com/", "context": {"vars": {"tag": "from-ctx"}}}`})
	require.Len(t, outcomes, 1)
	require.NoError(t, outcomes[0].Err)
	assert.Equal(t, "https://example.com/#from-ctx", outcomes[0].URL)
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig("https://example.com/x")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/x", cfg.URL)
	assert.Nil(t, cfg.Context)

	cfg, err = ParseConfig(`{"url": "https://example.com/", "context": {"vars": {"a": "1"}}}`)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/", cfg.URL)
	require.NotNil(t, cfg.Context)
	assert.Equal(t, "1", cfg.Context.Vars["a"])

	_, err = ParseConfig("   ")
	assert.Error(t, err)

	_, err = ParseConfig(`{"not json`)
	assert.Error(t, err)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name     string
		ok, fail int
		want     int
	}{
		{"all ok", 3, 0, 0},
		{"empty run", 0, 0, 0},
		{"all failed", 0, 2, 1},
		{"mixed", 2, 1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.ok, tt.fail); got != tt.want {
				t.Errorf("ExitCode(%d, %d) = %d, want %d", tt.ok, tt.fail, got, tt.want)
			}
		})
	}
}

func TestDoJobErrorUnwraps(t *testing.T) {
	inner := errors.New("inner")
	assert.ErrorIs(t, &DoJobError{Err: inner}, inner)
	assert.ErrorIs(t, &MakeJobError{Err: inner}, inner)
}
