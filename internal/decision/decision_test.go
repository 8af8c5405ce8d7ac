package decision

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/permitflow/internal/client"
	"github.com/shaiso/permitflow/internal/domain"
)

func details(descriptions ...string) []*domain.RuleDetail {
	out := make([]*domain.RuleDetail, 0, len(descriptions))
	for _, d := range descriptions {
		out = append(out, &domain.RuleDetail{Description: d})
	}
	return out
}

func TestSynthesize_RecommendedApproval(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	result := domain.RuleResult{
		Value:   domain.RuleValuePass,
		Details: details("description1", "description2", "description3"),
	}

	d := Synthesize(result, false, DefaultTexts(), now)

	assert.Equal(t, domain.DecisionOutcomeApproval, d.DecisionOutcome)
	assert.Equal(t, domain.DecisionTypeRecommended, d.DecisionType)
	assert.Equal(t, "Recommended decision is approval. Description1, description2 and description3.", d.Description)
	require.NotNil(t, d.Created)
	assert.Equal(t, now, *d.Created)
	assert.Nil(t, d.DecidedAt)
}

func TestSynthesize_FinalRejectionWithoutDetails(t *testing.T) {
	now := time.Now()
	d := Synthesize(domain.RuleResult{Value: domain.RuleValueFail}, true, DefaultTexts(), now)

	assert.Equal(t, domain.DecisionOutcomeRejection, d.DecisionOutcome)
	assert.Equal(t, domain.DecisionTypeFinal, d.DecisionType)
	require.NotNil(t, d.Created)
	require.NotNil(t, d.DecidedAt)
	assert.Equal(t, "Decision is rejection.", d.Description)
}

func TestSynthesize_PrefixTable(t *testing.T) {
	texts := DefaultTexts()
	tests := []struct {
		value     string
		automatic bool
		want      string
	}{
		{domain.RuleValuePass, false, "Recommended decision is approval. A."},
		{domain.RuleValueFail, false, "Recommended decision is rejection. A."},
		{domain.RuleValuePass, true, "Decision is approval. A."},
		{domain.RuleValueFail, true, "Decision is rejection. A."},
		{"NOT_APPLICABLE", true, "Decision is rejection. A."},
	}

	for _, tt := range tests {
		d := Synthesize(domain.RuleResult{Value: tt.value, Details: details("a")}, tt.automatic, texts, time.Now())
		assert.Equal(t, tt.want, d.Description)
	}
}

func TestSynthesize_DeterministicExceptTimestamps(t *testing.T) {
	result := domain.RuleResult{Value: domain.RuleValuePass, Details: details("x", "y")}

	a := Synthesize(result, true, DefaultTexts(), time.Now())
	b := Synthesize(result, true, DefaultTexts(), time.Now().Add(time.Hour))

	assert.Equal(t, a.DecisionType, b.DecisionType)
	assert.Equal(t, a.DecisionOutcome, b.DecisionOutcome)
	assert.Equal(t, a.Description, b.Description)
}

func TestDetailText(t *testing.T) {
	tests := []struct {
		name    string
		details []*domain.RuleDetail
		want    string
	}{
		{"empty", nil, ""},
		{"single", details("only one"), "Only one."},
		{"two", details("first", "second"), "First and second."},
		{"nil entries skipped", []*domain.RuleDetail{nil, {Description: "a"}, nil, {Description: "b"}}, "A and b."},
		{"commas inside fragment", details("a, b", "c"), "A, b and c."},
		{"unicode", details("ärende saknas", "intyg"), "Ärende saknas and intyg."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetailText(tt.details, " and "))
		})
	}
}

func TestDetailText_ConjunctionWithDollar(t *testing.T) {
	assert.Equal(t, "A $1 b.", DetailText(details("a", "b"), " $1 "))
}

func TestDetailText_SwedishConjunction(t *testing.T) {
	assert.Equal(t, "A, b och c.", DetailText(details("a", "b", "c"), " och "))
}

func TestTexts_Validate(t *testing.T) {
	require.NoError(t, DefaultTexts().Validate())

	ok := DefaultTexts()
	ok.FinalApproval = "Beslut: bifall (100%%). %s"
	assert.NoError(t, ok.Validate())

	tests := []struct {
		name   string
		prefix string
	}{
		{"no placeholder", "Beslut: bifall."},
		{"two placeholders", "%s Beslut: bifall. %s"},
		{"other verb", "Beslut %d: %s"},
		{"width flag", "Beslut: %10s"},
		{"trailing percent", "Beslut: %s %"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			texts := DefaultTexts()
			texts.FinalApproval = tt.prefix
			err := texts.Validate()
			require.ErrorIs(t, err, ErrInvalidPrefix)
			assert.Contains(t, err.Error(), "finalApproval")
		})
	}
}

func TestAggregate(t *testing.T) {
	resp := client.RuleResponse{Results: []client.RuleOutcome{
		{Rule: "r1", Value: "PASS", Details: []*client.RuleOutcomeDetail{{Rule: "r1", Description: "ok"}}},
		{Rule: "r2", Value: "FAIL", Details: []*client.RuleOutcomeDetail{{Rule: "r2", Description: "missing certificate"}, nil}},
		{Rule: "r3", Value: "NOT_APPLICABLE"},
	}}

	result := Aggregate(resp)
	assert.Equal(t, domain.RuleValueFail, result.Value)
	require.Len(t, result.Details, 1)
	assert.Equal(t, "missing certificate", result.Details[0].Description)

	passOnly := Aggregate(client.RuleResponse{Results: resp.Results[:1]})
	assert.Equal(t, domain.RuleValuePass, passOnly.Value)

	none := Aggregate(client.RuleResponse{})
	assert.Equal(t, domain.RuleValueNotApplicable, none.Value)
	assert.Empty(t, none.Details)
}
